package services

import (
	"context"
	"errors"
	"testing"
)

type demographicStubStore struct {
	posts     map[int64]*Post
	responses []*Response
	ageGroups []*AgeGroup
	regions   []*Region
}

func (s *demographicStubStore) GetPost(id int64) (*Post, error) {
	if p, ok := s.posts[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, nil
}

func (s *demographicStubStore) ListResponsesByPost(postID int64) ([]*Response, error) {
	out := []*Response{}
	for _, r := range s.responses {
		if r.PostID == postID {
			copy := *r
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *demographicStubStore) ListAgeGroups() ([]*AgeGroup, error) {
	return append([]*AgeGroup(nil), s.ageGroups...), nil
}

func (s *demographicStubStore) ListRegions() ([]*Region, error) {
	return append([]*Region(nil), s.regions...), nil
}

type stubBoundaryProvider struct {
	set *BoundarySet
	err error
}

func (p *stubBoundaryProvider) Boundaries(ctx context.Context) (*BoundarySet, error) {
	return p.set, p.err
}

func seededDemographicStore() *demographicStubStore {
	return &demographicStubStore{
		posts: map[int64]*Post{1: {ID: 1, ClusterID: 1}},
		ageGroups: []*AgeGroup{
			{ID: 0, Label: "Undisclosed"},
			{ID: 2, Label: "18-25"},
			{ID: 3, Label: "26-35"},
		},
		regions: []*Region{
			{ID: 0, Name: "Undisclosed"},
			{ID: 5, Name: "Kerala"},
			{ID: 7, Name: "Orissa"},
		},
		responses: sampleResponses(),
	}
}

func TestDemographicViewCrossTabs(t *testing.T) {
	provider := &stubBoundaryProvider{set: &BoundarySet{Features: []BoundaryFeature{
		{ID: "F1", Name: "Kerala"},
		{ID: "F2", Name: "Odisha"},
	}}}
	svc := NewDemographicService(seededDemographicStore(), provider)
	view, err := svc.View(context.Background(), 1)
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	// the undisclosed responses are excluded from per-dimension tables...
	for _, row := range view.ByAgeGroup {
		if row.ID == 0 {
			t.Fatalf("undisclosed age bucket leaked into cross-tab: %+v", row)
		}
	}
	for _, row := range view.ByRegion {
		if row.ID == 0 {
			t.Fatalf("undisclosed region leaked into cross-tab: %+v", row)
		}
	}
	// ...but still count toward the overall total
	if view.TotalResponses != 4 {
		t.Fatalf("expected total 4 including undisclosed, got %d", view.TotalResponses)
	}
	if len(view.ByGender) != 4 {
		t.Fatalf("expected canonical four-way gender axis, got %+v", view.ByGender)
	}
	if view.ByGender[0].Code != GenderMale || view.ByGender[0].Total != 2 {
		t.Fatalf("unexpected male cell: %+v", view.ByGender[0])
	}
	if view.ByGender[2].Code != GenderOther || view.ByGender[2].Total != 0 {
		t.Fatalf("zero-count gender lost its slot: %+v", view.ByGender[2])
	}
	if !view.MapAvailable || len(view.MapRows) != 2 {
		t.Fatalf("expected both regions joined to the map: %+v", view.MapRows)
	}
	if view.MapRows[1].FeatureID != "F2" {
		t.Fatalf("alias normalization failed in join: %+v", view.MapRows[1])
	}
}

func TestDemographicViewBoundaryFailureDegrades(t *testing.T) {
	provider := &stubBoundaryProvider{err: errors.New("upstream timeout")}
	svc := NewDemographicService(seededDemographicStore(), provider)
	view, err := svc.View(context.Background(), 1)
	if err != nil {
		t.Fatalf("boundary failure must not fail the view: %v", err)
	}
	if view.MapAvailable || view.MapRows != nil {
		t.Fatalf("expected tabular-only degradation: %+v", view)
	}
	if len(view.ByRegion) == 0 {
		t.Fatalf("tabular region data missing after degradation")
	}
}

func TestDemographicViewUnknownPost(t *testing.T) {
	svc := NewDemographicService(seededDemographicStore(), nil)
	_, err := svc.View(context.Background(), 9)
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}
