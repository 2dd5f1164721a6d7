package services

import (
	"strings"
	"testing"
)

type sentimentStubStore struct {
	posts     map[int64]*Post
	responses []*Response
	ageGroups map[int64]*AgeGroup
	regions   map[int64]*Region
}

func newSentimentStubStore() *sentimentStubStore {
	return &sentimentStubStore{
		posts:     map[int64]*Post{},
		ageGroups: map[int64]*AgeGroup{},
		regions:   map[int64]*Region{},
	}
}

func (s *sentimentStubStore) GetPost(id int64) (*Post, error) {
	if p, ok := s.posts[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, nil
}

func (s *sentimentStubStore) ListResponsesByPost(postID int64) ([]*Response, error) {
	out := []*Response{}
	for _, r := range s.responses {
		if r.PostID == postID {
			copy := *r
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *sentimentStubStore) ListResponses(postID int64, c Criteria) ([]*Response, error) {
	full, _ := s.ListResponsesByPost(postID)
	return c.Apply(full), nil
}

func (s *sentimentStubStore) CountResponses(postID int64, c Criteria) (int, error) {
	full, _ := s.ListResponsesByPost(postID)
	return c.Count(full), nil
}

func (s *sentimentStubStore) GetAgeGroup(id int64) (*AgeGroup, error) {
	if g, ok := s.ageGroups[id]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, nil
}

func (s *sentimentStubStore) GetRegion(id int64) (*Region, error) {
	if r, ok := s.regions[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, nil
}

func seededSentimentStore() *sentimentStubStore {
	store := newSentimentStubStore()
	store.posts[1] = &Post{ID: 1, ClusterID: 1, PublishDate: day(2024, 2, 1), Link: "https://example.com/p/1", Message: "launch"}
	store.ageGroups[2] = &AgeGroup{ID: 2, Label: "18-25"}
	store.ageGroups[3] = &AgeGroup{ID: 3, Label: "26-35"}
	store.regions[5] = &Region{ID: 5, Name: "Kerala"}
	store.regions[7] = &Region{ID: 7, Name: "Odisha"}
	store.responses = sampleResponses()
	return store
}

func TestSentimentViewUnfiltered(t *testing.T) {
	svc := NewSentimentService(seededSentimentStore(), 5)
	view, err := svc.View(1, Criteria{}, 1)
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if view.Distribution.Total != 4 || view.Distribution.Positive != 2 {
		t.Fatalf("unexpected distribution: %+v", view.Distribution)
	}
	if view.Page == nil || len(view.Page.Items) != 4 {
		t.Fatalf("expected all 4 responses on page 1, got %+v", view.Page)
	}
	// newest first
	if view.Page.Items[0].ID != 4 || view.Page.Items[3].ID != 1 {
		t.Fatalf("page not in date-desc order: %+v", view.Page.Items)
	}
}

func TestSentimentViewOptionsIndependentOfFilters(t *testing.T) {
	svc := NewSentimentService(seededSentimentStore(), 5)
	region := KnownRef(5)
	view, err := svc.View(1, Criteria{Region: &region}, 1)
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if view.Distribution.Total != 2 {
		t.Fatalf("filter not applied: %+v", view.Distribution)
	}
	// filtering to region 5 must still offer region 7 and undisclosed
	names := []string{}
	for _, r := range view.Options.Regions {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	if joined != "Kerala,Odisha,Undisclosed" {
		t.Fatalf("options hid valid filter values: %q", joined)
	}
	if len(view.Options.AgeGroups) != 3 {
		t.Fatalf("expected age groups 18-25, 26-35 and undisclosed, got %+v", view.Options.AgeGroups)
	}
	if view.Options.MinDate != "2024-03-01" || view.Options.MaxDate != "2024-03-04" {
		t.Fatalf("unexpected date bounds: %+v", view.Options)
	}
}

func TestSentimentChartAndPagePayloads(t *testing.T) {
	svc := NewSentimentService(seededSentimentStore(), 2)
	d, err := svc.ChartPayload(1, Criteria{})
	if err != nil {
		t.Fatalf("ChartPayload returned error: %v", err)
	}
	if d.Total != 4 {
		t.Fatalf("unexpected chart payload: %+v", d)
	}
	page, err := svc.PagePayload(1, Criteria{}, 2)
	if err != nil {
		t.Fatalf("PagePayload returned error: %v", err)
	}
	if page.Number != 2 || len(page.Items) != 2 || page.Items[0].ID != 2 {
		t.Fatalf("unexpected page payload: %+v", page)
	}
	// out-of-range clamps rather than failing
	page, err = svc.PagePayload(1, Criteria{}, 99)
	if err != nil || page.Number != 1 {
		t.Fatalf("expected clamp to page 1, got %+v err=%v", page, err)
	}
}

func TestSentimentViewUnknownPost(t *testing.T) {
	svc := NewSentimentService(seededSentimentStore(), 5)
	_, err := svc.View(42, Criteria{}, 1)
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestSentimentExportCSV(t *testing.T) {
	svc := NewSentimentService(seededSentimentStore(), 5)
	male := GenderMale
	data, err := svc.ExportCSV(1, Criteria{Gender: &male})
	if err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "response_id,post_id,date") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "2024-03-03") {
		t.Fatalf("rows not date-desc ordered: %q", lines[1])
	}
}

func TestSentimentCountFiltered(t *testing.T) {
	svc := NewSentimentService(seededSentimentStore(), 5)
	female := GenderFemale
	n, err := svc.CountFiltered(1, Criteria{Gender: &female})
	if err != nil || n != 1 {
		t.Fatalf("expected count 1, got %d err=%v", n, err)
	}
}
