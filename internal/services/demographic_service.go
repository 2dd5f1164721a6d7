package services

import (
	"context"
	"sort"
)

type DemographicStore interface {
	GetPost(id int64) (*Post, error)
	ListResponsesByPost(postID int64) ([]*Response, error)
	ListAgeGroups() ([]*AgeGroup, error)
	ListRegions() ([]*Region, error)
}

// DemographicService computes per-dimension sentiment cross-tabulations for
// one post and joins region totals to boundary polygons for the map layer.
type DemographicService struct {
	store      DemographicStore
	boundaries BoundaryProvider
}

func NewDemographicService(store DemographicStore, boundaries BoundaryProvider) *DemographicService {
	return &DemographicService{store: store, boundaries: boundaries}
}

// GenderBreakdown is one gender cell over the canonical four-way domain.
type GenderBreakdown struct {
	Code     Gender `json:"code"`
	Label    string `json:"label"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Total    int    `json:"total"`
}

// AgeGroupBreakdown is one age-group cell. The undisclosed bucket is
// excluded from this table but still included in overall totals.
type AgeGroupBreakdown struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Total    int    `json:"total"`
}

// RegionBreakdown is one region cell. The undisclosed region is excluded
// here and from the map layer.
type RegionBreakdown struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Total    int    `json:"total"`
}

type DemographicView struct {
	Post           *Post               `json:"post"`
	TotalResponses int                 `json:"total_responses"`
	ByGender       []GenderBreakdown   `json:"by_gender"`
	ByAgeGroup     []AgeGroupBreakdown `json:"by_age_group"`
	ByRegion       []RegionBreakdown   `json:"by_region"`
	MapRows        []MapRow            `json:"map_rows,omitempty"`
	MapAvailable   bool                `json:"map_available"`
}

// View computes all three cross-tabulations over the post's full response
// set. The boundary fetch is best-effort: on failure the view degrades to
// tabular output with MapAvailable=false and the request still succeeds.
func (s *DemographicService) View(ctx context.Context, postID int64) (*DemographicView, error) {
	post, err := s.store.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, NewNotFoundError("post not found")
	}
	rs, err := s.store.ListResponsesByPost(postID)
	if err != nil {
		return nil, err
	}
	byGender := s.byGender(rs)
	byAge, err := s.byAgeGroup(rs)
	if err != nil {
		return nil, err
	}
	byRegion, err := s.byRegion(rs)
	if err != nil {
		return nil, err
	}
	view := &DemographicView{
		Post:           post,
		TotalResponses: len(rs),
		ByGender:       byGender,
		ByAgeGroup:     byAge,
		ByRegion:       byRegion,
	}
	if s.boundaries != nil {
		if bs, err := s.boundaries.Boundaries(ctx); err == nil {
			view.MapRows = JoinRegionTotals(byRegion, bs)
			view.MapAvailable = true
		}
	}
	return view, nil
}

func (s *DemographicService) byGender(rs []*Response) []GenderBreakdown {
	cells := CrossTab(rs, func(r *Response) (Gender, bool) {
		return r.Gender, true
	}, GenderDomain())
	out := make([]GenderBreakdown, 0, len(cells))
	for _, c := range cells {
		out = append(out, GenderBreakdown{
			Code:     c.Key,
			Label:    c.Key.Label(),
			Positive: c.Positive,
			Negative: c.Negative,
			Neutral:  c.Neutral,
			Total:    c.Total,
		})
	}
	return out
}

func (s *DemographicService) byAgeGroup(rs []*Response) ([]AgeGroupBreakdown, error) {
	groups, err := s.store.ListAgeGroups()
	if err != nil {
		return nil, err
	}
	domain := make([]int64, 0, len(groups))
	labels := make(map[int64]string, len(groups))
	for _, g := range groups {
		if g.ID == 0 {
			continue
		}
		domain = append(domain, g.ID)
		labels[g.ID] = g.Label
	}
	sort.Slice(domain, func(i, j int) bool { return domain[i] < domain[j] })
	cells := CrossTab(rs, func(r *Response) (int64, bool) {
		if !r.AgeGroup.Known {
			return 0, false
		}
		return r.AgeGroup.ID, true
	}, domain)
	out := make([]AgeGroupBreakdown, 0, len(cells))
	for _, c := range cells {
		out = append(out, AgeGroupBreakdown{
			ID:       c.Key,
			Label:    labels[c.Key],
			Positive: c.Positive,
			Negative: c.Negative,
			Neutral:  c.Neutral,
			Total:    c.Total,
		})
	}
	return out, nil
}

func (s *DemographicService) byRegion(rs []*Response) ([]RegionBreakdown, error) {
	regions, err := s.store.ListRegions()
	if err != nil {
		return nil, err
	}
	domain := make([]int64, 0, len(regions))
	names := make(map[int64]string, len(regions))
	for _, rg := range regions {
		if rg.ID == 0 {
			continue
		}
		domain = append(domain, rg.ID)
		names[rg.ID] = rg.Name
	}
	sort.Slice(domain, func(i, j int) bool { return domain[i] < domain[j] })
	cells := CrossTab(rs, func(r *Response) (int64, bool) {
		if !r.Region.Known {
			return 0, false
		}
		return r.Region.ID, true
	}, domain)
	out := make([]RegionBreakdown, 0, len(cells))
	for _, c := range cells {
		out = append(out, RegionBreakdown{
			ID:       c.Key,
			Name:     names[c.Key],
			Positive: c.Positive,
			Negative: c.Negative,
			Neutral:  c.Neutral,
			Total:    c.Total,
		})
	}
	return out, nil
}
