package services

import (
	"context"
	"strings"
)

// BoundarySet is the parsed boundary-polygon metadata for the map layer.
// Fetching it is a network concern injected behind BoundaryProvider so the
// aggregation code stays testable offline.
type BoundarySet struct {
	Features []BoundaryFeature
}

// BoundaryFeature identifies one polygon in the boundary dataset.
type BoundaryFeature struct {
	ID   string
	Name string
}

// BoundaryProvider fetches boundary metadata at request time. Implementations
// must apply their own timeout; callers treat any error as "render without
// the map".
type BoundaryProvider interface {
	Boundaries(ctx context.Context) (*BoundarySet, error)
}

// regionAliases maps administrative long-form names to the short forms used
// in boundary-polygon metadata. Lookups go through NormalizeRegionName.
var regionAliases = map[string]string{
	"national capital territory of delhi": "Delhi",
	"nct of delhi":                        "Delhi",
	"orissa":                              "Odisha",
	"uttaranchal":                         "Uttarakhand",
	"pondicherry":                         "Puducherry",
	"jammu & kashmir":                     "Jammu and Kashmir",
	"andaman & nicobar islands":           "Andaman and Nicobar Islands",
}

// NormalizeRegionName resolves a region display name through the static
// alias table. Unknown names pass through trimmed but otherwise unchanged.
func NormalizeRegionName(name string) string {
	trimmed := strings.TrimSpace(name)
	if alias, ok := regionAliases[strings.ToLower(trimmed)]; ok {
		return alias
	}
	return trimmed
}

// MapRow joins one region's sentiment totals to a boundary polygon for map
// rendering.
type MapRow struct {
	RegionID   int64  `json:"region_id"`
	RegionName string `json:"region_name"`
	FeatureID  string `json:"feature_id"`
	Positive   int    `json:"positive"`
	Negative   int    `json:"negative"`
	Neutral    int    `json:"neutral"`
	Total      int    `json:"total"`
}

// JoinRegionTotals matches per-region totals against boundary features by
// normalized name. Regions without a matching polygon are dropped from the
// map layer; the caller keeps them in the tabular output.
func JoinRegionTotals(rows []RegionBreakdown, bs *BoundarySet) []MapRow {
	if bs == nil {
		return nil
	}
	byName := make(map[string]BoundaryFeature, len(bs.Features))
	for _, f := range bs.Features {
		byName[strings.ToLower(NormalizeRegionName(f.Name))] = f
	}
	out := make([]MapRow, 0, len(rows))
	for _, row := range rows {
		f, ok := byName[strings.ToLower(NormalizeRegionName(row.Name))]
		if !ok {
			continue
		}
		out = append(out, MapRow{
			RegionID:   row.ID,
			RegionName: row.Name,
			FeatureID:  f.ID,
			Positive:   row.Positive,
			Negative:   row.Negative,
			Neutral:    row.Neutral,
			Total:      row.Total,
		})
	}
	return out
}
