package services

import "testing"

func TestNormalizeRegionName(t *testing.T) {
	cases := map[string]string{
		"National Capital Territory of Delhi": "Delhi",
		"Orissa":                              "Odisha",
		" Uttaranchal ":                       "Uttarakhand",
		"Kerala":                              "Kerala",
	}
	for in, want := range cases {
		if got := NormalizeRegionName(in); got != want {
			t.Fatalf("NormalizeRegionName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinRegionTotals(t *testing.T) {
	rows := []RegionBreakdown{
		{ID: 1, Name: "Kerala", Positive: 3, Total: 4},
		{ID: 2, Name: "Orissa", Negative: 2, Total: 2},
		{ID: 3, Name: "Atlantis", Total: 1},
	}
	bs := &BoundarySet{Features: []BoundaryFeature{
		{ID: "F1", Name: "Kerala"},
		{ID: "F2", Name: "Odisha"},
	}}
	got := JoinRegionTotals(rows, bs)
	if len(got) != 2 {
		t.Fatalf("expected unmatched region dropped, got %d rows", len(got))
	}
	if got[0].FeatureID != "F1" || got[0].Positive != 3 {
		t.Fatalf("unexpected first map row: %+v", got[0])
	}
	if got[1].FeatureID != "F2" || got[1].RegionName != "Orissa" {
		t.Fatalf("alias join failed: %+v", got[1])
	}
}

func TestJoinRegionTotalsNilBoundaries(t *testing.T) {
	if got := JoinRegionTotals([]RegionBreakdown{{ID: 1, Name: "Kerala"}}, nil); got != nil {
		t.Fatalf("expected nil map rows without boundaries, got %+v", got)
	}
}
