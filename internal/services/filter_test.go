package services

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleResponses() []*Response {
	return []*Response{
		{ID: 1, PostID: 1, Date: day(2024, 3, 1), Gender: GenderMale, AgeGroup: KnownRef(2), Region: KnownRef(5), Sentiment: SentimentPositive},
		{ID: 2, PostID: 1, Date: day(2024, 3, 2), Gender: GenderFemale, AgeGroup: KnownRef(3), Region: KnownRef(5), Sentiment: SentimentNegative},
		{ID: 3, PostID: 1, Date: day(2024, 3, 3), Gender: GenderMale, AgeGroup: Undisclosed(), Region: KnownRef(7), Sentiment: SentimentNeutral},
		{ID: 4, PostID: 1, Date: day(2024, 3, 4), Gender: GenderNotDisclosed, AgeGroup: KnownRef(2), Region: Undisclosed(), Sentiment: SentimentPositive},
	}
}

func TestCriteriaZeroFiltersReturnsFullSet(t *testing.T) {
	rs := sampleResponses()
	got := Criteria{}.Apply(rs)
	if len(got) != len(rs) {
		t.Fatalf("expected full set, got %d of %d", len(got), len(rs))
	}
	if n := (Criteria{}).Count(rs); n != len(rs) {
		t.Fatalf("expected count %d, got %d", len(rs), n)
	}
}

func TestCriteriaANDSemantics(t *testing.T) {
	rs := sampleResponses()
	male := GenderMale
	region := KnownRef(5)
	c := Criteria{Gender: &male, Region: &region}
	got := c.Apply(rs)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only response 1, got %+v", got)
	}
	for _, r := range got {
		if r.Gender != male || r.Region != region {
			t.Fatalf("response %d violates AND semantics", r.ID)
		}
	}
}

func TestCriteriaUndisclosedFilter(t *testing.T) {
	rs := sampleResponses()
	undisclosed := Undisclosed()
	got := Criteria{AgeGroup: &undisclosed}.Apply(rs)
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("expected only response 3, got %+v", got)
	}
}

func TestCriteriaDateRangeInclusive(t *testing.T) {
	rs := sampleResponses()
	from := day(2024, 3, 2)
	to := day(2024, 3, 3)
	got := Criteria{DateFrom: &from, DateTo: &to}.Apply(rs)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("expected responses 2 and 3, got %+v", got)
	}
}

func TestCollectOptionsIgnoresActiveFilters(t *testing.T) {
	rs := sampleResponses()
	// Options must always come from the full set, so filtering down to one
	// region must not hide the other selectable values.
	opts := CollectOptions(rs)
	if len(opts.Genders) != 3 {
		t.Fatalf("expected 3 gender options, got %v", opts.Genders)
	}
	if opts.Genders[0] != GenderMale || opts.Genders[1] != GenderFemale || opts.Genders[2] != GenderNotDisclosed {
		t.Fatalf("gender options out of canonical order: %v", opts.Genders)
	}
	if len(opts.Regions) != 3 {
		t.Fatalf("expected regions 5, 7 and undisclosed, got %v", opts.Regions)
	}
	if opts.Regions[0] != KnownRef(5) || opts.Regions[1] != KnownRef(7) || opts.Regions[2].Known {
		t.Fatalf("region options out of order: %v", opts.Regions)
	}
	if !opts.MinDate.Equal(day(2024, 3, 1)) || !opts.MaxDate.Equal(day(2024, 3, 4)) {
		t.Fatalf("unexpected date bounds: %v .. %v", opts.MinDate, opts.MaxDate)
	}
}

func TestSortResponsesDateDescTieByID(t *testing.T) {
	rs := []*Response{
		{ID: 1, Date: day(2024, 3, 2)},
		{ID: 2, Date: day(2024, 3, 3)},
		{ID: 3, Date: day(2024, 3, 3)},
		{ID: 4, Date: day(2024, 3, 1)},
	}
	SortResponses(rs)
	want := []int64{3, 2, 1, 4}
	for i, id := range want {
		if rs[i].ID != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, rs[i].ID)
		}
	}
}
