package services

import (
	"sort"
	"time"
)

// Criteria is the filter specification applied on top of the base condition
// "response belongs to post". A nil field leaves that dimension unfiltered;
// present fields AND an equality (or, for dates, an inclusive range)
// condition onto the predicate. An empty form value must be parsed to nil by
// the caller, never to "match empty string".
type Criteria struct {
	Gender   *Gender
	AgeGroup *DemographicRef
	Region   *DemographicRef
	DateFrom *time.Time
	DateTo   *time.Time
}

// IsZero reports whether no dimension is filtered.
func (c Criteria) IsZero() bool {
	return c.Gender == nil && c.AgeGroup == nil && c.Region == nil &&
		c.DateFrom == nil && c.DateTo == nil
}

// Matches evaluates the composed predicate against a single response.
func (c Criteria) Matches(r *Response) bool {
	if c.Gender != nil && r.Gender != *c.Gender {
		return false
	}
	if c.AgeGroup != nil && r.AgeGroup != *c.AgeGroup {
		return false
	}
	if c.Region != nil && r.Region != *c.Region {
		return false
	}
	if c.DateFrom != nil && r.Date.Before(dateOnly(*c.DateFrom)) {
		return false
	}
	if c.DateTo != nil && r.Date.After(endOfDay(*c.DateTo)) {
		return false
	}
	return true
}

// Apply materializes the filtered subset, preserving input order.
func (c Criteria) Apply(rs []*Response) []*Response {
	if c.IsZero() {
		return append([]*Response(nil), rs...)
	}
	out := make([]*Response, 0, len(rs))
	for _, r := range rs {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Count counts matches without keeping the filtered slice.
func (c Criteria) Count(rs []*Response) int {
	n := 0
	for _, r := range rs {
		if c.Matches(r) {
			n++
		}
	}
	return n
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return dateOnly(t).Add(24*time.Hour - time.Nanosecond)
}

// Options enumerates the filter choices present in a post's FULL response
// set. They are derived independently of any active criteria so the filter
// widget never hides a valid option.
type Options struct {
	Genders   []Gender
	AgeGroups []DemographicRef
	Regions   []DemographicRef
	MinDate   time.Time
	MaxDate   time.Time
}

// CollectOptions scans the unfiltered response set of a post. Genders come
// back in canonical domain order; age groups and regions sorted by id with
// the undisclosed bucket, when present, last.
func CollectOptions(full []*Response) Options {
	genderSeen := map[Gender]bool{}
	ageSeen := map[DemographicRef]bool{}
	regionSeen := map[DemographicRef]bool{}
	var opts Options
	for i, r := range full {
		genderSeen[r.Gender] = true
		ageSeen[r.AgeGroup] = true
		regionSeen[r.Region] = true
		if i == 0 || r.Date.Before(opts.MinDate) {
			opts.MinDate = r.Date
		}
		if i == 0 || r.Date.After(opts.MaxDate) {
			opts.MaxDate = r.Date
		}
	}
	for _, g := range GenderDomain() {
		if genderSeen[g] {
			opts.Genders = append(opts.Genders, g)
		}
	}
	opts.AgeGroups = sortRefs(ageSeen)
	opts.Regions = sortRefs(regionSeen)
	return opts
}

func sortRefs(seen map[DemographicRef]bool) []DemographicRef {
	out := make([]DemographicRef, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		// known refs ordered by id, undisclosed trails
		if out[i].Known != out[j].Known {
			return out[i].Known
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortResponses orders a result set for display and pagination: response
// date descending, ties broken by id descending so pages stay stable when
// dates collide.
func SortResponses(rs []*Response) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].Date.Equal(rs[j].Date) {
			return rs[i].Date.After(rs[j].Date)
		}
		return rs[i].ID > rs[j].ID
	})
}
