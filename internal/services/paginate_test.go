package services

import "testing"

func twelveItems() []int {
	out := make([]int, 12)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginateFirstPage(t *testing.T) {
	p := Paginate(twelveItems(), 5, 1)
	if len(p.Items) != 5 || p.Items[0] != 1 || p.Items[4] != 5 {
		t.Fatalf("unexpected page 1: %+v", p.Items)
	}
	if p.TotalPages != 3 || p.HasPrev || !p.HasNext {
		t.Fatalf("unexpected page meta: %+v", p)
	}
}

func TestPaginateLastPartialPage(t *testing.T) {
	p := Paginate(twelveItems(), 5, 3)
	if len(p.Items) != 2 || p.Items[0] != 11 || p.Items[1] != 12 {
		t.Fatalf("unexpected page 3: %+v", p.Items)
	}
	if p.HasNext || !p.HasPrev {
		t.Fatalf("unexpected nav flags: %+v", p)
	}
}

func TestPaginateOutOfRangeClampsToPageOne(t *testing.T) {
	for _, n := range []int{0, -3, 99} {
		p := Paginate(twelveItems(), 5, n)
		if p.Number != 1 || len(p.Items) != 5 || p.Items[0] != 1 {
			t.Fatalf("page %d did not clamp to page 1: %+v", n, p)
		}
	}
}

func TestPaginateEmptyList(t *testing.T) {
	p := Paginate([]int(nil), 5, 4)
	if p.Number != 1 || p.TotalPages != 1 || len(p.Items) != 0 {
		t.Fatalf("unexpected empty page: %+v", p)
	}
	if p.HasNext || p.HasPrev {
		t.Fatalf("empty page should have no neighbors: %+v", p)
	}
}

func TestPaginateDefaultSize(t *testing.T) {
	p := Paginate(twelveItems(), 0, 1)
	if p.Size != DefaultPageSize || len(p.Items) != DefaultPageSize {
		t.Fatalf("expected default size %d, got %+v", DefaultPageSize, p)
	}
}
