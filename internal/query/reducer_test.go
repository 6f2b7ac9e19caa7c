package query

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultState(t *testing.T) {
	s := Default()
	if s.Page != 0 || s.Size != 10 || s.SortField != SortByCreatedAt || s.SortDirection != DESC {
		t.Fatalf("unexpected default: %+v", s)
	}
	if len(s.Filters) != 0 {
		t.Fatalf("expected no filters, got %v", s.Filters)
	}
}

func TestSetFilterResetsPage(t *testing.T) {
	s := SetPage(Default(), 4)
	got := SetFilter(s, FilterDistrict, "Dhaka")
	if got.Page != 0 {
		t.Fatalf("page not reset: %d", got.Page)
	}
	if v, ok := got.Filter(FilterDistrict); !ok || v != "Dhaka" {
		t.Fatalf("filter not set: %v", got.Filters)
	}
	if _, ok := s.Filter(FilterDistrict); ok {
		t.Fatal("input state was mutated")
	}
}

func TestSetFilterBlankRemoves(t *testing.T) {
	s := SetFilter(Default(), FilterFullName, "Karim")
	for _, blank := range []string{"", "   ", "\t"} {
		got := SetFilter(s, FilterFullName, blank)
		if _, ok := got.Filter(FilterFullName); ok {
			t.Fatalf("blank %q kept the filter", blank)
		}
	}
}

func TestSetFilterUnknownKeyPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidFilterKey) {
			t.Fatalf("expected ErrInvalidFilterKey panic, got %v", r)
		}
	}()
	SetFilter(Default(), FilterKey("shoeSize"), "42")
}

func TestSetSortToggleAndSwitch(t *testing.T) {
	s := SetPage(Default(), 3)

	same := SetSort(s, SortByCreatedAt)
	if same.SortDirection != ASC || same.Page != 3 {
		t.Fatalf("toggle: %+v", same)
	}
	back := SetSort(same, SortByCreatedAt)
	if back.SortDirection != DESC {
		t.Fatalf("toggle twice: %+v", back)
	}

	other := SetSort(s, SortByFullName)
	if other.SortField != SortByFullName || other.SortDirection != ASC || other.Page != 3 {
		t.Fatalf("switch: %+v", other)
	}
}

func TestSetPage(t *testing.T) {
	s := SetFilter(Default(), FilterStatus, "PENDING")
	got := SetPage(s, 7)
	if got.Page != 7 {
		t.Fatalf("page: %d", got.Page)
	}
	if diff := cmp.Diff(s.Filters, got.Filters); diff != "" {
		t.Fatalf("filters changed (-want +got):\n%s", diff)
	}
	if SetPage(s, -2).Page != 0 {
		t.Fatal("negative page not sanitized")
	}
	if got := SetPage(s, MaxPage+10).Page; got != MaxPage {
		t.Fatalf("page past max: %d", got)
	}
}

func TestSetPageSize(t *testing.T) {
	s := SetPage(Default(), 2)
	cases := map[int]int{5: 5, 25: 25, 100: 100, 7: 5, 30: 25, 1000: 100, 0: 5, -3: 5}
	for in, want := range cases {
		got := SetPageSize(s, in)
		if got.Size != want || got.Page != 0 {
			t.Fatalf("SetPageSize(%d) = size %d page %d, want size %d page 0", in, got.Size, got.Page, want)
		}
	}
}

func TestClear(t *testing.T) {
	s := SetFilter(SetSort(SetPageSize(Default(), 50), SortByID), FilterGender, "FEMALE")
	s = SetPage(s, 9)
	if got := Clear(s); !got.Equal(Default()) {
		t.Fatalf("clear: %+v", got)
	}
}

func TestClampPage(t *testing.T) {
	s := SetPage(Default(), 5)
	if got := ClampPage(s, 3); got.Page != 2 {
		t.Fatalf("clamp high: %d", got.Page)
	}
	if got := ClampPage(s, 0); got.Page != 0 {
		t.Fatalf("clamp empty: %d", got.Page)
	}
	if got := ClampPage(s, 10); got.Page != 5 {
		t.Fatalf("clamp in range: %d", got.Page)
	}
}

// Every reducer must leave the page at 0 after a filter or size change, and
// must never produce a size outside PageSizes.
func TestReducerSequenceKeepsStateValid(t *testing.T) {
	s := Default()
	steps := []func(State) State{
		func(s State) State { return SetPage(s, 3) },
		func(s State) State { return SetFilter(s, FilterSubDistrict, "Mirpur") },
		func(s State) State { return SetSort(s, SortByDistrict) },
		func(s State) State { return SetPage(s, 1) },
		func(s State) State { return SetPageSize(s, 42) },
		func(s State) State { return SetFilter(s, FilterSubDistrict, "") },
		func(s State) State { return SetSort(s, SortByDistrict) },
	}
	for i, step := range steps {
		s = step(s)
		if !ValidSize(s.Size) {
			t.Fatalf("step %d: size %d not allowed", i, s.Size)
		}
		if s.Page < 0 {
			t.Fatalf("step %d: negative page", i)
		}
	}
	want := State{Page: 0, Size: 25, SortField: SortByDistrict, SortDirection: DESC, Filters: map[FilterKey]string{}}
	if !s.Equal(want) {
		t.Fatalf("final state %+v, want %+v", s, want)
	}
}
