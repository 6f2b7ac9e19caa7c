package query

import (
	"fmt"
	"strings"
)

// SetFilter sets filters[key] to value, or removes key when value is blank.
// The page always returns to 0. Passing a key outside FilterKeys is a
// programming error and panics with ErrInvalidFilterKey.
func SetFilter(s State, key FilterKey, value string) State {
	if !key.Known() {
		panic(fmt.Errorf("%w: %q", ErrInvalidFilterKey, string(key)))
	}
	out := s.clone()
	value = strings.TrimSpace(value)
	if value == "" {
		delete(out.Filters, key)
	} else {
		out.Filters[key] = value
	}
	out.Page = 0
	return out
}

// SetSort toggles the direction when field is already the sort field,
// otherwise sorts by field ascending. The page is kept.
func SetSort(s State, field SortField) State {
	out := s.clone()
	if field == s.SortField {
		out.SortDirection = s.SortDirection.Toggle()
		return out
	}
	out.SortField = field
	out.SortDirection = ASC
	return out
}

// SetPage moves to page. Upper bounds depend on the latest page result and are
// the caller's concern (see ClampPage); negative pages become 0 and pages past
// MaxPage become MaxPage.
func SetPage(s State, page int) State {
	out := s.clone()
	page = min(max(page, 0), MaxPage)
	out.Page = page
	return out
}

// SetPageSize changes the page size and returns to the first page. Sizes
// outside PageSizes snap down to the nearest allowed size (minimum 5).
func SetPageSize(s State, size int) State {
	out := s.clone()
	out.Size = snapSize(size)
	out.Page = 0
	return out
}

// Clear returns the default state regardless of s.
func Clear(State) State {
	return Default()
}

// ClampPage keeps the page inside [0, totalPages-1]. With no pages the only
// valid page is 0.
func ClampPage(s State, totalPages int) State {
	if totalPages <= 0 {
		return SetPage(s, 0)
	}
	if s.Page > totalPages-1 {
		return SetPage(s, totalPages-1)
	}
	return SetPage(s, s.Page)
}

// ValidSize reports whether n is one of PageSizes.
func ValidSize(n int) bool {
	for _, sz := range PageSizes {
		if sz == n {
			return true
		}
	}
	return false
}

func snapSize(n int) int {
	out := PageSizes[0]
	for _, sz := range PageSizes {
		if sz <= n {
			out = sz
		}
	}
	return out
}
