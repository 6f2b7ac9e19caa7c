package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of date-range filters.
const DateLayout = "2006-01-02"

const (
	paramPage = "page"
	paramSize = "size"
	paramSort = "sort"
)

// Encode serializes s as query parameters: page, size,
// sort=<field>,<asc|desc> and one parameter per filter.
func Encode(s State) url.Values {
	v := url.Values{}
	v.Set(paramPage, strconv.Itoa(s.Page))
	v.Set(paramSize, strconv.Itoa(s.Size))
	if s.SortField != "" {
		dir := s.SortDirection
		if dir == "" {
			dir = DefaultDirection
		}
		v.Set(paramSort, string(s.SortField)+","+strings.ToLower(string(dir)))
	}
	for _, key := range FilterKeys {
		if val, ok := s.Filters[key]; ok {
			v.Set(string(key), val)
		}
	}
	return v
}

// Decode parses query parameters produced by Encode. Missing parameters take
// their defaults; unknown parameters are rejected with ErrInvalidFilterKey.
func Decode(v url.Values) (State, error) {
	s := Default()
	for name, vals := range v {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]
		switch name {
		case paramPage:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || n < 0 {
				return State{}, fmt.Errorf("%w: page must be a non-negative integer", ErrInvalidQuery)
			}
			if n > MaxPage {
				return State{}, fmt.Errorf("%w: page must not exceed %d", ErrInvalidQuery, MaxPage)
			}
			s.Page = n
		case paramSize:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || !ValidSize(n) {
				return State{}, fmt.Errorf("%w: size must be one of %v", ErrInvalidQuery, PageSizes)
			}
			s.Size = n
		case paramSort:
			field, dir, err := parseSort(raw)
			if err != nil {
				return State{}, err
			}
			s.SortField, s.SortDirection = field, dir
		default:
			key, err := ParseFilterKey(name)
			if err != nil {
				return State{}, err
			}
			val := strings.TrimSpace(raw)
			if val == "" {
				continue
			}
			if err := validateFilterValue(key, val); err != nil {
				return State{}, err
			}
			s.Filters[key] = val
		}
	}
	return s, nil
}

func parseSort(raw string) (SortField, Direction, error) {
	fieldPart, dirPart, hasDir := strings.Cut(raw, ",")
	field, err := ParseSortField(fieldPart)
	if err != nil {
		return "", "", err
	}
	if !hasDir || strings.TrimSpace(dirPart) == "" {
		return field, ASC, nil
	}
	dir, err := ParseDirection(dirPart)
	if err != nil {
		return "", "", err
	}
	return field, dir, nil
}

func validateFilterValue(key FilterKey, val string) error {
	switch key.Kind() {
	case KindDateFrom, KindDateTo:
		if _, err := time.Parse(DateLayout, val); err != nil {
			return fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", ErrInvalidQuery, key)
		}
	}
	if len(val) > 200 {
		return fmt.Errorf("%w: %s is too long", ErrInvalidQuery, key)
	}
	return nil
}
