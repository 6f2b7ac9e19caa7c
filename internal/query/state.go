// Package query holds the filter, sort and pagination descriptor that drives
// the application list, and the pure reducers that move it between states.
//
// A State is a value: reducers never mutate their input, they return a new
// State with its own filter map.
package query

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
)

var (
	// ErrInvalidFilterKey marks a filter key outside the known set.
	ErrInvalidFilterKey = errors.New("invalid filter key")
	// ErrInvalidQuery marks any other malformed query parameter.
	ErrInvalidQuery = errors.New("invalid query")
)

// Direction is the sort order.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Toggle flips ASC and DESC.
func (d Direction) Toggle() Direction {
	if d == ASC {
		return DESC
	}
	return ASC
}

// ParseDirection accepts asc/desc in any case.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(raw))) {
	case ASC:
		return ASC, nil
	case DESC:
		return DESC, nil
	}
	return "", fmt.Errorf("%w: unknown sort direction %q", ErrInvalidQuery, raw)
}

// SortField is a dotted path into the summary record.
type SortField string

const (
	SortByID             SortField = "id"
	SortByStatus         SortField = "status"
	SortByCreatedAt      SortField = "createdAt"
	SortByLastModifiedAt SortField = "lastModifiedAt"
	SortByCreatedBy      SortField = "createdBy"
	SortByLastReviewedBy SortField = "lastReviewedBy"
	SortByFullName       SortField = "primaryInformation.fullName"
	SortByFatherName     SortField = "primaryInformation.fatherName"
	SortByDateOfBirth    SortField = "primaryInformation.dateOfBirth"
	SortByDistrict       SortField = "address.district"
	SortBySubDistrict    SortField = "address.subDistrict"
)

// SortFields lists every sortable field.
var SortFields = []SortField{
	SortByID, SortByStatus, SortByCreatedAt, SortByLastModifiedAt,
	SortByCreatedBy, SortByLastReviewedBy, SortByFullName, SortByFatherName,
	SortByDateOfBirth, SortByDistrict, SortBySubDistrict,
}

// ParseSortField validates a wire sort field.
func ParseSortField(raw string) (SortField, error) {
	f := SortField(strings.TrimSpace(raw))
	for _, known := range SortFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, raw)
}

// FilterKey names one list filter.
type FilterKey string

const (
	FilterID                FilterKey = "id"
	FilterFullName          FilterKey = "fullName"
	FilterFatherName        FilterKey = "fatherName"
	FilterDistrict          FilterKey = "district"
	FilterSubDistrict       FilterKey = "subDistrict"
	FilterBCRegistration    FilterKey = "bcRegistration"
	FilterStatus            FilterKey = "status"
	FilterGender            FilterKey = "gender"
	FilterResidenceStatus   FilterKey = "residenceStatus"
	FilterPhysicalCondition FilterKey = "physicalCondition"
	FilterCreatedBy         FilterKey = "createdBy"
	FilterLastReviewedBy    FilterKey = "lastReviewedBy"
	FilterDateOfBirthFrom   FilterKey = "dateOfBirthFrom"
	FilterDateOfBirthTo     FilterKey = "dateOfBirthTo"
	FilterCreatedFrom       FilterKey = "createdFrom"
	FilterCreatedTo         FilterKey = "createdTo"
	FilterLastModifiedFrom  FilterKey = "lastModifiedFrom"
	FilterLastModifiedTo    FilterKey = "lastModifiedTo"
)

// FilterKind tells backends how to compare a filter value.
type FilterKind int

const (
	// KindText matches case-insensitive substrings.
	KindText FilterKind = iota
	// KindExact matches case-insensitive whole values.
	KindExact
	// KindDateFrom is an inclusive lower bound, YYYY-MM-DD.
	KindDateFrom
	// KindDateTo is an inclusive upper bound, YYYY-MM-DD.
	KindDateTo
)

var filterKinds = map[FilterKey]FilterKind{
	FilterID:                KindExact,
	FilterFullName:          KindText,
	FilterFatherName:        KindText,
	FilterDistrict:          KindText,
	FilterSubDistrict:       KindText,
	FilterBCRegistration:    KindText,
	FilterStatus:            KindExact,
	FilterGender:            KindExact,
	FilterResidenceStatus:   KindExact,
	FilterPhysicalCondition: KindExact,
	FilterCreatedBy:         KindText,
	FilterLastReviewedBy:    KindText,
	FilterDateOfBirthFrom:   KindDateFrom,
	FilterDateOfBirthTo:     KindDateTo,
	FilterCreatedFrom:       KindDateFrom,
	FilterCreatedTo:         KindDateTo,
	FilterLastModifiedFrom:  KindDateFrom,
	FilterLastModifiedTo:    KindDateTo,
}

// FilterKeys lists every filter key in a stable order.
var FilterKeys = []FilterKey{
	FilterID, FilterFullName, FilterFatherName, FilterDistrict, FilterSubDistrict,
	FilterBCRegistration, FilterStatus, FilterGender, FilterResidenceStatus,
	FilterPhysicalCondition, FilterCreatedBy, FilterLastReviewedBy,
	FilterDateOfBirthFrom, FilterDateOfBirthTo, FilterCreatedFrom, FilterCreatedTo,
	FilterLastModifiedFrom, FilterLastModifiedTo,
}

// Kind returns the comparison kind of a known key.
func (k FilterKey) Kind() FilterKind { return filterKinds[k] }

// Known reports whether k is one of FilterKeys.
func (k FilterKey) Known() bool {
	_, ok := filterKinds[k]
	return ok
}

// ParseFilterKey validates a wire filter key.
func ParseFilterKey(raw string) (FilterKey, error) {
	k := FilterKey(strings.TrimSpace(raw))
	if !k.Known() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilterKey, raw)
	}
	return k, nil
}

const (
	DefaultSize      = 10
	DefaultSortField = SortByCreatedAt
	DefaultDirection = DESC
)

// PageSizes is the fixed set of allowed page sizes, ascending.
var PageSizes = []int{5, 10, 25, 50, 100}

// MaxPage is the highest page index whose offset fits in an int at the
// largest page size.
const MaxPage = math.MaxInt / 100

// State is the filter + sort + pagination descriptor of one list view.
type State struct {
	Page          int                  `json:"page"`
	Size          int                  `json:"size"`
	SortField     SortField            `json:"sortField"`
	SortDirection Direction            `json:"sortDirection"`
	Filters       map[FilterKey]string `json:"filters"`
}

// Default returns the initial list state.
func Default() State {
	return State{
		Page:          0,
		Size:          DefaultSize,
		SortField:     DefaultSortField,
		SortDirection: DefaultDirection,
		Filters:       map[FilterKey]string{},
	}
}

// Filter returns the value of key and whether it constrains the list.
func (s State) Filter(key FilterKey) (string, bool) {
	v, ok := s.Filters[key]
	return v, ok
}

// Offset is the zero-based index of the first row of the current page.
// It saturates at math.MaxInt instead of wrapping.
func (s State) Offset() int {
	if s.Page <= 0 || s.Size <= 0 {
		return 0
	}
	if s.Page > math.MaxInt/s.Size {
		return math.MaxInt
	}
	return s.Page * s.Size
}

// Equal reports whether two states describe the same query.
func (s State) Equal(o State) bool {
	return s.Page == o.Page && s.Size == o.Size && s.SortField == o.SortField &&
		s.SortDirection == o.SortDirection && maps.Equal(s.Filters, o.Filters)
}

func (s State) clone() State {
	out := s
	out.Filters = make(map[FilterKey]string, len(s.Filters))
	maps.Copy(out.Filters, s.Filters)
	return out
}
