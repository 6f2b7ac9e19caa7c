package application

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"orphanadmin/internal/query"
)

// Matches reports whether a satisfies every filter in q.
func Matches(a Summary, q query.State) bool {
	for key, want := range q.Filters {
		if !matchOne(a, key, want) {
			return false
		}
	}
	return true
}

func matchOne(a Summary, key query.FilterKey, want string) bool {
	got, ok := filterValue(a, key)
	if !ok {
		return false
	}
	switch key.Kind() {
	case query.KindText:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case query.KindExact:
		return strings.EqualFold(got, want)
	case query.KindDateFrom:
		return got != "" && got >= want
	case query.KindDateTo:
		return got != "" && got <= want
	}
	return false
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(query.DateLayout)
}

func filterValue(a Summary, key query.FilterKey) (string, bool) {
	switch key {
	case query.FilterID:
		return a.ID, true
	case query.FilterFullName:
		return a.PrimaryInformation.FullName, true
	case query.FilterFatherName:
		return a.PrimaryInformation.FatherName, true
	case query.FilterDistrict:
		return a.Address.District, true
	case query.FilterSubDistrict:
		return a.Address.SubDistrict, true
	case query.FilterBCRegistration:
		return a.PrimaryInformation.BCRegistration, true
	case query.FilterStatus:
		return string(a.Status), true
	case query.FilterGender:
		return a.PrimaryInformation.Gender, true
	case query.FilterResidenceStatus:
		return a.Address.ResidenceStatus, true
	case query.FilterPhysicalCondition:
		return a.PrimaryInformation.PhysicalCondition, true
	case query.FilterCreatedBy:
		return a.CreatedBy, true
	case query.FilterLastReviewedBy:
		return a.LastReviewedBy, true
	case query.FilterDateOfBirthFrom, query.FilterDateOfBirthTo:
		return a.PrimaryInformation.DateOfBirth, true
	case query.FilterCreatedFrom, query.FilterCreatedTo:
		return day(a.CreatedAt), true
	case query.FilterLastModifiedFrom, query.FilterLastModifiedTo:
		return day(a.LastModifiedAt), true
	}
	return "", false
}

func compareField(a, b Summary, field query.SortField) int {
	switch field {
	case query.SortByID:
		return cmp.Compare(a.ID, b.ID)
	case query.SortByStatus:
		return cmp.Compare(a.Status, b.Status)
	case query.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case query.SortByLastModifiedAt:
		return a.LastModifiedAt.Compare(b.LastModifiedAt)
	case query.SortByCreatedBy:
		return cmp.Compare(a.CreatedBy, b.CreatedBy)
	case query.SortByLastReviewedBy:
		return cmp.Compare(a.LastReviewedBy, b.LastReviewedBy)
	case query.SortByFullName:
		return cmp.Compare(strings.ToLower(a.PrimaryInformation.FullName), strings.ToLower(b.PrimaryInformation.FullName))
	case query.SortByFatherName:
		return cmp.Compare(strings.ToLower(a.PrimaryInformation.FatherName), strings.ToLower(b.PrimaryInformation.FatherName))
	case query.SortByDateOfBirth:
		return cmp.Compare(a.PrimaryInformation.DateOfBirth, b.PrimaryInformation.DateOfBirth)
	case query.SortByDistrict:
		return cmp.Compare(strings.ToLower(a.Address.District), strings.ToLower(b.Address.District))
	case query.SortBySubDistrict:
		return cmp.Compare(strings.ToLower(a.Address.SubDistrict), strings.ToLower(b.Address.SubDistrict))
	}
	return 0
}

// Sort orders rows by q's sort field and direction with id ascending as
// the tie-break.
func Sort(rows []Summary, q query.State) {
	slices.SortStableFunc(rows, func(a, b Summary) int {
		c := compareField(a, b, q.SortField)
		if q.SortDirection == query.DESC {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Paginate filters, sorts and slices rows into the page q asks for.
func Paginate(rows []Summary, q query.State) Page {
	if q.Size <= 0 {
		q.Size = query.DefaultSize
	}
	q.Page = max(q.Page, 0)
	matched := make([]Summary, 0, len(rows))
	for _, r := range rows {
		if Matches(r, q) {
			matched = append(matched, r)
		}
	}
	Sort(matched, q)
	total := int64(len(matched))
	start := min(q.Offset(), len(matched))
	end := min(start+q.Size, len(matched))
	return NewPage(slices.Clone(matched[start:end]), q.Page, q.Size, total)
}
