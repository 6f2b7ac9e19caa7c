package pg

import (
	"fmt"
	"strings"

	"orphanadmin/internal/query"
)

var sortColumns = map[query.SortField]string{
	query.SortByID:             "id",
	query.SortByStatus:         "status",
	query.SortByCreatedAt:      "created_at",
	query.SortByLastModifiedAt: "last_modified_at",
	query.SortByCreatedBy:      "created_by",
	query.SortByLastReviewedBy: "last_reviewed_by",
	query.SortByFullName:       "lower(full_name)",
	query.SortByFatherName:     "lower(father_name)",
	query.SortByDateOfBirth:    "date_of_birth",
	query.SortByDistrict:       "lower(district)",
	query.SortBySubDistrict:    "lower(sub_district)",
}

var filterColumns = map[query.FilterKey]string{
	query.FilterID:                "id",
	query.FilterFullName:          "full_name",
	query.FilterFatherName:        "father_name",
	query.FilterDistrict:          "district",
	query.FilterSubDistrict:       "sub_district",
	query.FilterBCRegistration:    "bc_registration",
	query.FilterStatus:            "status",
	query.FilterGender:            "gender",
	query.FilterResidenceStatus:   "residence_status",
	query.FilterPhysicalCondition: "physical_condition",
	query.FilterCreatedBy:         "created_by",
	query.FilterLastReviewedBy:    "last_reviewed_by",
	query.FilterDateOfBirthFrom:   "date_of_birth",
	query.FilterDateOfBirthTo:     "date_of_birth",
	query.FilterCreatedFrom:       "created_at",
	query.FilterCreatedTo:         "created_at",
	query.FilterLastModifiedFrom:  "last_modified_at",
	query.FilterLastModifiedTo:    "last_modified_at",
}

// buildWhere renders q's filters as a parameterized WHERE clause. Keys are
// visited in query.FilterKeys order so the SQL is deterministic.
func buildWhere(q query.State) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, key := range query.FilterKeys {
		val, ok := q.Filter(key)
		if !ok {
			continue
		}
		col := filterColumns[key]
		timestamp := col == "created_at" || col == "last_modified_at"
		switch key.Kind() {
		case query.KindText:
			conds = append(conds, fmt.Sprintf("%s ilike %s escape '\\'", col, next("%"+escapeLike(val)+"%")))
		case query.KindExact:
			if key == query.FilterID {
				conds = append(conds, fmt.Sprintf("%s = %s", col, next(val)))
			} else {
				conds = append(conds, fmt.Sprintf("upper(%s) = upper(%s)", col, next(val)))
			}
		case query.KindDateFrom:
			if timestamp {
				conds = append(conds, fmt.Sprintf("%s >= %s::date", col, next(val)))
			} else {
				conds = append(conds, fmt.Sprintf("%s <> '' and %s >= %s", col, col, next(val)))
			}
		case query.KindDateTo:
			if timestamp {
				conds = append(conds, fmt.Sprintf("%s < %s::date + 1", col, next(val)))
			} else {
				conds = append(conds, fmt.Sprintf("%s <> '' and %s <= %s", col, col, next(val)))
			}
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

func orderBy(q query.State) string {
	col, ok := sortColumns[q.SortField]
	if !ok {
		col = sortColumns[query.DefaultSortField]
	}
	dir := "asc"
	if q.SortDirection == query.DESC {
		dir = "desc"
	}
	if col == "id" {
		return "id " + dir
	}
	return col + " " + dir + ", id asc"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
