package pg

import (
	"context"
	"database/sql/driver"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/query"
)

var columnNames = []string{
	"id", "status", "rejection_message", "full_name", "father_name", "mother_name", "date_of_birth",
	"gender", "bc_registration", "physical_condition", "district", "sub_district", "village",
	"residence_status", "guardian", "education", "family_members", "photo_url", "created_by",
	"last_reviewed_by", "created_at", "last_modified_at",
}

func row(id string, status application.Status, created time.Time) []driver.Value {
	return []driver.Value{
		id, string(status), "", "Rahima " + id, "Rahman", "", "2013-05-01",
		"FEMALE", "BC-" + id, "", "Dhaka", "Mirpur", "", "PERMANENT",
		[]byte(`{"name":"G","phone":"1"}`), []byte(`{}`), []byte(`[{"name":"Sib","age":4}]`), "", "agent-1",
		"", created, created,
	}
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := New(db)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestListApplicationsBuildsQuery(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`select count\(\*\) from applications where full_name ilike \$1 escape .* and upper\(status\) = upper\(\$2\)`).
		WithArgs("%rah%", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery(`order by created_at desc, id asc limit \$3 offset \$4`).
		WithArgs("%rah%", "PENDING", 10, 20).
		WillReturnRows(sqlmock.NewRows(columnNames).
			AddRow(row("a1", application.StatusPending, created)...).
			AddRow(row("a2", application.StatusPending, created)...).
			AddRow(row("a3", application.StatusPending, created)...).
			AddRow(row("a4", application.StatusPending, created)...).
			AddRow(row("a5", application.StatusPending, created)...))

	q := query.SetFilter(query.Default(), query.FilterFullName, "rah")
	q = query.SetFilter(q, query.FilterStatus, "pending")
	q = query.SetPage(q, 2)
	page, err := s.ListApplications(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if page.Number != 2 || !page.Last || page.TotalPages != 3 || page.NumberOfElements != 5 {
		t.Fatalf("page %+v", page)
	}
	if page.Content[0].PrimaryInformation.FullName != "Rahima a1" {
		t.Fatalf("row %+v", page.Content[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetApplicationDecodesSections(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`from applications where id = \$1`).WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(row("a1", application.StatusAccepted, time.Now())...))
	a, err := s.GetApplication(context.Background(), "a1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Guardian.Name != "G" || len(a.FamilyMembers) != 1 || a.FamilyMembers[0].Age != 4 {
		t.Fatalf("application %+v", a)
	}
}

func TestGetApplicationNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`from applications where id = \$1`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(columnNames))
	if _, err := s.GetApplication(context.Background(), "nope"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusRevalidates(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`select status from applications where id = \$1 for update`).WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("GRANTED"))
	mock.ExpectRollback()

	err := s.UpdateApplicationStatus(context.Background(), "a1", application.StatusPending, "")
	if !errors.Is(err, application.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateStatusReject(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`select status from applications where id = \$1 for update`).WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(`update applications\s+set status = \$2`).
		WithArgs("a1", "REJECTED", "Missing documents", "auth-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := auth.ContextWithUser(context.Background(), "auth-1", auth.Roles{auth.RoleAuthenticator})
	if err := s.UpdateApplicationStatus(ctx, "a1", application.StatusRejected, "  Missing documents "); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(`delete from applications where id = \$1`).WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.DeleteApplication(context.Background(), "x"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDuplicateIsValidationError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(`insert into applications`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "applications_bc_registration_key"})
	d := application.Draft{PrimaryInformation: application.PrimaryInformation{FullName: "X", BCRegistration: "BC-1"}}
	if _, err := s.CreateApplication(context.Background(), d); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListConnectionFailureIsFetchError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`select count`).WillReturnError(errors.New("connection refused"))
	if _, err := s.ListApplications(context.Background(), query.Default()); !errors.Is(err, application.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestBuildWhereDates(t *testing.T) {
	q := query.SetFilter(query.Default(), query.FilterCreatedFrom, "2024-01-01")
	q = query.SetFilter(q, query.FilterCreatedTo, "2024-01-31")
	q = query.SetFilter(q, query.FilterDateOfBirthTo, "2015-12-31")
	q = query.SetFilter(q, query.FilterSubDistrict, "50%_off")
	where, args := buildWhere(q)
	want := ` where sub_district ilike $1 escape '\' and date_of_birth <> '' and date_of_birth <= $2` +
		` and created_at >= $3::date and created_at < $4::date + 1`
	if where != want {
		t.Fatalf("where\n got %s\nwant %s", where, want)
	}
	if args[0] != `%50\%\_off%` {
		t.Fatalf("escaped arg %v", args[0])
	}
}

func TestOrderBy(t *testing.T) {
	if got := orderBy(query.SetSort(query.Default(), query.SortByID)); got != "id asc" {
		t.Fatalf("got %s", got)
	}
	if got := orderBy(query.SetSort(query.Default(), query.SortByFullName)); got != "lower(full_name) asc, id asc" {
		t.Fatalf("got %s", got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	ups, err := fs.Glob(Migrations(), "*.up.sql")
	if err != nil || len(ups) < 1 {
		t.Fatalf("migrations %v %v", ups, err)
	}
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		if _, err := fs.Stat(Migrations(), down); err != nil {
			t.Fatalf("missing %s", down)
		}
	}
	seeds, _ := fs.Glob(Seeds(), "*.sql")
	if len(seeds) == 0 {
		t.Fatal("no seeds")
	}
}
