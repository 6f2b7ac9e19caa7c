// Package pg stores applications in Postgres through database/sql and the
// pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"orphanadmin/internal/application"
	"orphanadmin/internal/ids"
	"orphanadmin/internal/query"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ application.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const columns = `id, status, rejection_message, full_name, father_name, mother_name, date_of_birth,
	gender, bc_registration, physical_condition, district, sub_district, village, residence_status,
	guardian, education, family_members, photo_url, created_by, last_reviewed_by, created_at, last_modified_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(sc scanner) (application.Application, error) {
	var a application.Application
	var guardian, education, family []byte
	p, addr := &a.PrimaryInformation, &a.Address
	err := sc.Scan(&a.ID, &a.Status, &a.RejectionMessage, &p.FullName, &p.FatherName, &p.MotherName,
		&p.DateOfBirth, &p.Gender, &p.BCRegistration, &p.PhysicalCondition, &addr.District,
		&addr.SubDistrict, &addr.Village, &addr.ResidenceStatus, &guardian, &education, &family,
		&a.PhotoURL, &a.CreatedBy, &a.LastReviewedBy, &a.CreatedAt, &a.LastModifiedAt)
	if err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(guardian, &a.Guardian); err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(education, &a.Education); err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(family, &a.FamilyMembers); err != nil {
		return application.Application{}, err
	}
	if a.FamilyMembers == nil {
		a.FamilyMembers = []application.FamilyMember{}
	}
	return a, nil
}

func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode stored json: %w", err)
	}
	return nil
}

func (s *Store) ListApplications(ctx context.Context, q query.State) (application.Page, error) {
	q, err := application.ValidateQuery(q)
	if err != nil {
		return application.Page{}, err
	}
	if q.Size <= 0 {
		q.Size = query.DefaultSize
	}
	where, args := buildWhere(q)

	var total int64
	if err := s.db.QueryRowContext(ctx, `select count(*) from applications`+where, args...).Scan(&total); err != nil {
		return application.Page{}, fetchErr("count applications", err)
	}

	listArgs := append(args, q.Size, q.Offset())
	stmt := fmt.Sprintf(`select %s from applications%s order by %s limit $%d offset $%d`,
		columns, where, orderBy(q), len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, stmt, listArgs...)
	if err != nil {
		return application.Page{}, fetchErr("list applications", err)
	}
	defer rows.Close()

	content := make([]application.Summary, 0, q.Size)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return application.Page{}, fetchErr("scan application", err)
		}
		content = append(content, a.Summary())
	}
	if err := rows.Err(); err != nil {
		return application.Page{}, fetchErr("list applications", err)
	}
	return application.NewPage(content, q.Page, q.Size, total), nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (application.Application, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx, `select `+columns+` from applications where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return application.Application{}, fmt.Errorf("%w: %s", application.ErrNotFound, id)
	}
	if err != nil {
		return application.Application{}, fetchErr("get application", err)
	}
	return a, nil
}

func (s *Store) CreateApplication(ctx context.Context, d application.Draft) (application.Application, error) {
	d, status, err := application.PrepareSave("", d)
	if err != nil {
		return application.Application{}, err
	}
	now := s.now()
	a := application.Application{
		ID:             ids.NewAt(now),
		Status:         status,
		CreatedBy:      application.Actor(ctx),
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	a = withDraft(a, d)
	guardian, education, family, err := encodeSections(a)
	if err != nil {
		return application.Application{}, err
	}
	p, addr := a.PrimaryInformation, a.Address
	_, err = s.db.ExecContext(ctx, `
		insert into applications (`+columns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`, a.ID, string(a.Status), a.RejectionMessage, p.FullName, p.FatherName, p.MotherName, p.DateOfBirth,
		p.Gender, p.BCRegistration, p.PhysicalCondition, addr.District, addr.SubDistrict, addr.Village,
		addr.ResidenceStatus, guardian, education, family, a.PhotoURL, a.CreatedBy, a.LastReviewedBy,
		a.CreatedAt, a.LastModifiedAt)
	if err != nil {
		return application.Application{}, writeErr("create application", err)
	}
	return a, nil
}

func (s *Store) UpdateApplication(ctx context.Context, id string, d application.Draft) (application.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return application.Application{}, fetchErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	a, err := lockApplication(ctx, tx, id)
	if err != nil {
		return application.Application{}, err
	}
	d, status, err := application.PrepareSave(a.Status, d)
	if err != nil {
		return application.Application{}, err
	}
	if status == application.StatusPending && a.Status == application.StatusRejected {
		a.RejectionMessage = ""
	}
	a = withDraft(a, d)
	a.Status = status
	a.LastModifiedAt = s.now()

	guardian, education, family, err := encodeSections(a)
	if err != nil {
		return application.Application{}, err
	}
	p, addr := a.PrimaryInformation, a.Address
	_, err = tx.ExecContext(ctx, `
		update applications set
			status = $2, rejection_message = $3, full_name = $4, father_name = $5, mother_name = $6,
			date_of_birth = $7, gender = $8, bc_registration = $9, physical_condition = $10,
			district = $11, sub_district = $12, village = $13, residence_status = $14,
			guardian = $15, education = $16, family_members = $17, photo_url = $18,
			last_modified_at = $19
		where id = $1
	`, a.ID, string(a.Status), a.RejectionMessage, p.FullName, p.FatherName, p.MotherName, p.DateOfBirth,
		p.Gender, p.BCRegistration, p.PhysicalCondition, addr.District, addr.SubDistrict, addr.Village,
		addr.ResidenceStatus, guardian, education, family, a.PhotoURL, a.LastModifiedAt)
	if err != nil {
		return application.Application{}, writeErr("update application", err)
	}
	if err := tx.Commit(); err != nil {
		return application.Application{}, writeErr("commit", err)
	}
	return a, nil
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from applications where id = $1`, id)
	if err != nil {
		return writeErr("delete application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return writeErr("delete application", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", application.ErrNotFound, id)
	}
	return nil
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, id string, target application.Status, message string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fetchErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current application.Status
	err = tx.QueryRowContext(ctx, `select status from applications where id = $1 for update`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", application.ErrNotFound, id)
	}
	if err != nil {
		return fetchErr("lock application", err)
	}
	if err := application.ValidateTransition(current, target, message); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		update applications
		set status = $2, rejection_message = $3, last_reviewed_by = $4, last_modified_at = $5
		where id = $1
	`, id, string(target), application.RejectionMessageFor(target, message), application.Actor(ctx), s.now()); err != nil {
		return writeErr("update status", err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr("commit", err)
	}
	return nil
}

func lockApplication(ctx context.Context, tx *sql.Tx, id string) (application.Application, error) {
	a, err := scanApplication(tx.QueryRowContext(ctx, `select `+columns+` from applications where id = $1 for update`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return application.Application{}, fmt.Errorf("%w: %s", application.ErrNotFound, id)
	}
	if err != nil {
		return application.Application{}, fetchErr("lock application", err)
	}
	return a, nil
}

func withDraft(a application.Application, d application.Draft) application.Application {
	a.PrimaryInformation = d.PrimaryInformation
	a.Address = d.Address
	a.Guardian = d.Guardian
	a.Education = d.Education
	a.FamilyMembers = d.FamilyMembers
	if a.FamilyMembers == nil {
		a.FamilyMembers = []application.FamilyMember{}
	}
	a.PhotoURL = d.PhotoURL
	return a
}

func encodeSections(a application.Application) (guardian, education, family string, err error) {
	g, err := json.Marshal(a.Guardian)
	if err != nil {
		return "", "", "", err
	}
	e, err := json.Marshal(a.Education)
	if err != nil {
		return "", "", "", err
	}
	f, err := json.Marshal(a.FamilyMembers)
	if err != nil {
		return "", "", "", err
	}
	return string(g), string(e), string(f), nil
}

func fetchErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", application.ErrFetch, op, err)
}

// writeErr maps constraint violations to validation errors; anything else is
// a server failure.
func writeErr(op string, err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s: duplicate value (%s)", application.ErrValidation, op, pgErr.ConstraintName)
		case "23514", "23502":
			return fmt.Errorf("%w: %s: %s", application.ErrValidation, op, pgErr.Message)
		}
	}
	return fetchErr(op, err)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
