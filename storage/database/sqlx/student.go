package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
)

const (
	uniqueViolation = "23505"

	studentColumns = `id, name, email, phone, course, level, status, monthly_fee, payment_day,
		start_date, subscription_expiry, progress, payments, notes, created_at, updated_at`
)

type (
	// progressList & paymentList are stored as JSONB arrays
	progressList []student.ProgressEntry
	paymentList  []student.PaymentEntry

	studentRow struct {
		ID                 string          `db:"id"`
		Name               string          `db:"name"`
		Email              string          `db:"email"`
		Phone              string          `db:"phone"`
		Course             string          `db:"course"`
		Level              string          `db:"level"`
		Status             string          `db:"status"`
		MonthlyFee         decimal.Decimal `db:"monthly_fee"`
		PaymentDay         int             `db:"payment_day"`
		StartDate          time.Time       `db:"start_date"`
		SubscriptionExpiry time.Time       `db:"subscription_expiry"`
		Progress           progressList    `db:"progress"`
		Payments           paymentList     `db:"payments"`
		Notes              string          `db:"notes"`
		CreatedAt          time.Time       `db:"created_at"`
		UpdatedAt          time.Time       `db:"updated_at"`
	}
)

func marshalJSONB(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil // lib/pq sends []byte as bytea
}

func unmarshalJSONB(src interface{}, dest interface{}) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	default:
		return errors.Errorf("unsupported JSONB source %T", src)
	}
}

func (l progressList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return marshalJSONB([]student.ProgressEntry(l))
}

func (l *progressList) Scan(src interface{}) error { return unmarshalJSONB(src, (*[]student.ProgressEntry)(l)) }

func (l paymentList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return marshalJSONB([]student.PaymentEntry(l))
}

func (l *paymentList) Scan(src interface{}) error { return unmarshalJSONB(src, (*[]student.PaymentEntry)(l)) }

func (row studentRow) toStudent() student.Student {
	s := student.Student{
		ID:                 row.ID,
		Name:               row.Name,
		Email:              row.Email,
		Phone:              row.Phone,
		Course:             row.Course,
		Level:              row.Level,
		Status:             student.Status(row.Status),
		MonthlyFee:         row.MonthlyFee,
		PaymentDay:         row.PaymentDay,
		StartDate:          core.NewDate(row.StartDate),
		SubscriptionExpiry: core.NewDate(row.SubscriptionExpiry),
		Progress:           []student.ProgressEntry(row.Progress),
		Payments:           []student.PaymentEntry(row.Payments),
		Notes:              row.Notes,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	if s.Progress == nil {
		s.Progress = make([]student.ProgressEntry, 0)
	}
	if s.Payments == nil {
		s.Payments = make([]student.PaymentEntry, 0)
	}
	return s
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo *studentRepository) query(ctx context.Context, where string, args ...interface{}) ([]student.Student, error) {
	q := "SELECT " + studentColumns + " FROM students " + where + " ORDER BY seq"
	rows := make([]studentRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) get(ctx context.Context, where string, args ...interface{}) (student.Student, error) {
	var row studentRow
	q := "SELECT " + studentColumns + " FROM students " + where
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "fetching student")
	}
	return row.toStudent(), nil
}

// update runs the single-row UPDATE `set` on the student `id` and returns the updated row.
func (repo *studentRepository) update(ctx context.Context, id, set string, args ...interface{}) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := "UPDATE students SET " + set + " WHERE id = $1 RETURNING " + studentColumns
	if err := repo.db.GetContext(ctx, &row, q, append([]interface{}{id}, args...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	row := studentRow{
		ID:                 uuid.NewString(),
		Name:               s.Name,
		Email:              s.Email,
		Phone:              s.Phone,
		Course:             s.Course,
		Level:              s.Level,
		Status:             string(s.Status),
		MonthlyFee:         s.MonthlyFee,
		PaymentDay:         s.PaymentDay,
		StartDate:          s.StartDate.Time,
		SubscriptionExpiry: s.SubscriptionExpiry.Time,
		Progress:           progressList(s.Progress),
		Payments:           paymentList(s.Payments),
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	q := `INSERT INTO students (` + studentColumns + `) VALUES (
		:id, :name, :email, :phone, :course, :level, :status, :monthly_fee, :payment_day,
		:start_date, :subscription_expiry, :progress, :payments, :notes, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	return repo.query(ctx, "")
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	return repo.get(ctx, "WHERE id = $1", id)
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	return repo.get(ctx, "WHERE email = $1", email)
}

func (repo *studentRepository) QueryStudentsByStatus(ctx context.Context, status student.Status) ([]student.Student, error) {
	return repo.query(ctx, "WHERE status = $1", string(status))
}

func (repo *studentRepository) QueryExpiringStudents(ctx context.Context, status student.Status, until core.Date) ([]student.Student, error) {
	return repo.query(ctx, "WHERE status = $1 AND subscription_expiry <= $2", string(status), until.Time)
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	set := `name = $2, email = $3, phone = $4, course = $5, level = $6, monthly_fee = $7, payment_day = $8,
		start_date = $9, subscription_expiry = $10, notes = $11, updated_at = $12`
	return repo.update(
		ctx, s.ID, set,
		s.Name, s.Email, s.Phone, s.Course, s.Level, s.MonthlyFee, s.PaymentDay,
		s.StartDate.Time, s.SubscriptionExpiry.Time, s.Notes, s.UpdatedAt,
	)
}

func (repo *studentRepository) UpdateStudentStatus(
	ctx context.Context,
	id string,
	status student.Status,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(ctx, id, "status = $2, updated_at = $3", string(status), updatedAt)
}

func (repo *studentRepository) ToggleStudentStatus(
	ctx context.Context,
	id string,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(
		ctx, id, "status = CASE WHEN status = $2 THEN $3 ELSE $2 END, updated_at = $4",
		string(student.StatusActive), string(student.StatusInactive), updatedAt,
	)
}

func (repo *studentRepository) UpdateSubscriptionExpiry(
	ctx context.Context,
	id string,
	expiry core.Date,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(ctx, id, "subscription_expiry = $2, updated_at = $3", expiry.Time, updatedAt)
}

func (repo *studentRepository) AddProgressEntry(
	ctx context.Context,
	id string,
	entry student.ProgressEntry,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(ctx, id, "progress = progress || $2::jsonb, updated_at = $3", progressList{entry}, updatedAt)
}

func (repo *studentRepository) AddPaymentEntry(
	ctx context.Context,
	id string,
	entry student.PaymentEntry,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(ctx, id, "payments = payments || $2::jsonb, updated_at = $3", paymentList{entry}, updatedAt)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}
