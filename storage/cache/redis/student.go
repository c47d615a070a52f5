package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
)

const (
	prefixStudent  = "student:"
	keyAllStudents = "students:all"
)

// studentRepository is a read-through cache in front of another student.Repository.
// Single students & the full list are cached; every write invalidates them.
// Cache failures are logged and never fail the call.
type studentRepository struct {
	next   student.Repository
	cache  *cache
	logger core.Logger
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(next student.Repository, client redis.UniversalClient, ttl time.Duration, logger core.Logger) student.Repository {
	return &studentRepository{
		next:   next,
		cache:  &cache{client: client, ttl: ttl},
		logger: logger,
	}
}

func studentKey(id string) string {
	return prefixStudent + id
}

func (repo *studentRepository) logErr(err error) {
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		repo.logger.Warn(fmt.Sprintf("student cache: %v", err), err)
	}
}

func (repo *studentRepository) invalidate(ctx context.Context, ids ...string) {
	keys := []string{keyAllStudents}
	for _, id := range ids {
		keys = append(keys, studentKey(id))
	}
	repo.logErr(repo.cache.del(ctx, keys...))
}

// written invalidates the cache after a successful write on `s`.
func (repo *studentRepository) written(ctx context.Context, s student.Student, err error) (student.Student, error) {
	if err != nil {
		return s, err
	}
	repo.invalidate(ctx, s.ID)
	return s, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s, err := repo.next.CreateStudent(ctx, s)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var students []student.Student
	err := repo.cache.get(ctx, keyAllStudents, &students)
	if err == nil {
		return students, nil
	}
	repo.logErr(err)

	if students, err = repo.next.QueryAllStudents(ctx); err != nil {
		return nil, err
	}
	repo.logErr(repo.cache.set(ctx, keyAllStudents, students))
	return students, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var s student.Student
	err := repo.cache.get(ctx, studentKey(id), &s)
	if err == nil {
		return s, nil
	}
	repo.logErr(err)

	if s, err = repo.next.GetStudentByID(ctx, id); err != nil {
		return student.Student{}, err
	}
	repo.logErr(repo.cache.set(ctx, studentKey(id), s))
	return s, nil
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	return repo.next.GetStudentByEmail(ctx, email)
}

func (repo *studentRepository) QueryStudentsByStatus(ctx context.Context, status student.Status) ([]student.Student, error) {
	return repo.next.QueryStudentsByStatus(ctx, status)
}

func (repo *studentRepository) QueryExpiringStudents(ctx context.Context, status student.Status, until core.Date) ([]student.Student, error) {
	return repo.next.QueryExpiringStudents(ctx, status, until)
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s, err := repo.next.UpdateStudent(ctx, s)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) UpdateStudentStatus(
	ctx context.Context,
	id string,
	status student.Status,
	updatedAt time.Time,
) (student.Student, error) {
	s, err := repo.next.UpdateStudentStatus(ctx, id, status, updatedAt)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) ToggleStudentStatus(
	ctx context.Context,
	id string,
	updatedAt time.Time,
) (student.Student, error) {
	s, err := repo.next.ToggleStudentStatus(ctx, id, updatedAt)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) UpdateSubscriptionExpiry(
	ctx context.Context,
	id string,
	expiry core.Date,
	updatedAt time.Time,
) (student.Student, error) {
	s, err := repo.next.UpdateSubscriptionExpiry(ctx, id, expiry, updatedAt)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) AddProgressEntry(
	ctx context.Context,
	id string,
	entry student.ProgressEntry,
	updatedAt time.Time,
) (student.Student, error) {
	s, err := repo.next.AddProgressEntry(ctx, id, entry, updatedAt)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) AddPaymentEntry(
	ctx context.Context,
	id string,
	entry student.PaymentEntry,
	updatedAt time.Time,
) (student.Student, error) {
	s, err := repo.next.AddPaymentEntry(ctx, id, entry, updatedAt)
	return repo.written(ctx, s, err)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if err := repo.next.DeleteStudent(ctx, id); err != nil {
		return err
	}
	repo.invalidate(ctx, id)
	return nil
}
