package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

// copyStudent detaches the progress & payments slices from the stored record.
func copyStudent(s student.Student) student.Student {
	s.Progress = append(make([]student.ProgressEntry, 0, len(s.Progress)), s.Progress...)
	s.Payments = append(make([]student.PaymentEntry, 0, len(s.Payments)), s.Payments...)
	return s
}

func (repo *studentRepository) query(match func(s *student.Student) bool) []student.Student {
	students := make([]student.Student, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		if s := repo.db.table[id]; match == nil || match(s) {
			students = append(students, copyStudent(*s))
		}
	}
	return students
}

func (repo *studentRepository) emailTaken(email, exclID string) bool {
	for id, s := range repo.db.table {
		if s.Email == email && id != exclID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(s.Email, "") {
		return student.Student{}, student.ErrEmailExists
	}
	s.ID = uuid.NewString()
	s = copyStudent(s)
	repo.db.table[s.ID] = &s
	repo.db.order = append(repo.db.order, s.ID)
	return copyStudent(s), nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(nil), nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return copyStudent(*s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if s.Email == email {
			return copyStudent(*s), nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudentsByStatus(ctx context.Context, status student.Status) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(s *student.Student) bool { return s.Status == status }), nil
}

func (repo *studentRepository) QueryExpiringStudents(ctx context.Context, status student.Status, until core.Date) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(s *student.Student) bool {
		return s.Status == status && s.ExpiresBy(until)
	}), nil
}

// update applies `fn` on the stored student `id` under the write lock.
func (repo *studentRepository) update(id string, fn func(s *student.Student) error) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	updated := copyStudent(*orig)
	if err := fn(&updated); err != nil {
		return student.Student{}, err
	}
	repo.db.table[id] = &updated
	return copyStudent(updated), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	return repo.update(s.ID, func(orig *student.Student) error {
		if repo.emailTaken(s.Email, s.ID) {
			return student.ErrEmailExists
		}
		orig.Name = s.Name
		orig.Email = s.Email
		orig.Phone = s.Phone
		orig.Course = s.Course
		orig.Level = s.Level
		orig.MonthlyFee = s.MonthlyFee
		orig.PaymentDay = s.PaymentDay
		orig.StartDate = s.StartDate
		orig.SubscriptionExpiry = s.SubscriptionExpiry
		orig.Notes = s.Notes
		orig.UpdatedAt = s.UpdatedAt
		return nil
	})
}

func (repo *studentRepository) UpdateStudentStatus(
	ctx context.Context,
	id string,
	status student.Status,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(id, func(s *student.Student) error {
		s.Status = status
		s.UpdatedAt = updatedAt
		return nil
	})
}

func (repo *studentRepository) ToggleStudentStatus(
	ctx context.Context,
	id string,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(id, func(s *student.Student) error {
		s.Status = s.Status.Toggle()
		s.UpdatedAt = updatedAt
		return nil
	})
}

func (repo *studentRepository) UpdateSubscriptionExpiry(
	ctx context.Context,
	id string,
	expiry core.Date,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(id, func(s *student.Student) error {
		s.SubscriptionExpiry = expiry
		s.UpdatedAt = updatedAt
		return nil
	})
}

func (repo *studentRepository) AddProgressEntry(
	ctx context.Context,
	id string,
	entry student.ProgressEntry,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(id, func(s *student.Student) error {
		s.Progress = append(s.Progress, entry)
		s.UpdatedAt = updatedAt
		return nil
	})
}

func (repo *studentRepository) AddPaymentEntry(
	ctx context.Context,
	id string,
	entry student.PaymentEntry,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.update(id, func(s *student.Student) error {
		s.Payments = append(s.Payments, entry)
		s.UpdatedAt = updatedAt
		return nil
	})
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	for i, oid := range repo.db.order {
		if oid == id {
			repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
			break
		}
	}
	return nil
}
