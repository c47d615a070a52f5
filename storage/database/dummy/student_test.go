package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
)

func setup(t *testing.T) student.Repository {
	db, err := Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return NewStudentRepository(db)
}

func create(t *testing.T, repo student.Repository, name, email string, status student.Status) student.Student {
	s, err := repo.CreateStudent(context.Background(), student.Student{
		Name:     name,
		Email:    email,
		Status:   status,
		Progress: make([]student.ProgressEntry, 0),
		Payments: make([]student.PaymentEntry, 0),
	})
	require.NoError(t, err)
	return s
}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	john := create(t, repo, "John Doe", "john@example.com", student.StatusActive)
	jane := create(t, repo, "Jane Smith", "jane@example.com", student.StatusInactive)
	mary := create(t, repo, "Mary Jones", "mary@example.com", student.StatusActive)
	assert.NotEqual(t, john.ID, jane.ID)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.CreateStudent(ctx, student.Student{Email: "john@example.com"})
		assert.Equal(t, student.ErrEmailExists, err)
	})

	t.Run("insertion order", func(t *testing.T) {
		all, err := repo.QueryAllStudents(ctx)
		require.NoError(t, err)
		assert.Equal(t, []student.Student{john, jane, mary}, all)

		active, err := repo.QueryStudentsByStatus(ctx, student.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, []student.Student{john, mary}, active)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetStudentByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, jane, got)

		_, err = repo.GetStudentByID(ctx, "lol")
		assert.Equal(t, student.ErrNotFound, err)
		_, err = repo.GetStudentByEmail(ctx, "lol@example.com")
		assert.Equal(t, student.ErrNotFound, err)
	})

	t.Run("returned records are detached", func(t *testing.T) {
		tstamp := time.Now().UTC()
		s, err := repo.AddProgressEntry(ctx, john.ID, student.ProgressEntry{Topic: "Fractions"}, tstamp)
		require.NoError(t, err)
		s.Progress[0].Topic = "changed"

		stored, err := repo.GetStudentByID(ctx, john.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fractions", stored.Progress[0].Topic)
	})

	t.Run("update keeps status & history", func(t *testing.T) {
		upd := jane
		upd.Name = "Jane S."
		upd.Status = student.StatusActive // ignored
		upd.Email = "mary@example.com"
		_, err := repo.UpdateStudent(ctx, upd)
		assert.Equal(t, student.ErrEmailExists, err)

		upd.Email = "jane.s@example.com"
		got, err := repo.UpdateStudent(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, "Jane S.", got.Name)
		assert.Equal(t, student.StatusInactive, got.Status)

		_, err = repo.UpdateStudent(ctx, student.Student{ID: "lol"})
		assert.Equal(t, student.ErrNotFound, err)
	})

	t.Run("expiring", func(t *testing.T) {
		until := core.NewDate(core.Today())
		_, err := repo.UpdateSubscriptionExpiry(ctx, mary.ID, until.AddDays(-1), time.Now().UTC())
		require.NoError(t, err)
		_, err = repo.UpdateSubscriptionExpiry(ctx, jane.ID, until, time.Now().UTC())
		require.NoError(t, err)

		got, err := repo.QueryExpiringStudents(ctx, student.StatusActive, until)
		require.NoError(t, err)
		if assert.Len(t, got, 1) {
			assert.Equal(t, mary.ID, got[0].ID)
		}
	})

	t.Run("toggle", func(t *testing.T) {
		tstamp := time.Now().UTC()
		got, err := repo.ToggleStudentStatus(ctx, mary.ID, tstamp)
		require.NoError(t, err)
		assert.Equal(t, student.StatusInactive, got.Status)
		assert.Equal(t, tstamp, got.UpdatedAt)

		got, err = repo.ToggleStudentStatus(ctx, mary.ID, tstamp)
		require.NoError(t, err)
		assert.Equal(t, student.StatusActive, got.Status)

		_, err = repo.ToggleStudentStatus(ctx, "lol", tstamp)
		assert.Equal(t, student.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteStudent(ctx, jane.ID))
		assert.Equal(t, student.ErrNotFound, repo.DeleteStudent(ctx, jane.ID))

		all, err := repo.QueryAllStudents(ctx)
		require.NoError(t, err)
		if assert.Len(t, all, 2) {
			assert.Equal(t, john.ID, all[0].ID)
			assert.Equal(t, mary.ID, all[1].ID)
		}

		// the email is free again
		_, err = repo.CreateStudent(ctx, student.Student{Email: "jane.s@example.com"})
		assert.NoError(t, err)
	})
}
