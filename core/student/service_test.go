package student_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
	"github.com/trezcool/tutordesk/services/email"
	"github.com/trezcool/tutordesk/services/events"
	"github.com/trezcool/tutordesk/storage/database/dummy"
	"github.com/trezcool/tutordesk/tests"
)

var ctx = context.Background()

func setup(t *testing.T) (student.Service, student.Repository, *eventsvc.PublisherMock) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := dummydb.NewStudentRepository(db)
	events := eventsvc.NewPublisherMock()
	emailsvc.ResetSentMessages()
	return testutil.NewStudentService(testutil.NewConfig(), repo, events), repo, events
}

func TestService_Create(t *testing.T) {
	svc, repo, events := setup(t)

	jane, err := svc.Create(ctx, student.NewStudent{
		Name:       " Jane Smith ",
		Email:      "Jane@Example.com",
		Phone:      "555-0100",
		Course:     "English",
		MonthlyFee: decimal.NewFromInt(150),
		StartDate:  core.NewDate(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, jane.ID)
	assert.Equal(t, "Jane Smith", jane.Name)
	assert.Equal(t, "jane@example.com", jane.Email)
	assert.Equal(t, student.StatusActive, jane.Status)
	assert.Equal(t, 31, jane.PaymentDay)
	assert.Equal(t, "2024-02-29", jane.SubscriptionExpiry.String())
	assert.Equal(t, jane.CreatedAt, jane.UpdatedAt)
	assert.NotNil(t, jane.Progress)
	assert.NotNil(t, jane.Payments)

	stored, err := repo.GetStudentByID(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, jane, stored)

	assert.Len(t, emailsvc.SentMessages, 1)
	if published := events.Published(); assert.Len(t, published, 1) {
		assert.Equal(t, student.EventCreated, published[0].Type)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Create(ctx, student.NewStudent{Name: "Other", Email: "JANE@example.com ", Phone: "1", Course: "Math"})
		vErr, ok := core.AsValidationError(err)
		require.True(t, ok, "want a ValidationError, got %v", err)
		assert.Equal(t, student.ErrEmailExists, vErr.Err)
		assert.True(t, errors.Is(err, student.ErrEmailExists))
		assert.Equal(t, "email", vErr.Fields[0].Field)

		all, err := svc.QueryAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestService_Filter(t *testing.T) {
	svc, repo, _ := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusActive)
	jane := testutil.CreateStudent(t, repo, "Jane Smith", "jane@example.com", "English", student.StatusInactive)

	all, err := svc.Filter(ctx, student.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []student.Student{john, jane}, all)

	found, err := svc.Filter(ctx, student.NewCriteria("jane", "", ""))
	require.NoError(t, err)
	assert.Equal(t, []student.Student{jane}, found)

	_, err = svc.Filter(ctx, student.NewCriteria("", "PAUSED", ""))
	_, ok := core.AsValidationError(err)
	assert.True(t, ok)

	dash, err := svc.Dashboard(ctx, student.NewCriteria("", "ACTIVE", ""))
	require.NoError(t, err)
	assert.Equal(t, dash.Summary.Active, len(dash.Students))
	assert.Equal(t, student.Summary{Total: 2, Active: 1, Inactive: 1, Courses: []string{"Mathematics", "English"}}, dash.Summary)

	t.Run("whitespace search", func(t *testing.T) {
		testutil.CreateStudent(t, repo, "Madonna", "madonna@example.com", "Music", student.StatusActive)

		found, err := svc.Filter(ctx, student.NewCriteria(" ", "", ""))
		require.NoError(t, err)
		assert.Equal(t, []student.Student{john, jane}, found)

		dash, err := svc.Dashboard(ctx, student.NewCriteria(" ", "", ""))
		require.NoError(t, err)
		assert.Equal(t, 3, dash.Summary.Total)
		assert.Equal(t, []student.Student{john, jane}, dash.Students)
	})
}

func TestService_Update(t *testing.T) {
	svc, repo, _ := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusInactive)
	testutil.CreateStudent(t, repo, "Jane Smith", "jane@example.com", "English", student.StatusActive)

	updated, err := svc.Update(ctx, john.ID, student.UpdateStudent{
		Name: "Johnny", Email: "JOHNNY@example.com", Phone: "1", Course: "Physics",
	})
	require.NoError(t, err)
	assert.Equal(t, "Johnny", updated.Name)
	assert.Equal(t, "johnny@example.com", updated.Email)
	assert.Equal(t, student.StatusInactive, updated.Status)
	assert.Equal(t, john.StartDate, updated.StartDate)
	assert.Equal(t, john.PaymentDay, updated.PaymentDay)
	assert.Equal(t, john.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, john.ID, student.UpdateStudent{Name: "J", Email: "jane@example.com", Phone: "1", Course: "Physics"})
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok, "want a ValidationError, got %v", err)
	assert.Equal(t, "email", vErr.Fields[0].Field)

	_, err = svc.Update(ctx, "lol", student.UpdateStudent{Name: "J"})
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_UpdateStatus(t *testing.T) {
	svc, repo, events := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusActive)

	first, err := svc.UpdateStatus(ctx, john.ID, student.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, student.StatusInactive, first.Status)

	// idempotent
	second, err := svc.UpdateStatus(ctx, john.ID, student.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, student.StatusInactive, second.Status)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	second.UpdatedAt = first.UpdatedAt
	assert.Equal(t, first, second)

	_, err = svc.UpdateStatus(ctx, john.ID, student.Status("PAUSED"))
	_, ok := core.AsValidationError(err)
	assert.True(t, ok)

	_, err = svc.UpdateStatus(ctx, "lol", student.StatusActive)
	assert.Equal(t, student.ErrNotFound, err)

	toggled, err := svc.Toggle(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusActive, toggled.Status)

	assert.Len(t, events.Published(), 3)
	for _, evt := range events.Published() {
		assert.Equal(t, student.EventStatusChanged, evt.Type)
		assert.Equal(t, john.ID, evt.Key)
	}
}

func TestService_Toggle(t *testing.T) {
	svc, repo, events := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusActive)

	const toggles = 21
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Toggle(ctx, john.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// every toggle flips the stored status: none is lost
	got, err := svc.GetByID(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusInactive, got.Status)
	assert.Len(t, events.Published(), toggles)

	_, err = svc.Toggle(ctx, "lol")
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_ExtendSubscription(t *testing.T) {
	svc, repo, _ := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusActive,
		func(s *student.Student) {
			s.SubscriptionExpiry = core.NewDate(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
		},
	)

	for _, months := range []int{0, 25} {
		_, err := svc.ExtendSubscription(ctx, john.ID, months)
		_, ok := core.AsValidationError(err)
		assert.True(t, ok, "months=%d", months)
	}

	extended, err := svc.ExtendSubscription(ctx, john.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", extended.SubscriptionExpiry.String())

	_, err = svc.ExtendSubscription(ctx, "lol", 1)
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_AddProgressAndPayment(t *testing.T) {
	svc, repo, _ := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusActive)

	s, err := svc.AddProgress(ctx, john.ID, student.NewProgressEntry{Topic: " Fractions ", Grade: 8, MaxGrade: 10})
	require.NoError(t, err)
	if assert.Len(t, s.Progress, 1) {
		assert.Equal(t, "Fractions", s.Progress[0].Topic)
		assert.Equal(t, core.NewDate(core.Today()), s.Progress[0].Date)
	}

	s, err = svc.AddPayment(ctx, john.ID, student.NewPaymentEntry{
		Amount: decimal.NewFromInt(150),
		Method: student.PaymentCash,
		Date:   core.NewDate(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	if assert.Len(t, s.Payments, 1) {
		p := s.Payments[0]
		assert.Equal(t, student.PaymentCompleted, p.Status)
		assert.Equal(t, 5, p.Month)
		assert.Equal(t, 2024, p.Year)
	}
	assert.Len(t, s.Progress, 1, "progress is kept")

	_, err = svc.AddProgress(ctx, "lol", student.NewProgressEntry{Topic: "T", MaxGrade: 10})
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Delete(t *testing.T) {
	svc, repo, events := setup(t)

	john := testutil.CreateStudent(t, repo, "John Doe", "john@example.com", "Mathematics", student.StatusActive)
	jane := testutil.CreateStudent(t, repo, "Jane Smith", "jane@example.com", "English", student.StatusInactive)

	assert.Equal(t, student.ErrNotFound, svc.Delete(ctx, "lol"))
	require.NoError(t, svc.Delete(ctx, john.ID))
	assert.Equal(t, student.ErrNotFound, svc.Delete(ctx, john.ID))

	_, err := svc.GetByID(ctx, john.ID)
	assert.Equal(t, student.ErrNotFound, err)

	all, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []student.Student{jane}, all)
	assert.Len(t, events.Published(), 1)
}

func TestService_QueryExpiring(t *testing.T) {
	svc, repo, _ := setup(t)

	today := core.NewDate(core.Today())
	expiresIn := func(days int) func(s *student.Student) {
		return func(s *student.Student) { s.SubscriptionExpiry = today.AddDays(days) }
	}
	expired := testutil.CreateStudent(t, repo, "Expired", "expired@test.cd", "Math", student.StatusActive, expiresIn(-3))
	soon := testutil.CreateStudent(t, repo, "Soon", "soon@test.cd", "Math", student.StatusActive, expiresIn(7))
	testutil.CreateStudent(t, repo, "Later", "later@test.cd", "Math", student.StatusActive, expiresIn(8))
	testutil.CreateStudent(t, repo, "Off", "off@test.cd", "Math", student.StatusInactive, expiresIn(1))

	got, err := svc.QueryExpiring(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []student.Student{expired, soon}, got)

	n, err := svc.NotifyExpiring(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, emailsvc.SentMessages, 2)

	// expiry never deactivates
	stored, err := repo.GetStudentByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusActive, stored.Status)

	_, err = svc.QueryExpiring(ctx, -1)
	_, ok := core.AsValidationError(err)
	assert.True(t, ok)
}

func TestService_RemindPayments(t *testing.T) {
	svc, repo, _ := setup(t)

	payingOn := func(day int) func(s *student.Student) {
		return func(s *student.Student) { s.PaymentDay = day }
	}
	testutil.CreateStudent(t, repo, "Month End", "end@test.cd", "Math", student.StatusActive, payingOn(31))
	testutil.CreateStudent(t, repo, "Tomorrow", "tomorrow@test.cd", "Math", student.StatusActive, payingOn(30))
	testutil.CreateStudent(t, repo, "Off", "off@test.cd", "Math", student.StatusInactive, payingOn(30))

	n, err := svc.RemindPayments(ctx, time.Date(2024, 4, 29, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	if assert.Len(t, emailsvc.SentMessages, 2) {
		assert.Contains(t, emailsvc.SentMessages[0].TextContent, "2024-04-30")
		assert.Contains(t, emailsvc.SentMessages[1].TextContent, "2024-04-30")
	}
}
