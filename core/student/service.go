package student

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutordesk/core"
)

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrEmailExists = errors.New("a student with this email already exists")
)

// Events
const (
	EventCreated       = "student.created"
	EventStatusChanged = "student.status_changed"
	EventDeleted       = "student.deleted"
)

type (
	Repository interface {
		// CreateStudent assigns the id of `s`; fails with ErrEmailExists.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryAllStudents returns all students in insertion order.
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		QueryStudentsByStatus(ctx context.Context, status Status) ([]Student, error)
		// QueryExpiringStudents returns the students with `status` whose subscription expires on or before `until`.
		QueryExpiringStudents(ctx context.Context, status Status, until core.Date) ([]Student, error)
		// UpdateStudent saves the profile fields of `s`; never touches status, progress, payments or created_at.
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		UpdateStudentStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Student, error)
		// ToggleStudentStatus flips ACTIVE <-> INACTIVE in a single write.
		ToggleStudentStatus(ctx context.Context, id string, updatedAt time.Time) (Student, error)
		UpdateSubscriptionExpiry(ctx context.Context, id string, expiry core.Date, updatedAt time.Time) (Student, error)
		AddProgressEntry(ctx context.Context, id string, entry ProgressEntry, updatedAt time.Time) (Student, error)
		AddPaymentEntry(ctx context.Context, id string, entry PaymentEntry, updatedAt time.Time) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, ns NewStudent) (Student, error)
		QueryAll(ctx context.Context) ([]Student, error)
		Filter(ctx context.Context, c Criteria) ([]Student, error)
		Dashboard(ctx context.Context, c Criteria) (Dashboard, error)
		GetByID(ctx context.Context, id string) (Student, error)
		QueryByStatus(ctx context.Context, status Status) ([]Student, error)
		Update(ctx context.Context, id string, us UpdateStudent) (Student, error)
		UpdateStatus(ctx context.Context, id string, status Status) (Student, error)
		Toggle(ctx context.Context, id string) (Student, error)
		ExtendSubscription(ctx context.Context, id string, months int) (Student, error)
		AddProgress(ctx context.Context, id string, np NewProgressEntry) (Student, error)
		AddPayment(ctx context.Context, id string, np NewPaymentEntry) (Student, error)
		Delete(ctx context.Context, id string) error
		QueryExpiring(ctx context.Context, days int) ([]Student, error)
		NotifyExpiring(ctx context.Context, days int) (int, error)
		RemindPayments(ctx context.Context, day time.Time) (int, error)
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Student) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		events  core.EventPublisher
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, events core.EventPublisher, logger core.Logger) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		events:  events,
		logger:  logger,
	}
}

// now is the mutation timestamp, truncated to what every store can persist.
func now() time.Time {
	return core.NowFunc().UTC().Truncate(time.Millisecond)
}

// emailError turns the store's ErrEmailExists into a field-scoped ValidationError.
func emailError(err error) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewFieldValidationError("email", ErrEmailExists)
	}
	return err
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excluded ...Student) error {
	s, err := svc.repo.GetStudentByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	for _, excl := range excluded {
		if excl.ID == s.ID {
			return nil
		}
	}
	return emailError(ErrEmailExists)
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	ns.clean()
	tstamp := now()
	s := Student{
		Name:               ns.Name,
		Email:              ns.Email,
		Phone:              ns.Phone,
		Course:             ns.Course,
		Level:              ns.Level,
		Status:             ns.Status,
		MonthlyFee:         ns.MonthlyFee,
		PaymentDay:         ns.PaymentDay,
		StartDate:          ns.StartDate,
		SubscriptionExpiry: ns.SubscriptionExpiry,
		Progress:           make([]ProgressEntry, 0),
		Payments:           make([]PaymentEntry, 0),
		Notes:              ns.Notes,
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	}

	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, emailError(err)
	}

	svc.sendWelcomeMail(s)
	svc.publish(ctx, EventCreated, s)
	return s, nil
}

func (svc *service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *service) Filter(ctx context.Context, c Criteria) ([]Student, error) {
	c = c.Clean()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return students, nil
	}
	return Filter(students, c), nil
}

func (svc *service) Dashboard(ctx context.Context, c Criteria) (Dashboard, error) {
	c = c.Clean()
	if err := c.Validate(); err != nil {
		return Dashboard{}, err
	}
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(students, c), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) QueryByStatus(ctx context.Context, status Status) ([]Student, error) {
	if !status.IsValid() {
		return nil, core.NewFieldValidationError("status", errors.New(statusText))
	}
	return svc.repo.QueryStudentsByStatus(ctx, status)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	us.clean(orig)

	s := Student{
		ID:                 id,
		Name:               us.Name,
		Email:              us.Email,
		Phone:              us.Phone,
		Course:             us.Course,
		Level:              us.Level,
		MonthlyFee:         us.MonthlyFee,
		PaymentDay:         us.PaymentDay,
		StartDate:          us.StartDate,
		SubscriptionExpiry: us.SubscriptionExpiry,
		Notes:              us.Notes,
		UpdatedAt:          now(),
	}
	s, err = svc.repo.UpdateStudent(ctx, s)
	if err != nil {
		return Student{}, emailError(err)
	}
	return s, nil
}

// UpdateStatus sets the status of a student. Setting the current status again only refreshes updated_at.
func (svc *service) UpdateStatus(ctx context.Context, id string, status Status) (Student, error) {
	if !status.IsValid() {
		return Student{}, core.NewFieldValidationError("status", errors.New(statusText))
	}
	s, err := svc.repo.UpdateStudentStatus(ctx, id, status, now())
	if err != nil {
		return Student{}, err
	}
	svc.publish(ctx, EventStatusChanged, s)
	return s, nil
}

func (svc *service) Toggle(ctx context.Context, id string) (Student, error) {
	s, err := svc.repo.ToggleStudentStatus(ctx, id, now())
	if err != nil {
		return Student{}, err
	}
	svc.publish(ctx, EventStatusChanged, s)
	return s, nil
}

func (svc *service) ExtendSubscription(ctx context.Context, id string, months int) (Student, error) {
	if months < MinExtendMonths || months > MaxExtendMonths {
		return Student{}, core.NewFieldValidationError(
			"months",
			fmt.Errorf("months must be between %d and %d", MinExtendMonths, MaxExtendMonths),
		)
	}
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	return svc.repo.UpdateSubscriptionExpiry(ctx, id, s.ExtendExpiry(months), now())
}

func (svc *service) AddProgress(ctx context.Context, id string, np NewProgressEntry) (Student, error) {
	np.clean()
	tstamp := now()
	entry := ProgressEntry{
		Date:        np.Date,
		Topic:       np.Topic,
		Description: np.Description,
		Grade:       np.Grade,
		MaxGrade:    np.MaxGrade,
		Comments:    np.Comments,
		CreatedAt:   tstamp,
	}
	return svc.repo.AddProgressEntry(ctx, id, entry, tstamp)
}

func (svc *service) AddPayment(ctx context.Context, id string, np NewPaymentEntry) (Student, error) {
	np.clean()
	tstamp := now()
	entry := PaymentEntry{
		Date:      np.Date,
		Amount:    np.Amount,
		Method:    np.Method,
		Reference: np.Reference,
		Status:    np.Status,
		Month:     np.Month,
		Year:      np.Year,
		Notes:     np.Notes,
		CreatedAt: tstamp,
	}
	return svc.repo.AddPaymentEntry(ctx, id, entry, tstamp)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	svc.publish(ctx, EventDeleted, Student{ID: id})
	return nil
}

// QueryExpiring returns the active students whose subscription expires within `days` from today.
func (svc *service) QueryExpiring(ctx context.Context, days int) ([]Student, error) {
	if days < 0 {
		return nil, core.NewFieldValidationError("days", errors.New("days cannot be negative"))
	}
	until := core.NewDate(core.Today()).AddDays(days)
	return svc.repo.QueryExpiringStudents(ctx, StatusActive, until)
}

// NotifyExpiring emails the active students whose subscription expires within `days`.
// It returns the number of notified students.
func (svc *service) NotifyExpiring(ctx context.Context, days int) (int, error) {
	students, err := svc.QueryExpiring(ctx, days)
	if err != nil {
		return 0, err
	}
	svc.sendExpiryMails(students...)
	return len(students), nil
}

// RemindPayments emails the active students whose payment is due on `day` or the day after.
// It returns the number of reminded students.
func (svc *service) RemindPayments(ctx context.Context, day time.Time) (int, error) {
	students, err := svc.repo.QueryStudentsByStatus(ctx, StatusActive)
	if err != nil {
		return 0, err
	}
	due := PaymentDueOn(students, day)
	svc.sendPaymentReminders(core.TruncateDate(day), due...)
	return len(due), nil
}

// publish never fails the write it follows: errors are logged.
func (svc *service) publish(ctx context.Context, typ string, s Student) {
	if svc.events == nil {
		return
	}
	payload := map[string]interface{}{"id": s.ID}
	if s.Status != "" {
		payload["status"] = s.Status
	}
	if err := svc.events.Publish(ctx, core.NewEvent(typ, s.ID, payload)); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s event: %v", typ, err), err, s)
	}
}
