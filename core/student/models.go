package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/tutordesk/core"
)

type Status string

// Statuses
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

var Statuses = []Status{StatusActive, StatusInactive}

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Toggle returns the opposite state: ACTIVE <-> INACTIVE.
func (s Status) Toggle() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// Levels (suggestions only, level is free text)
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediary = "INTERMEDIARY"
	LevelAdvanced     = "ADVANCED"
)

type PaymentMethod string

// Payment methods
const (
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentPix          PaymentMethod = "PIX"
	PaymentCash         PaymentMethod = "CASH"
	PaymentOther        PaymentMethod = "OTHER"
)

var PaymentMethods = []PaymentMethod{
	PaymentCreditCard, PaymentDebitCard, PaymentBankTransfer, PaymentPix, PaymentCash, PaymentOther,
}

func (m PaymentMethod) IsValid() bool {
	for _, pm := range PaymentMethods {
		if m == pm {
			return true
		}
	}
	return false
}

type PaymentStatus string

// Payment statuses
const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsValid() bool {
	return s == PaymentCompleted || s == PaymentPending || s == PaymentFailed
}

type Student struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	Course             string          `json:"course"`
	Level              string          `json:"level"`
	Status             Status          `json:"status"`
	MonthlyFee         decimal.Decimal `json:"monthly_fee"`
	PaymentDay         int             `json:"payment_day"`
	StartDate          core.Date       `json:"start_date"`
	SubscriptionExpiry core.Date       `json:"subscription_expiry"`
	Progress           []ProgressEntry `json:"progress"`
	Payments           []PaymentEntry  `json:"payments"`
	Notes              string          `json:"notes"`
	CreatedAt          time.Time       `json:"created_at"` // UTC
	UpdatedAt          time.Time       `json:"updated_at"` // UTC
}

func (s *Student) IsActive() bool {
	return s.Status == StatusActive
}

// ProgressEntry is one evaluated learning milestone. Immutable once recorded.
type ProgressEntry struct {
	Date        core.Date `json:"date"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	Grade       float64   `json:"grade"`
	MaxGrade    float64   `json:"max_grade"`
	Comments    string    `json:"comments"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// PaymentEntry is one recorded payment transaction. Immutable once recorded.
type PaymentEntry struct {
	Date      core.Date       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference"`
	Status    PaymentStatus   `json:"status"`
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name               string          `json:"name" validate:"required"`
	Email              string          `json:"email" validate:"required,email"`
	Phone              string          `json:"phone" validate:"required"`
	Course             string          `json:"course" validate:"required"`
	Status             Status          `json:"status" validate:"omitempty,student_status"`
	Level              string          `json:"level"`
	MonthlyFee         decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
	PaymentDay         int             `json:"payment_day" validate:"omitempty,min=1,max=31"`
	StartDate          core.Date       `json:"start_date"`
	SubscriptionExpiry core.Date       `json:"subscription_expiry"`
	Notes              string          `json:"notes"`
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Course = core.CleanString(ns.Course)
	ns.Level = core.CleanString(ns.Level)
	ns.Notes = core.CleanString(ns.Notes)

	// defaults
	if ns.Status == "" {
		ns.Status = StatusActive
	}
	if ns.StartDate.IsZero() {
		ns.StartDate = core.NewDate(core.Today())
	}
	if ns.PaymentDay == 0 {
		ns.PaymentDay = ns.StartDate.Day()
	}
	if ns.SubscriptionExpiry.IsZero() {
		ns.SubscriptionExpiry = ns.StartDate.AddMonths(1)
	}
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, ns.Email)
}

// UpdateStudent defines what information may be provided to fully update an existing Student.
// Status, progress and payments are never touched by a full update.
type UpdateStudent struct {
	Name               string          `json:"name" validate:"required"`
	Email              string          `json:"email" validate:"required,email"`
	Phone              string          `json:"phone" validate:"required"`
	Course             string          `json:"course" validate:"required"`
	Level              string          `json:"level"`
	MonthlyFee         decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
	PaymentDay         int             `json:"payment_day" validate:"omitempty,min=1,max=31"`
	StartDate          core.Date       `json:"start_date"`
	SubscriptionExpiry core.Date       `json:"subscription_expiry"`
	Notes              string          `json:"notes"`
}

func (us *UpdateStudent) clean(orig Student) {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Phone = core.CleanString(us.Phone)
	us.Course = core.CleanString(us.Course)
	us.Level = core.CleanString(us.Level)
	us.Notes = core.CleanString(us.Notes)

	// keep the original dates & payment day when not provided
	if us.StartDate.IsZero() {
		us.StartDate = orig.StartDate
	}
	if us.SubscriptionExpiry.IsZero() {
		us.SubscriptionExpiry = orig.SubscriptionExpiry
	}
	if us.PaymentDay == 0 {
		us.PaymentDay = orig.PaymentDay
	}
}

func (us *UpdateStudent) Validate(ctx context.Context, validate *validator.Validate, orig Student, svc Service) error {
	us.clean(orig)
	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, us.Email, orig)
}

type UpdateStatus struct {
	Status Status `json:"status" validate:"required,student_status"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = Status(core.CleanString(string(us.Status)))
	return validate.Struct(us)
}

type ExtendSubscription struct {
	Months int `json:"months" validate:"required,min=1,max=24"`
}

func (es ExtendSubscription) Validate(validate *validator.Validate) error { return validate.Struct(es) }

type NewProgressEntry struct {
	Date        core.Date `json:"date"`
	Topic       string    `json:"topic" validate:"required"`
	Description string    `json:"description"`
	Grade       float64   `json:"grade" validate:"gte=0"`
	MaxGrade    float64   `json:"max_grade" validate:"required,gt=0"`
	Comments    string    `json:"comments"`
}

func (np *NewProgressEntry) clean() {
	np.Topic = core.CleanString(np.Topic)
	np.Description = core.CleanString(np.Description)
	np.Comments = core.CleanString(np.Comments)
	if np.Date.IsZero() {
		np.Date = core.NewDate(core.Today())
	}
}

func (np *NewProgressEntry) Validate(validate *validator.Validate) error {
	np.clean()
	return validate.Struct(np)
}

type NewPaymentEntry struct {
	Date      core.Date       `json:"date"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Method    PaymentMethod   `json:"method" validate:"required,payment_method"`
	Reference string          `json:"reference"`
	Status    PaymentStatus   `json:"status" validate:"omitempty,payment_status"`
	Month     int             `json:"month" validate:"omitempty,min=1,max=12"`
	Year      int             `json:"year" validate:"omitempty,min=1970"`
	Notes     string          `json:"notes"`
}

func (np *NewPaymentEntry) clean() {
	np.Reference = core.CleanString(np.Reference)
	np.Notes = core.CleanString(np.Notes)
	if np.Date.IsZero() {
		np.Date = core.NewDate(core.Today())
	}
	if np.Status == "" {
		np.Status = PaymentCompleted
	}
	if np.Month == 0 {
		np.Month = int(np.Date.Month())
	}
	if np.Year == 0 {
		np.Year = np.Date.Year()
	}
}

func (np *NewPaymentEntry) Validate(validate *validator.Validate) error {
	np.clean()
	return validate.Struct(np)
}

// Summary holds the dashboard aggregates computed over one snapshot of students.
type Summary struct {
	Total    int      `json:"total"`
	Active   int      `json:"active"`
	Inactive int      `json:"inactive"`
	Courses  []string `json:"courses"` // distinct, first-seen order
}

type Dashboard struct {
	Summary  Summary   `json:"summary"`
	Students []Student `json:"students"`
}
