package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutordesk/core"
)

var (
	statusTag  = "student_status"
	statusText = "status must be one of ACTIVE or INACTIVE"

	paymentMethodTag  = "payment_method"
	paymentMethodText = "method must be one of CREDIT_CARD, DEBIT_CARD, BANK_TRANSFER, PIX, CASH or OTHER"

	paymentStatusTag  = "payment_status"
	paymentStatusText = "status must be one of COMPLETED, PENDING or FAILED"

	expiryBeforeStartTag  = "expiry_gte_start"
	expiryBeforeStartText = "subscription_expiry cannot be before start_date"

	gradeAboveMaxTag  = "grade_lte_max"
	gradeAboveMaxText = "grade cannot be greater than max_grade"
)

// InitValidators registers the student validation tags & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(paymentMethodTag, paymentMethodValidation)
	core.RegisterCustomTranslation(validate, translator, paymentMethodTag, paymentMethodText)

	_ = validate.RegisterValidation(paymentStatusTag, paymentStatusValidation)
	core.RegisterCustomTranslation(validate, translator, paymentStatusTag, paymentStatusText)

	validate.RegisterStructValidation(studentStructValidation, NewStudent{}, UpdateStudent{})
	core.RegisterCustomTranslation(validate, translator, expiryBeforeStartTag, expiryBeforeStartText)

	validate.RegisterStructValidation(progressStructValidation, NewProgressEntry{})
	core.RegisterCustomTranslation(validate, translator, gradeAboveMaxTag, gradeAboveMaxText)
}

// Custom Validators

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}

func paymentMethodValidation(fl validator.FieldLevel) bool {
	return PaymentMethod(fl.Field().String()).IsValid()
}

func paymentStatusValidation(fl validator.FieldLevel) bool {
	return PaymentStatus(fl.Field().String()).IsValid()
}

// studentStructValidation checks that the subscription does not expire before it starts.
func studentStructValidation(sl validator.StructLevel) {
	var start, expiry core.Date
	switch s := sl.Current().Interface().(type) {
	case NewStudent:
		start, expiry = s.StartDate, s.SubscriptionExpiry
	case UpdateStudent:
		start, expiry = s.StartDate, s.SubscriptionExpiry
	default:
		return
	}
	if !start.IsZero() && !expiry.IsZero() && expiry.Before(start) {
		sl.ReportError(expiry, "subscription_expiry", "SubscriptionExpiry", expiryBeforeStartTag, "")
	}
}

// progressStructValidation checks that grade <= max_grade.
func progressStructValidation(sl validator.StructLevel) {
	if np, ok := sl.Current().Interface().(NewProgressEntry); ok {
		if np.MaxGrade > 0 && np.Grade > np.MaxGrade {
			sl.ReportError(np.Grade, "grade", "Grade", gradeAboveMaxTag, "")
		}
	}
}
