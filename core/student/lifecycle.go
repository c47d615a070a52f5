package student

import (
	"time"

	"github.com/trezcool/tutordesk/core"
)

const (
	MinExtendMonths = 1
	MaxExtendMonths = 24
)

// DueDay returns the day of the month `m` of year `y` on which the payment of `s` is due.
// Payment days past the end of a short month fall on its last day.
func (s *Student) DueDay(y int, m time.Month) int {
	if last := core.DaysIn(y, m); s.PaymentDay > last {
		return last
	}
	return s.PaymentDay
}

// IsPaymentDue reports whether `s` is active and its payment is due on `day` or the day after.
func (s *Student) IsPaymentDue(day time.Time) bool {
	if !s.IsActive() || s.PaymentDay < 1 {
		return false
	}
	for _, d := range []time.Time{day, day.AddDate(0, 0, 1)} {
		if s.DueDay(d.Year(), d.Month()) == d.Day() {
			return true
		}
	}
	return false
}

// ExpiresBy reports whether the subscription of `s` expires on or before `until`.
// Expiry never changes the status by itself.
func (s *Student) ExpiresBy(until core.Date) bool {
	return !s.SubscriptionExpiry.IsZero() && !s.SubscriptionExpiry.After(until)
}

// PaymentDueOn returns the active students whose payment is due on `day` or the day after.
func PaymentDueOn(students []Student, day time.Time) []Student {
	day = core.TruncateDate(day)
	due := make([]Student, 0)
	for _, s := range students {
		if s.IsPaymentDue(day) {
			due = append(due, s)
		}
	}
	return due
}

// ExtendExpiry returns the subscription expiry of `s` pushed by `months`.
// A student without expiry is extended from its start date.
func (s *Student) ExtendExpiry(months int) core.Date {
	from := s.SubscriptionExpiry
	if from.IsZero() {
		from = s.StartDate
	}
	return from.AddMonths(months)
}
