package student

import (
	"net/mail"
	"time"

	"github.com/trezcool/tutordesk/core"
)

// Email templates (under fs/assets/templates/email)
const (
	welcomeTemplate         = "student_welcome"
	expiryTemplate          = "subscription_expiring"
	paymentReminderTemplate = "payment_reminder"
)

type paymentReminderData struct {
	Student Student
	DueDate core.Date
}

func recipient(s Student) []mail.Address {
	return []mail.Address{{Name: s.Name, Address: s.Email}}
}

func (svc *service) sendWelcomeMail(s Student) {
	if svc.mailSvc == nil || s.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           recipient(s),
		Subject:      "Welcome!",
		TemplateName: welcomeTemplate,
		TemplateData: s,
	})
}

func (svc *service) sendExpiryMails(students ...Student) {
	if svc.mailSvc == nil || len(students) == 0 {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		msgs = append(msgs, &core.EmailMessage{
			To:           recipient(s),
			Subject:      "Your subscription is about to expire",
			TemplateName: expiryTemplate,
			TemplateData: s,
		})
	}
	svc.mailSvc.SendMessages(msgs...)
}

func (svc *service) sendPaymentReminders(day time.Time, students ...Student) {
	if svc.mailSvc == nil || len(students) == 0 {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		msgs = append(msgs, &core.EmailMessage{
			To:           recipient(s),
			Subject:      "Payment reminder",
			TemplateName: paymentReminderTemplate,
			TemplateData: paymentReminderData{Student: s, DueDate: dueDate(s, day)},
		})
	}
	svc.mailSvc.SendMessages(msgs...)
}

// dueDate is `day` or the day after, whichever the payment of `s` falls on.
func dueDate(s Student, day time.Time) core.Date {
	if s.DueDay(day.Year(), day.Month()) == day.Day() {
		return core.NewDate(day)
	}
	return core.NewDate(day.AddDate(0, 0, 1))
}
