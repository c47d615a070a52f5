package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
	appfs "github.com/trezcool/tutordesk/fs"
	"github.com/trezcool/tutordesk/services/email"
	"github.com/trezcool/tutordesk/services/events"
	"github.com/trezcool/tutordesk/services/logger"
)

// NewConfig returns the config used by tests; it never reads the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "TutorDesk",
		TestMode:         true,
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "TutorDesk", Address: "noreply@tutordesk.test"},
		Server: core.ServerConfig{
			ShutdownTimeout: 5 * time.Second,
			AllowOrigins:    []string{"*"},
			DisableReqLogs:  true,
		},
		Database:     core.DatabaseConfig{Engine: "memory"},
		Notification: core.NotificationConfig{ExpiryDaysBefore: 7},
	}
}

// NewLogger returns a silent logger that never reports to rollbar.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	return validate, translator
}

// NewStudentService wires a student.Service sending emails synchronously through the console mock.
func NewStudentService(conf *core.Config, repo student.Repository, events *eventsvc.PublisherMock) student.Service {
	logger := NewLogger(conf)
	renderer := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, renderer, logger)
	return student.NewService(repo, mailSvc, events, logger)
}

// CreateStudent stores a student directly through `repo`, bypassing the service.
func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, email, course string,
	status student.Status,
	opts ...func(s *student.Student),
) student.Student {
	tstamp := time.Now().UTC().Truncate(time.Millisecond)
	start := core.NewDate(core.Today())
	s := student.Student{
		Name:               name,
		Email:              email,
		Phone:              "+243 810 000 000",
		Course:             course,
		Level:              student.LevelBeginner,
		Status:             status,
		MonthlyFee:         decimal.NewFromInt(150),
		PaymentDay:         start.Day(),
		StartDate:          start,
		SubscriptionExpiry: start.AddMonths(1),
		Progress:           make([]student.ProgressEntry, 0),
		Payments:           make([]student.PaymentEntry, 0),
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
