package emailsvc

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/services/logger"
)

func newTestDeps() (*core.Config, *core.EmailRenderer, core.Logger) {
	conf := &core.Config{
		AppName:          "TutorDesk",
		TestMode:         true,
		SendgridApiKey:   "test-key",
		DefaultFromEmail: mail.Address{Name: "TutorDesk", Address: "noreply@tutordesk.test"},
	}
	renderer := core.NewEmailRenderer(fstest.MapFS{}, "email", conf)
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	logger.Enable(false)
	return conf, renderer, logger
}

func newTestMessage(body string) *core.EmailMessage {
	return &core.EmailMessage{
		To:      []mail.Address{{Name: "Jane Smith", Address: "jane@example.com"}},
		Subject: "Payment reminder",
		BodyStr: body,
	}
}

func TestSendgridService_Wait(t *testing.T) {
	var delivered int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		if r.Method == http.MethodPost && r.URL.Path == endpoint {
			atomic.AddInt32(&delivered, 1)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	origHost := host
	host = srv.URL
	defer func() { host = origHost }()

	svc := NewSendgridService(newTestDeps())
	svc.SendMessages(newTestMessage("due tomorrow"), newTestMessage("due today"))
	svc.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&delivered))
}

func TestConsoleService_Wait(t *testing.T) {
	ResetSentMessages()
	defer ResetSentMessages()

	conf, renderer, logger := newTestDeps()
	svc := &consoleService{
		renderer:         renderer,
		logger:           logger,
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[TutorDesk] ",
		disableOutput:    true,
	}
	svc.SendMessages(newTestMessage("welcome"), newTestMessage("expiring"))
	svc.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, SentMessages, 2)
	assert.ElementsMatch(
		t,
		[]string{"welcome", "expiring"},
		[]string{SentMessages[0].TextContent, SentMessages[1].TextContent},
	)
}
