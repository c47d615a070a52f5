package eventsvc

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/tutordesk/core"
)

type consolePublisher struct {
	std           *log.Logger
	disableOutput bool

	mu        sync.Mutex
	published []core.Event
}

var _ core.EventPublisher = (*consolePublisher)(nil)

// NewConsolePublisher prints events instead of publishing them (kafka disabled).
func NewConsolePublisher(std *log.Logger) core.EventPublisher {
	return &consolePublisher{std: std}
}

func (p *consolePublisher) Publish(ctx context.Context, events ...core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, evt := range events {
		if p.disableOutput {
			p.published = append(p.published, evt)
			continue
		}
		data, err := json.Marshal(evt)
		if err != nil {
			return errors.Wrapf(err, "encoding %s event", evt.Type)
		}
		p.std.Printf("event: %s\n", data)
	}
	return nil
}

func (p *consolePublisher) Close() error { return nil }

// PublisherMock records the published events instead of printing them.
type PublisherMock struct {
	consolePublisher
}

func NewPublisherMock() *PublisherMock {
	return &PublisherMock{consolePublisher: consolePublisher{disableOutput: true}}
}

// Published returns the events published so far.
func (p *PublisherMock) Published() []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Event(nil), p.published...)
}

// Reset forgets the published events.
func (p *PublisherMock) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = nil
}
