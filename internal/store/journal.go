package store

import (
	"github.com/ayusman/eyecontrol/internal/delivery"
	"github.com/sirupsen/logrus"
)

// Journal records delivery results as events.
type Journal struct {
	events *EventRepository
	log    *logrus.Entry
}

// NewJournal returns a delivery.Recorder writing to s.
func NewJournal(s *Store, log *logrus.Entry) *Journal {
	return &Journal{events: s.Events(), log: log}
}

// EventFromResult converts a delivery result into a journal event.
func EventFromResult(r delivery.Result) *Event {
	e := &Event{
		Kind:       string(r.Kind),
		Payload:    r.Payload,
		Attempts:   r.Attempts,
		Success:    r.Success,
		Status:     r.Status,
		DurationMs: r.Duration.Milliseconds(),
		CreatedAt:  r.Started,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}

// Record implements delivery.Recorder. Write failures are logged and dropped.
func (j *Journal) Record(r delivery.Result) {
	if err := j.events.Create(EventFromResult(r)); err != nil && j.log != nil {
		j.log.WithError(err).Warn("journal write failed")
	}
}
