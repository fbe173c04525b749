// Package audit is the Score & Audit Writer: the one place a score
// change or a judged answer gets mirrored into the durable store.
// Score mirroring is synchronous (the caller needs to know it landed
// before broadcasting); audit logging is fire-and-forget over a
// buffered channel so a slow durable-store write never blocks a
// broadcast.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// Writer mirrors score changes synchronously and appends audit events
// through a single background goroutine, grounded on the teacher's
// single-producer/fan-out errs chan<- error pattern in web.go (one
// consumer goroutine per process, not per game).
type Writer struct {
	store   durable.Store
	log     *coordlog.Logger
	events  chan model.AuditEvent
	closing chan struct{}
}

// New starts the Writer's background drain goroutine. bufferSize caps
// how many pending audit events can queue before the oldest is
// dropped; a slow or down durable store degrades to "missing some
// audit history" rather than "blocking gameplay".
func New(store durable.Store, log *coordlog.Logger, bufferSize int) *Writer {
	w := &Writer{
		store:   store,
		log:     log,
		events:  make(chan model.AuditEvent, bufferSize),
		closing: make(chan struct{}),
	}
	go w.drain()
	return w
}

// RecordScoreChange mirrors an authoritative score change to the
// durable store synchronously, per spec.md's "every authoritative
// score change is mirrored synchronously" requirement. newScore is the
// seat's full score after the change, not a delta. The audit trail
// entry for the change is appended separately by the caller through
// Append, since the caller already knows the richer event payload
// (judge_answer vs judge_dd_answer vs adjust_score).
func (w *Writer) RecordScoreChange(ctx context.Context, gameID string, seat int, newScore int) error {
	return w.store.SetParticipantScore(ctx, gameID, seat, newScore)
}

// Append enqueues an audit event for background persistence. The
// event's ID and ServerTimestampUS are stamped here from the same
// time.Now().UnixMicro() call path the buzzer arbitrator uses, never
// from a caller-supplied value, so audit ordering is always
// server-authoritative.
func (w *Writer) Append(gameID, action string, participantSeat *string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		w.log.Errorf("audit: marshal payload for %s/%s: %v", gameID, action, err)
		raw = json.RawMessage("{}")
	}

	ev := model.AuditEvent{
		ID:                uuid.NewString(),
		GameID:            gameID,
		ParticipantID:     participantSeat,
		Action:            action,
		Payload:           raw,
		CreatedAt:         time.Now(),
		ServerTimestampUS: time.Now().UnixMicro(),
	}

	select {
	case w.events <- ev:
	default:
		// Buffer full: drop the oldest queued event to make room
		// rather than block the caller, matching "audit writes are
		// append-only and MUST NOT block broadcasts".
		select {
		case <-w.events:
			w.log.Errorf("audit: buffer full, dropped oldest event for game %s", gameID)
		default:
		}
		select {
		case w.events <- ev:
		default:
			w.log.Errorf("audit: buffer full, dropped event %s for game %s", action, gameID)
		}
	}
}

// Close stops the background drain goroutine once the channel empties.
func (w *Writer) Close() {
	close(w.closing)
}

func (w *Writer) drain() {
	ctx := context.Background()
	for {
		select {
		case ev := <-w.events:
			if err := w.store.AppendAudit(ctx, ev); err != nil {
				w.log.Errorf("audit: persist event %s for game %s: %v", ev.Action, ev.GameID, err)
			}
		case <-w.closing:
			for {
				select {
				case ev := <-w.events:
					if err := w.store.AppendAudit(ctx, ev); err != nil {
						w.log.Errorf("audit: persist event %s for game %s: %v", ev.Action, ev.GameID, err)
					}
				default:
					return
				}
			}
		}
	}
}
