// Package events keeps a history of pipeline transitions. The tracking
// documents hold only the current state; this log answers "what happened
// and when" for the history command.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// Event names written by the state machine and loop controller.
const (
	Initialized          = "initialized"
	Started              = "started"
	Completed            = "completed"
	Failed               = "failed"
	Reset                = "reset"
	LoopRequested        = "loop_requested"
	AwaitingExternalStep = "awaiting_external_step"
)

// Event is one recorded transition.
type Event struct {
	ID         int64     `json:"id"`
	Target     string    `json:"target"`
	PipelineID string    `json:"pipelineId"`
	Phase      string    `json:"phase,omitempty"`
	Event      string    `json:"event"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recorder accepts transition events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Log is a Recorder that can also be queried.
type Log interface {
	Recorder
	// History returns a target's events, newest first. limit <= 0 means all.
	History(ctx context.Context, target string, limit int) ([]Event, error)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

func (Nop) History(context.Context, string, int) ([]Event, error) { return nil, nil }

func (Nop) Close() error { return nil }

// Open returns the Log selected by the events configuration.
func Open(ctx context.Context, cfg config.EventsConfig, store *tracking.Store) (Log, error) {
	switch cfg.Driver {
	case config.EventsSQLite, "":
		return NewSQLiteLog(store), nil
	case config.EventsPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case config.EventsNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
