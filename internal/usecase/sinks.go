package usecase

import (
	"errors"

	"github.com/reixn/http-recorder/internal/domain"
)

// ErrWorkerFailed marks a terminal sink failure: a background worker exited,
// so at-least-one-sink delivery can no longer be guaranteed for new entries.
// Sink implementations wrap it into the errors they return.
var ErrWorkerFailed = errors.New("sink worker exited")

// ErrSessionFailed is returned for entries offered after a terminal failure,
// until the caller acknowledges the teardown with Finish.
var ErrSessionFailed = errors.New("session failed, finish required")

// EntrySink consumes entries in caller order. AddEntry never blocks on the
// sink's worker; Finish drains and joins it.
type EntrySink interface {
	AddEntry(e *domain.Entry) error
	Finish() error
}

// StagingSink additionally exposes its on-disk location, which the recorder
// removes only once the destination archive is confirmed durable.
type StagingSink interface {
	EntrySink
	Dir() string
}

// SinkFactories defers sink construction to the first entry of a session, so
// an idle recorder owns no directories or worker goroutines.
type SinkFactories struct {
	NewStaging func() (StagingSink, error)
	NewArchive func() (EntrySink, error)
}
