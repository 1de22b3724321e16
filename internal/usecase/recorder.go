package usecase

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reixn/http-recorder/internal/domain"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
)

// Options control the recorder's terminal-error policy.
type Options struct {
	// AbortOnFatal exits the process on a terminal sink failure instead of
	// propagating it, guaranteeing no silent partial capture at the cost of
	// taking the host down.
	AbortOnFatal bool
}

// Recorder owns the lifecycle of one capture session. It is a two-state
// machine: idle until the first entry arrives, active while both sink workers
// run. Entries get a monotonically increasing index and are fanned out to the
// staging store and the archive builder.
type Recorder struct {
	mu        sync.Mutex
	factories SinkFactories
	opts      Options
	logger    zerolog.Logger
	metrics   *obs.Metrics

	session *session
	failed  bool
}

type session struct {
	id      string
	next    uint32
	staging StagingSink
	archive EntrySink
}

func NewRecorder(f SinkFactories, logger *zerolog.Logger, metrics *obs.Metrics, opts Options) *Recorder {
	return &Recorder{
		factories: f,
		opts:      opts,
		logger:    logger.With().Str("component", "recorder").Logger(),
		metrics:   metrics,
	}
}

// Stats describes the recorder's current state.
type Stats struct {
	Active    bool   `json:"active"`
	SessionID string `json:"session_id,omitempty"`
	Entries   uint32 `json:"entries"`
}

func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Stats{}
	}
	return Stats{Active: true, SessionID: r.session.id, Entries: r.session.next}
}

// AddEntry assigns the next session index to e and delivers it to both sinks.
// The first entry of a session starts both workers. Staging I/O errors are
// recoverable: they are returned and the session stays open. A terminal
// worker failure tears the session down and is reported as ErrWorkerFailed.
func (r *Recorder) AddEntry(e *domain.Entry) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return 0, ErrSessionFailed
	}
	if r.session == nil {
		if err := r.openSession(); err != nil {
			return 0, err
		}
	}
	s := r.session
	e.Index = s.next

	if err := s.staging.AddEntry(e); err != nil {
		if errors.Is(err, ErrWorkerFailed) {
			return 0, r.terminate(err)
		}
		return 0, fmt.Errorf("staging write: %w", err)
	}
	if err := s.archive.AddEntry(e); err != nil {
		return 0, r.terminate(err)
	}

	s.next++
	r.metrics.EntriesTotal.Inc()
	req, resp := e.BodyBytes()
	r.metrics.BodyBytesTotal.WithLabelValues("request").Add(float64(req))
	r.metrics.BodyBytesTotal.WithLabelValues("response").Add(float64(resp))
	return e.Index, nil
}

func (r *Recorder) openSession() error {
	staging, err := r.factories.NewStaging()
	if err != nil {
		return fmt.Errorf("start staging store: %w", err)
	}
	archive, err := r.factories.NewArchive()
	if err != nil {
		_ = staging.Finish()
		_ = os.RemoveAll(staging.Dir())
		return fmt.Errorf("start archive builder: %w", err)
	}
	r.session = &session{id: uuid.NewString(), staging: staging, archive: archive}
	r.metrics.SessionActive.Set(1)
	r.logger.Info().Str("session", r.session.id).Msg("session opened")
	return nil
}

// terminate handles a terminal sink failure: both workers are joined, the
// session is marked failed and the staging directory is retained as the
// recovery copy. Caller holds the lock.
func (r *Recorder) terminate(cause error) error {
	s := r.session
	r.session = nil
	r.failed = true
	r.metrics.SessionActive.Set(0)
	r.metrics.WorkerFailuresTotal.WithLabelValues("sink").Inc()
	if err := s.archive.Finish(); err != nil {
		r.logger.Error().Err(err).Msg("archive builder failed")
	}
	if err := s.staging.Finish(); err != nil {
		r.logger.Error().Err(err).Msg("staging store failed")
	}
	r.logger.Error().Err(cause).
		Str("session", s.id).
		Str("staging_dir", s.staging.Dir()).
		Msg("session unrecoverable, staging directory retained")
	if r.opts.AbortOnFatal {
		r.logger.Fatal().Err(cause).Msg("aborting on unrecoverable save failure")
	}
	return fmt.Errorf("session %s: %w", s.id, cause)
}

// Finish finalizes the archive before the staging store and removes the
// staging directory only once the archive is confirmed durable. Finishing an
// idle recorder is a no-op; after a terminal failure it clears the failed
// state.
func (r *Recorder) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		r.failed = false
		return nil
	}
	s := r.session
	r.session = nil
	r.metrics.SessionActive.Set(0)

	archiveErr := s.archive.Finish()
	stagingErr := s.staging.Finish()
	if archiveErr != nil {
		r.logger.Error().Err(archiveErr).
			Str("staging_dir", s.staging.Dir()).
			Msg("archive finish failed, staging directory retained")
		if r.opts.AbortOnFatal {
			r.logger.Fatal().Err(archiveErr).Msg("aborting on unrecoverable save failure")
		}
		return fmt.Errorf("finish archive (staging retained at %s): %w", s.staging.Dir(), archiveErr)
	}
	if stagingErr != nil {
		r.logger.Error().Err(stagingErr).
			Str("staging_dir", s.staging.Dir()).
			Msg("staging finish failed, staging directory retained")
		return fmt.Errorf("finish staging (retained at %s): %w", s.staging.Dir(), stagingErr)
	}
	if err := os.RemoveAll(s.staging.Dir()); err != nil {
		return fmt.Errorf("remove staging dir: %w", err)
	}
	r.logger.Info().Str("session", s.id).Uint32("entries", s.next).Msg("session finished")
	return nil
}
