// Package staging is the crash-safety layer: every entry is made durable on
// local disk immediately, independent of the possibly slower final
// destination. Loose per-entry files are periodically compressed into
// immutable packs by a background worker.
package staging

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/ulikunitz/xz"

	"github.com/reixn/http-recorder/internal/domain"
	"github.com/reixn/http-recorder/internal/infrastructure/affinity"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
	"github.com/reixn/http-recorder/internal/queue"
	"github.com/reixn/http-recorder/internal/usecase"
)

// batch is a filled aggregate handed to the packer: the summary plus the
// buffered entries themselves.
type batch = domain.Entries[[]*domain.Entry]

type Options struct {
	// PackSizeBytes is the body-size threshold that rotates the in-memory
	// aggregate out to the packer.
	PackSizeBytes uint64
	Placement     affinity.Placement
	Logger        *zerolog.Logger
	Metrics       *obs.Metrics
}

// Store writes entries to a fresh temporary directory. AddEntry and Finish
// are called from the session's ingestion goroutine only; the packer runs on
// its own goroutine and never touches the live aggregate.
type Store struct {
	opts        Options
	dir         string
	unpackedDir string
	entries     *batch
	q           *queue.Queue[*batch]
	done        chan struct{}
	workerErr   error
	logger      zerolog.Logger
}

func New(opts Options) (*Store, error) {
	if opts.Placement == nil {
		opts.Placement = affinity.None()
	}
	dir, err := os.MkdirTemp("", "http-recorder-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	unpacked := filepath.Join(dir, "unpacked")
	if err := os.Mkdir(unpacked, 0o755); err != nil {
		return nil, fmt.Errorf("create unpacked dir: %w", err)
	}
	s := &Store{
		opts:        opts,
		dir:         dir,
		unpackedDir: unpacked,
		q:           queue.New[*batch](),
		done:        make(chan struct{}),
		logger:      opts.Logger.With().Str("component", "staging").Logger(),
	}
	go s.runPacker()
	s.logger.Info().Str("dir", dir).Msg("staging store started")
	return s, nil
}

// Dir is the staging directory; the recorder removes it once the destination
// archive is confirmed flushed.
func (s *Store) Dir() string { return s.dir }

// AddEntry persists e as a loose file and folds it into the running
// aggregate. When the aggregate has reached the pack threshold it is swapped
// out and handed to the packer first; the hand-off never blocks.
func (s *Store) AddEntry(e *domain.Entry) error {
	switch {
	case s.entries == nil:
		s.entries = domain.NewEntries[[]*domain.Entry](e.Index, e.Timings)
	case s.entries.ContentSize() >= s.opts.PackSizeBytes:
		full := s.entries
		s.entries = domain.NewEntries[[]*domain.Entry](e.Index, e.Timings)
		if !s.q.Push(full) {
			<-s.done
			return fmt.Errorf("entry packer: %w", errors.Join(usecase.ErrWorkerFailed, s.workerErr))
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.RotationsTotal.WithLabelValues("staging").Inc()
		}
	}
	if err := s.writeUnpacked(e); err != nil {
		return err
	}
	s.entries.Update(e)
	s.entries.Data = append(s.entries.Data, e)
	return nil
}

func (s *Store) writeUnpacked(e *domain.Entry) error {
	data, err := domain.EncodeBinary(e)
	if err != nil {
		return fmt.Errorf("encode entry %d: %w", e.Index, err)
	}
	path := filepath.Join(s.unpackedDir, fmt.Sprintf("%d.bin", e.Index))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write entry %d: %w", e.Index, err)
	}
	return nil
}

// Finish stops the packer and reports its terminal error, if any. Entries of
// the final partial batch stay behind as loose files; the directory as a
// whole is ephemeral.
func (s *Store) Finish() error {
	s.q.Close()
	<-s.done
	if s.workerErr != nil {
		return fmt.Errorf("entry packer: %w", s.workerErr)
	}
	return nil
}

func (s *Store) runPacker() {
	defer close(s.done)
	if err := s.opts.Placement.Apply("entry-packer"); err != nil {
		s.logger.Warn().Err(err).Msg("cpu pinning failed")
	}
	for seq := 0; ; seq++ {
		b, ok := s.q.Pop()
		if !ok {
			return
		}
		path := filepath.Join(s.dir, fmt.Sprintf("%d.bin.xz", seq))
		s.logger.Info().
			Uint32("begin", b.BeginIndex).
			Uint32("end", b.EndIndex).
			Msg("packing entries")
		if err := writePack(path, b); err != nil {
			s.workerErr = err
			s.q.Fail()
			s.logger.Error().Err(err).Str("pack", path).Msg("packing failed")
			return
		}
		s.logger.Info().
			Uint32("begin", b.BeginIndex).
			Uint32("end", b.EndIndex).
			Str("pack", path).
			Msg("packed entries")
		for _, e := range b.Data {
			loose := filepath.Join(s.unpackedDir, fmt.Sprintf("%d.bin", e.Index))
			if err := os.Remove(loose); err != nil {
				s.logger.Error().Err(err).Str("file", loose).Msg("failed to remove loose entry")
			}
		}
	}
}

// writePack compresses one batch, entries and summary header together, into a
// single immutable pack file.
func writePack(path string, b *batch) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create pack file: %w", err)
	}
	bw := bufio.NewWriter(f)
	xzw, err := xz.NewWriter(bw)
	if err != nil {
		f.Close()
		return fmt.Errorf("start compressor: %w", err)
	}
	if err := domain.EncodeBinaryTo(xzw, b); err != nil {
		f.Close()
		return fmt.Errorf("write pack: %w", err)
	}
	if err := xzw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finish compression: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush pack: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync pack: %w", err)
	}
	return f.Close()
}
