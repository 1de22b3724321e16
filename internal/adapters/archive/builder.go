// Package archive produces the durable, browsable output artifact: per
// destination host a sequence of size-rotated tar.xz files plus a manifest of
// the host's full rotation history.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/reixn/http-recorder/internal/domain"
	"github.com/reixn/http-recorder/internal/infrastructure/affinity"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
	"github.com/reixn/http-recorder/internal/queue"
	"github.com/reixn/http-recorder/internal/usecase"
)

// Layout selects how entries are placed inside an archive.
type Layout string

const (
	// LayoutFlat puts each entry directory at the archive root.
	LayoutFlat Layout = "flat"
	// LayoutPath nests entry directories under the URL path hierarchy.
	LayoutPath Layout = "path"
)

type Options struct {
	// Dest is the session's destination root; one subdirectory per host is
	// created under it.
	Dest string
	// ArchiveSizeBytes is the body-size threshold that rotates an archive.
	ArchiveSizeBytes uint64
	Layout           Layout
	// DualFormat adds entry.bin next to entry.json.
	DualFormat bool
	Placement  affinity.Placement
	Logger     *zerolog.Logger
	Metrics    *obs.Metrics
}

// Builder consumes entries on its own worker goroutine. AddEntry is a
// non-blocking hand-off; its only failure mode is a dead worker.
type Builder struct {
	opts      Options
	q         *queue.Queue[*domain.Entry]
	done      chan struct{}
	workerErr error
	logger    zerolog.Logger
}

func New(opts Options) (*Builder, error) {
	if opts.Placement == nil {
		opts.Placement = affinity.None()
	}
	if opts.Layout == "" {
		opts.Layout = LayoutFlat
	}
	if err := os.MkdirAll(opts.Dest, 0o755); err != nil {
		return nil, fmt.Errorf("create dest dir: %w", err)
	}
	b := &Builder{
		opts:   opts,
		q:      queue.New[*domain.Entry](),
		done:   make(chan struct{}),
		logger: opts.Logger.With().Str("component", "archive").Logger(),
	}
	go b.run()
	return b, nil
}

func (b *Builder) AddEntry(e *domain.Entry) error {
	if !b.q.Push(e) {
		<-b.done
		return fmt.Errorf("archive builder: %w", errors.Join(usecase.ErrWorkerFailed, b.workerErr))
	}
	return nil
}

// Finish drains the queue, finalizes every open archive, writes every host
// manifest and joins the worker.
func (b *Builder) Finish() error {
	b.q.Close()
	<-b.done
	if b.workerErr != nil {
		return fmt.Errorf("archive builder: %w", b.workerErr)
	}
	return nil
}

func (b *Builder) run() {
	defer close(b.done)
	if err := b.opts.Placement.Apply("tar-saver"); err != nil {
		b.logger.Warn().Err(err).Msg("cpu pinning failed")
	}
	hosts := make(map[string]*hostArchive)
	for {
		e, ok := b.q.Pop()
		if !ok {
			break
		}
		label := e.Request.URL.HostLabel()
		h := hosts[label]
		if h == nil {
			var err error
			h, err = newHostArchive(&b.opts, label, e)
			if err != nil {
				b.fail(fmt.Errorf("host %s: %w", label, err))
				return
			}
			hosts[label] = h
		}
		if err := h.addEntry(e); err != nil {
			b.fail(fmt.Errorf("host %s: %w", label, err))
			return
		}
	}
	for label, h := range hosts {
		if err := h.finish(); err != nil {
			b.workerErr = fmt.Errorf("host %s: %w", label, err)
			return
		}
	}
}

func (b *Builder) fail(err error) {
	b.workerErr = err
	b.q.Fail()
	b.logger.Error().Err(err).Msg("archive worker failed")
}

// hostArchive is one host's output directory: the open tar file, the rotation
// sequence and the accumulated history for the manifest.
type hostArchive struct {
	opts    *Options
	dir     string
	seq     uint32
	current *tarFile
	history *domain.Entries[[]domain.Summary]
	logger  zerolog.Logger
}

func newHostArchive(opts *Options, label string, e *domain.Entry) (*hostArchive, error) {
	dir := filepath.Join(opts.Dest, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create host dir: %w", err)
	}
	current, err := newTarFile(dir, 0, e)
	if err != nil {
		return nil, err
	}
	return &hostArchive{
		opts:    opts,
		dir:     dir,
		current: current,
		history: domain.NewEntries[[]domain.Summary](e.Index, e.Timings),
		logger:  opts.Logger.With().Str("component", "archive").Str("host", label).Logger(),
	}, nil
}

func (h *hostArchive) addEntry(e *domain.Entry) error {
	if h.current.info.ContentSize() > h.opts.ArchiveSizeBytes {
		full := h.current
		h.seq++
		next, err := newTarFile(h.dir, h.seq, e)
		if err != nil {
			return err
		}
		h.current = next
		info, err := full.finish()
		if err != nil {
			return err
		}
		h.history.Data = append(h.history.Data, info)
		h.logger.Info().
			Uint32("begin", info.BeginIndex).
			Uint32("end", info.EndIndex).
			Uint32("seq", h.seq).
			Msg("rotated archive")
		if h.opts.Metrics != nil {
			h.opts.Metrics.RotationsTotal.WithLabelValues("archive").Inc()
		}
	}
	if err := h.current.addEntry(e, h.opts.Layout, h.opts.DualFormat); err != nil {
		return err
	}
	h.history.Update(e)
	return nil
}

func (h *hostArchive) finish() error {
	info, err := h.current.finish()
	if err != nil {
		return err
	}
	h.history.Data = append(h.history.Data, info)
	return h.writeManifests()
}

func (h *hostArchive) writeManifests() error {
	data, err := json.MarshalIndent(h.history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.dir, "info.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	data, err = yaml.Marshal(h.history)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.dir, "info.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
