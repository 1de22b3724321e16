// recorder-unpack rebuilds a destination archive from the staging directory a
// crashed session left behind: rotated packs plus loose per-entry files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/reixn/http-recorder/internal/adapters/archive"
	"github.com/reixn/http-recorder/internal/domain"
	cfgpkg "github.com/reixn/http-recorder/internal/infrastructure/config"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
)

func main() {
	stagingDir := flag.String("staging", "", "staging directory of the interrupted session")
	dest := flag.String("dest", "", "destination directory for the rebuilt archive")
	layout := flag.String("layout", "flat", "archive layout: flat or path")
	dual := flag.Bool("dual", true, "write entry.bin next to entry.json")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := obs.NewLogger(*logLevel)
	if *stagingDir == "" || *dest == "" {
		flag.Usage()
		os.Exit(2)
	}

	entries, err := loadStaging(*stagingDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read staging directory")
	}
	if len(entries) == 0 {
		logger.Warn().Msg("staging directory holds no entries")
		return
	}
	logger.Info().Int("entries", len(entries)).Msg("recovered entries from staging")

	builder, err := archive.New(archive.Options{
		Dest:             *dest,
		ArchiveSizeBytes: cfgpkg.DefaultArchiveSize,
		Layout:           archive.Layout(*layout),
		DualFormat:       *dual,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start archive builder")
	}
	for _, e := range entries {
		if err := builder.AddEntry(e); err != nil {
			logger.Fatal().Err(err).Uint32("index", e.Index).Msg("failed to archive entry")
		}
	}
	if err := builder.Finish(); err != nil {
		logger.Fatal().Err(err).Msg("failed to finish archive")
	}
	logger.Info().Str("dest", *dest).Msg("archive rebuilt")
}

// loadStaging decodes every entry the staging directory holds, packs first,
// then loose files, deduplicated by index and sorted.
func loadStaging(dir string) ([]*domain.Entry, error) {
	byIndex := make(map[uint32]*domain.Entry)

	packs, err := filepath.Glob(filepath.Join(dir, "*.bin.xz"))
	if err != nil {
		return nil, err
	}
	sort.Slice(packs, func(i, j int) bool { return packSeq(packs[i]) < packSeq(packs[j]) })
	for _, p := range packs {
		batch, err := readPack(p)
		if err != nil {
			return nil, fmt.Errorf("read pack %s: %w", p, err)
		}
		for _, e := range batch.Data {
			byIndex[e.Index] = e
		}
	}

	loose, err := filepath.Glob(filepath.Join(dir, "unpacked", "*.bin"))
	if err != nil {
		return nil, err
	}
	for _, p := range loose {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		var e domain.Entry
		if err := domain.DecodeBinary(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		byIndex[e.Index] = &e
	}

	entries := make([]*domain.Entry, 0, len(byIndex))
	for _, e := range byIndex {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}

func readPack(path string) (*domain.Entries[[]*domain.Entry], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		return nil, err
	}
	var batch domain.Entries[[]*domain.Entry]
	if err := domain.DecodeBinaryFrom(r, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func packSeq(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".bin.xz")
	n, err := strconv.Atoi(base)
	if err != nil {
		return -1
	}
	return n
}
