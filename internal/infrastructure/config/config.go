package config

import (
	"os"
	"strconv"
)

const (
	// DefaultPackSize is the staging rotation threshold (256 MiB of body bytes).
	DefaultPackSize = 256 << 20
	// DefaultArchiveSize is the destination rotation threshold (512 MiB).
	DefaultArchiveSize = 512 << 20
)

type Config struct {
	Addr     string
	LogLevel string

	// RecordDest is the root directory archives are written under.
	RecordDest string
	// PackSizeBytes controls staging rotation, ArchiveSizeBytes destination
	// rotation.
	PackSizeBytes    uint64
	ArchiveSizeBytes uint64
	// ArchiveLayout is "flat" (entry dirs at the archive root) or "path"
	// (entry dirs under the URL path hierarchy).
	ArchiveLayout string
	// DualFormat adds entry.bin next to entry.json inside archives.
	DualFormat bool
	// PinWorkers pins each sink worker to its own CPU core where supported.
	PinWorkers bool
	// OnFatal is "propagate" (surface terminal sink failures to the caller)
	// or "abort" (exit the process, guaranteeing no silent partial capture).
	OnFatal string
	// RedactHeaders masks sensitive header values at intake.
	RedactHeaders bool
}

func FromEnv() Config {
	cfg := Config{
		Addr:             getEnv("ADDR", ":9091"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RecordDest:       getEnv("RECORD_DEST", "."),
		PackSizeBytes:    getEnvUint64("PACK_SIZE_BYTES", DefaultPackSize),
		ArchiveSizeBytes: getEnvUint64("ARCHIVE_SIZE_BYTES", DefaultArchiveSize),
		ArchiveLayout:    getEnv("ARCHIVE_LAYOUT", "flat"),
		OnFatal:          getEnv("ON_FATAL", "propagate"),
	}
	if cfg.ArchiveLayout != "path" {
		cfg.ArchiveLayout = "flat"
	}
	if cfg.OnFatal != "abort" {
		cfg.OnFatal = "propagate"
	}
	cfg.DualFormat = getEnvBool("DUAL_FORMAT", true)
	cfg.PinWorkers = getEnvBool("PIN_WORKERS", false)
	cfg.RedactHeaders = getEnvBool("REDACT_HEADERS", false)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return def
}
