package ustar

import (
	"log/slog"

	"github.com/meigma/ustar/identity"
)

// DefaultChunkSize is the buffer size used to move payload bytes.
const DefaultChunkSize = 8 << 10

// ChangeDetection controls how strictly source files are checked for changes
// while they are archived.
type ChangeDetection uint8

const (
	// ChangeDetectionNone logs a warning when a source file grows during
	// archiving. The entry holds the bytes present when its header was written.
	ChangeDetectionNone ChangeDetection = iota

	// ChangeDetectionStrict fails with ErrSizeChanged when a source file grows.
	ChangeDetectionStrict
)

// config holds the settings shared by all Engine operations.
type config struct {
	logger   *slog.Logger
	progress ProgressFunc
	ids      *identity.Cache

	format          Format
	chunkSize       int
	dirHeaders      bool
	changeDetection ChangeDetection

	outputDir     string
	overwrite     bool
	preserveMode  bool
	preserveTimes bool
	preserveOwner bool
}

func defaultConfig() config {
	return config{
		format:        FormatUSTAR,
		chunkSize:     DefaultChunkSize,
		dirHeaders:    true,
		outputDir:     ".",
		overwrite:     true,
		preserveMode:  true,
		preserveTimes: true,
	}
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the logger for engine operations.
// By default, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithProgress sets a callback to receive progress updates.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithIdentityCache sets the cache used to translate between owner IDs and
// names. Engines created without one get a private cache backed by the host
// account database.
func WithIdentityCache(ids *identity.Cache) Option {
	return func(c *config) {
		c.ids = ids
	}
}

// WithFormat sets the header profile used for written entries.
// The default is FormatUSTAR. Reading accepts both profiles regardless.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithChunkSize sets the buffer size used to copy payloads.
// Values <= 0 use DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(c *config) {
		c.chunkSize = n
	}
}

// WithDirectoryHeaders controls whether ArchiveTree records directories as
// entries of their own. Enabled by default; when disabled, empty directories
// are lost and extraction recreates parents with default permissions.
func WithDirectoryHeaders(enabled bool) Option {
	return func(c *config) {
		c.dirHeaders = enabled
	}
}

// WithChangeDetection sets how source files that change while being
// archived are handled. A file that shrinks always fails with ErrSizeChanged.
func WithChangeDetection(cd ChangeDetection) Option {
	return func(c *config) {
		c.changeDetection = cd
	}
}

// WithOutputDir sets the directory Extract and ExtractAll write to.
// It is created if missing. The default is the current directory.
func WithOutputDir(dir string) Option {
	return func(c *config) {
		c.outputDir = dir
	}
}

// WithOverwrite controls whether extraction replaces existing files.
// Enabled by default; when disabled, existing paths are skipped.
func WithOverwrite(overwrite bool) Option {
	return func(c *config) {
		c.overwrite = overwrite
	}
}

// WithPreserveMode applies permission bits from the archive on extraction.
// Enabled by default; when disabled, files are created 0666 and directories
// 0755, both less the process umask.
func WithPreserveMode(preserve bool) Option {
	return func(c *config) {
		c.preserveMode = preserve
	}
}

// WithPreserveTimes applies modification times from the archive on extraction.
// Enabled by default.
func WithPreserveTimes(preserve bool) Option {
	return func(c *config) {
		c.preserveTimes = preserve
	}
}

// WithPreserveOwner restores ownership on extraction. The recorded owner and
// group names are preferred over the numeric IDs when they exist locally.
// Disabled by default. Hosts that refuse the change (for example an
// unprivileged process) log a warning and keep the current owner.
func WithPreserveOwner(preserve bool) Option {
	return func(c *config) {
		c.preserveOwner = preserve
	}
}
