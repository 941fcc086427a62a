// Package config resolves the run configuration from command-line flags,
// TILEMANIFEST_* environment variables, an optional YAML file and built-in
// defaults, in that order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/tile"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "TILEMANIFEST_"

// Defaults.
const (
	DefaultTimeout    = 30 * time.Minute
	DefaultOutputName = "manifest.txt"
	DefaultLogLevel   = "info"
	DefaultOrder      = "lifo"
)

// AppConfig is the resolved configuration of one invocation.
type AppConfig struct {
	// Format is the tile name template handed to the probe as its key.
	Format string
	// Begin and End bound the half-open coordinate range.
	Begin, End tile.Coord
	// MaxInFlight caps concurrent probes. Zero selects an adaptive value.
	MaxInFlight int
	// ProbeURL is the base URL of a remote exists service. Empty means
	// probe locally.
	ProbeURL string
	// Root confines local filesystem probes to a directory.
	Root string
	// ProbeTimeout bounds each probe; zero disables the bound.
	ProbeTimeout time.Duration
	// Timeout bounds the whole run.
	Timeout time.Duration
	// Output is the export target: "-" for stdout, a blob URL, or a
	// directory.
	Output string
	// OutputName is the object name inside Output.
	OutputName string
	// Order is the claim order, "lifo" or "fifo".
	Order string
	// LogLevel is a zerolog level name.
	LogLevel string
	// Serve, when set, runs the exists service on this address instead of
	// building a manifest.
	Serve string
	// ConfigFile is the YAML file that was loaded, if any.
	ConfigFile string
	// Completion, when set, prints a shell completion script and exits.
	Completion string

	Quiet   bool
	Verbose bool
	TUI     bool
	Strict  bool
	Version bool
	NoColor bool
}

// Range returns the configured coordinate range.
func (c AppConfig) Range() tile.Range {
	return tile.NewRange(c.Begin, c.End)
}

// ClaimOrder returns the parsed claim order.
func (c AppConfig) ClaimOrder() manifest.ClaimOrder {
	o, _ := manifest.ParseClaimOrder(c.Order)
	return o
}

// coordFlag parses "x,y,z" into a tile.Coord.
type coordFlag struct{ c *tile.Coord }

func (f coordFlag) String() string {
	if f.c == nil {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d", f.c.X, f.c.Y, f.c.Z)
}

func (f coordFlag) Set(s string) error {
	c, err := tile.ParseCoord(s)
	if err != nil {
		return err
	}
	*f.c = c
	return nil
}

// ParseConfig parses args (without the program name) into an AppConfig.
// Parse errors and usage go to errWriter. flag.ErrHelp is returned as is
// when -h or --help is given.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)

	cfg := AppConfig{}
	fs.StringVar(&cfg.Format, "format", "", "Tile name template, e.g. 'tiles/{z}/{y3}/{x3}.png'.")
	fs.StringVar(&cfg.Format, "f", "", "Shorthand for --format.")
	fs.Var(coordFlag{&cfg.Begin}, "begin", "Inclusive start coordinate as x,y,z.")
	fs.Var(coordFlag{&cfg.End}, "end", "Exclusive end coordinate as x,y,z.")
	fs.IntVar(&cfg.MaxInFlight, "max-in-flight", 0, "Maximum concurrent probes (0 = adaptive).")
	fs.IntVar(&cfg.MaxInFlight, "j", 0, "Shorthand for --max-in-flight.")
	fs.StringVar(&cfg.ProbeURL, "probe-url", "", "Base URL of a remote exists service. Empty probes locally.")
	fs.StringVar(&cfg.Root, "root", "", "Confine local filesystem probes to this directory.")
	fs.DurationVar(&cfg.ProbeTimeout, "probe-timeout", 0, "Timeout for a single probe (0 = none).")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "Timeout for the whole run.")
	fs.StringVar(&cfg.Output, "output", "-", "Export target: '-' for stdout, a blob URL, or a directory.")
	fs.StringVar(&cfg.Output, "o", "-", "Shorthand for --output.")
	fs.StringVar(&cfg.OutputName, "name", DefaultOutputName, "Manifest object name (.json selects JSON encoding).")
	fs.StringVar(&cfg.Order, "order", DefaultOrder, "Claim order: lifo (end of range first) or fifo.")
	fs.StringVar(&cfg.LogLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn, error.")
	fs.StringVar(&cfg.Serve, "serve", "", "Run the exists service on this address instead of building.")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML configuration file.")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Print only the manifest and errors.")
	fs.BoolVar(&cfg.Quiet, "q", false, "Shorthand for --quiet.")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Print every probe failure in the summary.")
	fs.BoolVar(&cfg.Verbose, "v", false, "Shorthand for --verbose.")
	fs.BoolVar(&cfg.TUI, "tui", false, "Show the interactive dashboard.")
	fs.BoolVar(&cfg.Strict, "strict", false, "Exit with a distinct code when any probe failed.")
	fs.BoolVar(&cfg.Version, "version", false, "Print version information and exit.")
	fs.BoolVar(&cfg.Version, "V", false, "Shorthand for --version.")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output (also honors NO_COLOR).")
	fs.StringVar(&cfg.Completion, "completion", "", "Print a completion script for bash, zsh, fish or powershell.")

	fs.Usage = func() {
		fmt.Fprintf(errWriter, "Usage: %s [options]\n\n", programName)
		fmt.Fprintln(errWriter, "Builds a manifest of the tiles that exist in a coordinate range.")
		fmt.Fprintln(errWriter, "\nOptions:")
		fs.PrintDefaults()
		fmt.Fprintf(errWriter, "\nEvery option can also be set through %s<NAME> (e.g. %sMAX_IN_FLIGHT).\n", EnvPrefix, EnvPrefix)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, err
		}
		return cfg, apperrors.NewConfigError("%v", err)
	}
	if fs.NArg() > 0 {
		return cfg, apperrors.NewConfigError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if !isFlagSet(fs, "config") {
		cfg.ConfigFile = getEnvString("CONFIG", "")
	}
	if cfg.ConfigFile != "" {
		fc, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return cfg, apperrors.NewConfigError("%v", err)
		}
		if err := fc.applyTo(&cfg, fs); err != nil {
			return cfg, apperrors.NewConfigError("%s: %v", cfg.ConfigFile, err)
		}
	}
	if err := applyEnvOverrides(&cfg, fs); err != nil {
		return cfg, apperrors.NewConfigError("%v", err)
	}

	if cfg.Version || cfg.Completion != "" {
		return cfg, nil
	}
	cfg = ApplyAdaptiveDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c AppConfig) Validate() error {
	if c.Serve == "" {
		if c.Format == "" {
			return apperrors.NewConfigError("--format is required")
		}
		if err := tile.ValidateFormat(c.Format); err != nil {
			return apperrors.NewConfigError("invalid --format: %v", err)
		}
		if _, ok := c.Range().CheckedCount(); !ok {
			return apperrors.NewConfigError("range %s holds too many tiles", c.Range())
		}
	}
	if c.MaxInFlight <= 0 {
		return apperrors.NewConfigError("--max-in-flight must be positive, got %d", c.MaxInFlight)
	}
	if c.ProbeTimeout < 0 {
		return apperrors.NewConfigError("--probe-timeout must not be negative")
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("--timeout must be positive")
	}
	if _, err := manifest.ParseClaimOrder(c.Order); err != nil {
		return apperrors.NewConfigError("invalid --order: %v", err)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return apperrors.NewConfigError("invalid --log-level %q", c.LogLevel)
	}
	if c.ProbeURL != "" {
		u, err := url.Parse(c.ProbeURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.NewConfigError("--probe-url %q must be an absolute http(s) URL", c.ProbeURL)
		}
	}
	if c.Quiet && c.TUI {
		return apperrors.NewConfigError("--quiet and --tui cannot be combined")
	}
	if c.Serve != "" && c.TUI {
		return apperrors.NewConfigError("--serve and --tui cannot be combined")
	}
	if c.OutputName == "" {
		return apperrors.NewConfigError("--name must not be empty")
	}
	return nil
}
