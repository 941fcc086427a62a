// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agbru/tilemanifest/internal/tile"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the TILEMANIFEST_ prefix) to the CLI
// flag name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string) error
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	// Range
	{"FORMAT", []string{"format", "f"}, func(c *AppConfig, v string) error {
		c.Format = v
		return nil
	}},
	{"BEGIN", []string{"begin"}, func(c *AppConfig, v string) error {
		return parseCoordEnv(v, &c.Begin)
	}},
	{"END", []string{"end"}, func(c *AppConfig, v string) error {
		return parseCoordEnv(v, &c.End)
	}},

	// Probing
	{"MAX_IN_FLIGHT", []string{"max-in-flight", "j"}, func(c *AppConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.MaxInFlight = n
		return nil
	}},
	{"PROBE_URL", []string{"probe-url"}, func(c *AppConfig, v string) error {
		c.ProbeURL = v
		return nil
	}},
	{"ROOT", []string{"root"}, func(c *AppConfig, v string) error {
		c.Root = v
		return nil
	}},
	{"ORDER", []string{"order"}, func(c *AppConfig, v string) error {
		c.Order = v
		return nil
	}},

	// Duration overrides
	{"PROBE_TIMEOUT", []string{"probe-timeout"}, func(c *AppConfig, v string) error {
		return parseDurationEnv(v, &c.ProbeTimeout)
	}},
	{"TIMEOUT", []string{"timeout"}, func(c *AppConfig, v string) error {
		return parseDurationEnv(v, &c.Timeout)
	}},

	// Output
	{"OUTPUT", []string{"output", "o"}, func(c *AppConfig, v string) error {
		c.Output = v
		return nil
	}},
	{"NAME", []string{"name"}, func(c *AppConfig, v string) error {
		c.OutputName = v
		return nil
	}},
	{"LOG_LEVEL", []string{"log-level"}, func(c *AppConfig, v string) error {
		c.LogLevel = v
		return nil
	}},
	{"SERVE", []string{"serve"}, func(c *AppConfig, v string) error {
		c.Serve = v
		return nil
	}},

	// Boolean overrides
	{"QUIET", []string{"quiet", "q"}, func(c *AppConfig, v string) error {
		c.Quiet = parseBoolEnv(v, c.Quiet)
		return nil
	}},
	{"VERBOSE", []string{"verbose", "v"}, func(c *AppConfig, v string) error {
		c.Verbose = parseBoolEnv(v, c.Verbose)
		return nil
	}},
	{"TUI", []string{"tui"}, func(c *AppConfig, v string) error {
		c.TUI = parseBoolEnv(v, c.TUI)
		return nil
	}},
	{"STRICT", []string{"strict"}, func(c *AppConfig, v string) error {
		c.Strict = parseBoolEnv(v, c.Strict)
		return nil
	}},
	{"NO_COLOR", []string{"no-color"}, func(c *AppConfig, v string) error {
		c.NoColor = parseBoolEnv(v, c.NoColor)
		return nil
	}},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

func parseCoordEnv(val string, dst *tile.Coord) error {
	c, err := tile.ParseCoord(val)
	if err != nil {
		return err
	}
	*dst = c
	return nil
}

func parseDurationEnv(val string, dst *time.Duration) error {
	d, err := time.ParseDuration(val)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > file > Defaults.
//
// Supported environment variables (all prefixed with TILEMANIFEST_):
//   - FORMAT, BEGIN, END, MAX_IN_FLIGHT, PROBE_URL, ROOT, ORDER,
//     PROBE_TIMEOUT, TIMEOUT, OUTPUT, NAME, LOG_LEVEL, SERVE,
//     QUIET, VERBOSE, TUI, STRICT, NO_COLOR, CONFIG
//
// Unlike unrecognized booleans, a malformed number, coordinate or duration
// is an error rather than being silently ignored.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) error {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			if err := o.apply(config, val); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, o.envKey, err)
			}
		}
	}
	return nil
}
