package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agbru/tilemanifest/internal/tile"
)

// FileConfig is the YAML layout of a configuration file. Durations are
// strings such as "30s"; coordinates are three-element lists.
//
//	format: tiles/{z}/{y3}/{x3}.png
//	begin: [0, 0, 0]
//	end: [16, 16, 4]
//	max_in_flight: 32
//	probe_url: http://tiles.internal:8080
type FileConfig struct {
	Format       string `yaml:"format"`
	Begin        []int  `yaml:"begin"`
	End          []int  `yaml:"end"`
	MaxInFlight  int    `yaml:"max_in_flight"`
	ProbeURL     string `yaml:"probe_url"`
	Root         string `yaml:"root"`
	ProbeTimeout string `yaml:"probe_timeout"`
	Timeout      string `yaml:"timeout"`
	Output       string `yaml:"output"`
	Name         string `yaml:"name"`
	Order        string `yaml:"order"`
	LogLevel     string `yaml:"log_level"`
	Serve        string `yaml:"serve"`
	Strict       *bool  `yaml:"strict"`
	Verbose      *bool  `yaml:"verbose"`
}

// LoadFile reads and decodes a YAML configuration file. Unknown keys are
// rejected.
func LoadFile(path string) (FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	var fc FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// applyTo copies every value present in the file onto cfg, skipping fields
// whose flag was given explicitly.
func (fc FileConfig) applyTo(cfg *AppConfig, fs *flag.FlagSet) error {
	set := func(names ...string) bool { return !isFlagSetAny(fs, names...) }

	if fc.Format != "" && set("format", "f") {
		cfg.Format = fc.Format
	}
	if fc.Begin != nil && set("begin") {
		c, err := coordFromList("begin", fc.Begin)
		if err != nil {
			return err
		}
		cfg.Begin = c
	}
	if fc.End != nil && set("end") {
		c, err := coordFromList("end", fc.End)
		if err != nil {
			return err
		}
		cfg.End = c
	}
	if fc.MaxInFlight != 0 && set("max-in-flight", "j") {
		cfg.MaxInFlight = fc.MaxInFlight
	}
	if fc.ProbeURL != "" && set("probe-url") {
		cfg.ProbeURL = fc.ProbeURL
	}
	if fc.Root != "" && set("root") {
		cfg.Root = fc.Root
	}
	if fc.ProbeTimeout != "" && set("probe-timeout") {
		d, err := time.ParseDuration(fc.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("parse probe_timeout: %w", err)
		}
		cfg.ProbeTimeout = d
	}
	if fc.Timeout != "" && set("timeout") {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.Output != "" && set("output", "o") {
		cfg.Output = fc.Output
	}
	if fc.Name != "" && set("name") {
		cfg.OutputName = fc.Name
	}
	if fc.Order != "" && set("order") {
		cfg.Order = fc.Order
	}
	if fc.LogLevel != "" && set("log-level") {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.Serve != "" && set("serve") {
		cfg.Serve = fc.Serve
	}
	if fc.Strict != nil && set("strict") {
		cfg.Strict = *fc.Strict
	}
	if fc.Verbose != nil && set("verbose", "v") {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}

func coordFromList(field string, v []int) (tile.Coord, error) {
	if len(v) != 3 {
		return tile.Coord{}, fmt.Errorf("%s: want 3 values, got %d", field, len(v))
	}
	return tile.FromArray([3]int{v[0], v[1], v[2]}), nil
}
