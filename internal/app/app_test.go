package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/tilemanifest/internal/config"
	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/logging"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/tile"
)

// Run sets the global theme and log level, so these tests do not run in
// parallel.

const testFormat = "tiles/{z}/{y}/{x}.png"

// squareProbe answers for the 2x2x1 square where (0,0,0) and (1,1,0) exist
// and (1,0,0) fails.
func squareProbe(failing bool) ProbeFactory {
	return func(config.AppConfig) (probe.ExistenceProbe, error) {
		present := probe.Set{{X: 0, Y: 0, Z: 0}: true, {X: 1, Y: 1, Z: 0}: true}
		return probe.Func(func(ctx context.Context, key string, c tile.Coord) (bool, error) {
			if failing && c == (tile.Coord{X: 1}) {
				return false, errors.New("connection reset")
			}
			return present.Exists(ctx, key, c)
		}), nil
	}
}

func newApp(t *testing.T, opts []AppOption, args ...string) (*Application, *bytes.Buffer) {
	t.Helper()
	var errBuf bytes.Buffer
	opts = append([]AppOption{WithLogger(logging.Nop())}, opts...)
	a, err := New(append([]string{"tilemanifest", "--no-color"}, args...), &errBuf, opts...)
	require.NoError(t, err)
	return a, &errBuf
}

func TestNew_Help(t *testing.T) {
	var errBuf bytes.Buffer
	_, err := New([]string{"tilemanifest", "--help"}, &errBuf)
	require.Error(t, err)
	assert.True(t, IsHelpError(err))
	assert.Contains(t, errBuf.String(), "Usage: tilemanifest")
}

func TestNew_ConfigError(t *testing.T) {
	var errBuf bytes.Buffer
	_, err := New([]string{"tilemanifest", "--end", "1,1,1"}, &errBuf)
	require.Error(t, err)
	assert.False(t, IsHelpError(err))
	assert.Equal(t, apperrors.ExitErrorConfig, apperrors.ExitCodeFor(err))
}

func TestRun_Version(t *testing.T) {
	a, _ := newApp(t, nil, "--version")
	var out bytes.Buffer
	assert.Equal(t, apperrors.ExitSuccess, a.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "tilemanifest ")
}

func TestRun_Completion(t *testing.T) {
	a, _ := newApp(t, nil, "--completion", "bash")
	var out bytes.Buffer
	assert.Equal(t, apperrors.ExitSuccess, a.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "--max-in-flight")

	a, errBuf := newApp(t, nil, "--completion", "tcsh")
	assert.Equal(t, apperrors.ExitErrorConfig, a.Run(context.Background(), &out))
	assert.Contains(t, errBuf.String(), "completion")
}

func TestRun_BuildToStdout(t *testing.T) {
	a, errBuf := newApp(t, []AppOption{WithProbeFactory(squareProbe(false))},
		"--format", testFormat, "--end", "2,2,1", "-j", "2", "--quiet")
	var out bytes.Buffer
	code := a.Run(context.Background(), &out)
	require.Equal(t, apperrors.ExitSuccess, code, errBuf.String())
	assert.Equal(t, "0 0 0\n1 1 0\n", out.String())
}

func TestRun_BuildToDirectory(t *testing.T) {
	dir := t.TempDir()
	a, _ := newApp(t, []AppOption{WithProbeFactory(squareProbe(false))},
		"--format", testFormat, "--end", "2,2,1", "-o", dir, "--name", "square.json")
	var out bytes.Buffer
	require.Equal(t, apperrors.ExitSuccess, a.Run(context.Background(), &out))

	data, err := os.ReadFile(filepath.Join(dir, "square.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,0,0],[1,1,0]]`, string(data))

	assert.Contains(t, out.String(), "Manifest Summary")
	assert.Contains(t, out.String(), "Complete")
	assert.Contains(t, out.String(), "written to "+dir)
}

func TestRun_ProbeFailures(t *testing.T) {
	tests := []struct {
		name     string
		strict   bool
		wantCode int
	}{
		{"Tolerant", false, apperrors.ExitSuccess},
		{"Strict", true, apperrors.ExitErrorPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"--format", testFormat, "--end", "2,2,1", "--quiet"}
			if tt.strict {
				args = append(args, "--strict")
			}
			a, _ := newApp(t, []AppOption{WithProbeFactory(squareProbe(true))}, args...)
			var out bytes.Buffer
			assert.Equal(t, tt.wantCode, a.Run(context.Background(), &out))
			assert.Equal(t, "0 0 0\n1 1 0\n", out.String(), "failed coordinates are left out")
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _ := newApp(t, []AppOption{WithProbeFactory(squareProbe(false))},
		"--format", testFormat, "--end", "2,2,1", "--quiet")
	var out bytes.Buffer
	assert.Equal(t, apperrors.ExitErrorCanceled, a.Run(ctx, &out))
	assert.Empty(t, out.String(), "interrupted builds are not exported")
}

func TestRun_Timeout(t *testing.T) {
	slow := func(config.AppConfig) (probe.ExistenceProbe, error) {
		return probe.Func(func(context.Context, string, tile.Coord) (bool, error) {
			time.Sleep(20 * time.Millisecond)
			return true, nil
		}), nil
	}
	a, errBuf := newApp(t, []AppOption{WithProbeFactory(slow)},
		"--format", testFormat, "--end", "10,10,1", "-j", "1", "--timeout", "5ms", "--quiet")
	var out bytes.Buffer
	assert.Equal(t, apperrors.ExitErrorTimeout, a.Run(context.Background(), &out))
	assert.Contains(t, errBuf.String(), `"build manifest" timed out after 5ms`)
	assert.Empty(t, out.String(), "interrupted builds are not exported")
}

func TestRun_ProbeFactoryError(t *testing.T) {
	failing := func(config.AppConfig) (probe.ExistenceProbe, error) {
		return nil, apperrors.NewConfigError("no probe")
	}
	a, errBuf := newApp(t, []AppOption{WithProbeFactory(failing)},
		"--format", testFormat, "--end", "1,1,1", "--quiet")
	assert.Equal(t, apperrors.ExitErrorConfig, a.Run(context.Background(), &bytes.Buffer{}))
	assert.Contains(t, errBuf.String(), "no probe")
}

func TestNewProbe(t *testing.T) {
	p, err := NewProbe(config.AppConfig{ProbeURL: "http://tiles.local:8080"})
	require.NoError(t, err)
	assert.IsType(t, &probe.HTTPProbe{}, p)

	p, err = NewProbe(config.AppConfig{Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &probe.LocalProbe{}, p)
}

func TestHasVersionFlag(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"--version"}, true},
		{[]string{"-f", "x", "-V"}, true},
		{[]string{"--", "--version"}, false},
		{[]string{"--format", "{x}{y}{z}"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			assert.Equal(t, tt.want, HasVersionFlag(tt.args))
		})
	}
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	PrintVersion(&out)
	assert.Contains(t, out.String(), "commit:")
	assert.Contains(t, out.String(), "go:")
}
