package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agbru/tilemanifest/internal/tile"
)

// ErrOutsideRoot is returned when a resolved path leaves the configured root.
var ErrOutsideRoot = errors.New("probe: path escapes root directory")

// LocalProbe resolves the format key itself. The key is a tile name template
// (see tile.FormatPath); a name starting with http:// or https:// is checked
// with a HEAD request, anything else with a filesystem stat.
type LocalProbe struct {
	root   string
	client *http.Client
}

// LocalOption configures a LocalProbe.
type LocalOption func(*LocalProbe)

// WithRoot confines filesystem lookups to dir. Relative names are resolved
// against it and names that would leave it are rejected.
func WithRoot(dir string) LocalOption {
	return func(p *LocalProbe) { p.root = filepath.Clean(dir) }
}

// WithHeadClient sets the client used for URL names.
func WithHeadClient(hc *http.Client) LocalOption {
	return func(p *LocalProbe) {
		if hc != nil {
			p.client = hc
		}
	}
}

// NewLocalProbe returns a LocalProbe.
func NewLocalProbe(opts ...LocalOption) *LocalProbe {
	p := &LocalProbe{client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsURL reports whether a resolved tile name is fetched over HTTP.
func IsURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// Exists implements ExistenceProbe.
func (p *LocalProbe) Exists(ctx context.Context, formatKey string, c tile.Coord) (bool, error) {
	name, err := tile.FormatPath(formatKey, c)
	if err != nil {
		return false, err
	}
	if IsURL(name) {
		return p.head(ctx, name)
	}
	return p.stat(name)
}

func (p *LocalProbe) stat(name string) (bool, error) {
	path, err := p.resolve(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func (p *LocalProbe) resolve(name string) (string, error) {
	if p.root == "" {
		return name, nil
	}
	rel := name
	if filepath.IsAbs(name) {
		r, err := filepath.Rel(p.root, name)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
		}
		rel = r
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return filepath.Join(p.root, rel), nil
}

func (p *LocalProbe) head(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, name, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return false, nil
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("%w: %s", ErrServerError, resp.Status)
	}
	return false, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
}

var _ ExistenceProbe = (*LocalProbe)(nil)
