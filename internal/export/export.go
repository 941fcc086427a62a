// Package export serializes manifests and writes them to a sink: a
// gocloud.dev/blob bucket (local directory, memory, or a cloud store) or a
// plain writer such as stdout.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/agbru/tilemanifest/internal/tile"
)

// DefaultName is the object name used when none is configured.
const DefaultName = "manifest.txt"

// Encoding selects the manifest serialization.
type Encoding int

const (
	// EncodingText writes one "x y z" line per coordinate.
	EncodingText Encoding = iota
	// EncodingJSON writes an array of [x, y, z] triples.
	EncodingJSON
)

// EncodingFor picks the encoding from an object name's extension.
func EncodingFor(name string) Encoding {
	if strings.EqualFold(path.Ext(name), ".json") {
		return EncodingJSON
	}
	return EncodingText
}

// ContentType returns the MIME type written alongside the manifest.
func (e Encoding) ContentType() string {
	if e == EncodingJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Serialize renders coords as newline-terminated "x y z" lines.
func Serialize(coords []tile.Coord) []byte {
	var buf bytes.Buffer
	for _, c := range coords {
		buf.WriteString(strconv.Itoa(c.X))
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(c.Y))
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(c.Z))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// SerializeJSON renders coords as a JSON array of [x, y, z] triples.
func SerializeJSON(coords []tile.Coord) ([]byte, error) {
	out := make([][3]int, len(coords))
	for i, c := range coords {
		out[i] = c.Array()
	}
	return json.Marshal(out)
}

// Encode renders coords with e.
func (e Encoding) Encode(coords []tile.Coord) ([]byte, error) {
	if e == EncodingJSON {
		return SerializeJSON(coords)
	}
	return Serialize(coords), nil
}

// Parse reads a text manifest back. Blank lines are skipped.
func Parse(r io.Reader) ([]tile.Coord, error) {
	var coords []tile.Coord
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: want 3 fields, got %d", line, len(fields))
		}
		var a [3]int
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			a[i] = v
		}
		coords = append(coords, tile.FromArray(a))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return coords, nil
}

// Exporter persists a serialized manifest under name.
type Exporter interface {
	Export(ctx context.Context, name string, data []byte) error
	Close() error
}

// BucketExporter writes manifests into a blob bucket.
type BucketExporter struct {
	bucket *blob.Bucket
}

// NewBucketExporter opens the bucket at url, for example
// "file:///var/lib/tiles?create_dir=true" or "mem://".
func NewBucketExporter(ctx context.Context, url string) (*BucketExporter, error) {
	bkt, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", url, err)
	}
	return &BucketExporter{bucket: bkt}, nil
}

// NewBucketExporterFrom wraps an already open bucket. The exporter takes
// ownership and closes it on Close.
func NewBucketExporterFrom(bkt *blob.Bucket) *BucketExporter {
	return &BucketExporter{bucket: bkt}
}

// Bucket returns the underlying bucket.
func (e *BucketExporter) Bucket() *blob.Bucket { return e.bucket }

// Export writes data as the object name, replacing any previous version.
func (e *BucketExporter) Export(ctx context.Context, name string, data []byte) error {
	opts := &blob.WriterOptions{ContentType: EncodingFor(name).ContentType()}
	if err := e.bucket.WriteAll(ctx, name, data, opts); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Close releases the bucket.
func (e *BucketExporter) Close() error { return e.bucket.Close() }

// WriterExporter writes manifests to an io.Writer and ignores the name.
type WriterExporter struct {
	w io.Writer
}

// NewWriterExporter returns an exporter writing to w.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w}
}

// Export writes data to the underlying writer.
func (e *WriterExporter) Export(_ context.Context, _ string, data []byte) error {
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Close does nothing.
func (e *WriterExporter) Close() error { return nil }

// Open returns the exporter for an output target: "-" or "" for stdout
// (w), a URL with a scheme for a blob bucket, and anything else is taken
// as a local directory.
func Open(ctx context.Context, target string, w io.Writer) (Exporter, error) {
	switch {
	case target == "" || target == "-":
		return NewWriterExporter(w), nil
	case strings.Contains(target, "://"):
		return NewBucketExporter(ctx, target)
	}
	return NewBucketExporter(ctx, "file://"+DirURLPath(target)+"?create_dir=true")
}

// DirURLPath turns a local directory into the path part of a file:// URL.
func DirURLPath(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

var (
	_ Exporter = (*BucketExporter)(nil)
	_ Exporter = (*WriterExporter)(nil)
)
