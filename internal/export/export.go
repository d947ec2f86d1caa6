// Package export writes point clouds to CloudCompare-compatible .asc files,
// optionally zstd-compressed.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/klauspost/compress/zstd"
)

// CompressedExt marks files that are written zstd-compressed.
const CompressedExt = ".zst"

var ErrNoPoints = errors.New("no points to export")

// Exporter writes files under a single directory.
type Exporter struct {
	dir string
}

// New returns an Exporter rooted at dir, creating it if needed.
func New(dir string) (*Exporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory not configured")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve export directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &Exporter{dir: filepath.Clean(abs)}, nil
}

// Dir returns the absolute export directory.
func (e *Exporter) Dir() string { return e.dir }

// Path maps a caller-supplied name onto a file inside the export directory.
// Only the last path element is kept.
func (e *Exporter) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty export path")
	}
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid export filename %q", name)
	}
	p := filepath.Join(e.dir, SanitizeFilename(base))
	if err := withinDir(p, e.dir); err != nil {
		log.Printf("Security: rejected export path %s (from %s): %v", p, name, err)
		return "", fmt.Errorf("invalid export path: %w", err)
	}
	return p, nil
}

// WriteASC writes points to name inside the export directory and returns the
// full path written. Names ending in .zst are zstd-compressed.
func (e *Exporter) WriteASC(points []kdtree.Point, name string) (string, error) {
	if len(points) == 0 {
		return "", ErrNoPoints
	}
	path, err := e.Path(name)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := writeASC(f, points, strings.HasSuffix(path, CompressedExt)); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Printf("Exported %d points to %s", len(points), path)
	return path, nil
}

func writeASC(w io.Writer, points []kdtree.Point, compress bool) (err error) {
	if compress {
		enc, encErr := zstd.NewWriter(w)
		if encErr != nil {
			return encErr
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		w = enc
	}

	bw := bufio.NewWriter(w)
	if err := EncodeASC(bw, points); err != nil {
		return err
	}
	return bw.Flush()
}

// EncodeASC writes the header and one "X Y Z Strength" line per point.
// Points with fewer than three coordinates are padded with zeros.
func EncodeASC(w io.Writer, points []kdtree.Point) error {
	if _, err := fmt.Fprint(w, "# Exported points\n# Format: X Y Z Strength\n"); err != nil {
		return err
	}
	for _, p := range points {
		var xyz [3]float64
		copy(xyz[:], p.Coords)
		if _, err := fmt.Fprintf(w, "%.6f %.6f %.6f %.6f\n", xyz[0], xyz[1], xyz[2], p.Strength); err != nil {
			return err
		}
	}
	return nil
}
