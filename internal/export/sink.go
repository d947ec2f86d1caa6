package export

import (
	"context"
	"fmt"

	"github.com/banshee-data/pointcloud/internal/monitor"
	"github.com/banshee-data/pointcloud/internal/pipeline"
)

// FrameWriter is a pipeline.Sink that exports every Nth frame's kept points.
type FrameWriter struct {
	exp      *Exporter
	every    int
	compress bool
	png      bool
	written  int
}

// FrameWriterOptions configures a FrameWriter.
type FrameWriterOptions struct {
	Every    int  // export one frame in Every; values < 1 mean every frame
	Compress bool // write .asc.zst instead of .asc
	PNG      bool // also render a PNG next to each export
}

func NewFrameWriter(exp *Exporter, opts FrameWriterOptions) *FrameWriter {
	if opts.Every < 1 {
		opts.Every = 1
	}
	return &FrameWriter{exp: exp, every: opts.Every, compress: opts.Compress, png: opts.PNG}
}

// Written returns the number of frames exported so far.
func (w *FrameWriter) Written() int { return w.written }

// FrameName returns the export file name for frame seq.
func FrameName(seq int, compress bool) string {
	name := fmt.Sprintf("frame_%06d.asc", seq)
	if compress {
		name += CompressedExt
	}
	return name
}

func (w *FrameWriter) HandleFrame(ctx context.Context, f *pipeline.Frame) error {
	if f.Seq%w.every != 0 || len(f.Kept) == 0 {
		return nil
	}
	if _, err := w.exp.WriteASC(f.Kept, FrameName(f.Seq, w.compress)); err != nil {
		return fmt.Errorf("export frame %d: %w", f.Seq, err)
	}
	if w.png {
		path, err := w.exp.Path(fmt.Sprintf("frame_%06d.png", f.Seq))
		if err != nil {
			return err
		}
		if err := monitor.WritePNG(path, f); err != nil {
			return fmt.Errorf("plot frame %d: %w", f.Seq, err)
		}
	}
	w.written++
	return nil
}
