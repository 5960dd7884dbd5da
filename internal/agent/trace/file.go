package trace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// FileWriter stores each record as dir/trace_<run id>.json.
type FileWriter struct {
	dir string
}

func NewFileWriter(dir string) *FileWriter {
	if dir == "" {
		dir = "logs"
	}
	return &FileWriter{dir: dir}
}

// Path returns the file a run id is written to.
func (w *FileWriter) Path(runID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, runID)
	return filepath.Join(w.dir, fmt.Sprintf("trace_%s.json", safe))
}

func (w *FileWriter) Write(ctx context.Context, r Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := r.marshal()
	if err != nil {
		return "", errx.Internal(err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		logx.Error().Err(err).Str("dir", w.dir).Msg("failed to create trace directory")
		return "", errx.Internal(err)
	}

	path := w.Path(r.RunID)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		logx.Error().Err(err).Str("path", path).Msg("failed to write trace")
		return "", errx.Internal(err)
	}
	logx.Debug().Str("run_id", r.RunID).Str("path", path).Msg("Trace written")
	return path, nil
}
