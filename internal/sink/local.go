package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local writes artifacts into a directory on disk.
type Local struct {
	Dir string
}

func (l *Local) Ensure(_ context.Context) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}
	return nil
}

// Write replaces Dir/name via a temp file and rename so readers never see a
// half-written artifact.
func (l *Local) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := l.Location(name)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (l *Local) Location(name string) string { return filepath.Join(l.Dir, name) }
