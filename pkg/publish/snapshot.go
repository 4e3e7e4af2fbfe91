package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

// Snapshot writes the sample to a JSON file. Readers never see a partial
// file: the document is written next to the target and renamed over it.
type Snapshot struct {
	path string
}

// NewSnapshot returns a Snapshot publisher writing to path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Publish replaces the snapshot file with the sample.
func (s *Snapshot) Publish(ctx context.Context, sample types.TelemetrySample) error {
	b, err := json.MarshalIndent(sample.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode snapshot: %w", types.ErrPublish, err)
	}
	if err := writeFileAtomic(s.path, append(b, '\n')); err != nil {
		return fmt.Errorf("%w: failed to write snapshot %s: %w", types.ErrPublish, s.path, err)
	}
	log.Ctx(ctx).InfoContext(ctx, "wrote snapshot", slog.String("path", s.path))
	return nil
}

func writeFileAtomic(path string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
