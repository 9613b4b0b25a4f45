package progress

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// FileLedger keeps the ledger in a local JSON file.
type FileLedger struct {
	path string
}

// NewFileLedger creates a file-backed ledger at the given path.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

func (f *FileLedger) Read(_ context.Context) (time.Time, []string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return truncate(time.Now().UTC()), nil, nil
	}
	if err != nil {
		return time.Time{}, nil, eris.Wrapf(err, "progress: read %s", f.path)
	}
	return decode(raw)
}

func (f *FileLedger) Write(_ context.Context, date time.Time, citations []string) error {
	raw, err := encode(date, citations)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "progress: create %s", dir)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return eris.Wrapf(err, "progress: write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrapf(err, "progress: replace %s", f.path)
	}
	return nil
}
