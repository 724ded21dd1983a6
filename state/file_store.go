package state

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/logger"
	"github.com/teranos/restock/stock"
)

const snapshotIndent = "    "

// FileStore keeps the snapshot as an indented JSON object on disk.
type FileStore struct {
	path   string
	logger *zap.SugaredLogger
	now    clock
}

// NewFileStore creates a store for the snapshot at path.
func NewFileStore(path string, log *zap.SugaredLogger) *FileStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileStore{path: path, logger: logger.AddStateSymbol(log), now: time.Now}
}

// Location returns the snapshot path.
func (s *FileStore) Location() string { return s.path }

// Load reads the snapshot.
func (s *FileStore) Load(ctx context.Context) (*stock.StateMap, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Debugw("No snapshot yet, starting empty", "path", s.path)
		return stock.NewStateMap(), nil
	}
	if err != nil {
		return stock.NewStateMap(), errors.Mark(errors.Wrapf(err, "read %s", s.path), errors.ErrCorruptSnapshot)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return stock.NewStateMap(), nil
	}

	m := stock.NewStateMap()
	if err := json.Unmarshal(data, m); err != nil {
		return stock.NewStateMap(), errors.Mark(errors.Wrapf(err, "parse %s", s.path), errors.ErrCorruptSnapshot)
	}
	return m, nil
}

// Save writes to a temp file in the same directory and renames it over the
// snapshot, so a crash leaves either the old or the new file.
func (s *FileStore) Save(ctx context.Context, m *stock.StateMap) error {
	m.Touch(s.now())

	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", snapshotIndent); err != nil {
		return errors.Wrap(err, "indent snapshot")
	}
	buf.WriteByte('\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp snapshot")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp snapshot")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrap(err, "chmod temp snapshot")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrapf(err, "replace %s", s.path)
	}

	s.logger.Debugw("Snapshot saved", "path", s.path, "items", m.Len())
	return nil
}
