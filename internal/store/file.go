package store

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"

	"github.com/roach88/pairsort/internal/engine"
	"github.com/roach88/pairsort/internal/ir"
)

const fileExt = ".json"

//go:embed record.schema.json
var recordSchemaJSON string

// recordSchema is the compiled JSON Schema every file must satisfy.
var recordSchema = sync.OnceValue(func() *jsonschema.Schema {
	return jsonschema.MustCompileString("record.schema.json", recordSchemaJSON)
})

// fileRecord is the on-disk layout of one FileStore entry.
type fileRecord struct {
	Key           string          `json:"key"`
	SessionID     string          `json:"session_id"`
	EngineVersion string          `json:"engine_version"`
	Revision      int64           `json:"revision"`
	Snapshot      engine.Snapshot `json:"snapshot"`
}

// FileStore keeps one JSON file per key in a directory.
//
// Thread-safety: none. A single sorting session per item set is assumed.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore returns a FileStore rooted at dir on fsys.
// The directory is created if missing.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	dir = filepath.Clean(dir)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir}, nil
}

// OpenFileStore returns a FileStore on the OS filesystem.
func OpenFileStore(dir string) (*FileStore, error) {
	return NewFileStore(afero.NewOsFs(), dir)
}

// Close is a no-op; it lets FileStore stand in for Store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// Save writes entry atomically: temp file in the same directory, fsync,
// rename over the target, fsync the directory.
func (s *FileStore) Save(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(entry.Key)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	revision := int64(1)
	if prev, ok, err := s.Load(ctx, entry.Key); err == nil && ok {
		revision = prev.Revision + 1
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fileRecord{
		Key:           entry.Key,
		SessionID:     entry.SessionID,
		EngineVersion: ir.EngineVersion,
		Revision:      revision,
		Snapshot:      entry.Snapshot,
	}); err != nil {
		return fmt.Errorf("save snapshot: marshal: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "."+entry.Key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("save snapshot: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("save snapshot: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save snapshot: close temp: %w", err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		return fmt.Errorf("save snapshot: rename: %w", err)
	}
	committed = true

	return s.syncDir()
}

// syncDir makes the rename durable.
func (s *FileStore) syncDir() error {
	d, err := s.fs.Open(s.dir)
	if err != nil {
		return fmt.Errorf("save snapshot: open dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("save snapshot: sync dir: %w", err)
	}
	return nil
}

// Load returns the entry stored under key, or ok=false if there is none.
// Undecodable files and files whose recorded key differs from their name
// yield a CORRUPT_SNAPSHOT error.
func (s *FileStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	target, err := s.path(key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	data, err := afero.ReadFile(s.fs, target)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return Entry{}, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	if rec.Key != key {
		return Entry{}, false, fmt.Errorf("load snapshot %s: %w", key,
			engine.NewCorruptSnapshotError("file records key %q", rec.Key))
	}

	return Entry{
		Key:       rec.Key,
		SessionID: rec.SessionID,
		Snapshot:  rec.Snapshot,
		Revision:  rec.Revision,
	}, true, nil
}

// decodeRecord checks data against record.schema.json, then decodes it strictly.
func decodeRecord(data []byte) (fileRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fileRecord{}, engine.NewCorruptSnapshotError("decode snapshot: %v", err)
	}
	if dec.More() {
		return fileRecord{}, engine.NewCorruptSnapshotError("decode snapshot: trailing data")
	}
	if err := recordSchema().Validate(raw); err != nil {
		return fileRecord{}, engine.NewCorruptSnapshotError("snapshot file does not match schema: %v", err)
	}

	var rec fileRecord
	strict := json.NewDecoder(bytes.NewReader(data))
	strict.DisallowUnknownFields()
	if err := strict.Decode(&rec); err != nil {
		return fileRecord{}, engine.NewCorruptSnapshotError("decode snapshot: %v", err)
	}
	return rec, nil
}

// Delete removes the file for key. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(key)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if err := s.fs.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// FindSession returns the summaries written by the given session, ordered
// like List. The directory has no index, so this filters List.
func (s *FileStore) FindSession(ctx context.Context, sessionID string) ([]Summary, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	found := []Summary{}
	for _, sum := range all {
		if sum.SessionID == sessionID {
			found = append(found, sum)
		}
	}
	return found, nil
}

// List summarizes every readable entry, ordered by key.
// Temp files and undecodable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	summaries := []Summary{}
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			continue
		}
		items, decisions, done := progressOf(rec.Snapshot)
		summaries = append(summaries, Summary{
			Key:           rec.Key,
			SessionID:     rec.SessionID,
			Items:         items,
			Decisions:     decisions,
			Done:          done,
			EngineVersion: rec.EngineVersion,
			Revision:      rec.Revision,
		})
	}
	slices.SortFunc(summaries, func(a, b Summary) int { return strings.Compare(a.Key, b.Key) })
	return summaries, nil
}
