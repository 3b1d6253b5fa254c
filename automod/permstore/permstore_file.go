package permstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileStore appends JSON snapshots as lines to a local file. Load scans the
// whole file and keeps the last parseable line, so a torn final write degrades
// to the previous snapshot instead of an error.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) (*PermissionSet, error) {
	f, err := os.Open(s.Path)
	if os.IsNotExist(err) {
		return nil, ErrEmpty
	} else if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var last *PermissionSet
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p PermissionSet
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		last = &p
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrEmpty
	}
	return last, nil
}

func (s *FileStore) Append(ctx context.Context, p *PermissionSet) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("appending permission snapshot: %w", err)
	}
	return f.Sync()
}
