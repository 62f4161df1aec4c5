package wizard

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
)

// DraftStore persists the in-flight draft as a single opaque blob under a
// well-known key. Contents are untrusted on read: they may be stale,
// truncated or tampered with.
type DraftStore interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, blob []byte) error
	Clear(ctx context.Context) error
}

// MemoryDraftStore holds the blob in memory; used by tests and
// single-process sessions.
type MemoryDraftStore struct {
	mu   sync.Mutex
	blob []byte
}

// NewMemoryDraftStore creates an empty store.
func NewMemoryDraftStore() *MemoryDraftStore { return &MemoryDraftStore{} }

// Load returns the stored blob, if any.
func (s *MemoryDraftStore) Load(context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		return nil, false, nil
	}
	out := make([]byte, len(s.blob))
	copy(out, s.blob)
	return out, true, nil
}

// Save replaces the stored blob.
func (s *MemoryDraftStore) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = make([]byte, len(blob))
	copy(s.blob, blob)
	return nil
}

// Clear drops the stored blob.
func (s *MemoryDraftStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = nil
	return nil
}

// FileDraftStore persists the blob to a file, the local-storage analogue
// for an on-device client.
type FileDraftStore struct {
	Path string
}

// NewFileDraftStore creates a store writing to path.
func NewFileDraftStore(path string) *FileDraftStore { return &FileDraftStore{Path: path} }

// Load reads the blob; a missing file means no draft.
func (s *FileDraftStore) Load(context.Context) ([]byte, bool, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Save writes the blob.
func (s *FileDraftStore) Save(_ context.Context, blob []byte) error {
	return os.WriteFile(s.Path, blob, 0o600)
}

// Clear removes the file; already-absent is fine.
func (s *FileDraftStore) Clear(context.Context) error {
	err := os.Remove(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
