package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
)

// BlobStore turns a received payload into a handle the local side can open.
type BlobStore interface {
	Put(info protocol.FileInfo, data []byte) (string, error)
}

var (
	_ BlobStore = (*MemoryBlobs)(nil)
	_ BlobStore = (*DirBlobs)(nil)
)

const memPrefix = "mem:"

type MemoryBlobs struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobs) Put(_ protocol.FileInfo, data []byte) (string, error) {
	handle := memPrefix + uuid.NewString()
	m.mu.Lock()
	m.blobs[handle] = data
	m.mu.Unlock()
	return handle, nil
}

func (m *MemoryBlobs) Get(handle string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[handle]
	return data, ok
}

// Release forgets a blob.
func (m *MemoryBlobs) Release(handle string) {
	m.mu.Lock()
	delete(m.blobs, handle)
	m.mu.Unlock()
}

const maxNameAttempts = 1000

// DirBlobs writes payloads into a download directory. Existing files are never
// overwritten; a clash gets a " (n)" suffix before the extension.
type DirBlobs struct {
	dir string
}

func NewDirBlobs(dir string) (*DirBlobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	return &DirBlobs{dir: dir}, nil
}

func (d *DirBlobs) Dir() string {
	return d.dir
}

func (d *DirBlobs) Put(info protocol.FileInfo, data []byte) (string, error) {
	name := SanitizeFileName(info.Name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		path := filepath.Join(d.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", candidate, err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", candidate, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free name for %s in %s", name, d.dir)
}

// SanitizeFileName keeps only the base name of a peer-supplied file name.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	switch name {
	case "", ".", "..", "/":
		return "download"
	}
	return name
}
