package transfer

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
)

// Source is a file offered for sending. Chunks are read with ReadAt so large
// files on disk are never held in memory whole.
type Source interface {
	io.ReaderAt
	Info() protocol.FileInfo
	// Location is how the local side refers to the payload in its log.
	Location() string
}

type BytesSource struct {
	info protocol.FileInfo
	r    *bytes.Reader
}

func NewBytesSource(name, mimeType string, data []byte) *BytesSource {
	return &BytesSource{
		info: protocol.FileInfo{Name: name, Size: int64(len(data)), MimeType: mimeType},
		r:    bytes.NewReader(data),
	}
}

func (s *BytesSource) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off)
}

func (s *BytesSource) Info() protocol.FileInfo {
	return s.info
}

func (s *BytesSource) Location() string {
	return "local:" + s.info.Name
}

type FileSource struct {
	f    *os.File
	path string
	info protocol.FileInfo
}

func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mimeType, err := detectMimeType(f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &FileSource{
		f:    f,
		path: abs,
		info: protocol.FileInfo{
			Name:     filepath.Base(path),
			Size:     stat.Size(),
			MimeType: mimeType,
		},
	}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *FileSource) Info() protocol.FileInfo {
	return s.info
}

func (s *FileSource) Location() string {
	return s.path
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

func detectMimeType(r io.ReaderAt, path string) (string, error) {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt, nil
	}
	head := make([]byte, 512)
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to sniff file type: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	return http.DetectContentType(head[:n]), nil
}
