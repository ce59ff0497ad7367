package transfer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

func CalculateTotalChunks(fileSize, chunkSize int64) int {
	if chunkSize <= 0 || fileSize <= 0 {
		return 0
	}
	return int((fileSize + chunkSize - 1) / chunkSize)
}

// ChunkLen returns the length of chunk chunkIndex of a payload of fileSize
// bytes split into maxChunkSize pieces. Only the last chunk is short.
func ChunkLen(chunkIndex int, fileSize int64, maxChunkSize int) int {
	offset := int64(chunkIndex) * int64(maxChunkSize)
	if offset >= fileSize {
		return 0
	}
	remaining := fileSize - offset
	if remaining < int64(maxChunkSize) {
		return int(remaining)
	}
	return maxChunkSize
}

func ReadChunkData(r io.ReaderAt, chunkIndex, chunkSize, maxChunkSize int) ([]byte, error) {
	offset := int64(chunkIndex) * int64(maxChunkSize)
	data := make([]byte, chunkSize)
	n, err := r.ReadAt(data, offset)
	if err != nil && !(errors.Is(err, io.EOF) && n == chunkSize) {
		return nil, fmt.Errorf("failed to read chunk %d: %w", chunkIndex, err)
	}
	return data, nil
}

// Digest returns the hex blake3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type digester struct {
	h *blake3.Hasher
}

func newDigester() *digester {
	return &digester{h: blake3.New()}
}

func (d *digester) add(p []byte) {
	_, _ = d.h.Write(p)
}

func (d *digester) sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
