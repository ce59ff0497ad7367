package rtc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pion/webrtc/v3"
)

var ErrMalformedDescription = errors.New("malformed session description")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type descriptionBlob struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<20))
	})
	return zstdEnc, zstdDec, zstdErr
}

// EncodeDescription renders desc as a single pasteable line. With compact
// set the JSON is zstd-compressed first.
func EncodeDescription(desc webrtc.SessionDescription, compact bool) (string, error) {
	raw, err := json.Marshal(descriptionBlob{Type: desc.Type.String(), SDP: desc.SDP})
	if err != nil {
		return "", fmt.Errorf("failed to marshal description: %w", err)
	}
	if compact {
		enc, _, err := zstdCodec()
		if err != nil {
			return "", fmt.Errorf("failed to init zstd: %w", err)
		}
		raw = enc.EncodeAll(raw, nil)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeDescription parses a blob produced by EncodeDescription on either
// side. Whitespace picked up while pasting is ignored.
func DecodeDescription(blob string, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	cleaned := strings.Join(strings.Fields(blob), "")
	if cleaned == "" {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: empty input", ErrMalformedDescription)
	}

	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(cleaned)
		if err != nil {
			return webrtc.SessionDescription{}, fmt.Errorf("%w: not base64", ErrMalformedDescription)
		}
	}

	if bytes.HasPrefix(raw, zstdMagic) {
		_, dec, err := zstdCodec()
		if err != nil {
			return webrtc.SessionDescription{}, fmt.Errorf("failed to init zstd: %w", err)
		}
		raw, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return webrtc.SessionDescription{}, fmt.Errorf("%w: bad compressed payload", ErrMalformedDescription)
		}
	}

	var blobDesc descriptionBlob
	if err := json.Unmarshal(raw, &blobDesc); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: not JSON", ErrMalformedDescription)
	}

	sdpType := webrtc.NewSDPType(blobDesc.Type)
	if sdpType != want {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: expected %s, got %q", ErrMalformedDescription, want, blobDesc.Type)
	}
	if strings.TrimSpace(blobDesc.SDP) == "" {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: empty sdp", ErrMalformedDescription)
	}

	return webrtc.SessionDescription{Type: sdpType, SDP: blobDesc.SDP}, nil
}
