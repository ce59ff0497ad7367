package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"github.com/sirupsen/logrus"
)

// DefaultThreshold is the buffered amount above which the sender pauses.
const DefaultThreshold uint64 = 64 * 1024

var ErrTransferInProgress = errors.New("file transfer already in progress")

// Channel is the part of a data channel the sender writes to.
type Channel interface {
	Send(data []byte) error
	SendText(s string) error
	BufferedAmount() uint64
}

type ProgressFunc func(done, total int64)

type SenderOptions struct {
	Threshold uint64
	Logger    *logrus.Logger
	Progress  ProgressFunc
}

// Sent describes a transfer the sender finished.
type Sent struct {
	Info     protocol.FileInfo
	Location string
	Digest   string
}

// Sender streams one file at a time over a channel. When the channel's send
// buffer grows past the threshold it parks until Drained is called.
type Sender struct {
	ch        Channel
	codec     *protocol.Codec
	threshold uint64
	logger    *logrus.Logger
	progress  ProgressFunc

	busy          atomic.Bool
	awaitingDrain atomic.Bool
	drained       chan struct{}
}

func NewSender(ch Channel, codec *protocol.Codec, opts SenderOptions) *Sender {
	if codec == nil {
		codec = protocol.NewCodec()
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Sender{
		ch:        ch,
		codec:     codec,
		threshold: threshold,
		logger:    logger,
		progress:  opts.Progress,
		drained:   make(chan struct{}, 1),
	}
}

func (s *Sender) Threshold() uint64 {
	return s.threshold
}

// Busy reports whether a transfer is running.
func (s *Sender) Busy() bool {
	return s.busy.Load()
}

// Send writes meta, every chunk and end for src. It returns once the last frame
// has been queued on the channel.
func (s *Sender) Send(ctx context.Context, src Source) (Sent, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return Sent{}, ErrTransferInProgress
	}
	defer s.busy.Store(false)

	info := src.Info()
	log := s.logger.WithField("file", info.Name)

	meta, err := s.codec.Encode(protocol.FileMeta{Payload: info})
	if err != nil {
		return Sent{}, err
	}
	if err := s.write(meta); err != nil {
		return Sent{}, fmt.Errorf("failed to send file meta: %w", err)
	}

	totalChunks := CalculateTotalChunks(info.Size, protocol.ChunkSize)
	log.Debugf("Sending %d bytes in %d chunks", info.Size, totalChunks)

	digest := newDigester()
	var sent int64
	for i := 0; i < totalChunks; i++ {
		if err := s.waitDrain(ctx); err != nil {
			return Sent{}, err
		}

		chunk, err := ReadChunkData(src, i, ChunkLen(i, info.Size, protocol.ChunkSize), protocol.ChunkSize)
		if err != nil {
			return Sent{}, err
		}
		if err := s.write(s.codec.EncodeChunk(chunk)); err != nil {
			return Sent{}, fmt.Errorf("failed to send chunk %d: %w", i, err)
		}
		digest.add(chunk)

		sent += int64(len(chunk))
		if s.progress != nil {
			s.progress(sent, info.Size)
		}
	}

	end, err := s.codec.Encode(protocol.FileEnd{})
	if err != nil {
		return Sent{}, err
	}
	if err := s.write(end); err != nil {
		return Sent{}, fmt.Errorf("failed to send file end: %w", err)
	}

	result := Sent{Info: info, Location: src.Location(), Digest: digest.sum()}
	log.Infof("Sent file (%d bytes, blake3 %s)", info.Size, result.Digest)
	return result, nil
}

// Drained is the buffered-amount-low callback. It wakes a parked sender and is
// a no-op otherwise.
func (s *Sender) Drained() {
	if s.awaitingDrain.CompareAndSwap(true, false) {
		select {
		case s.drained <- struct{}{}:
		default:
		}
	}
}

func (s *Sender) waitDrain(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ch.BufferedAmount() <= s.threshold {
		return nil
	}

	select {
	case <-s.drained:
	default:
	}
	s.awaitingDrain.Store(true)

	// The low event may have fired between the first check and the store.
	if s.ch.BufferedAmount() <= s.threshold && s.awaitingDrain.CompareAndSwap(true, false) {
		return nil
	}

	s.logger.Debugf("Send buffer above %d bytes, waiting for drain", s.threshold)
	select {
	case <-s.drained:
		return nil
	case <-ctx.Done():
		s.awaitingDrain.Store(false)
		return ctx.Err()
	}
}

func (s *Sender) write(u protocol.Unit) error {
	if u.IsString {
		return s.ch.SendText(string(u.Data))
	}
	return s.ch.Send(u.Data)
}
