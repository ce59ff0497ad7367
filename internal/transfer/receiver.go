package transfer

import (
	"io"
	"sync"

	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"github.com/sirupsen/logrus"
)

type ReceiverOptions struct {
	Logger   *logrus.Logger
	Progress ProgressFunc
}

// Assembled is a payload rebuilt from its chunks.
type Assembled struct {
	Info   protocol.FileInfo
	Data   []byte
	Digest string
}

// Receiver collects chunks for the most recently announced file. A new
// announcement replaces any transfer still in flight.
type Receiver struct {
	mu       sync.Mutex
	active   bool
	info     protocol.FileInfo
	chunks   [][]byte
	received int64

	logger   *logrus.Logger
	progress ProgressFunc
}

func NewReceiver(opts ReceiverOptions) *Receiver {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Receiver{logger: logger, progress: opts.Progress}
}

// Begin starts a transfer for info. It reports whether an incomplete transfer
// was dropped to make room.
func (r *Receiver) Begin(info protocol.FileInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := r.active
	if dropped {
		r.logger.Warnf("Dropping incomplete transfer of %s (%d of %d bytes)", r.info.Name, r.received, r.info.Size)
	}

	r.active = true
	r.info = info
	r.chunks = nil
	r.received = 0
	return dropped
}

// Append stores a copy of chunk. Chunks with no active transfer are dropped
// and Append returns false.
func (r *Receiver) Append(chunk []byte) bool {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		r.logger.Debugf("Dropping %d byte chunk with no active transfer", len(chunk))
		return false
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	r.chunks = append(r.chunks, buf)
	r.received += int64(len(buf))
	received, total := r.received, r.info.Size
	r.mu.Unlock()

	if r.progress != nil {
		r.progress(received, total)
	}
	return true
}

// End assembles the active transfer and clears it. ok is false when nothing
// was in flight.
func (r *Receiver) End() (Assembled, bool) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return Assembled{}, false
	}
	info, chunks, received := r.info, r.chunks, r.received
	r.active = false
	r.info = protocol.FileInfo{}
	r.chunks = nil
	r.received = 0
	r.mu.Unlock()

	data := make([]byte, 0, received)
	for _, c := range chunks {
		data = append(data, c...)
	}
	if int64(len(data)) != info.Size {
		r.logger.Warnf("Size mismatch for %s: announced %d bytes, received %d", info.Name, info.Size, len(data))
	}

	return Assembled{Info: info, Data: data, Digest: Digest(data)}, true
}

// Active returns the file currently being received.
func (r *Receiver) Active() (protocol.FileInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info, r.active
}

func (r *Receiver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.info = protocol.FileInfo{}
	r.chunks = nil
	r.received = 0
}
