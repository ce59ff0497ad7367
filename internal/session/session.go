// Package session drives one manual, non-trickle offer/answer exchange and the
// text and file traffic that follows it over a single data channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"github.com/rudransh-shrivastava/pairlink/internal/rtc"
	"github.com/rudransh-shrivastava/pairlink/internal/transfer"
	"github.com/sirupsen/logrus"
)

// Archive persists log entries beyond the life of an attempt.
type Archive interface {
	Record(ctx context.Context, sessionID string, m msglog.Message) error
}

type Options struct {
	Factory rtc.Factory
	Logger  *logrus.Logger
	Blobs   transfer.BlobStore
	Archive Archive

	Threshold     uint64
	GatherTimeout time.Duration
	// Compact zstd-compresses the description blobs this side produces.
	Compact bool

	// Progress hooks run on pion's goroutines with the session locked; they
	// must not call back into the Session.
	OnSendProgress    transfer.ProgressFunc
	OnReceiveProgress transfer.ProgressFunc

	Now func() time.Time
}

type Session struct {
	factory       rtc.Factory
	logger        *logrus.Logger
	blobs         transfer.BlobStore
	archive       Archive
	threshold     uint64
	gatherTimeout time.Duration
	compact       bool
	sendProgress  transfer.ProgressFunc
	now           func() time.Time

	codec    *protocol.Codec
	receiver *transfer.Receiver
	log      *msglog.Log
	updates  chan struct{}

	mu         sync.Mutex
	generation uint64
	id         string
	state      State
	role       Role
	offer      string
	answer     string
	lastError  string
	conn       rtc.Connection
	channel    rtc.Channel
	sender     *transfer.Sender
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	factory := opts.Factory
	if factory == nil {
		factory = rtc.NewFactory(rtc.DefaultConfig())
	}
	blobs := opts.Blobs
	if blobs == nil {
		blobs = transfer.NewMemoryBlobs()
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = transfer.DefaultThreshold
	}
	gatherTimeout := opts.GatherTimeout
	if gatherTimeout <= 0 {
		gatherTimeout = DefaultGatherTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		factory:       factory,
		logger:        logger,
		blobs:         blobs,
		archive:       opts.Archive,
		threshold:     threshold,
		gatherTimeout: gatherTimeout,
		compact:       opts.Compact,
		sendProgress:  opts.OnSendProgress,
		now:           now,
		codec:         protocol.NewCodec(),
		receiver:      transfer.NewReceiver(transfer.ReceiverOptions{Logger: logger, Progress: opts.OnReceiveProgress}),
		log:           msglog.New(),
		updates:       make(chan struct{}, 1),
	}
	s.resetLocked()
	return s
}

// Updates signals after every observable change. Signals coalesce; read
// Snapshot for the current state.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		State:     s.state,
		Role:      s.role,
		Offer:     s.offer,
		Answer:    s.answer,
		LastError: s.lastError,
		Messages:  s.log.Entries(),
	}
}

// CreateOffer starts a new attempt as the offerer, discarding whatever came
// before. It returns the offer blob once gathering has finished.
func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	s.mu.Lock()
	stale := s.resetLocked()
	gen := s.generation
	attemptCtx := s.ctx

	conn, err := s.factory()
	if err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		closeAll(stale)
		s.notify()
		return "", err
	}
	s.conn = conn
	s.role = Offerer
	s.state = Connecting
	s.watchConnection(conn, gen)

	ch, err := conn.CreateDataChannel(rtc.ChannelLabel)
	if err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		closeAll(stale)
		s.notify()
		return "", err
	}
	s.attachChannelLocked(ch, gen)
	s.logger.WithField("attempt", s.id).Infof("Creating offer")
	s.mu.Unlock()

	closeAll(stale)
	s.notify()

	offer, err := conn.CreateOffer()
	if err != nil {
		return "", s.failAttempt(gen, fmt.Errorf("failed to create offer: %w", err))
	}
	blob, err := s.gather(ctx, attemptCtx, conn, offer)
	if err != nil {
		return "", s.failAttempt(gen, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return "", ErrSuperseded
	}
	s.offer = blob
	s.mu.Unlock()
	s.notify()
	return blob, nil
}

// CreateAnswer answers a pasted offer. It is only valid on a fresh session;
// anything else returns ErrInvalidState and leaves the session untouched.
func (s *Session) CreateAnswer(ctx context.Context, offerBlob string) (string, error) {
	s.mu.Lock()
	if s.state != Disconnected || s.conn != nil {
		s.mu.Unlock()
		return "", ErrInvalidState
	}
	gen := s.generation
	attemptCtx := s.ctx

	offer, err := rtc.DecodeDescription(offerBlob, webrtc.SDPTypeOffer)
	if err != nil {
		err = fmt.Errorf("invalid session description: %w", err)
		s.failLocked(err)
		s.mu.Unlock()
		s.notify()
		return "", err
	}

	conn, err := s.factory()
	if err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		s.notify()
		return "", err
	}
	s.conn = conn
	s.role = Answerer
	s.state = Connecting
	s.offer = offerBlob
	s.watchConnection(conn, gen)
	conn.OnDataChannel(func(ch rtc.Channel) {
		s.handleIncomingChannel(ch, gen)
	})
	s.logger.WithField("attempt", s.id).Infof("Answering offer")
	s.mu.Unlock()
	s.notify()

	if err := conn.SetRemoteDescription(offer); err != nil {
		return "", s.failAttempt(gen, fmt.Errorf("invalid session description: %w", err))
	}
	answer, err := conn.CreateAnswer()
	if err != nil {
		return "", s.failAttempt(gen, fmt.Errorf("failed to create answer: %w", err))
	}
	blob, err := s.gather(ctx, attemptCtx, conn, answer)
	if err != nil {
		return "", s.failAttempt(gen, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return "", ErrSuperseded
	}
	s.answer = blob
	s.mu.Unlock()
	s.notify()
	return blob, nil
}

// SetRemoteAnswer completes the exchange on the offerer side. Without a
// connection it does nothing.
func (s *Session) SetRemoteAnswer(answerBlob string) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil
	}
	conn, gen := s.conn, s.generation
	s.mu.Unlock()

	answer, err := rtc.DecodeDescription(answerBlob, webrtc.SDPTypeAnswer)
	if err != nil {
		return s.failAttempt(gen, fmt.Errorf("invalid session description: %w", err))
	}
	if err := conn.SetRemoteDescription(answer); err != nil {
		return s.failAttempt(gen, fmt.Errorf("invalid session description: %w", err))
	}

	s.mu.Lock()
	if gen == s.generation {
		s.answer = answerBlob
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// SendText sends content as a text record and logs it locally.
func (s *Session) SendText(content string) error {
	s.mu.Lock()
	if !s.openLocked() {
		s.mu.Unlock()
		return ErrNotConnected
	}
	ch, gen := s.channel, s.generation
	record := protocol.NewText(content, s.now())
	unit, err := s.codec.Encode(record)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := ch.SendText(string(unit.Data)); err != nil {
		return s.failAttempt(gen, fmt.Errorf("failed to send text: %w", err))
	}
	s.appendMessage(gen, msglog.NewText(record.ID, msglog.Local, record.Content, record.Time()))
	return nil
}

// SendFile streams src to the peer and blocks until the last frame is queued.
// A reset while it runs aborts it with ErrSuperseded.
func (s *Session) SendFile(ctx context.Context, src transfer.Source) error {
	s.mu.Lock()
	if !s.openLocked() {
		s.mu.Unlock()
		return ErrNotConnected
	}
	sender, gen, attemptCtx := s.sender, s.generation, s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(attemptCtx, cancel)
	defer stop()

	sent, err := sender.Send(ctx, src)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrTransferInProgress):
			return err
		case attemptCtx.Err() != nil:
			return ErrSuperseded
		case ctx.Err() != nil:
			return err
		}
		return s.failAttempt(gen, fmt.Errorf("file transfer failed: %w", err))
	}

	s.appendMessage(gen, msglog.NewFile(msglog.Local, sent.Info, sent.Location, sent.Digest, s.now()))
	return nil
}

// Reset abandons the current attempt and returns to Disconnected.
func (s *Session) Reset() {
	s.mu.Lock()
	stale := s.resetLocked()
	s.mu.Unlock()

	closeAll(stale)
	s.notify()
}

func (s *Session) resetLocked() []io.Closer {
	var stale []io.Closer
	if s.channel != nil {
		stale = append(stale, s.channel)
	}
	if s.conn != nil {
		stale = append(stale, s.conn)
	}
	if s.cancel != nil {
		s.cancel()
	}

	if s.id != "" {
		s.logger.WithField("attempt", s.id).Debugf("Resetting session")
	}
	s.generation++
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.id = uuid.NewString()
	s.state = Disconnected
	s.role = RoleUnset
	s.offer = ""
	s.answer = ""
	s.lastError = ""
	s.conn = nil
	s.channel = nil
	s.sender = nil
	s.receiver.Reset()
	s.log.Reset()
	return stale
}

func (s *Session) failLocked(err error) {
	s.state = Failed
	s.lastError = err.Error()
	s.logger.WithField("attempt", s.id).Warnf("Session failed: %v", err)
}

// failAttempt moves attempt gen to Failed. Errors from an attempt that has
// since been reset are reported as ErrSuperseded and change nothing.
func (s *Session) failAttempt(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.failLocked(err)
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Session) openLocked() bool {
	return s.state == Connected && s.channel != nil && s.channel.ReadyState() == webrtc.DataChannelStateOpen
}

func (s *Session) gather(ctx, attemptCtx context.Context, conn rtc.Connection, desc webrtc.SessionDescription) (string, error) {
	done := conn.GatheringComplete()
	if err := conn.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	timer := time.NewTimer(s.gatherTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		return "", errGatherTimeout
	case <-attemptCtx.Done():
		return "", ErrSuperseded
	case <-ctx.Done():
		return "", ctx.Err()
	}

	local := conn.LocalDescription()
	if local == nil {
		return "", errors.New("no local description after gathering")
	}
	return rtc.EncodeDescription(*local, s.compact)
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
