package session

import (
	"context"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"github.com/rudransh-shrivastava/pairlink/internal/rtc"
	"github.com/rudransh-shrivastava/pairlink/internal/transfer"
)

// Every callback below carries the generation it was registered under and is
// dropped once the session has moved on.

func (s *Session) watchConnection(conn rtc.Connection, gen uint64) {
	conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Debugf("Connection state changed to %s", state)
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			_ = s.failAttempt(gen, errConnectionFailed)
		}
	})
}

func (s *Session) attachChannelLocked(ch rtc.Channel, gen uint64) {
	s.channel = ch
	ch.SetBufferedAmountLowThreshold(s.threshold)

	sender := transfer.NewSender(ch, s.codec, transfer.SenderOptions{
		Threshold: s.threshold,
		Logger:    s.logger,
		Progress:  s.sendProgress,
	})
	s.sender = sender

	ch.OnOpen(func() { s.handleOpen(gen) })
	ch.OnClose(func() { s.handleClose(gen) })
	ch.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.handleMessage(gen, protocol.Unit{IsString: msg.IsString, Data: msg.Data})
	})
	ch.OnBufferedAmountLow(sender.Drained)
}

func (s *Session) handleIncomingChannel(ch rtc.Channel, gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.channel != nil {
		s.mu.Unlock()
		s.logger.Warnf("Ignoring extra data channel %q", ch.Label())
		_ = ch.Close()
		return
	}
	s.logger.Debugf("Peer opened data channel %q", ch.Label())
	s.attachChannelLocked(ch, gen)
	s.mu.Unlock()
}

func (s *Session) handleOpen(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.state != Connecting {
		s.mu.Unlock()
		return
	}
	s.state = Connected
	s.logger.WithField("attempt", s.id).Infof("Data channel open, connected as %s", s.role)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleClose(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.logger.WithField("attempt", s.id).Infof("Data channel closed")
	stale := s.resetLocked()
	s.mu.Unlock()

	closeAll(stale)
	s.notify()
}

func (s *Session) handleMessage(gen uint64, unit protocol.Unit) {
	switch ev := s.codec.Decode(unit).(type) {
	case protocol.TextEvent:
		if ev.Fallback {
			s.logger.Debugf("Received a non-protocol frame, showing it as text")
		}
		s.appendMessage(gen, msglog.NewText(ev.Record.ID, msglog.Remote, ev.Record.Content, ev.Record.Time()))

	case protocol.BeginFileEvent:
		s.mu.Lock()
		if gen == s.generation {
			s.logger.Infof("Receiving %s (%d bytes)", ev.Info.Name, ev.Info.Size)
			s.receiver.Begin(ev.Info)
		}
		s.mu.Unlock()

	case protocol.ChunkEvent:
		s.mu.Lock()
		if gen == s.generation {
			s.receiver.Append(ev.Data)
		}
		s.mu.Unlock()

	case protocol.EndFileEvent:
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		assembled, ok := s.receiver.End()
		s.mu.Unlock()
		if !ok {
			return
		}

		handle, err := s.blobs.Put(assembled.Info, assembled.Data)
		if err != nil {
			s.logger.Errorf("Failed to store %s: %v", assembled.Info.Name, err)
			return
		}
		s.logger.Infof("Received %s (%d bytes, blake3 %s)", assembled.Info.Name, len(assembled.Data), assembled.Digest)
		s.appendMessage(gen, msglog.NewFile(msglog.Remote, assembled.Info, handle, assembled.Digest, s.now()))
	}
}

func (s *Session) appendMessage(gen uint64, m msglog.Message) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	stored := s.log.Append(m)
	id := s.id
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Record(context.Background(), id, stored); err != nil {
			s.logger.Warnf("Failed to archive message %s: %v", stored.ID, err)
		}
	}
	s.notify()
}
