package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"github.com/rudransh-shrivastava/pairlink/internal/rtc"
)

// fakeNet pairs fake connections by the SDP they publish, standing in for ICE.
type fakeNet struct {
	mu         sync.Mutex
	seq        int
	published  map[string]*fakeConn
	conns      []*fakeConn
	holdGather bool
	failRemote bool
	failCreate bool
}

func newFakeNet() *fakeNet {
	return &fakeNet{published: make(map[string]*fakeConn)}
}

func (n *fakeNet) factory() rtc.Factory {
	return func() (rtc.Connection, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.failCreate {
			return nil, errors.New("no more connections")
		}
		n.seq++
		c := &fakeConn{
			net:        n,
			id:         n.seq,
			gathered:   make(chan struct{}),
			holdGather: n.holdGather,
			failRemote: n.failRemote,
		}
		n.conns = append(n.conns, c)
		return c, nil
	}
}

func (n *fakeNet) conn(i int) *fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[i]
}

func (n *fakeNet) lookup(sdp string) *fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.published[sdp]
}

func (n *fakeNet) publish(sdp string, c *fakeConn) {
	n.mu.Lock()
	n.published[sdp] = c
	n.mu.Unlock()
}

type fakeConn struct {
	net        *fakeNet
	id         int
	holdGather bool
	failRemote bool

	mu            sync.Mutex
	local         *webrtc.SessionDescription
	remote        *webrtc.SessionDescription
	gathered      chan struct{}
	gatherOnce    sync.Once
	channels      []*fakeChannel
	onState       func(webrtc.PeerConnectionState)
	onDataChannel func(rtc.Channel)
	closed        bool
}

func (c *fakeConn) CreateDataChannel(label string) (rtc.Channel, error) {
	ch := newFakeChannel(label)
	c.mu.Lock()
	c.channels = append(c.channels, ch)
	c.mu.Unlock()
	return ch, nil
}

func (c *fakeConn) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("fake-offer-%d", c.id)}, nil
}

func (c *fakeConn) CreateAnswer() (webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return webrtc.SessionDescription{}, errors.New("no remote offer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: fmt.Sprintf("fake-answer-%d", c.id)}, nil
}

func (c *fakeConn) SetLocalDescription(desc webrtc.SessionDescription) error {
	c.mu.Lock()
	c.local = &desc
	c.mu.Unlock()
	c.net.publish(desc.SDP, c)
	if !c.holdGather {
		c.finishGathering()
	}
	return nil
}

func (c *fakeConn) finishGathering() {
	c.gatherOnce.Do(func() { close(c.gathered) })
}

func (c *fakeConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if c.failRemote {
		return errors.New("remote description rejected")
	}
	peer := c.net.lookup(desc.SDP)
	if peer == nil {
		return fmt.Errorf("unknown remote description %q", desc.SDP)
	}

	c.mu.Lock()
	if c.local != nil && c.local.Type == desc.Type {
		c.mu.Unlock()
		return errors.New("description type does not complete the exchange")
	}
	c.remote = &desc
	isOfferer := c.local != nil
	c.mu.Unlock()

	if isOfferer {
		go connectPeers(c, peer)
	}
	return nil
}

func (c *fakeConn) GatheringComplete() <-chan struct{} {
	return c.gathered
}

func (c *fakeConn) LocalDescription() *webrtc.SessionDescription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

func (c *fakeConn) OnConnectionStateChange(f func(webrtc.PeerConnectionState)) {
	c.mu.Lock()
	c.onState = f
	c.mu.Unlock()
}

func (c *fakeConn) OnDataChannel(f func(rtc.Channel)) {
	c.mu.Lock()
	c.onDataChannel = f
	c.mu.Unlock()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	channels := c.channels
	c.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}
	c.fireState(webrtc.PeerConnectionStateClosed)
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) fireState(state webrtc.PeerConnectionState) {
	c.mu.Lock()
	f := c.onState
	c.mu.Unlock()
	if f != nil {
		f(state)
	}
}

func (c *fakeConn) channel(i int) *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[i]
}

// connectPeers mirrors the offerer's channels onto the answerer and opens
// both ends.
func connectPeers(offerer, answerer *fakeConn) {
	offerer.mu.Lock()
	local := append([]*fakeChannel(nil), offerer.channels...)
	offerer.mu.Unlock()

	for _, ch := range local {
		remote := newFakeChannel(ch.label)
		ch.link(remote)
		remote.link(ch)

		answerer.mu.Lock()
		answerer.channels = append(answerer.channels, remote)
		announce := answerer.onDataChannel
		answerer.mu.Unlock()
		if announce != nil {
			announce(remote)
		}

		ch.open()
		remote.open()
	}
	offerer.fireState(webrtc.PeerConnectionStateConnected)
	answerer.fireState(webrtc.PeerConnectionStateConnected)
}

type fakeChannel struct {
	label string

	mu        sync.Mutex
	state     webrtc.DataChannelState
	peer      *fakeChannel
	buffered  uint64
	threshold uint64
	sent      []protocol.Unit
	onOpen    func()
	onClose   func()
	onMessage func(webrtc.DataChannelMessage)
	onLow     func()
}

func newFakeChannel(label string) *fakeChannel {
	return &fakeChannel{label: label, state: webrtc.DataChannelStateConnecting}
}

func (c *fakeChannel) link(peer *fakeChannel) {
	c.mu.Lock()
	c.peer = peer
	c.mu.Unlock()
}

func (c *fakeChannel) open() {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateOpen
	f := c.onOpen
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *fakeChannel) Label() string { return c.label }

func (c *fakeChannel) ReadyState() webrtc.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) Send(data []byte) error {
	return c.send(protocol.Unit{Data: append([]byte(nil), data...)})
}

func (c *fakeChannel) SendText(s string) error {
	return c.send(protocol.Unit{IsString: true, Data: []byte(s)})
}

func (c *fakeChannel) send(u protocol.Unit) error {
	c.mu.Lock()
	if c.state != webrtc.DataChannelStateOpen {
		c.mu.Unlock()
		return errors.New("data channel is not open")
	}
	c.sent = append(c.sent, u)
	peer := c.peer
	c.mu.Unlock()

	if peer != nil {
		peer.deliver(webrtc.DataChannelMessage{IsString: u.IsString, Data: u.Data})
	}
	return nil
}

func (c *fakeChannel) deliver(msg webrtc.DataChannelMessage) {
	c.mu.Lock()
	f := c.onMessage
	c.mu.Unlock()
	if f != nil {
		f(msg)
	}
}

func (c *fakeChannel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *fakeChannel) SetBufferedAmountLowThreshold(th uint64) {
	c.mu.Lock()
	c.threshold = th
	c.mu.Unlock()
}

func (c *fakeChannel) setBuffered(n uint64) {
	c.mu.Lock()
	c.buffered = n
	c.mu.Unlock()
}

// drain empties the send buffer and fires the low-water event.
func (c *fakeChannel) drain() {
	c.mu.Lock()
	c.buffered = 0
	f := c.onLow
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *fakeChannel) OnOpen(f func()) {
	c.mu.Lock()
	c.onOpen = f
	c.mu.Unlock()
}

func (c *fakeChannel) OnClose(f func()) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

func (c *fakeChannel) OnMessage(f func(webrtc.DataChannelMessage)) {
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

func (c *fakeChannel) OnBufferedAmountLow(f func()) {
	c.mu.Lock()
	c.onLow = f
	c.mu.Unlock()
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	if c.state == webrtc.DataChannelStateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = webrtc.DataChannelStateClosed
	f := c.onClose
	peer := c.peer
	c.mu.Unlock()

	if f != nil {
		go f()
	}
	if peer != nil {
		go func() { _ = peer.Close() }()
	}
	return nil
}

func (c *fakeChannel) sentFrames() []protocol.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Unit(nil), c.sent...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return s.Snapshot().State == want })
}
