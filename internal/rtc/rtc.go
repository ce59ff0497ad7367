// Package rtc is the narrow surface the session needs from a WebRTC stack,
// backed by pion.
package rtc

import (
	"fmt"

	"github.com/pion/webrtc/v3"
)

// Channel is an ordered data channel. *webrtc.DataChannel satisfies it.
type Channel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	Send(data []byte) error
	SendText(s string) error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnOpen(f func())
	OnClose(f func())
	OnMessage(f func(msg webrtc.DataChannelMessage))
	OnBufferedAmountLow(f func())
	Close() error
}

var _ Channel = (*webrtc.DataChannel)(nil)

// Connection is a peer connection. GatheringComplete must be taken before
// SetLocalDescription; the channel closes once candidate gathering is done.
type Connection interface {
	CreateDataChannel(label string) (Channel, error)
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	GatheringComplete() <-chan struct{}
	LocalDescription() *webrtc.SessionDescription
	OnConnectionStateChange(f func(webrtc.PeerConnectionState))
	OnDataChannel(f func(Channel))
	Close() error
}

// Factory creates a fresh connection for every attempt.
type Factory func() (Connection, error)

type peerConnection struct {
	pc     *webrtc.PeerConnection
	dcInit *webrtc.DataChannelInit
}

var _ Connection = (*peerConnection)(nil)

// NewFactory builds connections from cfg using a single pion API instance.
func NewFactory(cfg Config) Factory {
	se := webrtc.SettingEngine{}
	if cfg.IncludeLoopback {
		se.SetIncludeLoopbackCandidate(true)
	}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))
	iceConfig := ICEConfig(cfg.ICEServers)

	return func() (Connection, error) {
		pc, err := api.NewPeerConnection(iceConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create peer connection: %w", err)
		}
		return &peerConnection{pc: pc, dcInit: DefaultDataChannelConfig()}, nil
	}
}

func (c *peerConnection) CreateDataChannel(label string) (Channel, error) {
	dc, err := c.pc.CreateDataChannel(label, c.dcInit)
	if err != nil {
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}
	return dc, nil
}

func (c *peerConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *peerConnection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *peerConnection) SetLocalDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *peerConnection) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *peerConnection) GatheringComplete() <-chan struct{} {
	return webrtc.GatheringCompletePromise(c.pc)
}

func (c *peerConnection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

func (c *peerConnection) OnConnectionStateChange(f func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(f)
}

func (c *peerConnection) OnDataChannel(f func(Channel)) {
	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		f(dc)
	})
}

func (c *peerConnection) Close() error {
	return c.pc.Close()
}
