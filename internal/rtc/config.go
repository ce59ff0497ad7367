package rtc

import "github.com/pion/webrtc/v3"

// ChannelLabel names the single data channel an offerer opens.
const ChannelLabel = "pairlink"

var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

type Config struct {
	// ICEServers are STUN/TURN URLs. Empty means host candidates only.
	ICEServers []string
	// IncludeLoopback gathers 127.0.0.1 candidates, for same-host peers.
	IncludeLoopback bool
}

func DefaultConfig() Config {
	servers := make([]string, len(DefaultSTUNServers))
	copy(servers, DefaultSTUNServers)
	return Config{ICEServers: servers}
}

func ICEConfig(servers []string) webrtc.Configuration {
	config := webrtc.Configuration{ICETransportPolicy: webrtc.ICETransportPolicyAll}
	if len(servers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: servers}}
	}
	return config
}

func DefaultDataChannelConfig() *webrtc.DataChannelInit {
	protocolName := "pairlink-transfer"
	ordered := true
	return &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: nil,
		Protocol:       &protocolName,
	}
}
