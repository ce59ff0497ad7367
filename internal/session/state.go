package session

import (
	"errors"
	"time"

	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Role int

const (
	RoleUnset Role = iota
	Offerer
	Answerer
)

func (r Role) String() string {
	switch r {
	case Offerer:
		return "offerer"
	case Answerer:
		return "answerer"
	default:
		return "unset"
	}
}

var (
	ErrNotConnected = errors.New("channel is not open")
	ErrInvalidState = errors.New("operation not valid in the current state")
	// ErrSuperseded is returned by operations whose attempt was reset while
	// they were running.
	ErrSuperseded = errors.New("session attempt was reset")

	errConnectionFailed = errors.New("connection failed")
	errGatherTimeout    = errors.New("ICE gathering timed out")
)

// DefaultGatherTimeout bounds full candidate gathering for one description.
const DefaultGatherTimeout = 15 * time.Second

// Snapshot is a consistent copy of the observable session state. Offer and
// Answer hold the two descriptions of the current attempt, whichever side
// produced them.
type Snapshot struct {
	ID        string
	State     State
	Role      Role
	Offer     string
	Answer    string
	LastError string
	Messages  []msglog.Message
}
