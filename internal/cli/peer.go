// Package cli is the interactive terminal front end of a session.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rudransh-shrivastava/pairlink/internal/session"
	"github.com/rudransh-shrivastava/pairlink/internal/transfer"
)

// Peer is the session surface the console drives.
type Peer interface {
	SendText(content string) error
	SendFile(ctx context.Context, src transfer.Source) error
	Reset()
	Snapshot() session.Snapshot
	Updates() <-chan struct{}
}

var _ Peer = (*session.Session)(nil)

// WaitConnected blocks until p is connected. A failure returns the session's
// last error.
func WaitConnected(ctx context.Context, p Peer) error {
	for {
		snap := p.Snapshot()
		switch snap.State {
		case session.Connected:
			return nil
		case session.Failed:
			return errors.New(snap.LastError)
		case session.Disconnected:
			return fmt.Errorf("session was reset")
		}

		select {
		case <-p.Updates():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
