package transfer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
)

type fakeChannel struct {
	mu       sync.Mutex
	frames   []protocol.Unit
	buffered uint64
	// grow makes binary sends count toward the buffered amount.
	grow      bool
	threshold uint64
	overrun   bool
	failAfter int
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter > 0 && len(c.frames) >= c.failAfter {
		return errors.New("channel closed")
	}
	if c.threshold > 0 && c.buffered > c.threshold {
		c.overrun = true
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, protocol.Unit{Data: buf})
	if c.grow {
		c.buffered += uint64(len(data))
	}
	return nil
}

func (c *fakeChannel) SendText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, protocol.Unit{IsString: true, Data: []byte(s)})
	return nil
}

func (c *fakeChannel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *fakeChannel) setBuffered(n uint64) {
	c.mu.Lock()
	c.buffered = n
	c.mu.Unlock()
}

func (c *fakeChannel) snapshot() []protocol.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Unit, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeChannel) chunkCount() int {
	n := 0
	for _, f := range c.snapshot() {
		if !f.IsString {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
