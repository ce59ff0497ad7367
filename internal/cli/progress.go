package cli

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress renders one transfer direction as a byte progress bar. A new bar
// starts whenever the previous one finished.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	enabled bool
	bar     *progressbar.ProgressBar
}

func NewProgress(out io.Writer, label string, enabled bool) *Progress {
	return &Progress{out: out, label: label, enabled: enabled}
}

// Update matches transfer.ProgressFunc.
func (p *Progress) Update(done, total int64) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(p.label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set64(done)
	if done >= total {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
