package screen

import (
	"context"
	"time"
)

const (
	ProgressInterval = 100 * time.Millisecond
	MessageInterval  = 3 * time.Second

	progressCeiling = 99
	minIncrement    = 0.5
)

// LoadingMessages rotate under the progress bar while a translation runs.
var LoadingMessages = []string{
	"Still working on it...",
	"Almost there...",
	"Processing languages...",
	"Analyzing grammar...",
	"Generating examples...",
	"Finalizing translations...",
	"This is taking longer than expected...",
	"Thanks for your patience...",
}

// Progress is the cosmetic loading indicator. It does not track the real
// request; it slows as it climbs and never passes 99 until Complete.
type Progress struct {
	Percent      float64
	MessageIndex int
}

func (p Progress) Tick() Progress {
	if p.Percent >= 100 {
		return p
	}
	p.Percent += max(minIncrement, (100-p.Percent)*0.1)
	if p.Percent >= progressCeiling {
		p.Percent = progressCeiling
	}
	return p
}

func (p Progress) RotateMessage() Progress {
	p.MessageIndex = (p.MessageIndex + 1) % len(LoadingMessages)
	return p
}

func (p Progress) Complete() Progress {
	p.Percent = 100
	return p
}

func (p Progress) Message() string {
	return LoadingMessages[p.MessageIndex%len(LoadingMessages)]
}

// Run advances a fresh Progress on both tickers until ctx ends and returns
// the last value. onChange is called from Run's goroutine.
func Run(ctx context.Context, onChange func(Progress)) Progress {
	var p Progress
	if onChange != nil {
		onChange(p)
	}
	progressTicker := time.NewTicker(ProgressInterval)
	defer progressTicker.Stop()
	messageTicker := time.NewTicker(MessageInterval)
	defer messageTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return p
		case <-progressTicker.C:
			p = p.Tick()
		case <-messageTicker.C:
			p = p.RotateMessage()
		}
		if onChange != nil {
			onChange(p)
		}
	}
}
