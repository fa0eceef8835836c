package costs

import (
	"context"
	"time"
)

// DefaultFetchSpacing is the pause between the end of one monthly fetch
// and the start of the next against one provider.
const DefaultFetchSpacing = 200 * time.Millisecond

// Pacer inserts a fixed pause between sequential calls. A zero or
// negative spacing disables the pause.
type Pacer struct {
	spacing time.Duration
}

// NewPacer creates a Pacer that pauses for spacing.
func NewPacer(spacing time.Duration) *Pacer {
	return &Pacer{spacing: spacing}
}

// Pause blocks for the spacing or until ctx is done, returning ctx's
// error in the latter case.
func (p *Pacer) Pause(ctx context.Context) error {
	if p == nil || p.spacing <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.spacing)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
