package app

import (
	"context"
	"time"
)

// Countdown drives a session's per-question timer. It ticks once per
// interval while a question is active and restarts the interval whenever the
// active question changes, so ticks never carry over between questions.
// Run at most one Countdown per session.
type Countdown struct {
	session  *Session
	interval time.Duration
}

func NewCountdown(session *Session, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{session: session, interval: interval}
}

// Run blocks until ctx is canceled.
func (c *Countdown) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	epoch, active := c.session.activeEpoch()
	if !active {
		ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.session.activated:
			epoch, active = c.session.activeEpoch()
			ticker.Stop()
			select {
			case <-ticker.C:
			default:
			}
			if active {
				ticker.Reset(c.interval)
			}
		case <-ticker.C:
			c.session.TickEpoch(epoch)
		}
	}
}
