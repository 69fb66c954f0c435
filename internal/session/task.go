package session

import (
	"context"
	"time"
)

// task is a cancellable handle on a scheduled delivery into the inbox.
// stop is idempotent and safe on a nil task.
type task struct {
	cancel context.CancelFunc
}

func (t *task) stop() {
	if t != nil {
		t.cancel()
	}
}

// after delivers m once, d from now.
func (s *Session) after(d time.Duration, m Msg) *task {
	ctx, cancel := context.WithCancel(s.ctx)
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.deliver(ctx, m)
	}()
	return &task{cancel: cancel}
}

// every delivers m each period until stopped.
func (s *Session) every(period time.Duration, m Msg) *task {
	ctx, cancel := context.WithCancel(s.ctx)
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.deliver(ctx, m) {
					return
				}
			}
		}
	}()
	return &task{cancel: cancel}
}

func (s *Session) deliver(ctx context.Context, m Msg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) stopTasks() {
	s.clock.stop()
	s.spawner.stop()
	s.resetter.stop()
	s.clock, s.spawner, s.resetter = nil, nil, nil
}
