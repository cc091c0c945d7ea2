package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/grvsrs/onebus/pkg/bot"
)

// TestAddJobValidation verifies cron expressions are rejected up front.
func TestAddJobValidation(t *testing.T) {
	s := New()

	if err := s.AddJob("ok", "*/5 * * * *", func(*bot.Registry) {}); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := s.AddJob("bad", "not a cron line", func(*bot.Registry) {}); err == nil {
		t.Error("invalid expression accepted")
	}
	if err := s.AddJob("macro", "@hourly", func(*bot.Registry) {}); err != nil {
		t.Errorf("macro expression rejected: %v", err)
	}
}

// TestRunDue verifies only due jobs fire and a panicking job does not take
// the scheduler down.
func TestRunDue(t *testing.T) {
	s := New()
	bots := bot.NewRegistry()

	var everyMinute, panicked atomic.Int32
	s.AddJob("every-minute", "* * * * *", func(*bot.Registry) { everyMinute.Add(1) })
	s.AddJob("never-now", "0 0 1 1 *", func(*bot.Registry) { t.Error("annual job fired") })
	s.AddJob("angry", "* * * * *", func(*bot.Registry) { panicked.Add(1); panic("boom") })

	// Any minute except midnight Jan 1 keeps the annual job quiet.
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	s.runDue(now, bots)
	s.runDue(now.Add(time.Minute), bots)

	deadline := time.After(time.Second)
	for everyMinute.Load() != 2 || panicked.Load() != 2 {
		select {
		case <-deadline:
			t.Fatalf("every-minute=%d panicking=%d, want 2 and 2", everyMinute.Load(), panicked.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
