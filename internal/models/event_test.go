package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var windows = WaitlistWindows{
	OpenAfter:    30 * time.Minute,
	ClosingAfter: 59 * time.Minute,
	CloseAfter:   60 * time.Minute,
}

func TestPhaseAt(t *testing.T) {
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		offset time.Duration
		want   WaitlistPhase
	}{
		{"before start", -time.Hour, PhasePendingOpen},
		{"at start", 0, PhasePendingOpen},
		{"just before open", 30*time.Minute - time.Second, PhasePendingOpen},
		{"at open boundary", 30 * time.Minute, PhaseOpen},
		{"mid window", 45 * time.Minute, PhaseOpen},
		{"at closing boundary", 59 * time.Minute, PhaseClosing},
		{"just before close", 60*time.Minute - time.Second, PhaseClosing},
		{"at close boundary", 60 * time.Minute, PhaseClosed},
		{"long after", 24 * time.Hour, PhaseClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PhaseAt(start, start.Add(tc.offset), windows))
		})
	}
}

func TestEventComplete(t *testing.T) {
	now := time.Now()
	event := &Event{Capacity: 10, DateStart: now, DateEnd: now.Add(time.Hour)}
	assert.True(t, event.Complete())

	assert.False(t, (&Event{DateStart: now, DateEnd: now}).Complete())
	assert.False(t, (&Event{Capacity: 10, DateEnd: now}).Complete())
	var nilEvent *Event
	assert.False(t, nilEvent.Complete())
}

func TestEventEnded(t *testing.T) {
	end := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	event := &Event{DateEnd: end}
	assert.False(t, event.Ended(end.Add(-time.Minute)))
	assert.True(t, event.Ended(end))
	assert.True(t, event.Ended(end.Add(time.Minute)))
}
