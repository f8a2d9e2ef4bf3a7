package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/internal/testkit"
)

func drain(ch <-chan ProgressEvent) []ProgressEvent {
	var out []ProgressEvent
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestProgressHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewProgressHub(testkit.NewTestKit().Logger())

	a, cancelA := hub.Subscribe("s1")
	b, cancelB := hub.Subscribe("s1")
	other, cancelOther := hub.Subscribe("s2")
	defer cancelOther()
	assert.Equal(t, 2, hub.ClientCount("s1"))

	hub.Broadcast(ProgressEvent{Stream: "s1", Done: 1, Total: 2})
	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(other))

	cancelA()
	cancelA()
	assert.Equal(t, 1, hub.ClientCount("s1"))
	_, open := <-a
	assert.False(t, open, "cancelled channel is closed")

	cancelB()
	assert.Equal(t, 0, hub.ClientCount("s1"))
	hub.Broadcast(ProgressEvent{Stream: "s1", Done: 2, Total: 2})
}

func TestProgressHub_ReporterOncePerPercent(t *testing.T) {
	hub := NewProgressHub(testkit.NewTestKit().Logger())
	events, cancel := hub.Subscribe("run")
	defer cancel()

	report := hub.Reporter("run")
	const total = 10
	for done := 1; done <= total; done++ {
		report(done, total)
		report(done, total)
	}

	got := drain(events)
	require.Len(t, got, total)
	last := got[len(got)-1]
	assert.Equal(t, total, last.Done)
	assert.InDelta(t, 1.0, last.Progress, 1e-12)

	report(5, 0)
	assert.Empty(t, drain(events))
}

func TestProgressHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewProgressHub(testkit.NewTestKit().Logger())
	_, cancel := hub.Subscribe("slow")
	defer cancel()

	for i := 0; i < 100; i++ {
		hub.Broadcast(ProgressEvent{Stream: "slow", Done: i, Total: 100})
	}
}
