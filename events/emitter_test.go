package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversToMatchingSubscribers(t *testing.T) {
	e := NewEmitter(nil)
	var got []Event
	e.Subscribe(EventSkillUnlocked, func(ev Event) { got = append(got, ev) })
	e.Subscribe(EventPlayerRegistered, func(ev Event) { t.Error("unexpected delivery") })

	e.Emit(Event{Type: EventSkillUnlocked, TxID: "0x1", Data: map[string]any{"skill_id": uint64(3)}})

	if assert.Len(t, got, 1) {
		assert.Equal(t, uint64(3), got[0].Data["skill_id"])
	}
}

func TestEmitRecoversFromPanickingHandler(t *testing.T) {
	e := NewEmitter(nil)
	delivered := false
	e.Subscribe(EventBlockCommit, func(Event) { panic("boom") })
	e.Subscribe(EventBlockCommit, func(Event) { delivered = true })

	assert.NotPanics(t, func() { e.Emit(Event{Type: EventBlockCommit}) })
	assert.True(t, delivered, "later subscribers still run")
}
