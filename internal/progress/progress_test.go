package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendNeverBlocks(t *testing.T) {
	assert.False(t, Send(nil, Event{Phase: PhaseIndexing}))

	ch := make(chan Event, 1)
	assert.True(t, Send(ch, Event{Phase: PhaseIndexing, Processed: 1}))
	assert.False(t, Send(ch, Event{Phase: PhaseIndexing, Processed: 2}))

	ev := <-ch
	assert.Equal(t, 1, ev.Processed)
}

func TestEventPercent(t *testing.T) {
	assert.InDelta(t, 50.0, Event{Processed: 5, Total: 10}.Percent(), 0.0001)
	assert.Equal(t, 0.0, Event{Processed: 5}.Percent())
	assert.Equal(t, "classifying: 5/10 (50.0%)", Event{Phase: PhaseClassifying, Processed: 5, Total: 10}.String())
	assert.Equal(t, "parsing: 3", Event{Phase: PhaseParsing, Processed: 3}.String())
}

func TestEvery(t *testing.T) {
	assert.True(t, Every(1000, 5000, 1000))
	assert.False(t, Every(999, 5000, 1000))
	assert.True(t, Every(17, 17, 1000))
	assert.True(t, Every(3, 10, 0))
}
