package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycle(t *testing.T) {
	l := NewLifecycle()
	assert.Equal(t, StateAbsent, l.State("draft-1"))
	assert.False(t, l.Opening())

	l.beginOpen()
	assert.True(t, l.Opening())
	l.endOpen()
	assert.False(t, l.Opening())

	l.set("draft-1", StateOpen)
	l.set("draft-2", StateSaved)
	assert.Equal(t, StateOpen, l.State("draft-1"))
	assert.Equal(t, map[DraftKey]State{"draft-1": StateOpen, "draft-2": StateSaved}, l.Tracked())

	l.set("draft-1", StateAbsent)
	assert.Equal(t, StateAbsent, l.State("draft-1"))
	assert.Len(t, l.Tracked(), 1)
}
