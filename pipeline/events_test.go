package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster[int]()
	first, unsubscribeFirst := b.Subscribe(2)
	second, unsubscribeSecond := b.Subscribe(1)
	defer unsubscribeSecond()

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-first)
	assert.Equal(t, 2, <-first)
	assert.Equal(t, 1, <-second)
	assert.Equal(t, int64(1), b.Dropped(), "second subscriber was full")

	unsubscribeFirst()
	unsubscribeFirst()
	_, open := <-first
	require.False(t, open)

	b.Publish(3)
	assert.Equal(t, 3, <-second)
}
