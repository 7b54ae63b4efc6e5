package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second)

	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		d := b.Next()
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Second+6*time.Second) // cap plus jitter margin
		if i > 0 && i < 5 {
			assert.Greater(t, d, prev/2) // roughly monotone despite jitter
		}
		prev = d
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second)
	for i := 0; i < 6; i++ {
		b.Next()
	}
	b.Reset()

	d := b.Next()
	assert.LessOrEqual(t, d, time.Second+time.Second/4)
}
