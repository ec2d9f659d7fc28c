package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIsMonotonic(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := New(now)
	for i := 0; i < 100; i++ {
		next := New(now)
		assert.Less(t, prev, next)
		prev = next
	}
}
