package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetStarsVisibleImmediately(t *testing.T) {
	c := New(100, 30)
	assert.Equal(t, 100, c.Stars())
	assert.Equal(t, 30, c.Days())

	c.SetStars(150)
	assert.Equal(t, 150, c.Stars())
}

func TestSetStarsIgnoresNonPositive(t *testing.T) {
	c := New(100, 30)
	c.SetStars(0)
	c.SetStars(-5)
	assert.Equal(t, 100, c.Stars())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(100, 30)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.SetStars(n)
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Stars()
		}()
	}
	wg.Wait()

	got := c.Stars()
	assert.Positive(t, got)
	assert.LessOrEqual(t, got, 100)
}
