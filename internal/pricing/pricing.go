// internal/pricing/pricing.go
package pricing

import "sync"

// Config holds the current premium price in Telegram Stars and the
// subscription length. The price is mutable at runtime through the admin
// console but is never persisted: a restart reverts to the configured
// default, which is the documented behavior.
type Config struct {
	mu    sync.RWMutex
	stars int
	days  int
}

func New(stars, days int) *Config {
	return &Config{stars: stars, days: days}
}

// Stars returns the current premium price.
func (c *Config) Stars() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stars
}

// SetStars replaces the current price for the remainder of the process
// lifetime. Non-positive values are ignored.
func (c *Config) SetStars(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.stars = n
	c.mu.Unlock()
}

// Days returns the subscription length granted per purchase.
func (c *Config) Days() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.days
}
