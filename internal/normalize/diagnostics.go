package normalize

import "sync"

// Counter is an in-memory Diagnostics that counts degraded payloads per kind and reason.
type Counter struct {
	mu     sync.Mutex
	counts map[Kind]map[string]int
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Kind]map[string]int)}
}

func (c *Counter) Degraded(kind Kind, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byReason, ok := c.counts[kind]
	if !ok {
		byReason = make(map[string]int)
		c.counts[kind] = byReason
	}
	byReason[reason]++
}

func (c *Counter) Count(kind Kind, reason string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind][reason]
}

func (c *Counter) Total(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range c.counts[kind] {
		total += n
	}
	return total
}
