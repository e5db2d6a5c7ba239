package worker

import "sync"

// LiveCounter counts the workers of a run that have not returned yet,
// abandoned ones included
type LiveCounter struct {
	mu       sync.Mutex
	n        int
	onChange func(active int)
}

// NewLiveCounter creates a counter that reports every change to onChange, in
// order. onChange may be nil; it runs on worker goroutines and must not call
// back into the counter.
func NewLiveCounter(onChange func(active int)) *LiveCounter {
	return &LiveCounter{onChange: onChange}
}

func (c *LiveCounter) add(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n += delta
	if c.onChange != nil {
		c.onChange(c.n)
	}
}

// Active returns the number of live workers
func (c *LiveCounter) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
