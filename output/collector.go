// Package output receives the results of translation tasks.
package output

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Collector receives the text of one output stage for one sentence.
type Collector interface {
	Write(translationID int, text string) error
}

// OrderedCollector writes sentences to its writer in translation id order,
// buffering results that arrive early. Ids start at the configured first id
// and must be contiguous; each id is written once.
type OrderedCollector struct {
	mu      sync.Mutex
	writer  *bufio.Writer
	next    int
	pending map[int]string
}

var _ Collector = &OrderedCollector{}

func NewOrderedCollector(writer io.Writer, firstID int) *OrderedCollector {
	return &OrderedCollector{
		writer:  bufio.NewWriter(writer),
		next:    firstID,
		pending: make(map[int]string),
	}
}

func (c *OrderedCollector) Write(translationID int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if translationID < c.next {
		return fmt.Errorf("translation %d already written", translationID)
	}
	if _, exists := c.pending[translationID]; exists {
		return fmt.Errorf("translation %d already pending", translationID)
	}
	c.pending[translationID] = text
	for {
		text, exists := c.pending[c.next]
		if !exists {
			break
		}
		delete(c.pending, c.next)
		if _, err := c.writer.WriteString(text); err != nil {
			return err
		}
		c.next++
	}
	return c.writer.Flush()
}

// Pending returns how many results wait for an earlier id.
func (c *OrderedCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush writes out whatever is pending, in id order, skipping gaps. Used
// at shutdown when some sentences failed.
func (c *OrderedCollector) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) > 0 {
		if text, exists := c.pending[c.next]; exists {
			delete(c.pending, c.next)
			if _, err := c.writer.WriteString(text); err != nil {
				return err
			}
		}
		c.next++
	}
	return c.writer.Flush()
}
