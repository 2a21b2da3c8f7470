package session

import (
	"errors"
	"sync"
)

// ErrIndexOutOfRange is returned by JumpTo for an index outside the set.
var ErrIndexOutOfRange = errors.New("question index is out of range")

// Navigation sequences which question is currently presented.
// The index always satisfies 0 <= index < length.
type Navigation struct {
	mu     sync.Mutex
	index  int
	length int
}

// NewNavigation creates a Navigation over a set of length questions,
// starting at index 0.
func NewNavigation(length int) *Navigation {
	return &Navigation{length: length}
}

// Current returns the presented index.
func (n *Navigation) Current() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index
}

// Next advances by one, clamping at the last question.
func (n *Navigation) Next() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.index < n.length-1 {
		n.index++
	}
	return n.index
}

// Previous steps back by one, clamping at the first question.
func (n *Navigation) Previous() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.index > 0 {
		n.index--
	}
	return n.index
}

// JumpTo moves directly to index, answered or not.
func (n *Navigation) JumpTo(index int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= n.length {
		return ErrIndexOutOfRange
	}
	n.index = index
	return nil
}

// AtLast reports whether the last question is presented.
func (n *Navigation) AtLast() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index == n.length-1
}
