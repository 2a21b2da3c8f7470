package session

import (
	"errors"
	"testing"
)

func TestNavigationClampsAtEdges(t *testing.T) {
	nav := NewNavigation(3)

	if got := nav.Previous(); got != 0 {
		t.Fatalf("Previous at first = %d, want 0", got)
	}

	if got := nav.Next(); got != 1 {
		t.Fatalf("Next = %d, want 1", got)
	}
	if got := nav.Next(); got != 2 {
		t.Fatalf("Next = %d, want 2", got)
	}
	if got := nav.Next(); got != 2 {
		t.Fatalf("Next at last = %d, want 2", got)
	}
	if !nav.AtLast() {
		t.Fatal("AtLast = false at the last question")
	}

	if got := nav.Previous(); got != 1 {
		t.Fatalf("Previous = %d, want 1", got)
	}
}

func TestNavigationJump(t *testing.T) {
	nav := NewNavigation(5)

	if err := nav.JumpTo(4); err != nil {
		t.Fatalf("JumpTo(4): %v", err)
	}
	if got := nav.Current(); got != 4 {
		t.Fatalf("Current = %d, want 4", got)
	}

	for _, idx := range []int{-1, 5, 100} {
		if err := nav.JumpTo(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("JumpTo(%d) = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if got := nav.Current(); got != 4 {
		t.Fatalf("rejected jump moved the pointer to %d", got)
	}
}
