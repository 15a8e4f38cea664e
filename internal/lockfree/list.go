// Package lockfree provides a multiple-producer single-consumer list.
package lockfree

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

type node[T any] struct {
	next  *node[T]
	value T
}

// List is a lock-free singly linked list. Any number of goroutines may Push
// concurrently, but only one goroutine may Drain at a time.
type List[T any] struct {
	_    cpu.CacheLinePad
	head atomic.Pointer[node[T]]
	_    cpu.CacheLinePad
}

// Push prepends v with a compare-and-swap loop.
func (l *List[T]) Push(v T) {
	n := &node[T]{value: v}
	for {
		n.next = l.head.Load()
		if l.head.CompareAndSwap(n.next, n) {
			return
		}
	}
}

// Empty reports whether the list has no pending values.
func (l *List[T]) Empty() bool {
	return l.head.Load() == nil
}

// Drain detaches all values with a single atomic swap and calls fn for
// each of them in push order. It returns the number of values drained.
func (l *List[T]) Drain(fn func(T)) int {
	n := l.head.Swap(nil)
	// reverse into push order
	var fifo *node[T]
	for n != nil {
		next := n.next
		n.next = fifo
		fifo = n
		n = next
	}
	count := 0
	for ; fifo != nil; fifo = fifo.next {
		fn(fifo.value)
		count++
	}
	return count
}
