/*
Copyright The TRDP-Go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mdengine

import (
	"container/heap"

	"github.com/tcnopen/trdp-go/trdptime"
)

// deadlineItem is implemented by *callerSession and *replySession so both
// can share one heap implementation, the same split pdengine uses for
// publications and subscriptions.
type deadlineItem interface {
	Deadline() trdptime.Time
	HeapIndex() int
	SetHeapIndex(int)
}

// deadlineQueue is a container/heap min-heap ordered by Deadline.
type deadlineQueue[T deadlineItem] struct {
	items []T
}

func (q *deadlineQueue[T]) Len() int { return len(q.items) }

func (q *deadlineQueue[T]) Less(i, j int) bool {
	return q.items[i].Deadline().Before(q.items[j].Deadline())
}

func (q *deadlineQueue[T]) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].SetHeapIndex(i)
	q.items[j].SetHeapIndex(j)
}

func (q *deadlineQueue[T]) Push(x any) {
	item := x.(T)
	item.SetHeapIndex(len(q.items))
	q.items = append(q.items, item)
}

func (q *deadlineQueue[T]) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero
	q.items = old[:n-1]
	item.SetHeapIndex(-1)
	return item
}

// Insert adds item to the queue.
func (q *deadlineQueue[T]) Insert(item T) {
	heap.Push(q, item)
}

// Remove drops item from the queue. No-op if item is not present.
func (q *deadlineQueue[T]) Remove(item T) {
	idx := item.HeapIndex()
	if idx < 0 || idx >= len(q.items) {
		return
	}
	heap.Remove(q, idx)
}

// Fix re-establishes heap order for item after its Deadline changed.
func (q *deadlineQueue[T]) Fix(item T) {
	idx := item.HeapIndex()
	if idx < 0 || idx >= len(q.items) {
		return
	}
	heap.Fix(q, idx)
}

// Peek returns the entry with the earliest deadline without removing it.
func (q *deadlineQueue[T]) Peek() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}
