// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package array implements a fast ordered container with O(1) access,
// insertion, and removal by tracking each item's own slot index.
//
// It is a generic translation of libzmq's array_t<T, ID>/array_item_t<ID>:
// instead of a private _array_index field set through a CRTP base class,
// items carry their index via the Indexed interface, and a Slot embeds
// the storage cell an item exposes through that interface. Because Go
// has no equivalent of instantiating the same base template under
// different IDs for the same struct, a caller that needs an item to
// live in more than one Array concurrently embeds one Slot per array
// instead.
package array

// Indexed is implemented by items stored in an Array. ArrayIndex reports
// the item's current slot, or -1 if it is not currently in any array.
// SetArrayIndex is called by the Array on every push/erase/swap that
// moves the item to a new slot (or removes it, with -1).
type Indexed interface {
	ArrayIndex() int
	SetArrayIndex(int)
}

// Slot is an embeddable implementation of Indexed. Zero value reports
// index -1, matching array_item_t's constructor.
type Slot struct{ index int }

// NewSlot returns a Slot ready for use outside any array.
func NewSlot() Slot { return Slot{index: -1} }

func (s *Slot) ArrayIndex() int     { return s.index }
func (s *Slot) SetArrayIndex(i int) { s.index = i }

// Array is an ordered sequence of pointers to items satisfying Indexed.
// All operations are O(1) worst case. It is not safe for concurrent use
// without external synchronization, matching array_t's single-threaded-
// per-I/O-thread assumption.
type Array[T Indexed] struct {
	items []T
}

// Len reports the number of items currently stored.
func (a *Array[T]) Len() int { return len(a.items) }

// Empty reports whether the array holds no items.
func (a *Array[T]) Empty() bool { return len(a.items) == 0 }

// At returns the item at index i. It panics on an out-of-range index,
// same as a direct slice index would.
func (a *Array[T]) At(i int) T { return a.items[i] }

// PushBack appends item, recording its new slot in the item itself.
func (a *Array[T]) PushBack(item T) {
	item.SetArrayIndex(len(a.items))
	a.items = append(a.items, item)
}

// Erase removes item by looking up its recorded slot, swapping the last
// element into that slot (fixing up the moved element's recorded index),
// and shrinking by one. O(1).
func (a *Array[T]) Erase(item T) {
	a.EraseAt(item.ArrayIndex())
}

// EraseAt removes the item currently at index i, the same way Erase does.
// A no-op on an empty array, mirroring array_t::erase.
func (a *Array[T]) EraseAt(i int) {
	if len(a.items) == 0 {
		return
	}
	last := len(a.items) - 1
	a.items[last].SetArrayIndex(i)
	a.items[i] = a.items[last]
	var zero T
	a.items[last] = zero
	a.items = a.items[:last]
}

// Swap exchanges the items at i and j, updating both items' recorded
// indices. Lets a caller reprioritize items without disturbing any
// other item's slot.
func (a *Array[T]) Swap(i, j int) {
	a.items[i].SetArrayIndex(j)
	a.items[j].SetArrayIndex(i)
	a.items[i], a.items[j] = a.items[j], a.items[i]
}

// Clear empties the array without requiring callers to erase one at a
// time.
func (a *Array[T]) Clear() {
	for _, it := range a.items {
		it.SetArrayIndex(-1)
	}
	a.items = nil
}

// Items returns a copy of the array's current contents in order. Callers
// that need to iterate while the array may be mutated concurrently (e.g.
// handing items off to goroutines that later Erase themselves) should use
// this rather than At/Len, since At assumes the original indices still
// hold by the time it's called.
func (a *Array[T]) Items() []T {
	out := make([]T, len(a.items))
	copy(out, a.items)
	return out
}

// Index returns item's currently recorded array slot.
func Index[T Indexed](item T) int { return item.ArrayIndex() }
