// Package heap implements the manually-managed allocation arena
// described by spec.md §4.1: a flat table of allocations, each
// reachable from the VM's roots or not, swept on demand. It is grounded
// on the original implementation's vm/gc/heap.rs (Heap{objects,
// bytes_allocated}, allocate<T>, mark/sweep, deallocate_all), adapted to
// Go generics so any payload type (value.StrData, value.ListData,
// value.ObjectData, value.FunctionData) can share one arena type.
package heap

// entry is one arena slot. payload always holds a *T pointer boxed as
// any; marked is reset at the start of every collection cycle and set
// by Mark as the VM walks its roots.
type entry struct {
	payload any
	marked  bool
}

// Heap owns every heap-backed value.Value payload allocated during a
// program's execution. It never runs a collection on its own —
// spec.md §4.1 leaves reclamation policy to the host (the VM decides
// when to call Sweep, if at all; FreeAll is used at program exit).
type Heap struct {
	entries []*entry
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{}
}

// Allocate stores val in the arena and returns a pointer to the stored
// copy. The returned pointer is what value.Str/List/Object/Function's
// Ref field holds, so sharing that pointer is what gives heap-backed
// values their per-instance mutable-flag semantics.
func Allocate[T any](h *Heap, val T) *T {
	p := new(T)
	*p = val
	h.entries = append(h.entries, &entry{payload: p})
	return p
}

// Mark records that ptr (a pointer previously returned by Allocate) is
// reachable from a root. Unknown pointers are silently ignored, since a
// root may reference a value that was never itself heap-allocated
// (e.g. an immediate Value stored inside an aggregate).
func Mark[T any](h *Heap, ptr *T) {
	if ptr == nil {
		return
	}
	for _, e := range h.entries {
		if p, ok := e.payload.(*T); ok && p == ptr {
			e.marked = true
			return
		}
	}
}

// ClearMarks resets every entry's mark bit, ahead of a fresh reachability
// walk.
func (h *Heap) ClearMarks() {
	for _, e := range h.entries {
		e.marked = false
	}
}

// Sweep discards every entry that was not marked since the last
// ClearMarks, and returns the number of entries discarded.
func (h *Heap) Sweep() int {
	kept := h.entries[:0]
	freed := 0
	for _, e := range h.entries {
		if e.marked {
			kept = append(kept, e)
		} else {
			freed++
		}
	}
	h.entries = kept
	return freed
}

// Len reports how many live allocations the heap currently holds.
func (h *Heap) Len() int {
	return len(h.entries)
}

// FreeAll drops every allocation unconditionally. Used when a VM run
// finishes and the whole arena can be discarded at once.
func (h *Heap) FreeAll() {
	h.entries = nil
}
