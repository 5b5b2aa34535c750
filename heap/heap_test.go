package heap

import "testing"

func TestAllocateReturnsDistinctPointersAndGrowsLen(t *testing.T) {
	h := New()
	p1 := Allocate(h, 10)
	p2 := Allocate(h, 20)

	if p1 == p2 {
		t.Fatal("Allocate returned the same pointer for two distinct values")
	}
	if *p1 != 10 || *p2 != 20 {
		t.Fatalf("*p1, *p2 = %d, %d, want 10, 20", *p1, *p2)
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
}

func TestAllocateCopyIsIndependentOfCaller(t *testing.T) {
	type payload struct{ n int }
	src := payload{n: 1}
	h := New()
	p := Allocate(h, src)

	src.n = 99
	if p.n != 1 {
		t.Errorf("mutating the caller's copy after Allocate changed the stored copy: got %d, want 1", p.n)
	}
}

func TestSweepDiscardsUnmarkedEntries(t *testing.T) {
	h := New()
	keep := Allocate(h, "keep")
	Allocate(h, "drop")

	h.ClearMarks()
	Mark(h, keep)

	freed := h.Sweep()
	if freed != 1 {
		t.Errorf("Sweep() freed = %d, want 1", freed)
	}
	if h.Len() != 1 {
		t.Errorf("Len() after Sweep = %d, want 1", h.Len())
	}
}

func TestSweepWithNoMarksFreesEverything(t *testing.T) {
	h := New()
	Allocate(h, 1)
	Allocate(h, 2)
	Allocate(h, 3)

	h.ClearMarks()
	freed := h.Sweep()
	if freed != 3 {
		t.Errorf("Sweep() freed = %d, want 3", freed)
	}
	if h.Len() != 0 {
		t.Errorf("Len() after Sweep = %d, want 0", h.Len())
	}
}

func TestMarkIgnoresUnknownPointer(t *testing.T) {
	h := New()
	Allocate(h, 1)
	unrelated := new(int)
	*unrelated = 42

	h.ClearMarks()
	Mark(h, unrelated) // must not panic or affect h's entries
	freed := h.Sweep()
	if freed != 1 {
		t.Errorf("Sweep() freed = %d, want 1 (the one real, unmarked entry)", freed)
	}
}

func TestClearMarksResetsPreviousMarks(t *testing.T) {
	h := New()
	p := Allocate(h, 1)
	h.ClearMarks()
	Mark(h, p)

	h.ClearMarks()
	freed := h.Sweep()
	if freed != 1 {
		t.Errorf("Sweep() after ClearMarks = %d freed, want 1 (mark should not have survived ClearMarks)", freed)
	}
}

func TestFreeAllDropsEverythingRegardlessOfMarks(t *testing.T) {
	h := New()
	p := Allocate(h, 1)
	h.ClearMarks()
	Mark(h, p)

	h.FreeAll()
	if h.Len() != 0 {
		t.Errorf("Len() after FreeAll = %d, want 0", h.Len())
	}
}
