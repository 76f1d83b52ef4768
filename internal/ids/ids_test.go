package ids

import "testing"

func TestModuleIdAllocatorReservesZeroForEntry(t *testing.T) {
	alloc := NewModuleIdAllocator()
	first := alloc.Next()
	if first != 0 {
		t.Fatalf("expected the first allocated ModuleId to be 0, got %d", first)
	}
	second := alloc.Next()
	if second != 1 {
		t.Fatalf("expected the second allocated ModuleId to be 1, got %d", second)
	}
}

func TestItemIdAllocatorIsDenseAndIncreasing(t *testing.T) {
	var alloc ItemIdAllocator
	ids := []ItemId{alloc.Next(), alloc.Next(), alloc.Next()}
	for i, id := range ids {
		if id != ItemId(i) {
			t.Fatalf("expected ids[%d] == %d, got %d", i, i, id)
		}
	}
}

func TestInvalidIdsReportNotValid(t *testing.T) {
	if InvalidModuleId.IsValid() {
		t.Fatal("expected InvalidModuleId.IsValid() == false")
	}
	if InvalidItemId.IsValid() {
		t.Fatal("expected InvalidItemId.IsValid() == false")
	}
	if ModuleId(0).String() == ModuleId(InvalidModuleId).String() {
		t.Fatal("expected a valid and invalid id to stringify differently")
	}
}

func TestGlobalBindingIdIsComparable(t *testing.T) {
	a := GlobalBindingId{Module: 1, Binding: 2}
	b := GlobalBindingId{Module: 1, Binding: 2}
	c := GlobalBindingId{Module: 1, Binding: 3}
	if a != b {
		t.Fatal("expected identical GlobalBindingIds to compare equal")
	}
	if a == c {
		t.Fatal("expected differing Binding fields to compare unequal")
	}

	set := map[GlobalBindingId]bool{a: true}
	if !set[b] {
		t.Fatal("expected GlobalBindingId to be usable as a map key")
	}
}
