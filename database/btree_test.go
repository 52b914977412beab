package database

import (
	"math/rand"
	"sort"
	"testing"
)

func TestBPlusTreeLocate(t *testing.T) {
	tree := NewBPlusTree(4)
	for i := int64(0); i < 50; i++ {
		tree.Insert(i, i*10)
	}
	for i := int64(0); i < 50; i++ {
		got := tree.Locate(i)
		if len(got) != 1 || got[0] != i*10 {
			t.Errorf("Locate(%d) = %v, want [%d]", i, got, i*10)
		}
	}
	if got := tree.Locate(999); got != nil {
		t.Errorf("Locate(999) = %v, want nil", got)
	}
}

func TestBPlusTreeDuplicateValues(t *testing.T) {
	tree := NewBPlusTree(4)
	tree.Insert(5, 1)
	tree.Insert(5, 2)
	tree.Insert(5, 3)

	got := tree.Locate(5)
	want := map[int64]bool{1: true, 2: true, 3: true}
	if len(got) != 3 {
		t.Fatalf("Locate(5) = %v, want 3 entries", got)
	}
	for _, rid := range got {
		if !want[rid] {
			t.Errorf("unexpected rid %d in Locate(5) result", rid)
		}
	}
}

func TestBPlusTreeLocateRangeAscending(t *testing.T) {
	tree := NewBPlusTree(4)
	values := []int64{30, 10, 50, 20, 40, 5, 45, 15, 25, 35}
	for _, v := range values {
		tree.Insert(v, v)
	}

	got := tree.LocateRange(15, 40)
	var gotValues []int64
	for _, rid := range got {
		gotValues = append(gotValues, rid)
	}
	if !sort.SliceIsSorted(gotValues, func(i, j int) bool { return gotValues[i] < gotValues[j] }) {
		t.Errorf("LocateRange result not ascending: %v", gotValues)
	}

	want := []int64{15, 20, 25, 30, 35, 40}
	if len(gotValues) != len(want) {
		t.Fatalf("LocateRange(15, 40) = %v, want %v", gotValues, want)
	}
	for i, v := range want {
		if gotValues[i] != v {
			t.Errorf("LocateRange(15, 40)[%d] = %d, want %d", i, gotValues[i], v)
		}
	}
}

func TestBPlusTreeManyInsertsAndSplits(t *testing.T) {
	tree := NewBPlusTree(4)
	rng := rand.New(rand.NewSource(1))
	values := rng.Perm(500)
	for _, v := range values {
		tree.Insert(int64(v), int64(v))
	}
	for _, v := range values {
		got := tree.Locate(int64(v))
		if len(got) != 1 || got[0] != int64(v) {
			t.Fatalf("Locate(%d) = %v, want [%d]", v, got, v)
		}
	}
	all := tree.LocateRange(0, 499)
	if len(all) != 500 {
		t.Fatalf("LocateRange(0, 499) returned %d entries, want 500", len(all))
	}
}
