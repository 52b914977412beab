package database

import "testing"

func TestPageWriteReadRoundTrip(t *testing.T) {
	p := newPage()
	for i := int64(0); i < 10; i++ {
		if !p.Write(i * 7) {
			t.Fatalf("write %d failed unexpectedly", i)
		}
	}
	for i := int64(0); i < 10; i++ {
		if got := p.Read(int(i)); got != i*7 {
			t.Errorf("slot %d: got %d, want %d", i, got, i*7)
		}
	}
	if got := p.NumRecords(); got != 10 {
		t.Errorf("NumRecords() = %d, want 10", got)
	}
}

func TestPageFullRejectsWrite(t *testing.T) {
	p := newPage()
	for i := 0; i < PageSlots; i++ {
		if !p.Write(int64(i)) {
			t.Fatalf("write %d should have succeeded", i)
		}
	}
	if p.HasCapacity() {
		t.Fatal("HasCapacity() should be false once full")
	}
	if p.Write(999) {
		t.Fatal("write on a full page should fail")
	}
}

func TestPageOverwrite(t *testing.T) {
	p := newPage()
	p.Write(100)
	p.Overwrite(0, 200)
	if got := p.Read(0); got != 200 {
		t.Errorf("Read(0) = %d, want 200", got)
	}
	if got := p.NumRecords(); got != 1 {
		t.Errorf("Overwrite should not change NumRecords, got %d", got)
	}
}

func TestPageSnapshotRestore(t *testing.T) {
	p := newPage()
	for i := int64(0); i < 5; i++ {
		p.Write(i)
	}
	numRecords, raw := p.snapshot()

	p2 := newPage()
	p2.restore(numRecords, raw)
	if p2.NumRecords() != 5 {
		t.Fatalf("restored NumRecords = %d, want 5", p2.NumRecords())
	}
	for i := 0; i < 5; i++ {
		if got := p2.Read(i); got != int64(i) {
			t.Errorf("restored slot %d = %d, want %d", i, got, i)
		}
	}
}
