package database

import "testing"

func TestLockManagerSharedSharedCompatible(t *testing.T) {
	m := resetLockManagerForTest()
	if !m.AcquireShared(1, "t:1") {
		t.Fatal("first shared grant should succeed")
	}
	if !m.AcquireShared(2, "t:1") {
		t.Fatal("second shared grant should succeed, shared locks are compatible")
	}
}

func TestLockManagerExclusiveExcludesAll(t *testing.T) {
	m := resetLockManagerForTest()
	if !m.AcquireExclusive(1, "t:1") {
		t.Fatal("exclusive grant should succeed on an unlocked key")
	}
	if m.AcquireShared(2, "t:1") {
		t.Fatal("shared grant should be refused while another tid holds exclusive")
	}
	if m.AcquireExclusive(2, "t:1") {
		t.Fatal("exclusive grant should be refused while another tid holds exclusive")
	}
}

func TestLockManagerNoWaitRefusesImmediately(t *testing.T) {
	m := resetLockManagerForTest()
	m.AcquireShared(1, "t:1")
	if m.AcquireExclusive(2, "t:1") {
		t.Fatal("exclusive should be refused when another tid holds shared")
	}
}

func TestLockManagerUpgrade(t *testing.T) {
	m := resetLockManagerForTest()
	if !m.AcquireShared(1, "t:1") {
		t.Fatal("shared grant should succeed")
	}
	if !m.AcquireExclusive(1, "t:1") {
		t.Fatal("sole shared holder should be able to upgrade to exclusive")
	}
	if m.AcquireShared(2, "t:1") {
		t.Fatal("other tid should be refused once upgraded to exclusive")
	}
}

func TestLockManagerUpgradeRefusedWithMultipleSharedHolders(t *testing.T) {
	m := resetLockManagerForTest()
	m.AcquireShared(1, "t:1")
	m.AcquireShared(2, "t:1")
	if m.AcquireExclusive(1, "t:1") {
		t.Fatal("upgrade should fail when another tid also holds shared")
	}
}

func TestLockManagerReleaseAllFreesLocks(t *testing.T) {
	m := resetLockManagerForTest()
	m.AcquireExclusive(1, "t:1")
	m.AcquireShared(1, "t:2")
	m.ReleaseAll(1)

	if !m.AcquireExclusive(2, "t:1") {
		t.Fatal("lock on t:1 should be free after ReleaseAll")
	}
	if !m.AcquireShared(3, "t:2") {
		t.Fatal("lock on t:2 should be free after ReleaseAll")
	}
}

func TestLockManagerReleaseAllUnknownTidIsNoop(t *testing.T) {
	m := resetLockManagerForTest()
	m.ReleaseAll(42) // must not panic
}
