// lstore Lock / LockManager - strict two-phase locking with no-wait
// Component: per-record shared/exclusive locks and the process-wide manager

package database

import (
	"expvar"
	"sync"
)

// LockType distinguishes a shared (read) grant from an exclusive
// (write) grant. Grounded on original_source/lstore/lock.py's
// LockType enum.
type LockType int

const (
	LockShared LockType = iota + 1
	LockExclusive
)

func (lt LockType) String() string {
	if lt == LockShared {
		return "shared"
	}
	return "exclusive"
}

// TransactionID identifies a transaction to the lock manager.
type TransactionID uint64

// recordLock tracks shared and exclusive holders of a single logical
// record key. Construct with newRecordLock: the zero value has a nil
// shared-holder map and cannot record a shared grant.
type recordLock struct {
	mu             sync.Mutex
	sharedHolders  map[TransactionID]struct{}
	exclusiveHolder TransactionID
	hasExclusive   bool
}

func newRecordLock() *recordLock {
	return &recordLock{sharedHolders: make(map[TransactionID]struct{})}
}

func (l *recordLock) canGrantShared(tid TransactionID) bool {
	return !l.hasExclusive || l.exclusiveHolder == tid
}

func (l *recordLock) canGrantExclusive(tid TransactionID) bool {
	if l.hasExclusive && l.exclusiveHolder == tid {
		return true
	}
	if l.hasExclusive {
		return false
	}
	if len(l.sharedHolders) == 0 {
		return true
	}
	if len(l.sharedHolders) == 1 {
		if _, ok := l.sharedHolders[tid]; ok {
			return true // lock upgrade
		}
	}
	return false
}

func (l *recordLock) acquireShared(tid TransactionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.canGrantShared(tid) {
		return false
	}
	l.sharedHolders[tid] = struct{}{}
	return true
}

func (l *recordLock) acquireExclusive(tid TransactionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.canGrantExclusive(tid) {
		return false
	}
	delete(l.sharedHolders, tid) // upgrade case
	l.hasExclusive = true
	l.exclusiveHolder = tid
	return true
}

func (l *recordLock) release(tid TransactionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sharedHolders, tid)
	if l.hasExclusive && l.exclusiveHolder == tid {
		l.hasExclusive = false
		l.exclusiveHolder = 0
	}
}

// heldLock records one entry of a transaction's lock ledger.
type heldLock struct {
	key  string
	kind LockType
}

// LockManager grants per-record shared/exclusive locks under a strict
// no-wait policy: a grant either succeeds immediately or the caller
// must abort. There is no queueing and no priority — deadlocks are
// prevented by construction rather than detected.
//
// Grounded on original_source/lstore/lock.py's LockManager.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*recordLock
	held  map[TransactionID][]heldLock

	sharedGrants    *expvar.Int
	exclusiveGrants *expvar.Int
	refusals        *expvar.Int
}

var (
	lockManagerOnce sync.Once
	lockManager     *LockManager
)

// The counters are registered once per process (expvar names are
// global) and shared by every LockManager instance.
var (
	lockSharedGrants    = expvar.NewInt("lstore_lock_shared_grants_total")
	lockExclusiveGrants = expvar.NewInt("lstore_lock_exclusive_grants_total")
	lockRefusals        = expvar.NewInt("lstore_lock_refusals_total")
)

// GetLockManager returns the process-wide singleton lock manager,
// constructing it race-free on first use.
func GetLockManager() *LockManager {
	lockManagerOnce.Do(func() {
		lockManager = newLockManager()
	})
	return lockManager
}

// resetLockManagerForTest rebuilds the singleton; only ever called
// from tests that need an isolated lock manager instance.
func resetLockManagerForTest() *LockManager {
	lockManager = newLockManager()
	return lockManager
}

func newLockManager() *LockManager {
	return &LockManager{
		locks:           make(map[string]*recordLock),
		held:            make(map[TransactionID][]heldLock),
		sharedGrants:    lockSharedGrants,
		exclusiveGrants: lockExclusiveGrants,
		refusals:        lockRefusals,
	}
}

func (m *LockManager) getOrCreateLock(key string) *recordLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = newRecordLock()
		m.locks[key] = l
	}
	return l
}

// AcquireShared attempts to grant tid a shared lock on key, returning
// false immediately if it cannot be granted (the caller aborts; there
// is no waiting).
func (m *LockManager) AcquireShared(tid TransactionID, key string) bool {
	l := m.getOrCreateLock(key)
	if !l.acquireShared(tid) {
		m.refusals.Add(1)
		return false
	}
	m.mu.Lock()
	m.held[tid] = append(m.held[tid], heldLock{key: key, kind: LockShared})
	m.mu.Unlock()
	m.sharedGrants.Add(1)
	return true
}

// AcquireExclusive attempts to grant tid an exclusive lock on key,
// including the lock-upgrade case where tid is the sole shared holder.
func (m *LockManager) AcquireExclusive(tid TransactionID, key string) bool {
	l := m.getOrCreateLock(key)
	if !l.acquireExclusive(tid) {
		m.refusals.Add(1)
		return false
	}
	m.mu.Lock()
	ledger := m.held[tid][:0]
	for _, h := range m.held[tid] {
		if h.key != key {
			ledger = append(ledger, h)
		}
	}
	m.held[tid] = append(ledger, heldLock{key: key, kind: LockExclusive})
	m.mu.Unlock()
	m.exclusiveGrants.Add(1)
	return true
}

// ReleaseAll releases every lock held by tid, called at commit or
// abort (Strict 2PL: locks are held to end of transaction).
func (m *LockManager) ReleaseAll(tid TransactionID) {
	m.mu.Lock()
	ledger, ok := m.held[tid]
	if !ok {
		m.mu.Unlock()
		return
	}
	locks := make([]*recordLock, 0, len(ledger))
	for _, h := range ledger {
		if l, ok := m.locks[h.key]; ok {
			locks = append(locks, l)
		}
	}
	delete(m.held, tid)
	m.mu.Unlock()

	for _, l := range locks {
		l.release(tid)
	}
}
