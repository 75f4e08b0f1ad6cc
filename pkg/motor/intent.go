package motor

import "sync"

// pendingWrite is a set that the bus has not acknowledged yet. seq identifies
// the set so that an acknowledgement of an older write cannot clear a newer one.
type pendingWrite[T comparable] struct {
	value T
	seq   uint64
}

// intent tracks one writable field. A nil pending means the field is clean;
// a dirty field therefore always carries the value it wants written.
type intent[T comparable] struct {
	mu        sync.Mutex
	confirmed T
	known     bool
	pending   *pendingWrite[T]
	seq       uint64
}

// set records a new desired value.
func (in *intent[T]) set(v T) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.pending == nil {
		if in.known && in.confirmed == v {
			return
		}
	} else if in.pending.value == v {
		return
	}
	in.seq++
	in.pending = &pendingWrite[T]{value: v, seq: in.seq}
}

// desired returns the pending value, or the confirmed one when clean.
func (in *intent[T]) desired() (T, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.pending != nil {
		return in.pending.value, true
	}
	return in.confirmed, in.known
}

func (in *intent[T]) confirmedValue() (T, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.confirmed, in.known
}

func (in *intent[T]) dirty() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.pending != nil
}

func (in *intent[T]) snapshot() (pendingWrite[T], bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.pending == nil {
		return pendingWrite[T]{}, false
	}
	return *in.pending, true
}

// confirm records that value v, written for set seq, is now held by the device.
// The field is cleaned only when no later set superseded that write.
func (in *intent[T]) confirm(v T, seq uint64) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.confirmed = v
	in.known = true
	if in.pending != nil && in.pending.seq == seq {
		in.pending = nil
	}
	return in.pending == nil
}

// observe records a value read back from the device.
func (in *intent[T]) observe(v T) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.confirmed = v
	in.known = true
}
