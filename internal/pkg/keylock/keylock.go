// internal/pkg/keylock/keylock.go
package keylock

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the
// configured timeout. Callers should surface this as a retryable conflict.
var ErrTimeout = errors.New("keylock: lock acquisition timed out")

// KeyLock provides mutual exclusion per string key. Allocation passes lock
// the variant key for the whole read-compute-write sequence; whole-product
// passes lock every variant key of the product in one call. Keys are always
// acquired in sorted order so overlapping multi-key holders cannot deadlock.
type KeyLock struct {
	mu      sync.Mutex
	timeout time.Duration
	locks   map[string]chan struct{}
}

// New creates a KeyLock with the given acquisition timeout
func New(timeout time.Duration) *KeyLock {
	return &KeyLock{
		timeout: timeout,
		locks:   make(map[string]chan struct{}),
	}
}

func (k *KeyLock) lockChan(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()

	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}

// Lock acquires every given key, blocking up to the configured timeout for
// the whole set. On success it returns a release function; on timeout it
// releases any keys already held and returns ErrTimeout.
func (k *KeyLock) Lock(keys ...string) (func(), error) {
	// Dedupe and sort for a stable acquisition order.
	unique := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		unique[key] = struct{}{}
	}
	ordered := make([]string, 0, len(unique))
	for key := range unique {
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	deadline := time.NewTimer(k.timeout)
	defer deadline.Stop()

	acquired := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			<-acquired[i]
		}
	}

	for _, key := range ordered {
		ch := k.lockChan(key)
		select {
		case ch <- struct{}{}:
			acquired = append(acquired, ch)
		case <-deadline.C:
			release()
			return nil, ErrTimeout
		}
	}

	return release, nil
}
