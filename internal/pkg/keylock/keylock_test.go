// internal/pkg/keylock/keylock_test.go
package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	kl := New(time.Second)

	release, err := kl.Lock("variant:1:red:m")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := kl.Lock("variant:1:red:m")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the key while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the key after release")
	}
}

func TestLockIndependentKeysDoNotBlock(t *testing.T) {
	kl := New(100 * time.Millisecond)

	release1, err := kl.Lock("variant:1:red:m")
	require.NoError(t, err)
	defer release1()

	release2, err := kl.Lock("variant:2:blue:l")
	require.NoError(t, err)
	release2()
}

func TestLockTimesOut(t *testing.T) {
	kl := New(50 * time.Millisecond)

	release, err := kl.Lock("variant:1:red:m")
	require.NoError(t, err)
	defer release()

	_, err = kl.Lock("variant:1:red:m")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestLockMultiKeyReleasesOnTimeout(t *testing.T) {
	kl := New(50 * time.Millisecond)

	// Hold one key of the pair so the multi-key acquire times out.
	release, err := kl.Lock("b")
	require.NoError(t, err)

	_, err = kl.Lock("a", "b")
	require.ErrorIs(t, err, ErrTimeout)

	// "a" must have been released by the failed acquire.
	releaseA, err := kl.Lock("a")
	require.NoError(t, err)
	releaseA()

	release()
}

func TestLockMultiKeyNoDeadlockOnOverlap(t *testing.T) {
	kl := New(2 * time.Second)

	var wg sync.WaitGroup
	counter := 0

	// Overlapping key sets acquired from both directions; sorted
	// acquisition order must prevent deadlock.
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := kl.Lock("a", "b", "c")
			if err != nil {
				t.Error(err)
				return
			}
			counter++
			release()
		}()
		go func() {
			defer wg.Done()
			release, err := kl.Lock("c", "a")
			if err != nil {
				t.Error(err)
				return
			}
			counter++
			release()
		}()
	}

	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestLockDedupesKeys(t *testing.T) {
	kl := New(100 * time.Millisecond)

	release, err := kl.Lock("a", "a", "a")
	require.NoError(t, err)
	release()

	// The key must be fully released despite being passed three times.
	release, err = kl.Lock("a")
	require.NoError(t, err)
	release()
}
