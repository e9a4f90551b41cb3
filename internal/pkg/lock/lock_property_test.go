// Package lock provides per-user locking for concurrent balance operations.
// Property-based tests for concurrent balance safety.
package lock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty: for any concurrent balance operations
// on the same user, the final balance must be consistent with sequential
// execution of all operations.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expectedFinalBalance := initialBalance
		for i := 0; i < numOps; i++ {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expectedFinalBalance += amounts[i]
		}

		userID := fmt.Sprintf("user-%d", rapid.Int64Range(1, 1000000).Draw(t, "userID"))

		ul := NewUserLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("balance mismatch with locking: expected %d, got %d (initial=%d, numOps=%d)",
				expectedFinalBalance, balance, initialBalance, numOps)
		}
	})
}

// TestWithLockFunctionProperty tests that WithLock correctly serializes
// operations.
func TestWithLockFunctionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		amountPerOp := rapid.Int64Range(1, 100).Draw(t, "amountPerOp")

		expectedFinalBalance := initialBalance + int64(numOps)*amountPerOp
		userID := fmt.Sprintf("user-%d", rapid.Int64Range(1, 1000000).Draw(t, "userID"))

		ul := NewUserLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					balance += amountPerOp
					return nil
				})
			}()
		}
		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("balance mismatch with WithLock: expected %d, got %d",
				expectedFinalBalance, balance)
		}
	})
}

// TestMultipleUsersIndependentLocksProperty tests that locks for different
// users are independent and don't block each other.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		balances := make(map[string]*int64)
		expected := make(map[string]int64)
		for i := 0; i < numUsers; i++ {
			userID := fmt.Sprintf("user-%d", i+1)
			balance := rapid.Int64Range(1000, 10000).Draw(t, "initialBalance")
			b := balance
			balances[userID] = &b
			expected[userID] = balance + int64(opsPerUser)*10
		}

		ul := NewUserLock()

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for userID := range balances {
			for j := 0; j < opsPerUser; j++ {
				go func(uid string) {
					defer wg.Done()
					ul.Lock(uid)
					defer ul.Unlock(uid)
					*balances[uid] += 10
				}(userID)
			}
		}
		wg.Wait()

		for userID, want := range expected {
			if *balances[userID] != want {
				t.Fatalf("user %s balance mismatch: expected %d, got %d",
					userID, want, *balances[userID])
			}
		}
	})
}

// TestTryLockPreventsConcurrentSessionsProperty tests that TryLock admits at
// most one concurrent holder and releases cleanly.
func TestTryLockPreventsConcurrentSessionsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := fmt.Sprintf("user-%d", rapid.Int64Range(1, 1000000).Draw(t, "userID"))
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		ul := NewUserLock()

		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh

				if ul.TryLock(userID) {
					successCount.Add(1)
					ul.Unlock(userID)
				}
			}()
		}

		close(startCh)
		wg.Wait()

		if successCount.Load() < 1 {
			t.Fatalf("at least one TryLock should succeed, got %d successes", successCount.Load())
		}

		if !ul.TryLock(userID) {
			t.Fatal("lock should be available after all operations complete")
		}
		ul.Unlock(userID)
	})
}

// TestLockUnlockSymmetryProperty tests that every Lock has a corresponding
// Unlock.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := fmt.Sprintf("user-%d", rapid.Int64Range(1, 1000000).Draw(t, "userID"))
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		ul := NewUserLock()

		for i := 0; i < numCycles; i++ {
			ul.Lock(userID)
			ul.Unlock(userID)
		}

		if !ul.TryLock(userID) {
			t.Fatal("lock should be available after symmetric lock/unlock cycles")
		}
		ul.Unlock(userID)
	})
}
