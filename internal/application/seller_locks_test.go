package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSellerLocks(t *testing.T) {
	locks := newSellerLocks()

	unlock := locks.lock("seller-1")
	acquired := make(chan struct{})
	go func() {
		release := locks.lock("seller-1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(20 * time.Millisecond):
	}

	other := locks.lock("seller-2")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}

	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, 5*time.Millisecond)
}
