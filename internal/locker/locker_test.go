package locker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New(8)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(42)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestLockNegativeKey(t *testing.T) {
	m := New(8)
	unlock := m.Lock(-7)
	unlock()
	unlock = m.Lock(-7)
	unlock()
}

func TestNewClampsStripeCount(t *testing.T) {
	m := New(0)
	unlock := m.Lock(1)
	unlock()
}
