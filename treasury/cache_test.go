package treasury

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadCache_Invalidate(t *testing.T) {
	c := NewReadCache(0, 0)
	c.Set("transactions:ms:1", 1)
	c.Set("transactions:ms:2", 2)
	c.Set("transactionsArchive", 3)
	c.Set("multisig:ms", 4)
	c.Set("balance", 5)

	c.Invalidate(KeyTransactions, KeyBalance)

	_, ok := c.Get("transactions:ms:1")
	assert.False(t, ok)
	_, ok = c.Get("transactions:ms:2")
	assert.False(t, ok)
	_, ok = c.Get("balance")
	assert.False(t, ok)

	val, ok := c.Get("transactionsArchive")
	assert.True(t, ok)
	assert.Equal(t, 3, val)
	val, ok = c.Get("multisig:ms")
	assert.True(t, ok)
	assert.Equal(t, 4, val)

	c.Invalidate(KeyTransactions, KeyBalance)
	c.Invalidate("unknown")
	assert.Equal(t, 2, c.Len())
}

func TestReadCache_Expiration(t *testing.T) {
	c := NewReadCache(10, 20*time.Millisecond)
	c.Set("multisig:ms", "value")

	val, ok := c.Get("multisig:ms")
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.Get("multisig:ms")
	assert.False(t, ok)
}

func TestReadCache_Capacity(t *testing.T) {
	c := NewReadCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCached(t *testing.T) {
	c := NewReadCache(0, 0)
	loads := 0
	load := func() (int, error) {
		loads++
		return 42, nil
	}

	val, err := cached(c, "key", load)
	assert.NoError(t, err)
	assert.Equal(t, 42, val)

	val, err = cached(c, "key", load)
	assert.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, loads)

	_, err = cached(c, "failing", func() (int, error) {
		return 0, errors.New("rpc down")
	})
	assert.Error(t, err)
	_, ok := c.Get("failing")
	assert.False(t, ok)
}
