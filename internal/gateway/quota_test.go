package gateway

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/keyword-service/internal/repository"
)

func TestQuotaLedgerReserve(t *testing.T) {
	l := NewQuotaLedger(map[string]int{"serp": 3})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Reserve("serp", 1))
	}

	err := l.Reserve("serp", 1)
	require.ErrorIs(t, err, repository.ErrQuotaExceeded)

	// A failed reserve consumes nothing.
	assert.Equal(t, 3, l.Consumed("serp"))
	assert.Equal(t, 3, l.Requests("serp"))

	remaining, bounded := l.Remaining("serp")
	assert.True(t, bounded)
	assert.Equal(t, 0, remaining)
}

func TestQuotaLedgerUnlimitedSource(t *testing.T) {
	l := NewQuotaLedger(map[string]int{"trends": 0})

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Reserve("trends", 1))
	}
	assert.Equal(t, 100, l.Consumed("trends"))

	_, bounded := l.Remaining("trends")
	assert.False(t, bounded)
}

func TestQuotaLedgerNeverExceedsLimitConcurrently(t *testing.T) {
	const limit = 50
	l := NewQuotaLedger(map[string]int{"serp": limit})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < limit; j++ {
				_ = l.Reserve("serp", 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, l.Consumed("serp"))
}
