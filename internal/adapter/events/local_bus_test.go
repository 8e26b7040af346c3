package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settled() domain.TransactionSettled {
	return domain.TransactionSettled{TransactionID: uuid.New(), Outcome: domain.OutcomeApproved}
}

func TestLocalBus_DeliversToAllHandlersInOrder(t *testing.T) {
	bus := NewLocalBus(8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var first, second []uuid.UUID
	require.NoError(t, bus.Subscribe(ctx, func(_ context.Context, ev domain.TransactionSettled) {
		mu.Lock()
		first = append(first, ev.TransactionID)
		mu.Unlock()
	}))
	require.NoError(t, bus.Subscribe(ctx, func(_ context.Context, ev domain.TransactionSettled) {
		mu.Lock()
		second = append(second, ev.TransactionID)
		mu.Unlock()
	}))

	events := []domain.TransactionSettled{settled(), settled(), settled()}
	for _, ev := range events {
		require.NoError(t, bus.Publish(ctx, ev))
	}
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, first, 3)
	require.Len(t, second, 3)
	for i, ev := range events {
		assert.Equal(t, ev.TransactionID, first[i])
		assert.Equal(t, ev.TransactionID, second[i])
	}
}

func TestLocalBus_PublishDropsWhenFull(t *testing.T) {
	bus := NewLocalBus(1, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, settled()))
	assert.ErrorIs(t, bus.Publish(ctx, settled()), ErrBusFull)
}

func TestLocalBus_PublishNeverBlocksOnSlowHandler(t *testing.T) {
	bus := NewLocalBus(1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	require.NoError(t, bus.Subscribe(ctx, func(context.Context, domain.TransactionSettled) {
		<-release
	}))

	start := time.Now()
	for i := 0; i < 5; i++ {
		_ = bus.Publish(ctx, settled())
	}
	assert.Less(t, time.Since(start), time.Second)
	close(release)
}

func TestLocalBus_Closed(t *testing.T) {
	bus := NewLocalBus(4, zerolog.Nop())
	bus.Close()
	bus.Close()

	assert.ErrorIs(t, bus.Publish(context.Background(), settled()), ErrBusClosed)
	assert.ErrorIs(t, bus.Subscribe(context.Background(), func(context.Context, domain.TransactionSettled) {}), ErrBusClosed)
}
