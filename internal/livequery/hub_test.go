package livequery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/cool-todo/internal/livequery"
)

func receive[V any](t *testing.T, sub *livequery.Subscription[V]) V {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero V
	return zero
}

func TestHub_PublishReachesOnlyMatchingKey(t *testing.T) {
	hub := livequery.NewHub[string, []string]()
	ctx := context.Background()

	alice := hub.Subscribe(ctx, "alice")
	defer alice.Cancel()
	bob := hub.Subscribe(ctx, "bob")
	defer bob.Cancel()

	n := hub.Publish("alice", []string{"a1"})
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a1"}, receive(t, alice))

	select {
	case v := <-bob.C():
		t.Fatalf("bob received %v", v)
	default:
	}
}

func TestHub_LatestSnapshotWins(t *testing.T) {
	hub := livequery.NewHub[string, int]()
	sub := hub.Subscribe(context.Background(), "k")
	defer sub.Cancel()

	hub.Publish("k", 1)
	hub.Publish("k", 2)
	hub.Publish("k", 3)

	assert.Equal(t, 3, receive(t, sub))
	select {
	case v := <-sub.C():
		t.Fatalf("unexpected extra snapshot %d", v)
	default:
	}
}

func TestHub_CancelIsIdempotentAndDetaches(t *testing.T) {
	hub := livequery.NewHub[string, int]()
	sub := hub.Subscribe(context.Background(), "k")
	require.Equal(t, 1, hub.Subscribers("k"))

	sub.Cancel()
	sub.Cancel()

	assert.Equal(t, 0, hub.Subscribers("k"))
	assert.Equal(t, 0, hub.Publish("k", 42))

	_, ok := <-sub.C()
	assert.False(t, ok, "channel should be closed after cancel")
	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after cancel")
	}
}

func TestHub_ContextCancellationCancelsSubscription(t *testing.T) {
	hub := livequery.NewHub[string, int]()
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, "k")

	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not cancelled with its context")
	}
	assert.Equal(t, 0, hub.Subscribers("k"))
}

func TestHub_ConcurrentPublishAndCancel(t *testing.T) {
	hub := livequery.NewHub[string, int]()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		sub := hub.Subscribe(context.Background(), "k")
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish("k", j)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Subscribers("k"))
}

func TestSubscription_SendTargetsOneSubscriber(t *testing.T) {
	hub := livequery.NewHub[string, string]()
	ctx := context.Background()

	first := hub.Subscribe(ctx, "k")
	defer first.Cancel()
	second := hub.Subscribe(ctx, "k")

	require.True(t, first.Send("initial"))
	assert.Equal(t, "initial", receive(t, first))
	select {
	case v := <-second.C():
		t.Fatalf("second received %q", v)
	default:
	}

	second.Cancel()
	assert.False(t, second.Send("late"))
}
