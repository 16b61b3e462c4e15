package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

type recordingNotifier struct {
	mu        sync.Mutex
	decisions []*domain.Decision
	notified  chan struct{}
}

func (n *recordingNotifier) NotifyDecision(_ context.Context, d *domain.Decision) error {
	n.mu.Lock()
	n.decisions = append(n.decisions, d)
	n.mu.Unlock()
	select {
	case n.notified <- struct{}{}:
	default:
	}
	return nil
}

func TestRunner_RunOnceNotifies(t *testing.T) {
	h := newHarness(t, testConfig())
	h.setMarket(candidate("solana", 5, 100))
	n := &recordingNotifier{notified: make(chan struct{}, 1)}

	d, err := NewRunner(h.eng, n, time.Minute).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTradeActive, d.Status)
	require.Len(t, n.decisions, 1)
	assert.Same(t, d, n.decisions[0])
}

func TestRunner_RunOnceOffline(t *testing.T) {
	h := newHarness(t, testConfig())
	n := &recordingNotifier{notified: make(chan struct{}, 1)}

	_, err := NewRunner(h.eng, n, time.Minute).RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSystemOffline)
	assert.Empty(t, n.decisions)
}

func TestRunner_RunLoopsUntilCancelled(t *testing.T) {
	h := newHarness(t, testConfig())
	h.setMarket()
	n := &recordingNotifier{notified: make(chan struct{}, 8)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRunner(h.eng, n, 10*time.Millisecond).Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-n.notified:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d invocations before timeout", i)
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, d := range n.decisions {
		assert.Equal(t, domain.StatusWaiting, d.Status)
	}
}
