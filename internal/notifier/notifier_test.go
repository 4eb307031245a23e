package notifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highnoon/pkg/logx"
)

type fakeSender struct {
	batches [][]string
	texts   []string
	failOn  int // 1-based call index to fail, 0 = never
	calls   int
}

func (f *fakeSender) Multicast(ctx context.Context, to []string, texts ...string) error {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), to...))
	f.texts = texts
	if f.failOn == f.calls {
		return fmt.Errorf("call %d failed", f.calls)
	}
	return nil
}

func recipients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("U%04d", i)
	}
	return out
}

func TestPushChunksAtPlatformLimit(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	// High rate so the limiter never delays the test.
	s := New(Config{RatePerSec: 1000}, sender, logx.Nop())

	err := s.Push(context.Background(), recipients(1201), []string{"question text"})
	require.NoError(t, err)

	require.Len(t, sender.batches, 3)
	assert.Len(t, sender.batches[0], 500)
	assert.Len(t, sender.batches[1], 500)
	assert.Len(t, sender.batches[2], 201)
	assert.Equal(t, []string{"question text"}, sender.texts)

	// No overlap or loss across chunks.
	seen := map[string]bool{}
	for _, b := range sender.batches {
		for _, id := range b {
			assert.False(t, seen[id], "recipient %s delivered twice", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 1201)
}

func TestPushCustomBatchSize(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := New(Config{RatePerSec: 1000, BatchSize: 2}, sender, logx.Nop())

	require.NoError(t, s.Push(context.Background(), recipients(5), []string{"m"}))
	require.Len(t, sender.batches, 3)
}

func TestPushContinuesPastFailedBatch(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{failOn: 1}
	s := New(Config{RatePerSec: 1000, BatchSize: 2}, sender, logx.Nop())

	err := s.Push(context.Background(), recipients(4), []string{"m"})
	require.Error(t, err)
	// Second batch still went out.
	assert.Equal(t, 2, sender.calls)
}

func TestPushNoRecipientsIsNoop(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := New(Config{RatePerSec: 1000}, sender, logx.Nop())

	require.NoError(t, s.Push(context.Background(), nil, []string{"m"}))
	require.NoError(t, s.Push(context.Background(), recipients(3), nil))
	assert.Zero(t, sender.calls)
}

func TestPushHonorsContextCancellation(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	// 1/s with burst 1: the second chunk must wait, which the cancelled
	// context cuts short.
	s := New(Config{RatePerSec: 1, BatchSize: 1}, sender, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Push(ctx, recipients(2), []string{"m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || sender.calls < 2)
}
