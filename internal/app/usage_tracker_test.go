package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/mocks"
)

func TestNewUsageTracker_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewUsageTracker(UsageTrackerConfig{}) })
}

func TestNewUsageTracker_Defaults(t *testing.T) {
	tracker := NewUsageTracker(UsageTrackerConfig{Store: mocks.NewMockQuoteStore(t)})

	assert.Equal(t, DefaultTrackingTimeout, tracker.timeout)
	assert.Equal(t, DefaultTrackingConcurrency, tracker.concurrency)
	assert.NotNil(t, tracker.now)
	assert.NotNil(t, tracker.logger)
}

func TestUsageTracker_Track_RecordsEveryQuote(t *testing.T) {
	store := mocks.NewMockQuoteStore(t)
	usedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	for _, id := range []string{"q-1", "q-2", "q-3"} {
		store.EXPECT().RecordUsage(mock.Anything, id, usedAt).Return(nil).Once()
	}

	tracker := NewUsageTracker(UsageTrackerConfig{
		Store:  store,
		Logger: discardLogger(),
		Now:    func() time.Time { return usedAt },
	})

	tracker.Track(context.Background(), []domain.Quote{{ID: "q-1"}, {ID: "q-2"}, {ID: "q-3"}})

	require.NoError(t, tracker.Shutdown(context.Background()))
}

func TestUsageTracker_Track_OutlivesRequestContext(t *testing.T) {
	store := mocks.NewMockQuoteStore(t)
	store.EXPECT().RecordUsage(mock.Anything, "q-1", mock.Anything).
		RunAndReturn(func(ctx context.Context, _ string, _ time.Time) error {
			return ctx.Err()
		}).Once()

	tracker := NewUsageTracker(UsageTrackerConfig{Store: store, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker.Track(ctx, []domain.Quote{{ID: "q-1"}})

	require.NoError(t, tracker.Shutdown(context.Background()))
}

func TestUsageTracker_Record_CountsFailuresIndependently(t *testing.T) {
	store := mocks.NewMockQuoteStore(t)
	store.EXPECT().RecordUsage(mock.Anything, "q-1", mock.Anything).Return(nil).Once()
	store.EXPECT().RecordUsage(mock.Anything, "q-2", mock.Anything).
		Return(domain.NewNotFoundError("quote", "q-2")).Once()
	store.EXPECT().RecordUsage(mock.Anything, "q-3", mock.Anything).Return(errors.New("timeout")).Once()

	tracker := NewUsageTracker(UsageTrackerConfig{Store: store, Logger: discardLogger(), Concurrency: 1})

	failed := tracker.record(context.Background(), discardLogger(), []string{"q-1", "q-2", "q-3"})

	assert.Equal(t, 2, failed)
}

func TestUsageTracker_Record_AppliesTimeout(t *testing.T) {
	store := mocks.NewMockQuoteStore(t)
	store.EXPECT().RecordUsage(mock.Anything, "q-1", mock.Anything).
		RunAndReturn(func(ctx context.Context, _ string, _ time.Time) error {
			<-ctx.Done()
			return ctx.Err()
		}).Once()

	tracker := NewUsageTracker(UsageTrackerConfig{Store: store, Logger: discardLogger(), Timeout: 10 * time.Millisecond})

	assert.Equal(t, 1, tracker.record(context.Background(), discardLogger(), []string{"q-1"}))
}

func TestUsageTracker_Track_EmptyIsNoop(t *testing.T) {
	tracker := NewUsageTracker(UsageTrackerConfig{Store: mocks.NewMockQuoteStore(t), Logger: discardLogger()})

	tracker.Track(context.Background(), nil)

	require.NoError(t, tracker.Shutdown(context.Background()))
}

func TestUsageTracker_Shutdown(t *testing.T) {
	t.Run("drops work after shutdown", func(t *testing.T) {
		tracker := NewUsageTracker(UsageTrackerConfig{Store: mocks.NewMockQuoteStore(t), Logger: discardLogger()})

		require.NoError(t, tracker.Shutdown(context.Background()))

		// The mock has no expectations, so any store call would fail the test.
		tracker.Track(context.Background(), []domain.Quote{{ID: "q-1"}})
	})

	t.Run("second call errors", func(t *testing.T) {
		tracker := NewUsageTracker(UsageTrackerConfig{Store: mocks.NewMockQuoteStore(t), Logger: discardLogger()})

		require.NoError(t, tracker.Shutdown(context.Background()))
		assert.ErrorIs(t, tracker.Shutdown(context.Background()), ErrTrackerClosed)
	})

	t.Run("gives up when context ends", func(t *testing.T) {
		release := make(chan struct{})
		var calls atomic.Int32

		store := mocks.NewMockQuoteStore(t)
		store.EXPECT().RecordUsage(mock.Anything, "q-1", mock.Anything).
			RunAndReturn(func(context.Context, string, time.Time) error {
				calls.Add(1)
				<-release
				return nil
			}).Once()

		tracker := NewUsageTracker(UsageTrackerConfig{Store: store, Logger: discardLogger(), Timeout: time.Minute})
		tracker.Track(context.Background(), []domain.Quote{{ID: "q-1"}})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := tracker.Shutdown(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		tracker.wg.Wait()
		assert.Equal(t, int32(1), calls.Load())
	})
}
