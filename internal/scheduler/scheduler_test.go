package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
)

func TestSpecFiresAtCutoverHour(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	require.Equal(t, "0 3 * * *", Spec(3))

	schedule, err := cron.ParseStandard(Spec(3))
	require.NoError(t, err)

	from := time.Date(2024, time.March, 11, 2, 59, 59, 0, seoul)
	require.Equal(t, time.Date(2024, time.March, 11, 3, 0, 0, 0, seoul), schedule.Next(from))

	from = time.Date(2024, time.March, 11, 3, 0, 0, 0, seoul)
	require.Equal(t, time.Date(2024, time.March, 12, 3, 0, 0, 0, seoul), schedule.Next(from))
}

func TestNextUsesZone(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	logger := slogtest.Make(t, nil)

	s, err := New(3, seoul, func(context.Context) error { return nil }, logger)
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	next := s.Next().In(seoul)
	require.Equal(t, 3, next.Hour())
	require.Zero(t, next.Minute())
	require.True(t, next.After(time.Now()))
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	logger := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	s, err := New(3, time.UTC, func(context.Context) error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	}, logger)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.job.Run()
		close(done)
	}()
	<-started

	// Returns at once because the first run still holds the slot
	s.job.Run()
	require.EqualValues(t, 1, calls.Load())

	close(release)
	<-done
	s.job.Run()
	require.EqualValues(t, 2, calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}
