package costs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackfill_AllFail(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	calls := 0

	series := Backfill(context.Background(), now, 4, NewPacer(0), discardLogger(),
		func(_ context.Context, _ MonthSpan) (float64, error) {
			calls++
			return 0, errors.New("api down")
		})

	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if len(series.Points) != 4 {
		t.Fatalf("len = %d, want 4", len(series.Points))
	}
	if !series.Faulted {
		t.Error("expected faulted series")
	}
	for _, p := range series.Points {
		if p.Cost != 0 {
			t.Errorf("%s cost = %v, want 0", p.Key, p.Cost)
		}
	}
}

func TestBackfill_PartialFailureIsolated(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	series := Backfill(context.Background(), now, 3, NewPacer(0), discardLogger(),
		func(_ context.Context, span MonthSpan) (float64, error) {
			if span.Key() == "2025-02" {
				return 0, errors.New("timeout")
			}
			return 7, nil
		})

	want := []MonthlyCost{
		{Key: "2025-01", Month: "Jan", Cost: 7},
		{Key: "2025-02", Month: "Feb", Cost: 0},
		{Key: "2025-03", Month: "Mar", Cost: 7},
	}
	for i, w := range want {
		if series.Points[i] != w {
			t.Errorf("point[%d] = %+v, want %+v", i, series.Points[i], w)
		}
	}
	if !series.Faulted {
		t.Error("expected faulted series")
	}
}

func TestBackfill_PausesAfterEachFetch(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	spacing := 20 * time.Millisecond
	var starts, ends []time.Time

	// Each fetch outlasts the spacing so a start-to-start limiter would
	// let the next fetch begin immediately.
	Backfill(context.Background(), now, 3, NewPacer(spacing), discardLogger(),
		func(_ context.Context, _ MonthSpan) (float64, error) {
			starts = append(starts, time.Now())
			time.Sleep(3 * spacing / 2)
			ends = append(ends, time.Now())
			return 1, nil
		})

	if len(starts) != 3 {
		t.Fatalf("calls = %d, want 3", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(ends[i-1]); gap < spacing {
			t.Errorf("pause before fetch %d = %v, want >= %v", i, gap, spacing)
		}
	}
}

func TestBackfill_NoPauseBeforeFirstFetch(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	begin := time.Now()
	var first time.Duration

	Backfill(context.Background(), now, 1, NewPacer(time.Hour), discardLogger(),
		func(_ context.Context, _ MonthSpan) (float64, error) {
			first = time.Since(begin)
			return 1, nil
		})

	if first > time.Second {
		t.Errorf("first fetch started after %v", first)
	}
}

func TestBackfill_CancelledContext(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	series := Backfill(ctx, now, 2, NewPacer(time.Hour), discardLogger(),
		func(_ context.Context, _ MonthSpan) (float64, error) {
			t.Fatal("fetch should not be called")
			return 1, nil
		})

	if len(series.Points) != 2 {
		t.Fatalf("len = %d, want 2", len(series.Points))
	}
	if !series.Faulted {
		t.Error("expected faulted series")
	}
}

func TestBackfill_CancelledDuringPause(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	series := Backfill(ctx, now, 3, NewPacer(time.Hour), discardLogger(),
		func(_ context.Context, _ MonthSpan) (float64, error) {
			cancel()
			return 4, nil
		})

	want := []float64{4, 0, 0}
	for i, w := range want {
		if series.Points[i].Cost != w {
			t.Errorf("point[%d] cost = %v, want %v", i, series.Points[i].Cost, w)
		}
	}
	if !series.Faulted {
		t.Error("expected faulted series")
	}
}

func TestPacer_Pause(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		if err := NewPacer(0).Pause(context.Background()); err != nil {
			t.Errorf("Pause() = %v", err)
		}
	})

	t.Run("waits", func(t *testing.T) {
		begin := time.Now()
		if err := NewPacer(10 * time.Millisecond).Pause(context.Background()); err != nil {
			t.Fatal(err)
		}
		if d := time.Since(begin); d < 10*time.Millisecond {
			t.Errorf("paused %v, want >= 10ms", d)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewPacer(time.Hour).Pause(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Pause() = %v, want context.Canceled", err)
		}
	})
}

func TestBackfill_NonPositive(t *testing.T) {
	series := Backfill(context.Background(), time.Now(), -1, NewPacer(0), discardLogger(),
		func(_ context.Context, _ MonthSpan) (float64, error) {
			t.Fatal("fetch should not be called")
			return 0, nil
		})
	if len(series.Points) != 0 || series.Faulted {
		t.Errorf("series = %+v, want empty", series)
	}
}
