package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestWindowStart(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 26, 500, time.UTC)

	minute := WindowStart(PeriodMinute, at)
	if want := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC); !minute.Equal(want) {
		t.Fatalf("minute window = %v, want %v", minute, want)
	}

	day := WindowStart(PeriodDay, at)
	if want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC); !day.Equal(want) {
		t.Fatalf("day window = %v, want %v", day, want)
	}

	// Local zones must not leak into window boundaries.
	offset := at.In(time.FixedZone("X", -7*3600))
	if got := WindowStart(PeriodDay, offset); !got.Equal(day) {
		t.Fatalf("day window not timezone independent: %v vs %v", got, day)
	}
}

func TestLimiter_minIntervalSpacing(t *testing.T) {
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	l := New("test", 100*time.Millisecond, nil, NewMemoryQuotaStore(), WithClock(clock))
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// A second immediate acquire must wait out the interval; give it a
	// cancelled context so the wait surfaces instead of sleeping.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Acquire(cancelled); err == nil {
		t.Fatal("expected context error while waiting for interval")
	}

	advance(150 * time.Millisecond)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire after interval: %v", err)
	}
}

func TestLimiter_quotaFailFast(t *testing.T) {
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	l := New("test", 0, []Quota{{Period: PeriodDay, Limit: 2}}, NewMemoryQuotaStore(), WithClock(clock))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("expected quota exhaustion")
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("error = %v, want ErrQuotaExceeded", err)
	}

	used, err := l.Usage(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if used != 2 {
		t.Fatalf("usage = %d, want 2 (refused acquire must not count)", used)
	}
}

func TestLimiter_quotaResetsNextWindow(t *testing.T) {
	now := time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	l := New("test", 0, []Quota{{Period: PeriodDay, Limit: 1}}, NewMemoryQuotaStore(), WithClock(clock))
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Acquire(ctx); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("error = %v, want ErrQuotaExceeded", err)
	}

	// Cross midnight UTC: the counter belongs to a new window.
	now = now.Add(2 * time.Minute)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire in new window: %v", err)
	}
}

func TestLimiter_perMinuteQuota(t *testing.T) {
	now := time.Date(2025, 1, 2, 9, 0, 30, 0, time.UTC)
	clock := func() time.Time { return now }

	l := New("test", 0, []Quota{{Period: PeriodMinute, Limit: 1}}, NewMemoryQuotaStore(), WithClock(clock))
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Acquire(ctx); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("error = %v, want ErrQuotaExceeded", err)
	}

	now = now.Add(time.Minute)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire next minute: %v", err)
	}
}

func TestLimiter_concurrentAcquireSpacing(t *testing.T) {
	const interval = 20 * time.Millisecond
	const callers = 8

	l := New("test", interval, nil, nil)
	grants := make([]time.Time, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("acquire %d: %v", i, err)
				return
			}
			grants[i] = time.Now()
		}(i)
	}
	wg.Wait()

	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i := 1; i < len(grants); i++ {
		if gap := grants[i].Sub(grants[i-1]); gap < interval {
			t.Fatalf("grants %d and %d only %v apart, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestLimiter_cancelledWaitConsumesNoQuota(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	l := New("test", 200*time.Millisecond, []Quota{{Period: PeriodDay, Limit: 5}}, NewMemoryQuotaStore(), WithClock(clock))
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// The second caller gives up mid-wait; no network call is ever made,
	// so its quota unit must not be spent.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded while waiting", err)
	}

	used, err := l.Usage(ctx, PeriodDay)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if used != 1 {
		t.Fatalf("usage = %d, want 1 (abandoned wait must not count)", used)
	}
}

func TestMemoryQuotaStore_prunesClosedWindows(t *testing.T) {
	s := NewMemoryQuotaStore()
	ctx := context.Background()
	day1 := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	if err := s.Increment(ctx, "alphavantage", PeriodDay, day1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := s.Increment(ctx, "finnhub", PeriodMinute, day1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := s.Increment(ctx, "alphavantage", PeriodDay, day2); err != nil {
		t.Fatalf("increment: %v", err)
	}

	if used, _ := s.Usage(ctx, "alphavantage", PeriodDay, day1); used != 0 {
		t.Fatalf("closed window usage = %d, want 0 after pruning", used)
	}
	if used, _ := s.Usage(ctx, "alphavantage", PeriodDay, day2); used != 1 {
		t.Fatalf("current window usage = %d, want 1", used)
	}
	// Other providers' counters are untouched.
	if used, _ := s.Usage(ctx, "finnhub", PeriodMinute, day1); used != 1 {
		t.Fatalf("unrelated counter = %d, want 1", used)
	}

	s.mu.Lock()
	size := len(s.counts)
	s.mu.Unlock()
	if size != 2 {
		t.Fatalf("store holds %d counters, want 2", size)
	}
}
