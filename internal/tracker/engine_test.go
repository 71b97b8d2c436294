package tracker

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/window"
)

// base is not on a minute boundary; the next one is base+39s.
const base = int64(1700000001)

type memStore struct {
	mu      sync.Mutex
	docs    usage.Document
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{docs: make(usage.Document)}
}

func (m *memStore) Load(date string) usage.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.docs[date]; ok {
		return c.Clone()
	}
	return make(usage.Counter)
}

func (m *memStore) Save(date string, c usage.Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[date] = c.Clone()
	return nil
}

func (m *memStore) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memStore) day(date string) usage.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[date].Clone()
}

type sessionLog struct {
	mu       sync.Mutex
	sessions []Session
}

func (l *sessionLog) RecordSession(s Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = append(l.sessions, s)
	return nil
}

type errorLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *errorLog) RecordError(component string, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, component+": "+err.Error())
	return nil
}

func staticProbe(title string) window.Probe {
	return window.ProbeFunc(func(context.Context) (string, error) { return title, nil })
}

func newTestEngine(t *testing.T, start int64, store Store, probe window.Probe, opts ...Option) (*Engine, *TestClock) {
	t.Helper()
	clock := &TestClock{CurrentTime: time.Unix(start, 0)}
	opts = append([]Option{WithClock(clock)}, opts...)
	e := NewEngine(store, probe, Config{
		PollInterval:  time.Second,
		FlushInterval: time.Minute,
		ProbeTimeout:  100 * time.Millisecond,
	}, zerolog.Nop(), opts...)
	return e, clock
}

func at(sec int64) time.Time {
	return time.Unix(base+sec, 0)
}

func assertCounter(t *testing.T, got, want usage.Counter) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("counter = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("counter[%q] = %d, want %d (full: %v)", k, got[k], v, got)
		}
	}
}

func TestEngineScenarios(t *testing.T) {
	type step struct {
		op    string // "tick", "pause", "resume"
		title string
		sec   int64
	}

	tests := []struct {
		name  string
		probe string
		steps []step
		want  usage.Counter
	}{
		{
			name: "single transition",
			steps: []step{
				{"tick", "A", 0},
				{"tick", "A", 5},
				{"tick", "B", 5},
				{"tick", "B", 10},
				{"pause", "", 10},
			},
			want: usage.Counter{"A": 5, "B": 5},
		},
		{
			name:  "pause and resume",
			probe: "A",
			steps: []step{
				{"tick", "A", 0},
				{"pause", "", 3},
				{"tick", "A", 5},
				{"resume", "", 8},
				{"pause", "", 10},
			},
			want: usage.Counter{"A": 5},
		},
		{
			name: "double pause credits once",
			steps: []step{
				{"tick", "A", 0},
				{"pause", "", 4},
				{"pause", "", 9},
			},
			want: usage.Counter{"A": 4},
		},
		{
			name: "no window is never credited",
			steps: []step{
				{"tick", "", 0},
				{"tick", "A", 3},
				{"tick", "", 7},
				{"pause", "", 10},
			},
			want: usage.Counter{"A": 4},
		},
		{
			name: "same title does not close the session",
			steps: []step{
				{"tick", "A", 0},
				{"tick", "A", 1},
				{"tick", "A", 2},
				{"pause", "", 9},
			},
			want: usage.Counter{"A": 9},
		},
		{
			name: "sub-second session credits nothing",
			steps: []step{
				{"tick", "A", 0},
				{"tick", "B", 0},
				{"pause", "", 2},
			},
			want: usage.Counter{"B": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			e, clock := newTestEngine(t, base, store, staticProbe(tt.probe))

			for _, s := range tt.steps {
				clock.Set(at(s.sec))
				switch s.op {
				case "tick":
					if err := e.Tick(s.title, at(s.sec)); err != nil {
						t.Fatalf("Tick(%q, %d) error = %v", s.title, s.sec, err)
					}
				case "pause":
					if err := e.Pause(); err != nil {
						t.Fatalf("Pause() error = %v", err)
					}
				case "resume":
					e.Resume(context.Background())
				}
			}

			assertCounter(t, e.Snapshot(), tt.want)
			assertCounter(t, store.day(e.Today()), tt.want)
		})
	}
}

func TestTickIgnoredWhilePaused(t *testing.T) {
	e, clock := newTestEngine(t, base, newMemStore(), staticProbe(""))

	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	clock.Set(at(5))
	if err := e.Tick("A", at(5)); err != nil {
		t.Fatal(err)
	}

	st := e.Status()
	if st.State != Paused {
		t.Errorf("State = %v, want paused", st.State)
	}
	if st.Current != "" {
		t.Errorf("Current = %q, want empty", st.Current)
	}
	if len(e.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty", e.Snapshot())
	}
}

func TestResumeWhileActiveIsNoop(t *testing.T) {
	e, clock := newTestEngine(t, base, newMemStore(), staticProbe("B"))

	_ = e.Tick("A", at(0))
	clock.Set(at(4))
	e.Resume(context.Background())

	st := e.Status()
	if st.Current != "A" {
		t.Errorf("Current = %q, want A", st.Current)
	}
	if !st.Since.Equal(at(0)) {
		t.Errorf("Since = %v, want %v", st.Since, at(0))
	}
}

func TestFlushIncludesOpenSession(t *testing.T) {
	// minute boundary sits at +60s
	start := int64(1699999980)
	store := newMemStore()
	e, clock := newTestEngine(t, start, store, staticProbe(""))

	at := func(sec int64) time.Time { return time.Unix(start+sec, 0) }

	clock.Set(at(55))
	if err := e.Tick("Editor", at(55)); err != nil {
		t.Fatal(err)
	}
	if n := store.saveCount(); n != 0 {
		t.Fatalf("saves = %d before the boundary, want 0", n)
	}

	clock.Set(at(60))
	if err := e.Tick("Editor", at(60)); err != nil {
		t.Fatal(err)
	}
	assertCounter(t, store.day(e.Today()), usage.Counter{"Editor": 5})

	// the checkpoint must not double count when the session later closes
	clock.Set(at(70))
	if err := e.Tick("Browser", at(70)); err != nil {
		t.Fatal(err)
	}
	assertCounter(t, e.Snapshot(), usage.Counter{"Editor": 15})
}

func TestFlushFailureIsRetried(t *testing.T) {
	start := int64(1699999980)
	store := newMemStore()
	e, clock := newTestEngine(t, start, store, staticProbe(""))
	at := func(sec int64) time.Time { return time.Unix(start+sec, 0) }

	store.setErr(errors.New("disk full"))

	clock.Set(at(30))
	_ = e.Tick("A", at(30))
	clock.Set(at(60))
	if err := e.Tick("A", at(60)); err == nil {
		t.Fatal("Tick() at boundary with failing store returned nil error")
	}

	// ticking continues after a failed flush
	clock.Set(at(61))
	if err := e.Tick("B", at(61)); err != nil {
		t.Fatalf("Tick() after failed flush error = %v", err)
	}

	store.setErr(nil)
	clock.Set(at(120))
	if err := e.Tick("B", at(120)); err != nil {
		t.Fatalf("Tick() at next boundary error = %v", err)
	}
	assertCounter(t, store.day(e.Today()), usage.Counter{"A": 31, "B": 59})
}

func TestPauseReturnsFlushError(t *testing.T) {
	store := newMemStore()
	e, clock := newTestEngine(t, base, store, staticProbe(""))

	_ = e.Tick("A", at(0))
	store.setErr(errors.New("read-only file system"))
	clock.Set(at(3))

	if err := e.Pause(); err == nil {
		t.Fatal("Pause() error = nil, want flush error")
	}
	if e.Status().State != Paused {
		t.Error("engine should be paused even when the flush failed")
	}
	assertCounter(t, e.Snapshot(), usage.Counter{"A": 3})
}

func TestFlushManual(t *testing.T) {
	store := newMemStore()
	e, clock := newTestEngine(t, base, store, staticProbe(""))

	_ = e.Tick("A", at(0))
	clock.Set(at(7))
	if err := e.Flush(); err != nil {
		t.Fatal(err)
	}
	assertCounter(t, store.day(e.Today()), usage.Counter{"A": 7})

	// open session continues from the checkpoint
	clock.Set(at(9))
	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	assertCounter(t, e.Snapshot(), usage.Counter{"A": 9})
}

func TestNewEngineLoadsExistingDay(t *testing.T) {
	store := newMemStore()
	today := usage.DateKey(time.Unix(base, 0))
	store.docs[today] = usage.Counter{"A": 100}
	store.docs["1999-01-01"] = usage.Counter{"Old": 7}

	e, clock := newTestEngine(t, base, store, staticProbe(""))
	_ = e.Tick("A", at(0))
	clock.Set(at(10))
	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}

	assertCounter(t, store.day(today), usage.Counter{"A": 110})
	assertCounter(t, store.day("1999-01-01"), usage.Counter{"Old": 7})
}

func TestStatus(t *testing.T) {
	e, clock := newTestEngine(t, base, newMemStore(), staticProbe(""))

	if got := e.Status().Line(); got != "Currently tracking: None" {
		t.Errorf("Line() = %q", got)
	}

	_ = e.Tick("Terminal", at(0))
	clock.Set(at(12))

	st := e.Status()
	if st.Line() != "Currently tracking: Terminal" {
		t.Errorf("Line() = %q", st.Line())
	}
	if st.LiveSeconds != 12 {
		t.Errorf("LiveSeconds = %d, want 12", st.LiveSeconds)
	}
	if len(e.Snapshot()) != 0 {
		t.Errorf("Snapshot() includes the open session: %v", e.Snapshot())
	}

	_ = e.Pause()
	if got := e.Status().Line(); got != "Paused (last: Terminal)" {
		t.Errorf("Line() = %q", got)
	}
}

func TestSessionRecorder(t *testing.T) {
	rec := &sessionLog{}
	e, clock := newTestEngine(t, base, newMemStore(), staticProbe(""), WithSessionRecorder(rec))

	_ = e.Tick("", at(0))
	_ = e.Tick("A", at(2))
	_ = e.Tick("B", at(6))
	clock.Set(at(9))
	_ = e.Pause()

	if len(rec.sessions) != 2 {
		t.Fatalf("recorded %d sessions, want 2: %+v", len(rec.sessions), rec.sessions)
	}
	a, b := rec.sessions[0], rec.sessions[1]
	if a.Application != "A" || a.Seconds != 4 || !a.Start.Equal(at(2)) || !a.End.Equal(at(6)) {
		t.Errorf("first session = %+v", a)
	}
	if b.Application != "B" || b.Seconds != 3 {
		t.Errorf("second session = %+v", b)
	}
	if a.RunID == "" || a.RunID != b.RunID {
		t.Errorf("run ids = %q, %q", a.RunID, b.RunID)
	}
}

func TestProbeErrorReadsAsNoWindow(t *testing.T) {
	errs := &errorLog{}
	failing := window.ProbeFunc(func(context.Context) (string, error) {
		return "ignored", errors.New("cannot open display")
	})
	e, _ := newTestEngine(t, base, newMemStore(), failing, WithErrorRecorder(errs))

	for i := 0; i < 3; i++ {
		if got := e.sample(context.Background()); got != window.NoWindow {
			t.Errorf("sample() = %q, want no window", got)
		}
	}

	if len(errs.entries) != 1 {
		t.Errorf("error log has %d entries, want 1 (repeats are suppressed): %v", len(errs.entries), errs.entries)
	}
}

func TestProbeTimeout(t *testing.T) {
	stalled := window.ProbeFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "late", ctx.Err()
	})
	e, _ := newTestEngine(t, base, newMemStore(), stalled)

	start := time.Now()
	if got := e.sample(context.Background()); got != window.NoWindow {
		t.Errorf("sample() = %q, want no window", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("sample() took %v, probe timeout not applied", elapsed)
	}
}

func TestDayKeyFixedByDefault(t *testing.T) {
	evening := time.Date(2024, 3, 1, 23, 59, 50, 0, time.Local)
	store := newMemStore()
	e, clock := newTestEngine(t, evening.Unix(), store, staticProbe(""))

	_ = e.Tick("A", evening)
	next := evening.Add(20 * time.Second)
	clock.Set(next)
	_ = e.Tick("A", next)
	_ = e.Pause()

	if e.Today() != "2024-03-01" {
		t.Errorf("Today() = %q, want 2024-03-01", e.Today())
	}
	assertCounter(t, store.day("2024-03-01"), usage.Counter{"A": 20})
}

func TestRolloverAtMidnight(t *testing.T) {
	evening := time.Date(2024, 3, 1, 23, 59, 50, 0, time.Local)
	store := newMemStore()
	store.docs["2024-03-02"] = usage.Counter{"B": 1}

	clock := &TestClock{CurrentTime: evening}
	e := NewEngine(store, staticProbe(""), Config{
		PollInterval:       time.Second,
		FlushInterval:      time.Minute,
		ProbeTimeout:       100 * time.Millisecond,
		RolloverAtMidnight: true,
	}, zerolog.Nop(), WithClock(clock))

	_ = e.Tick("A", evening)
	next := evening.Add(20 * time.Second)
	clock.Set(next)
	if err := e.Tick("A", next); err != nil {
		t.Fatal(err)
	}

	if e.Today() != "2024-03-02" {
		t.Fatalf("Today() = %q, want 2024-03-02", e.Today())
	}
	assertCounter(t, store.day("2024-03-01"), usage.Counter{"A": 10})

	_ = e.Pause()
	assertCounter(t, store.day("2024-03-02"), usage.Counter{"A": 10, "B": 1})
}

func TestRolloverRetriesFailedDay(t *testing.T) {
	evening := time.Date(2024, 3, 1, 23, 59, 50, 0, time.Local)
	store := newMemStore()

	clock := &TestClock{CurrentTime: evening}
	e := NewEngine(store, staticProbe(""), Config{
		PollInterval:       time.Second,
		FlushInterval:      time.Minute,
		ProbeTimeout:       100 * time.Millisecond,
		RolloverAtMidnight: true,
	}, zerolog.Nop(), WithClock(clock))

	_ = e.Tick("A", evening)

	store.setErr(errors.New("disk full"))
	now := evening.Add(20 * time.Second)
	clock.Set(now)
	err := e.Tick("A", now)
	if err == nil {
		t.Fatal("rollover tick should report the failed save")
	}
	for _, date := range []string{"2024-03-01", "2024-03-02"} {
		if !strings.Contains(err.Error(), date) {
			t.Errorf("error %q does not name %s", err, date)
		}
	}
	store.setErr(nil)

	// crosses the 00:01:00 flush boundary
	for i := 0; i < 70; i++ {
		now = now.Add(time.Second)
		clock.Set(now)
		if err := e.Tick("A", now); err != nil {
			t.Fatalf("tick at %s: %v", now.Format(time.TimeOnly), err)
		}
	}
	_ = e.Pause()

	assertCounter(t, store.day("2024-03-01"), usage.Counter{"A": 10})
	assertCounter(t, store.day("2024-03-02"), usage.Counter{"A": 80})
}

func TestLiveIncludesOpenSession(t *testing.T) {
	e, clock := newTestEngine(t, base, newMemStore(), staticProbe(""))

	_ = e.Tick("Editor", at(0))
	clock.Set(at(5))
	_ = e.Tick("Browser", at(5))
	clock.Set(at(30))

	assertCounter(t, e.Live(), usage.Counter{"Editor": 5, "Browser": 25})
	assertCounter(t, e.Snapshot(), usage.Counter{"Editor": 5})

	_ = e.Pause()
	clock.Set(at(90))
	assertCounter(t, e.Live(), usage.Counter{"Editor": 5, "Browser": 25})
}

func TestTruncationTolerance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	titles := []string{"A", "B", "C"}

	start := time.Unix(base, 0)
	e, clock := newTestEngine(t, base, newMemStore(), staticProbe(""))

	now := start
	transitions := 0
	current := ""
	for i := 0; i < 500; i++ {
		title := titles[rng.Intn(len(titles))]
		if title != current {
			transitions++
			current = title
		}
		clock.Set(now)
		_ = e.Tick(title, now)
		now = now.Add(time.Duration(rng.Int63n(int64(3 * time.Second))))
	}
	clock.Set(now)
	_ = e.Pause()

	active := int64(now.Sub(start) / time.Second)
	total := e.Snapshot().Total()
	if total > active {
		t.Errorf("credited %d s exceeds active time %d s", total, active)
	}
	if total < active-int64(transitions) {
		t.Errorf("credited %d s, active %d s, transitions %d: under-count too large", total, active, transitions)
	}
}

func TestRunAndShutdown(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store, staticProbe("Editor"), Config{
		PollInterval:  10 * time.Millisecond,
		FlushInterval: time.Minute,
		ProbeTimeout:  5 * time.Millisecond,
	}, zerolog.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for e.Status().Current != "Editor" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !e.IsRunning() {
		t.Error("IsRunning() = false while the loop runs")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if e.IsRunning() {
		t.Error("IsRunning() = true after Shutdown")
	}
	if store.saveCount() == 0 {
		t.Error("Shutdown did not flush")
	}

	// idempotent
	if err := e.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if err := e.Run(context.Background()); err == nil {
		t.Error("Run() after Shutdown should fail")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e := NewEngine(newMemStore(), staticProbe("A"), Config{PollInterval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
