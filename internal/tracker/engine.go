package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/focuslog/focuslog/internal/metrics"
	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/window"
)

const (
	DefaultPollInterval  = time.Second
	DefaultFlushInterval = time.Minute
	DefaultProbeTimeout  = 500 * time.Millisecond
)

// State is the tracking state of the engine.
type State int

const (
	Active State = iota
	Paused
)

func (s State) String() string {
	if s == Paused {
		return "paused"
	}
	return "active"
}

// MarshalText renders the state as "active" or "paused".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Store is the persistence the engine flushes into.
type Store interface {
	Load(date string) usage.Counter
	Save(date string, c usage.Counter) error
}

// Session is a closed interval of continuous focus on one title.
type Session struct {
	RunID       string
	Date        string
	Application string
	Start       time.Time
	End         time.Time
	Seconds     int64
}

// SessionRecorder receives every closed session.
type SessionRecorder interface {
	RecordSession(s Session) error
}

// ErrorRecorder receives failures worth keeping beyond the log.
type ErrorRecorder interface {
	RecordError(component string, err error) error
}

// Config holds engine configuration
type Config struct {
	PollInterval       time.Duration
	FlushInterval      time.Duration
	ProbeTimeout       time.Duration
	RolloverAtMidnight bool
}

// Status is the presentation view of the engine.
type Status struct {
	State       State     `json:"state"`
	Current     string    `json:"current"`
	Since       time.Time `json:"since"`
	LiveSeconds int64     `json:"live_seconds"`
	Today       string    `json:"today"`
	RunID       string    `json:"run_id"`
}

// Line is the "Currently tracking" signal shown by every front end.
func (s Status) Line() string {
	current := s.Current
	if current == window.NoWindow {
		current = "None"
	}
	if s.State == Paused {
		return fmt.Sprintf("Paused (last: %s)", current)
	}
	return "Currently tracking: " + current
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSessionRecorder attaches a session history sink.
func WithSessionRecorder(r SessionRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithErrorRecorder attaches a persistent error log.
func WithErrorRecorder(r ErrorRecorder) Option {
	return func(e *Engine) { e.errors = r }
}

// Engine samples the focused window, accumulates per-title seconds for the
// current day and flushes them to a Store.
type Engine struct {
	store    Store
	probe    window.Probe
	clock    Clock
	config   Config
	logger   zerolog.Logger
	recorder SessionRecorder
	errors   ErrorRecorder
	runID    string

	// mu guards everything below
	mu           sync.Mutex
	state        State
	current      string
	sessionStart time.Time // credited up to here; zero when no session is open
	openedAt     time.Time
	credited     int64 // seconds already credited to the open session by checkpoints
	counters     usage.Counter
	today        string
	pending      map[string]usage.Counter // finished days not yet saved
	lastTick     time.Time
	lastProbeErr string
	started      bool

	// flushMu serializes saves so they never interleave or go backwards
	flushMu sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewEngine creates an engine and loads today's counter from store.
func NewEngine(store Store, probe window.Probe, config Config, logger zerolog.Logger, opts ...Option) *Engine {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}

	e := &Engine{
		store:    store,
		probe:    probe,
		clock:    RealClock{},
		config:   config,
		runID:    uuid.NewString(),
		state:    Active,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = logger.With().Str("component", "tracker").Str("run_id", e.runID).Logger()
	e.today = usage.DateKey(e.clock.Now())
	e.counters = store.Load(e.today)
	metrics.TrackingActive.Set(1)

	e.logger.Info().
		Str("date", e.today).
		Int("applications", len(e.counters)).
		Int64("seconds", e.counters.Total()).
		Msg("Loaded today's usage")

	return e
}

// Tick processes one probe reading taken at now. It is a no-op while paused.
// A focus change closes the open session before any flush reads the counters.
func (e *Engine) Tick(reading string, now time.Time) error {
	e.mu.Lock()
	if e.state != Active {
		e.mu.Unlock()
		return nil
	}

	var closed []Session
	rolled := e.config.RolloverAtMidnight && e.rolloverLocked(now)

	if reading != e.current {
		if s, ok := e.closeLocked(now); ok {
			closed = append(closed, s)
		}
		metrics.Transitions.Inc()
		e.logger.Debug().Str("from", e.current).Str("to", reading).Msg("Focus changed")
		e.openLocked(reading, now)
	}

	flush := e.crossedFlushBoundaryLocked(now)
	e.lastTick = now
	if flush {
		e.checkpointLocked(now)
	}
	e.mu.Unlock()

	e.record(closed)

	if rolled || flush {
		return e.persist()
	}
	return nil
}

// Pause closes the open session, stops crediting time and flushes.
// Pausing an already paused engine does nothing.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state == Paused {
		e.mu.Unlock()
		return nil
	}

	s, ok := e.closeLocked(e.clock.Now())
	e.state = Paused
	current := e.current
	e.mu.Unlock()

	metrics.TrackingActive.Set(0)
	e.logger.Info().Str("last", current).Msg("Tracking paused")

	if ok {
		e.record([]Session{s})
	}
	return e.persist()
}

// Resume samples the probe and opens a new session at the current time.
// Resuming an active engine does nothing.
func (e *Engine) Resume(ctx context.Context) {
	e.mu.Lock()
	paused := e.state == Paused
	e.mu.Unlock()
	if !paused {
		return
	}

	title := e.sample(ctx)

	e.mu.Lock()
	if e.state == Active {
		e.mu.Unlock()
		return
	}
	e.state = Active
	e.openLocked(title, e.clock.Now())
	e.mu.Unlock()

	metrics.TrackingActive.Set(1)
	e.logger.Info().Str("current", title).Msg("Tracking resumed")
}

// Toggle pauses an active engine or resumes a paused one.
func (e *Engine) Toggle(ctx context.Context) error {
	if e.Status().State == Active {
		return e.Pause()
	}
	e.Resume(ctx)
	return nil
}

// Flush credits the open session up to now and saves today's counter.
func (e *Engine) Flush() error {
	e.mu.Lock()
	if e.state == Active {
		e.checkpointLocked(e.clock.Now())
	}
	e.mu.Unlock()

	return e.persist()
}

// Snapshot returns a copy of today's credited totals. Time in the open
// session since its last checkpoint is not included; see Status.LiveSeconds.
func (e *Engine) Snapshot() usage.Counter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters.Clone()
}

// Live returns today's totals including the open session's time since its
// last checkpoint.
func (e *Engine) Live() usage.Counter {
	e.mu.Lock()
	defer e.mu.Unlock()

	live := e.counters.Clone()
	if !e.sessionStart.IsZero() && e.current != window.NoWindow {
		if secs := wholeSeconds(e.clock.Now().Sub(e.sessionStart)); secs > 0 {
			live.Add(e.current, secs)
		}
	}
	return live
}

// Status returns the current tracking state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		State:   e.state,
		Current: e.current,
		Since:   e.openedAt,
		Today:   e.today,
		RunID:   e.runID,
	}
	if !e.sessionStart.IsZero() {
		st.LiveSeconds = e.credited + wholeSeconds(e.clock.Now().Sub(e.sessionStart))
	}
	return st
}

// Today returns the date key the engine is writing under.
func (e *Engine) Today() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.today
}

func (e *Engine) openLocked(app string, now time.Time) {
	e.current = app
	e.sessionStart = now
	e.openedAt = now
	e.credited = 0
}

// closeLocked credits the open session up to now and clears it. The returned
// session is only meaningful (ok) for a non-empty title.
func (e *Engine) closeLocked(now time.Time) (Session, bool) {
	if e.sessionStart.IsZero() {
		return Session{}, false
	}

	secs := e.creditLocked(now)
	s := Session{
		RunID:       e.runID,
		Date:        e.today,
		Application: e.current,
		Start:       e.openedAt,
		End:         now,
		Seconds:     e.credited + secs,
	}

	e.sessionStart = time.Time{}
	e.openedAt = time.Time{}
	e.credited = 0
	return s, s.Application != window.NoWindow
}

// checkpointLocked credits the open session up to now without closing it.
// The start moves forward by whole seconds so fractions carry over.
func (e *Engine) checkpointLocked(now time.Time) {
	if e.sessionStart.IsZero() {
		return
	}
	secs := e.creditLocked(now)
	e.credited += secs
	e.sessionStart = e.sessionStart.Add(time.Duration(secs) * time.Second)
}

func (e *Engine) creditLocked(now time.Time) int64 {
	secs := wholeSeconds(now.Sub(e.sessionStart))
	if e.current != window.NoWindow && secs > 0 {
		e.counters.Add(e.current, secs)
		metrics.TrackedSeconds.Add(float64(secs))
	}
	return secs
}

// crossedFlushBoundaryLocked reports whether a multiple of the flush interval
// (on the Unix second scale) lies in (lastTick, now].
func (e *Engine) crossedFlushBoundaryLocked(now time.Time) bool {
	interval := int64(e.config.FlushInterval / time.Second)
	if interval <= 0 {
		return false
	}
	if e.lastTick.IsZero() {
		return now.Unix()%interval == 0
	}
	return now.Unix()/interval > e.lastTick.Unix()/interval
}

// rolloverLocked moves the engine to now's date when it differs from the
// current one. The open session is split at local midnight so each day gets
// its own share; the finished day's totals wait in pending until saved.
func (e *Engine) rolloverLocked(now time.Time) bool {
	key := usage.DateKey(now)
	if key == e.today {
		return false
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !e.sessionStart.IsZero() && e.sessionStart.Before(midnight) {
		e.checkpointLocked(midnight)
		e.sessionStart = midnight
	}

	if e.pending == nil {
		e.pending = make(map[string]usage.Counter)
	}
	e.pending[e.today] = e.counters
	e.logger.Info().Str("from", e.today).Str("to", key).Msg("Day rolled over")

	e.today = key
	e.counters = e.store.Load(key)
	return true
}

// sample reads the probe with the configured timeout. Failures read as
// window.NoWindow and are logged once per distinct error.
func (e *Engine) sample(ctx context.Context) string {
	pctx, cancel := context.WithTimeout(ctx, e.config.ProbeTimeout)
	defer cancel()

	title, err := window.Title(pctx, e.probe)

	e.mu.Lock()
	var msg string
	if err != nil {
		msg = err.Error()
	}
	changed := msg != e.lastProbeErr
	e.lastProbeErr = msg
	e.mu.Unlock()

	if err != nil {
		metrics.ProbeErrors.Inc()
		if changed {
			e.logger.Warn().Err(err).Str("probe", e.probe.Name()).Msg("Window probe failed, recording no focused window")
			e.reportError("probe", err)
		}
	} else if changed {
		e.logger.Info().Str("probe", e.probe.Name()).Msg("Window probe recovered")
	}
	return title
}

// persist saves any finished days still pending, then today's counter.
// A pending day stays queued until one of its saves succeeds.
func (e *Engine) persist() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	date, snapshot := e.today, e.counters.Clone()
	pending := make(map[string]usage.Counter, len(e.pending))
	for d, c := range e.pending {
		pending[d] = c.Clone()
	}
	e.mu.Unlock()

	var errs []error
	for d, c := range pending {
		if err := e.save(d, c); err != nil {
			errs = append(errs, err)
			continue
		}
		e.mu.Lock()
		delete(e.pending, d)
		e.mu.Unlock()
	}
	if err := e.save(date, snapshot); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) save(date string, c usage.Counter) error {
	start := time.Now()
	err := e.store.Save(date, c)
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FlushesTotal.WithLabelValues("error").Inc()
		e.logger.Error().Err(err).Str("date", date).Msg("Failed to flush usage")
		e.reportError("flush", err)
		return fmt.Errorf("failed to flush usage for %s: %w", date, err)
	}

	metrics.FlushesTotal.WithLabelValues("ok").Inc()
	metrics.ApplicationsToday.Set(float64(len(c)))
	e.logger.Debug().
		Str("date", date).
		Int("applications", len(c)).
		Int64("seconds", c.Total()).
		Msg("Usage flushed")
	return nil
}

func (e *Engine) record(sessions []Session) {
	if e.recorder == nil {
		return
	}
	for _, s := range sessions {
		if err := e.recorder.RecordSession(s); err != nil {
			e.logger.Warn().Err(err).Str("application", s.Application).Msg("Failed to record session")
		}
	}
}

func (e *Engine) reportError(component string, err error) {
	if e.errors == nil {
		return
	}
	if rerr := e.errors.RecordError(component, err); rerr != nil {
		e.logger.Warn().Err(rerr).Msg("Failed to store error log")
	}
}

// wholeSeconds truncates d to whole seconds; negative durations count as zero.
func wholeSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
