// Package campaign implements the Red Council campaign engine: sequential
// execution of attack templates against a single target with pause, resume,
// cancel, and durable progress snapshots.
package campaign

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sherifkozman/red-council/internal/storage"
	"github.com/sherifkozman/red-council/internal/types"
)

// TemplateResolver resolves a template identifier to its attack prompt.
// A nil template with a nil error means the identifier is unknown.
type TemplateResolver interface {
	Resolve(ctx context.Context, id string) (*ResolvedTemplate, error)
}

// Executor performs one attack call against the target and classifies the
// outcome. Errors and unsuccessful outcomes are recorded per item; they never
// abort the campaign.
type Executor interface {
	Execute(ctx context.Context, prompt string) (*Outcome, error)
}

// Config holds the construction inputs for a Runner.
type Config struct {
	// TemplateIDs is the ordered list of templates to attack. Must be
	// non-empty for Start to begin execution.
	TemplateIDs []string

	// SessionID namespaces the persisted snapshot slot. Generated when empty.
	SessionID string

	// DelayBetweenAttacks throttles successive attacks. Zero disables the
	// delay; negative values are rejected.
	DelayBetweenAttacks time.Duration

	// Resolver looks up template prompts. Required.
	Resolver TemplateResolver

	// Executor performs attack calls. Required.
	Executor Executor

	// Store is the durable snapshot slot store. Nil degrades the runner to
	// in-memory-only operation.
	Store storage.Store
}

// Option configures optional Runner behavior.
type Option func(*Runner)

// WithLogger sets the logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithOnProgress registers a callback invoked after every processed attack
// and on completion. The callback receives a snapshot copy.
func WithOnProgress(fn func(Progress)) Option {
	return func(r *Runner) {
		r.onProgress = fn
	}
}

// WithOnComplete registers a callback invoked exactly once when a run
// exhausts its template list. It does not fire on cancel or failed start.
func WithOnComplete(fn func([]AttackResult)) Option {
	return func(r *Runner) {
		r.onComplete = fn
	}
}

// Runner drives an ordered list of attack templates through an Executor, one
// at a time, tracking progress and persisting a snapshot after every item.
//
// Control methods never return errors; calls that are invalid for the current
// state are no-ops and callers observe all outcomes through Progress and
// Results. Pause and cancel are cooperative: they are sampled at loop
// iteration boundaries, so an in-flight attack always settles first.
type Runner struct {
	resolver TemplateResolver
	executor Executor

	templateIDs []string
	sessionID   string
	delay       time.Duration
	store       storage.Store
	logger      *slog.Logger

	onProgress func(Progress)
	onComplete func([]AttackResult)

	mu          sync.Mutex
	gen         uint64
	active      bool
	nextIndex   int
	progress    Progress
	results     []AttackResult
	startedAt   *time.Time
	pausedAt    *time.Time
	accumulated time.Duration
	runningAt   *time.Time

	// interrupt cuts the inter-attack delay short on pause/cancel.
	interrupt chan struct{}
}

// NewRunner constructs a Runner. If a snapshot exists for the session, the
// prior progress and results are restored; a restored "running" status is
// presented as-is and requires an explicit Resume or Start to continue.
// Snapshot read failures degrade to a fresh in-memory runner.
func NewRunner(ctx context.Context, cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Resolver == nil {
		return nil, types.NewError(types.CAMPAIGN_INVALID_STATE, "template resolver is required")
	}
	if cfg.Executor == nil {
		return nil, types.NewError(types.CAMPAIGN_INVALID_STATE, "attack executor is required")
	}
	if cfg.DelayBetweenAttacks < 0 {
		return nil, types.NewError(types.CAMPAIGN_INVALID_STATE, "delay between attacks cannot be negative")
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = types.NewID().String()
	}

	r := &Runner{
		resolver:    cfg.Resolver,
		executor:    cfg.Executor,
		templateIDs: append([]string(nil), cfg.TemplateIDs...),
		sessionID:   sessionID,
		delay:       cfg.DelayBetweenAttacks,
		store:       cfg.Store,
		logger:      slog.Default(),
		progress:    NewProgress(len(cfg.TemplateIDs)),
		results:     []AttackResult{},
		interrupt:   make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.restore(ctx)

	return r, nil
}

// restore loads a prior snapshot for this session, if one exists. Failures
// are logged and swallowed; the runner starts fresh.
func (r *Runner) restore(ctx context.Context) {
	if r.store == nil {
		return
	}

	data, err := r.store.GetItem(ctx, SnapshotKey(r.sessionID))
	if err != nil {
		r.logger.Warn("failed to read campaign snapshot, starting fresh",
			"session", r.sessionID, "error", err)
		return
	}
	if data == nil {
		return
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		r.logger.Warn("failed to decode campaign snapshot, starting fresh",
			"session", r.sessionID, "error", err)
		return
	}

	// The snapshot's template list wins over the constructor's: a resumed
	// session must finish the run it started.
	if len(snap.TemplateIDs) > 0 {
		r.templateIDs = append([]string(nil), snap.TemplateIDs...)
	}
	r.progress = snap.Progress.Clone()
	r.results = cloneResults(snap.Results)
	r.startedAt = copyTime(snap.StartedAt)
	r.pausedAt = copyTime(snap.PausedAt)
	r.accumulated = time.Duration(snap.Progress.ElapsedSeconds) * time.Second

	if snap.Progress.CurrentAttackIndex >= 0 {
		r.nextIndex = snap.Progress.CurrentAttackIndex
	} else {
		r.nextIndex = snap.Progress.CompletedAttacks
	}

	r.logger.Info("restored campaign snapshot",
		"session", r.sessionID,
		"status", snap.Progress.Status,
		"completed", snap.Progress.CompletedAttacks,
		"total", snap.Progress.TotalAttacks)
}

// SessionID returns the snapshot namespace for this runner.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Progress returns a snapshot copy of the current progress with live elapsed
// time.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress.Clone()
	p.ElapsedSeconds = r.elapsedLocked(time.Now())
	return p
}

// Results returns a copy of the accumulated attack results in execution order.
func (r *Runner) Results() []AttackResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneResults(r.results)
}

// Percent returns the rounded completion percentage.
func (r *Runner) Percent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress.Percent()
}

// IsRunning reports whether the campaign status is running.
func (r *Runner) IsRunning() bool { return r.status() == StatusRunning }

// IsPaused reports whether the campaign status is paused.
func (r *Runner) IsPaused() bool { return r.status() == StatusPaused }

// IsActive reports whether the campaign is running or paused.
func (r *Runner) IsActive() bool {
	s := r.status()
	return s == StatusRunning || s == StatusPaused
}

// IsComplete reports whether the campaign exhausted its template list.
func (r *Runner) IsComplete() bool { return r.status() == StatusCompleted }

func (r *Runner) status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress.Status
}

// SetTemplateIDs replaces the template list. Only allowed while idle; calls
// in any other state are no-ops.
func (r *Runner) SetTemplateIDs(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress.Status != StatusIdle {
		return
	}
	r.templateIDs = append([]string(nil), ids...)
	r.progress.TotalAttacks = len(r.templateIDs)
}

// Start begins a fresh run from index 0, resetting counters and results. It
// is valid from idle and from any terminal state; calls while running or
// paused are no-ops. Starting with an empty template list transitions the
// campaign to failed without attempting any attack.
//
// Start executes the campaign loop in the calling goroutine and returns when
// the run completes, pauses, or is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	switch r.progress.Status {
	case StatusIdle, StatusCompleted, StatusCancelled, StatusFailed:
	default:
		r.mu.Unlock()
		return
	}
	if r.active {
		// A previous run is still settling its in-flight attack.
		r.mu.Unlock()
		return
	}

	r.gen++
	gen := r.gen
	r.results = []AttackResult{}
	r.progress = NewProgress(len(r.templateIDs))
	r.accumulated = 0
	r.pausedAt = nil

	if len(r.templateIDs) == 0 {
		r.progress.Status = StatusFailed
		r.progress.Errors = append(r.progress.Errors, "No templates selected")
		r.startedAt = nil
		r.runningAt = nil
		snap := r.snapshotLocked()
		r.mu.Unlock()
		r.logger.Warn("campaign start rejected: no templates selected", "session", r.sessionID)
		r.persist(ctx, snap)
		return
	}

	now := time.Now()
	r.startedAt = &now
	r.runningAt = &now
	r.progress.Status = StatusRunning
	r.progress.CurrentAttackIndex = 0
	r.nextIndex = 0
	r.active = true
	r.drainInterruptLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("starting campaign",
		"session", r.sessionID,
		"templates", len(r.templateIDs),
		"delay", r.delay)
	r.persist(ctx, snap)

	r.run(ctx, gen)
}

// Pause suspends the campaign after the in-flight attack settles. Only valid
// while running; otherwise a no-op.
func (r *Runner) Pause() {
	r.mu.Lock()
	if r.progress.Status != StatusRunning {
		r.mu.Unlock()
		return
	}

	now := time.Now()
	r.progress.Status = StatusPaused
	r.pausedAt = &now
	r.freezeElapsedLocked(now)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("campaign paused", "session", r.sessionID)
	r.persist(context.Background(), snap)
	r.signalInterrupt()
}

// Resume continues a paused campaign from the next unprocessed template. It
// also reattaches an execution loop to a runner restored from a "running"
// snapshot, which is never auto-resumed at construction.
//
// Like Start, Resume executes the loop in the calling goroutine when it takes
// ownership of execution; when the prior loop is still settling an in-flight
// attack it only flips the status back and returns.
func (r *Runner) Resume(ctx context.Context) {
	r.mu.Lock()
	restartable := r.progress.Status == StatusPaused ||
		(r.progress.Status == StatusRunning && !r.active)
	if !restartable {
		r.mu.Unlock()
		return
	}

	now := time.Now()
	r.runningAt = &now
	r.pausedAt = nil
	r.progress.Status = StatusRunning
	gen := r.gen
	takeOwnership := !r.active
	if takeOwnership {
		r.active = true
	}
	r.drainInterruptLocked()
	snap := r.snapshotLocked()
	index := r.nextIndex
	r.mu.Unlock()

	r.logger.Info("campaign resumed", "session", r.sessionID, "index", index)
	r.persist(ctx, snap)

	if takeOwnership {
		r.run(ctx, gen)
	}
}

// Cancel stops the campaign after the in-flight attack settles. Valid while
// running or paused; idempotent once cancelled, no-op otherwise.
func (r *Runner) Cancel() {
	r.mu.Lock()
	if r.progress.Status != StatusRunning && r.progress.Status != StatusPaused {
		r.mu.Unlock()
		return
	}

	now := time.Now()
	r.progress.Status = StatusCancelled
	r.freezeElapsedLocked(now)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("campaign cancelled", "session", r.sessionID)
	r.persist(context.Background(), snap)
	r.signalInterrupt()
}

// Reset returns the campaign to idle from any state, clearing counters,
// results, and the persisted snapshot slot.
func (r *Runner) Reset() {
	r.mu.Lock()
	r.gen++
	r.active = false
	r.progress = NewProgress(len(r.templateIDs))
	r.results = []AttackResult{}
	r.startedAt = nil
	r.pausedAt = nil
	r.runningAt = nil
	r.accumulated = 0
	r.nextIndex = 0
	r.mu.Unlock()

	r.logger.Info("campaign reset", "session", r.sessionID)
	if r.store != nil {
		if err := r.store.RemoveItem(context.Background(), SnapshotKey(r.sessionID)); err != nil {
			r.logger.Warn("failed to remove campaign snapshot",
				"session", r.sessionID, "error", err)
		}
	}
	r.signalInterrupt()
}

// run is the execution loop. Exactly one loop owns execution per runner; a
// generation counter invalidates loops that out-live a Reset or restart so a
// stale loop can never touch new state.
func (r *Runner) run(ctx context.Context, gen uint64) {
	defer func() {
		r.mu.Lock()
		if r.gen == gen {
			r.active = false
		}
		r.mu.Unlock()
	}()

	for {
		r.mu.Lock()
		if r.gen != gen || r.progress.Status != StatusRunning {
			r.mu.Unlock()
			return
		}

		// A torn-down host context counts as a cooperative cancel.
		if ctx.Err() != nil {
			now := time.Now()
			r.progress.Status = StatusCancelled
			r.freezeElapsedLocked(now)
			snap := r.snapshotLocked()
			r.mu.Unlock()
			r.logger.Info("campaign cancelled by context", "session", r.sessionID)
			r.persist(context.Background(), snap)
			return
		}

		index := r.nextIndex
		if index >= len(r.templateIDs) {
			r.completeLocked(ctx, gen)
			return
		}

		id := r.templateIDs[index]
		r.progress.CurrentAttackID = id
		r.progress.CurrentAttackIndex = index
		r.mu.Unlock()

		r.logger.Debug("executing attack template",
			"session", r.sessionID, "template", id, "index", index)

		result, campaignErr := r.executeOne(ctx, id)

		r.mu.Lock()
		if r.gen != gen {
			// Reset raced the in-flight attack; drop the result.
			r.mu.Unlock()
			return
		}

		r.results = append(r.results, result)
		r.progress.CompletedAttacks++
		if result.Success {
			r.progress.SuccessfulAttacks++
		} else {
			r.progress.FailedAttacks++
		}
		if campaignErr != "" {
			r.progress.Errors = append(r.progress.Errors, campaignErr)
		}
		r.nextIndex = index + 1
		r.progress.CurrentAttackID = ""
		r.progress.CurrentAttackIndex = r.nextIndex
		r.progress.ElapsedSeconds = r.elapsedLocked(time.Now())
		snap := r.snapshotLocked()
		prog := r.progress.Clone()
		onProgress := r.onProgress
		r.mu.Unlock()

		r.persist(ctx, snap)
		if onProgress != nil {
			onProgress(prog)
		}

		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-r.interrupt:
			case <-ctx.Done():
			}
		}
	}
}

// completeLocked finishes a run that exhausted its template list. Called with
// the mutex held; releases it.
func (r *Runner) completeLocked(ctx context.Context, gen uint64) {
	now := time.Now()
	r.progress.Status = StatusCompleted
	r.progress.CurrentAttackID = ""
	r.progress.CurrentAttackIndex = -1
	r.freezeElapsedLocked(now)
	snap := r.snapshotLocked()
	results := cloneResults(r.results)
	onComplete := r.onComplete
	r.mu.Unlock()

	r.logger.Info("campaign completed",
		"session", r.sessionID,
		"total", snap.Progress.TotalAttacks,
		"successful", snap.Progress.SuccessfulAttacks,
		"failed", snap.Progress.FailedAttacks)
	r.persist(ctx, snap)

	if onComplete != nil {
		onComplete(results)
	}
}

// executeOne resolves and executes a single template. The second return value
// is a campaign-level error message to append to Progress.Errors, empty for
// execution failures which are recorded on the result only.
func (r *Runner) executeOne(ctx context.Context, id string) (AttackResult, string) {
	start := time.Now()

	tmpl, err := r.resolver.Resolve(ctx, id)
	if err != nil {
		msg := err.Error()
		return AttackResult{
			TemplateID: id,
			Success:    false,
			DurationMs: msSince(start),
			Error:      msg,
			Timestamp:  time.Now(),
		}, msg
	}
	if tmpl == nil {
		msg := "Template not found: " + id
		return AttackResult{
			TemplateID: id,
			Success:    false,
			DurationMs: msSince(start),
			Error:      msg,
			Timestamp:  time.Now(),
		}, msg
	}

	outcome, err := r.executor.Execute(ctx, tmpl.Prompt)
	if err != nil {
		return AttackResult{
			TemplateID: id,
			Prompt:     tmpl.Prompt,
			Success:    false,
			DurationMs: msSince(start),
			Error:      err.Error(),
			Timestamp:  time.Now(),
		}, ""
	}

	return AttackResult{
		TemplateID: id,
		Prompt:     tmpl.Prompt,
		Response:   outcome.Response,
		Success:    outcome.Success,
		DurationMs: msSince(start),
		Timestamp:  time.Now(),
	}, ""
}

// persist writes the snapshot best-effort. Storage failures are logged and
// swallowed so the campaign degrades to in-memory-only operation.
func (r *Runner) persist(ctx context.Context, snap Snapshot) {
	if r.store == nil {
		return
	}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		r.logger.Warn("failed to encode campaign snapshot",
			"session", r.sessionID, "error", err)
		return
	}

	if err := r.store.SetItem(ctx, SnapshotKey(r.sessionID), data); err != nil {
		r.logger.Warn("failed to persist campaign snapshot",
			"session", r.sessionID, "error", err)
	}
}

// elapsedLocked returns total running seconds including the active stretch.
func (r *Runner) elapsedLocked(now time.Time) int64 {
	d := r.accumulated
	if r.runningAt != nil {
		d += now.Sub(*r.runningAt)
	}
	return int64(d / time.Second)
}

// freezeElapsedLocked folds the active stretch into the accumulator.
func (r *Runner) freezeElapsedLocked(now time.Time) {
	if r.runningAt != nil {
		r.accumulated += now.Sub(*r.runningAt)
		r.runningAt = nil
	}
	r.progress.ElapsedSeconds = int64(r.accumulated / time.Second)
}

func (r *Runner) snapshotLocked() Snapshot {
	p := r.progress.Clone()
	p.ElapsedSeconds = r.elapsedLocked(time.Now())
	return Snapshot{
		TemplateIDs: append([]string(nil), r.templateIDs...),
		Progress:    p,
		Results:     cloneResults(r.results),
		StartedAt:   copyTime(r.startedAt),
		PausedAt:    copyTime(r.pausedAt),
	}
}

func (r *Runner) signalInterrupt() {
	select {
	case r.interrupt <- struct{}{}:
	default:
	}
}

func (r *Runner) drainInterruptLocked() {
	select {
	case <-r.interrupt:
	default:
	}
}

func cloneResults(results []AttackResult) []AttackResult {
	cp := make([]AttackResult, len(results))
	copy(cp, results)
	return cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func msSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
