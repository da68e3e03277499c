// Package orchestrator runs research rounds: it decomposes a query into
// capability tasks, dispatches them to worker agents under bounded
// concurrency, and aggregates whatever evidence the round produced into
// a single fused result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/kestrelbio/forager/internal/agent"
	"github.com/kestrelbio/forager/internal/confidence"
	"github.com/kestrelbio/forager/internal/fusion"
	"github.com/kestrelbio/forager/internal/metrics"
	"github.com/kestrelbio/forager/internal/tracker"
	"github.com/kestrelbio/forager/pkg/models"
)

// Defaults for round scheduling.
const (
	DefaultMaxParallel    = 4
	DefaultPerTaskTimeout = 30 * time.Second
	DefaultDeadline       = 2 * time.Minute
)

// ErrNoCapabilities is returned when a round is requested with an empty
// capability list.
var ErrNoCapabilities = errors.New("round requires at least one capability")

// AgentSource resolves a capability to an enabled agent.
// *agent.Registry satisfies this.
type AgentSource interface {
	Lookup(c models.Capability) (agent.Agent, bool)
}

// ResultSink persists aggregated results. The round result is computed
// before the sink is invoked, so a sink failure never loses evidence.
type ResultSink interface {
	SaveResult(ctx context.Context, r *models.AggregatedResult) error
}

// Synthesizer produces a narrative summary of the top fused findings.
type Synthesizer interface {
	Synthesize(ctx context.Context, q models.Query, entries []models.FusedEntry) (string, error)
}

// Orchestrator coordinates one research round at a time. It owns no
// cross-round state; every Run builds a fresh tracker.
type Orchestrator struct {
	agents      AgentSource
	fuser       *fusion.Engine
	scorer      *confidence.Scorer
	sink        ResultSink
	synthesizer Synthesizer
	events      chan<- Event
	log         zerolog.Logger

	maxParallel    int
	retryBudget    int
	perTaskTimeout time.Duration
	deadline       time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxParallel bounds the number of concurrently running tasks.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) { o.maxParallel = n }
}

// WithRetryBudget sets the maximum retries per task.
func WithRetryBudget(n int) Option {
	return func(o *Orchestrator) { o.retryBudget = n }
}

// WithPerTaskTimeout sets the deadline for a single agent call.
func WithPerTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.perTaskTimeout = d }
}

// WithDeadline sets the overall round deadline.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// WithFusionK sets the reciprocal rank fusion smoothing constant.
func WithFusionK(k int) Option {
	return func(o *Orchestrator) { o.fuser = fusion.New(k) }
}

// WithTopN sets the number of fused entries the confidence scorer considers.
func WithTopN(n int) Option {
	return func(o *Orchestrator) { o.scorer = confidence.New(n) }
}

// WithSink persists each round's result after aggregation.
func WithSink(s ResultSink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithSynthesizer enables a narrative summary of the top findings.
func WithSynthesizer(s Synthesizer) Option {
	return func(o *Orchestrator) { o.synthesizer = s }
}

// WithEvents streams task state changes to ch. Sends never block.
func WithEvents(ch chan<- Event) Option {
	return func(o *Orchestrator) { o.events = ch }
}

// New creates an orchestrator over the given agent source.
func New(agents AgentSource, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents:         agents,
		fuser:          fusion.New(fusion.DefaultK),
		scorer:         confidence.New(confidence.DefaultTopN),
		log:            log,
		maxParallel:    DefaultMaxParallel,
		retryBudget:    tracker.DefaultRetryBudget,
		perTaskTimeout: DefaultPerTaskTimeout,
		deadline:       DefaultDeadline,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one research round and always returns the aggregated
// result, partial or not, alongside any persistence error. A non-nil
// error with a non-nil result means the round itself succeeded but the
// result could not be saved.
//
// If sessionID is empty a fresh one is generated.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, q models.Query, caps []models.Capability) (*models.AggregatedResult, error) {
	if len(caps) == 0 {
		return nil, ErrNoCapabilities
	}
	for _, c := range caps {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown capability %q", c)
		}
	}
	if o.maxParallel <= 0 {
		return nil, fmt.Errorf("max parallel tasks must be positive, got %d", o.maxParallel)
	}
	if o.perTaskTimeout <= 0 || o.deadline <= 0 {
		return nil, fmt.Errorf("timeouts must be positive (per-task %s, deadline %s)", o.perTaskTimeout, o.deadline)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	startedAt := time.Now()
	o.log.Info().Str("session", sessionID).Str("query", q.Text).
		Int("capabilities", len(caps)).Msg("round started")

	trk := tracker.New(o.retryBudget, o.log)
	tasks := o.decompose(sessionID, q, caps)
	for _, task := range tasks {
		if err := trk.Add(task); err != nil {
			return nil, err
		}
	}

	roundCtx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	collector := newEvidenceCollector()
	sem := semaphore.NewWeighted(int64(o.maxParallel))
	var wg sync.WaitGroup

	for _, task := range tasks {
		ag, ok := o.agents.Lookup(task.Capability)
		if !ok {
			cause := &agent.Error{
				Agent: string(task.Capability),
				Kind:  agent.KindCapabilityUnavailable,
				Err:   fmt.Errorf("no enabled agent for capability %s", task.Capability),
			}
			if err := trk.FailPermanently(task.ID, cause); err != nil {
				return nil, err
			}
			o.emit(Event{TaskID: task.ID, Capability: task.Capability, State: models.TaskFailed, Attempt: 1, Err: cause.Error()})
			continue
		}

		wg.Add(1)
		go func(task *models.Task, ag agent.Agent) {
			defer wg.Done()
			o.runTask(roundCtx, trk, collector, sem, task, ag, q)
		}(task, ag)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-roundCtx.Done():
		// Deadline takes precedence over retries: everything still in
		// flight settles as TimedOut without consuming budget.
		trk.AbandonUnsettled(fmt.Errorf("round deadline of %s elapsed", o.deadline))
		for _, task := range trk.Snapshot() {
			if task.State == models.TaskTimedOut {
				o.emit(Event{TaskID: task.ID, Capability: task.Capability, State: task.State, Attempt: task.RetryCount + 1, Err: task.Error})
			}
		}
		<-done
	}

	result := o.aggregate(sessionID, q, trk, collector, startedAt)
	o.synthesize(ctx, q, result)
	o.record(result)

	o.log.Info().Str("session", sessionID).Str("status", string(result.Status)).
		Int("fused", len(result.Fused)).Float64("confidence", result.Confidence).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).Msg("round finished")

	if o.sink != nil {
		if err := o.sink.SaveResult(ctx, result); err != nil {
			o.log.Error().Err(err).Str("session", sessionID).Msg("result not persisted")
			return result, err
		}
	}
	return result, nil
}

// decompose maps each requested capability to exactly one task.
func (o *Orchestrator) decompose(sessionID string, q models.Query, caps []models.Capability) []*models.Task {
	now := time.Now()
	tasks := make([]*models.Task, 0, len(caps))
	for _, c := range caps {
		tasks = append(tasks, &models.Task{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			Capability: c,
			Fragment:   q.Text,
			State:      models.TaskPending,
			CreatedAt:  now,
			Deadline:   now.Add(o.perTaskTimeout),
		})
	}
	return tasks
}

// runTask drives one task through dispatch, execution, and retries until
// it settles or the round deadline fires.
func (o *Orchestrator) runTask(roundCtx context.Context, trk *tracker.Tracker, collector *evidenceCollector, sem *semaphore.Weighted, task *models.Task, ag agent.Agent, q models.Query) {
	for {
		if err := sem.Acquire(roundCtx, 1); err != nil {
			// Round deadline fired while waiting for a slot; the
			// deadline handler abandons the task.
			return
		}
		attempt := trk.Retries(task.ID) + 1

		if err := trk.Transition(task.ID, models.TaskDispatched); err != nil {
			sem.Release(1)
			return
		}
		o.emit(Event{TaskID: task.ID, Capability: task.Capability, State: models.TaskDispatched, Attempt: attempt})

		if err := trk.Transition(task.ID, models.TaskRunning); err != nil {
			sem.Release(1)
			return
		}
		o.emit(Event{TaskID: task.ID, Capability: task.Capability, State: models.TaskRunning, Attempt: attempt})

		taskCtx, cancel := context.WithTimeout(roundCtx, o.perTaskTimeout)
		evidence, err := ag.Execute(taskCtx, q)
		cancel()
		sem.Release(1)

		if err == nil {
			if terr := trk.Transition(task.ID, models.TaskCompleted); terr != nil {
				// Abandoned at the deadline while the call was in
				// flight; the late result is discarded.
				return
			}
			collector.record(task.ID, evidence)
			o.emit(Event{TaskID: task.ID, Capability: task.Capability, State: models.TaskCompleted, Attempt: attempt})
			return
		}

		if roundCtx.Err() != nil {
			return
		}

		var retried bool
		var state models.TaskState
		if agent.Kind(err) == agent.KindTimeout {
			state = models.TaskTimedOut
			retried, _ = trk.MarkTimedOut(task.ID, err)
		} else {
			state = models.TaskFailed
			retried, _ = trk.MarkFailed(task.ID, err)
		}
		o.emit(Event{TaskID: task.ID, Capability: task.Capability, State: state, Attempt: attempt, Err: err.Error()})
		if !retried {
			return
		}
	}
}

// aggregate fuses the evidence of completed tasks and scores the round.
func (o *Orchestrator) aggregate(sessionID string, q models.Query, trk *tracker.Tracker, collector *evidenceCollector, startedAt time.Time) *models.AggregatedResult {
	completed := 0
	var lists [][]models.Evidence
	for _, task := range trk.Snapshot() {
		if task.State != models.TaskCompleted {
			continue
		}
		completed++
		if ev := collector.get(task.ID); len(ev) > 0 {
			lists = append(lists, ev)
		}
	}

	fused := o.fuser.Fuse(lists)
	outcomes := trk.Outcomes(collector.counts())

	status := models.RoundOK
	switch {
	case completed == 0:
		status = models.RoundNoEvidence
	case completed < len(outcomes):
		status = models.RoundPartial
	}

	return &models.AggregatedResult{
		SessionID:  sessionID,
		Query:      q,
		Status:     status,
		Fused:      fused,
		Confidence: o.scorer.Score(fused, outcomes),
		Outcomes:   outcomes,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}

// synthesize fills in the narrative summary when a synthesizer is
// configured. Summary generation is best-effort and never fails a round.
func (o *Orchestrator) synthesize(ctx context.Context, q models.Query, result *models.AggregatedResult) {
	if o.synthesizer == nil || len(result.Fused) == 0 {
		return
	}
	// The round context may already be expired; the summary gets its
	// own deadline off the caller's context.
	synthCtx, cancel := context.WithTimeout(ctx, o.perTaskTimeout)
	defer cancel()

	summary, err := o.synthesizer.Synthesize(synthCtx, q, result.Fused)
	if err != nil {
		o.log.Warn().Err(err).Msg("summary synthesis failed, returning result without summary")
		return
	}
	result.Summary = summary
}

func (o *Orchestrator) record(result *models.AggregatedResult) {
	metrics.RoundsTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.RoundDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	metrics.FusedEntries.Observe(float64(len(result.Fused)))
	for _, outcome := range result.Outcomes {
		metrics.TasksTotal.WithLabelValues(string(outcome.Capability), string(outcome.State)).Inc()
	}
}

// evidenceCollector gathers per-task evidence lists from concurrent workers.
type evidenceCollector struct {
	byTask map[string][]models.Evidence
	mu     sync.Mutex
}

func newEvidenceCollector() *evidenceCollector {
	return &evidenceCollector{byTask: make(map[string][]models.Evidence)}
}

func (c *evidenceCollector) record(taskID string, ev []models.Evidence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byTask[taskID] = ev
}

func (c *evidenceCollector) get(taskID string) []models.Evidence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byTask[taskID]
}

func (c *evidenceCollector) counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int, len(c.byTask))
	for id, ev := range c.byTask {
		counts[id] = len(ev)
	}
	return counts
}
