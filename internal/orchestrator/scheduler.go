// Package orchestrator runs copy jobs one at a time with latest-wins queueing.
package orchestrator

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

// State is the scheduler state.
type State int

const (
	// StateIdle means no job is running.
	StateIdle State = iota
	// StateRunning means a job is executing.
	StateRunning
)

// SubmitResult tells the caller what happened to a submitted request.
type SubmitResult int

const (
	// SubmitStarted means the request started immediately.
	SubmitStarted SubmitResult = iota
	// SubmitQueued means the request was placed in the empty pending slot.
	SubmitQueued
	// SubmitSuperseded means the request replaced an older pending request.
	SubmitSuperseded
)

const (
	previewLineLimit = 5

	jobCompletedMessage = "copied selection"
	jobFailedMessage    = "copy failed"
)

// String returns the lower-case name used in API responses.
func (result SubmitResult) String() string {
	switch result {
	case SubmitStarted:
		return "started"
	case SubmitQueued:
		return "queued"
	default:
		return "superseded"
	}
}

// ErrSuperseded reports that a pending request was replaced by a newer one before it ran.
var ErrSuperseded = errors.New("request superseded by a newer selection")

// Pipeline executes one copy job.
type Pipeline interface {
	Run(ctx context.Context, request types.SelectionRequest) (types.Outcome, error)
}

// Result is the outcome of one finished job.
type Result struct {
	Request types.SelectionRequest
	Outcome types.Outcome
	Err     error
}

// Ticket follows one submitted request until it finishes or is superseded.
type Ticket struct {
	request types.SelectionRequest
	submit  SubmitResult
	done    chan struct{}
	result  Result
}

func newTicket(request types.SelectionRequest, submit SubmitResult) *Ticket {
	return &Ticket{request: request, submit: submit, done: make(chan struct{})}
}

// Submit reports what happened to the request when it was submitted.
func (ticket *Ticket) Submit() SubmitResult {
	return ticket.submit
}

// Done is closed once the request has finished or was superseded.
func (ticket *Ticket) Done() <-chan struct{} {
	return ticket.done
}

// Wait blocks until the request resolves and returns its own result. A
// superseded request returns ErrSuperseded.
func (ticket *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ticket.done:
		return ticket.result, ticket.result.Err
	case <-ctx.Done():
		return Result{Request: ticket.request}, ctx.Err()
	}
}

func (ticket *Ticket) resolve(result Result) {
	ticket.result = result
	close(ticket.done)
}

// Scheduler is a two-state machine (Idle, Running) with a single pending slot.
type Scheduler struct {
	pipeline   Pipeline
	history    *History
	logger     *zap.Logger
	onComplete func(Result)

	mutex      sync.Mutex
	idle       *sync.Cond
	state      State
	pending    *Ticket
	lastResult *Result
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger logs job outcomes with logger.
func WithLogger(logger *zap.Logger) SchedulerOption {
	return func(scheduler *Scheduler) {
		if logger != nil {
			scheduler.logger = logger
		}
	}
}

// WithCompletionHandler calls handler after every job, successful or not.
func WithCompletionHandler(handler func(Result)) SchedulerOption {
	return func(scheduler *Scheduler) {
		scheduler.onComplete = handler
	}
}

// NewScheduler returns an idle scheduler running jobs through pipeline.
func NewScheduler(pipeline Pipeline, history *History, options ...SchedulerOption) *Scheduler {
	scheduler := &Scheduler{
		pipeline: pipeline,
		history:  history,
		logger:   zap.NewNop(),
	}
	scheduler.idle = sync.NewCond(&scheduler.mutex)
	for _, option := range options {
		option(scheduler)
	}
	return scheduler
}

// Submit starts request when idle, otherwise stores it in the pending slot,
// replacing any request already waiting there. It never blocks on a job.
func (scheduler *Scheduler) Submit(request types.SelectionRequest) SubmitResult {
	return scheduler.Track(request).Submit()
}

// Track submits request like Submit and returns a ticket resolving with this
// request's own result. A request replaced in the pending slot resolves with
// ErrSuperseded.
func (scheduler *Scheduler) Track(request types.SelectionRequest) *Ticket {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()

	if scheduler.state == StateRunning {
		submit := SubmitQueued
		if replaced := scheduler.pending; replaced != nil {
			submit = SubmitSuperseded
			replaced.resolve(Result{Request: replaced.request, Err: ErrSuperseded})
		}
		ticket := newTicket(request, submit)
		scheduler.pending = ticket
		return ticket
	}
	ticket := newTicket(request, SubmitStarted)
	scheduler.state = StateRunning
	go scheduler.drive(ticket)
	return ticket
}

// Wait blocks until the scheduler is idle with an empty pending slot.
func (scheduler *Scheduler) Wait() {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	for scheduler.state == StateRunning {
		scheduler.idle.Wait()
	}
}

// State returns the current state.
func (scheduler *Scheduler) State() State {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	return scheduler.state
}

// LastResult returns the most recently finished job, if any.
func (scheduler *Scheduler) LastResult() (Result, bool) {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	if scheduler.lastResult == nil {
		return Result{}, false
	}
	return *scheduler.lastResult, true
}

// History returns the history buffer the scheduler appends to.
func (scheduler *Scheduler) History() *History {
	return scheduler.history
}

func (scheduler *Scheduler) drive(ticket *Ticket) {
	for {
		result := scheduler.execute(ticket.request)

		scheduler.mutex.Lock()
		scheduler.lastResult = &result
		scheduler.mutex.Unlock()
		ticket.resolve(result)
		if scheduler.onComplete != nil {
			scheduler.onComplete(result)
		}

		runtime.Gosched()

		scheduler.mutex.Lock()
		if scheduler.pending == nil {
			scheduler.state = StateIdle
			scheduler.idle.Broadcast()
			scheduler.mutex.Unlock()
			return
		}
		ticket = scheduler.pending
		scheduler.pending = nil
		scheduler.mutex.Unlock()
	}
}

func (scheduler *Scheduler) execute(request types.SelectionRequest) Result {
	startedAt := time.Now()
	outcome, runError := scheduler.pipeline.Run(context.Background(), request)
	if runError != nil {
		scheduler.logger.Error(jobFailedMessage, zap.Error(runError))
		return Result{Request: request, Err: runError}
	}
	if outcome.Duration == 0 {
		outcome.Duration = time.Since(startedAt)
	}
	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = time.Now()
	}
	if scheduler.history != nil {
		scheduler.history.Append(types.HistoryEntry{
			Timestamp:   outcome.FinishedAt,
			Paths:       request.Paths,
			TreePreview: treePreview(outcome.Tree),
		})
	}
	scheduler.logger.Info(jobCompletedMessage,
		zap.Int("files", outcome.Files),
		zap.String("size", utils.FormatSize(outcome.Bytes)),
		zap.Int("tokens", outcome.Tokens),
		zap.Duration("elapsed", outcome.Duration),
	)
	return Result{Request: request, Outcome: outcome}
}

func treePreview(treeText string) string {
	lines := strings.Split(treeText, "\n")
	if len(lines) > previewLineLimit {
		lines = append(slices.Clip(lines[:previewLineLimit]), "…")
	}
	return strings.Join(lines, "\n")
}
