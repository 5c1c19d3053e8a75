// Package practice runs the question and answer phase.
package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/logger"
	"github.com/spigell/resume-coach/internal/workflow"
)

// MessageEmpty is shown when there is nothing to practice.
const MessageEmpty = "No questions received."

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	StateFailed  State = "failed"
)

// QuestionState describes the active question.
type QuestionState string

const (
	QuestionAwaiting         QuestionState = "awaiting"
	QuestionEvaluating       QuestionState = "evaluating"
	QuestionRevealed         QuestionState = "revealed"
	QuestionEvaluationFailed QuestionState = "evaluation_failed"
)

var (
	ErrNotReady        = errors.New("practice questions are not ready")
	ErrNoMoreQuestions = errors.New("already at the last question")
	ErrIndexOutOfRange = errors.New("question index out of range")
	ErrNothingToRetry  = errors.New("nothing to retry")
)

type Service interface {
	PracticeQuestions(ctx context.Context, jobDescription string) (workflow.QuestionSet, error)
	EvaluateAnswer(ctx context.Context, question, answer string) ([]workflow.Feedback, error)
}

type Deps struct {
	Service Service
	Logger  *zap.Logger
	// OnChange is called after every state change. It must not call Close.
	OnChange func(view View)
}

// Cursor points at the active question. Revealed means its feedback is on screen.
type Cursor struct {
	Index    int
	Revealed bool
}

type Controller struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	entry    *workflow.PracticeEntry
	service  Service
	logger   *zap.Logger
	onChange func(View)

	state     State
	err       error
	questions workflow.QuestionSet
	answers   []string
	// cache[i] is nil until question i was evaluated once; entries are never cleared.
	cache    [][]workflow.Feedback
	pending  map[int]bool
	evalErrs map[int]error
	cursor   Cursor

	started    bool
	generation uint64
	closed     bool
}

func New(entry *workflow.PracticeEntry, deps *Deps) *Controller {
	c := &Controller{
		entry:    entry,
		logger:   logger.WithPhase(nil, string(workflow.PhasePractice)),
		onChange: func(View) {},
		state:    StateLoading,
		pending:  make(map[int]bool),
		evalErrs: make(map[int]error),
	}

	if deps != nil {
		c.service = deps.Service
		c.logger = logger.WithPhase(deps.Logger, string(workflow.PhasePractice))
		if deps.OnChange != nil {
			c.onChange = deps.OnChange
		}
	}

	return c
}

// Start fetches the questions. Without a job description there is nothing to fetch.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.started {
		c.mu.Unlock()
		return
	}
	c.started = true

	if c.entry == nil || strings.TrimSpace(c.entry.JobDescription) == "" || c.service == nil {
		c.state = StateEmpty
		c.mu.Unlock()

		c.logger.Debug("no job description, nothing to practice")
		c.notify()
		return
	}

	gen := c.generation
	c.mu.Unlock()

	c.notify()
	go c.fetch(ctx, gen)
}

// Retry refetches the questions after a failed fetch.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state != StateFailed {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	c.state = StateLoading
	c.err = nil
	gen := c.generation
	c.mu.Unlock()

	c.logger.Info("retrying practice questions")
	c.notify()
	go c.fetch(ctx, gen)

	return nil
}

// UpdateAnswer replaces the answer of the active question. It is allowed after reveal.
func (c *Controller) UpdateAnswer(text string) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.answers[c.cursor.Index] = text
	c.mu.Unlock()

	c.notify()
	return nil
}

// Advance reveals feedback for the active question and requests its
// evaluation, or moves on to the next question when feedback is already shown.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}

	if c.cursor.Revealed {
		if c.cursor.Index >= len(c.questions)-1 {
			c.mu.Unlock()
			return ErrNoMoreQuestions
		}
		c.cursor = Cursor{Index: c.cursor.Index + 1}
		c.mu.Unlock()

		c.notify()
		return nil
	}

	c.cursor.Revealed = true
	c.evaluateLocked(ctx, c.cursor.Index)
	c.mu.Unlock()

	c.notify()
	return nil
}

// JumpTo makes question i active and hides its feedback. In-flight
// evaluations keep running and land on the question they were issued for.
func (c *Controller) JumpTo(i int) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	if i < 0 || i >= len(c.questions) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(c.questions))
	}
	c.cursor = Cursor{Index: i}
	c.mu.Unlock()

	c.notify()
	return nil
}

// RetryEvaluation re-issues the active question's evaluation after a failure.
func (c *Controller) RetryEvaluation(ctx context.Context) error {
	c.mu.Lock()
	i := c.cursor.Index
	if c.state != StateReady || c.evalErrs[i] == nil || c.pending[i] {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	c.cursor.Revealed = true
	c.evaluateLocked(ctx, i)
	c.mu.Unlock()

	c.notify()
	return nil
}

// Close detaches the controller. Responses arriving later are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.generation++
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.viewLocked()
}

func (c *Controller) fetch(ctx context.Context, gen uint64) {
	questions, err := c.service.PracticeQuestions(ctx, c.entry.JobDescription)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("dropping stale practice questions")
		return
	}

	switch {
	case err != nil:
		c.state = StateFailed
		c.err = err
		c.mu.Unlock()

		c.logger.Warn("fetching practice questions failed", zap.Error(err))
		c.notify()
		return
	case len(questions) == 0:
		c.state = StateEmpty
		c.err = workflow.ErrEmptyResult
	default:
		n := len(questions)
		c.questions = append(workflow.QuestionSet(nil), questions...)
		c.answers = make([]string, n)
		c.cache = make([][]workflow.Feedback, n)
		c.cursor = Cursor{}
		c.state = StateReady
	}
	count := len(c.questions)
	c.mu.Unlock()

	c.logger.Info("practice questions received", zap.Int("count", count))
	c.notify()
}

// evaluateLocked issues one evaluation for question i unless one is already in flight.
func (c *Controller) evaluateLocked(ctx context.Context, i int) {
	if c.pending[i] {
		return
	}
	c.pending[i] = true
	delete(c.evalErrs, i)

	question := c.questions[i].Text
	answer := c.answers[i]
	gen := c.generation

	c.logger.Debug("evaluating answer", zap.Int(logger.FieldQuestion, i))
	go c.evaluate(ctx, gen, i, question, answer)
}

func (c *Controller) evaluate(ctx context.Context, gen uint64, i int, question, answer string) {
	feedback, err := c.service.EvaluateAnswer(ctx, question, answer)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	delete(c.pending, i)
	if err != nil {
		c.evalErrs[i] = err
	} else {
		if feedback == nil {
			feedback = []workflow.Feedback{}
		}
		c.cache[i] = feedback
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("answer evaluation failed", zap.Int(logger.FieldQuestion, i), zap.Error(err))
	}
	c.notify()
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.onChange(view)
}

func (c *Controller) viewLocked() View {
	v := View{
		State:  c.state,
		Err:    c.err,
		Cursor: c.cursor,
	}
	if c.state != StateReady {
		return v
	}

	i := c.cursor.Index
	v.Questions = append(workflow.QuestionSet(nil), c.questions...)
	v.answers = append([]string(nil), c.answers...)
	v.cache = make([][]workflow.Feedback, len(c.cache))
	for idx, fb := range c.cache {
		if fb != nil {
			v.cache[idx] = append([]workflow.Feedback{}, fb...)
		}
	}
	v.Answer = c.answers[i]
	v.EvaluationErr = c.evalErrs[i]

	switch {
	case c.pending[i]:
		v.QuestionState = QuestionEvaluating
	case c.evalErrs[i] != nil:
		v.QuestionState = QuestionEvaluationFailed
	case c.cursor.Revealed:
		v.QuestionState = QuestionRevealed
	default:
		v.QuestionState = QuestionAwaiting
	}

	if c.cursor.Revealed && len(c.cache[i]) > 0 {
		v.Feedback = append([]workflow.Feedback(nil), c.cache[i]...)
	}

	return v
}
