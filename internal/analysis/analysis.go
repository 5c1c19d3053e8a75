// Package analysis drives the scoring phase: one request, then an animated reveal.
package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/animator"
	"github.com/spigell/resume-coach/internal/logger"
	"github.com/spigell/resume-coach/internal/workflow"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

var (
	ErrNotReady  = errors.New("assessment is not ready")
	ErrNotFailed = errors.New("scoring has not failed")

	errNoAssessment = errors.New("scorer returned no assessment")
)

type Scorer interface {
	ScoreResume(ctx context.Context, submission *workflow.ResumeSubmission) (*workflow.Assessment, error)
}

type Config struct {
	// TickInterval is the delay between score increments. Zero reveals at once.
	TickInterval time.Duration
}

type Deps struct {
	Scorer Scorer
	Logger *zap.Logger
	// Proceed receives the practice entry once the user moves on.
	Proceed func(entry workflow.PracticeEntry)
	// OnChange is called after every state change. It must not call Close.
	OnChange func(view View)
}

// View is a snapshot of the controller. Assessment is a copy.
type View struct {
	State      State
	Displayed  int
	Assessment *workflow.Assessment
	Err        error
	Animating  bool
}

// Verdict is derived from the final total, not from the animated value.
func (v View) Verdict() workflow.Verdict {
	if v.Assessment == nil {
		return ""
	}
	return workflow.VerdictFor(v.Assessment.Report.Total)
}

// Settled reports that nothing on screen will change without user input.
func (v View) Settled() bool {
	return v.State == StateFailed || (v.State == StateReady && !v.Animating)
}

type Controller struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	submission *workflow.ResumeSubmission
	tick       time.Duration
	scorer     Scorer
	logger     *zap.Logger
	proceed    func(workflow.PracticeEntry)
	onChange   func(View)
	animator   *animator.Animator

	state      State
	displayed  int
	assessment *workflow.Assessment
	err        error
	animating  bool
	anim       *animator.Animation
	generation uint64
	closed     bool
}

func New(submission *workflow.ResumeSubmission, cfg *Config, deps *Deps) *Controller {
	c := &Controller{
		submission: submission,
		tick:       animator.DefaultTick,
		logger:     logger.WithPhase(nil, string(workflow.PhaseAnalysis)),
		proceed:    func(workflow.PracticeEntry) {},
		onChange:   func(View) {},
		animator:   animator.New(),
		state:      StateIdle,
	}

	if cfg != nil {
		c.tick = cfg.TickInterval
	}

	if deps != nil {
		c.scorer = deps.Scorer
		c.logger = logger.WithPhase(deps.Logger, string(workflow.PhaseAnalysis))
		if deps.Proceed != nil {
			c.proceed = deps.Proceed
		}
		if deps.OnChange != nil {
			c.onChange = deps.OnChange
		}
	}

	return c
}

// Start issues the scoring request. Without a submission the controller stays idle.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	if c.submission == nil || c.scorer == nil {
		c.mu.Unlock()
		c.logger.Debug("nothing to score, staying idle")
		return
	}
	gen := c.beginLocked()
	c.mu.Unlock()

	c.notify()
	go c.score(ctx, gen)
}

// Retry re-issues the scoring request after a failure.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state != StateFailed {
		c.mu.Unlock()
		return ErrNotFailed
	}
	gen := c.beginLocked()
	c.mu.Unlock()

	c.logger.Info("retrying resume scoring")
	c.notify()
	go c.score(ctx, gen)

	return nil
}

// ProceedToPractice hands the job description to the practice phase.
func (c *Controller) ProceedToPractice() error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	entry := workflow.PracticeEntry{JobDescription: c.submission.JobDescription()}
	c.mu.Unlock()

	c.logger.Debug("proceeding to practice")
	c.proceed(entry)

	return nil
}

// Close detaches the controller. Responses and ticks arriving later are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.generation++
	c.animating = false
	anim := c.anim
	c.anim = nil
	c.mu.Unlock()

	if anim != nil {
		anim.Stop()
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.viewLocked()
}

func (c *Controller) beginLocked() uint64 {
	c.state = StateLoading
	c.err = nil
	c.logger.Debug("scoring resume", zap.String("file", c.submission.File().Name()))

	return c.generation
}

func (c *Controller) score(ctx context.Context, gen uint64) {
	result, err := c.scorer.ScoreResume(ctx, c.submission)
	if err == nil && result == nil {
		err = errNoAssessment
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("dropping stale scoring response")
		return
	}

	if err != nil {
		c.state = StateFailed
		c.err = err
		c.mu.Unlock()

		c.logger.Warn("resume scoring failed", zap.Error(err))
		c.notify()
		return
	}

	c.assessment = result.Clone()
	c.state = StateReady
	c.displayed = 0
	c.animating = true
	total := c.assessment.Report.Total
	anim := c.animator.Start(context.WithoutCancel(ctx), total, c.tick, func(v int) {
		c.advanceDisplay(gen, v)
	})
	c.anim = anim
	c.mu.Unlock()

	c.logger.Info("resume scored", zap.Int("total", total), zap.Int("reasons", result.Reasons.Len()))
	c.notify()

	go c.awaitAnimation(gen, anim)
}

func (c *Controller) advanceDisplay(gen uint64, v int) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.displayed = v
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) awaitAnimation(gen uint64, anim *animator.Animation) {
	<-anim.Done()

	c.mu.Lock()
	if gen != c.generation || c.anim != anim {
		c.mu.Unlock()
		return
	}
	c.animating = false
	c.anim = nil
	c.mu.Unlock()

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
	return View{
		State:      c.state,
		Displayed:  c.displayed,
		Assessment: c.assessment.Clone(),
		Err:        c.err,
		Animating:  c.animating,
	}
}
