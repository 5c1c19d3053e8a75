package workflow

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/logger"
)

type Phase string

const (
	PhaseUpload   Phase = "upload"
	PhaseAnalysis Phase = "analysis"
	PhasePractice Phase = "practice"
)

// Transition is a request to enter a phase with its payload.
// Only the field matching Phase is set.
type Transition struct {
	Phase      Phase
	Submission *ResumeSubmission
	Practice   *PracticeEntry
}

func ToUpload() Transition {
	return Transition{Phase: PhaseUpload}
}

func ToAnalysis(submission *ResumeSubmission) Transition {
	return Transition{Phase: PhaseAnalysis, Submission: submission}
}

func ToPractice(entry PracticeEntry) Transition {
	return Transition{Phase: PhasePractice, Practice: &entry}
}

// Flow records the phases a session has walked through. It never holds phase
// state: every transition it returns is instantiated fresh by the caller.
type Flow struct {
	mu      sync.Mutex
	id      string
	history []Transition
	logger  *zap.Logger
	onEnter func(Phase)
}

func NewFlow(log *zap.Logger) *Flow {
	id := uuid.New().String()
	return &Flow{
		id:      id,
		history: []Transition{ToUpload()},
		logger:  logger.WithSession(log, id),
	}
}

// OnEnter registers a hook called on every phase entry, including back navigation.
func (f *Flow) OnEnter(fn func(Phase)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnter = fn
}

func (f *Flow) SessionID() string { return f.id }

// Logger returns the session scoped logger.
func (f *Flow) Logger() *zap.Logger { return f.logger }

func (f *Flow) Current() Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[len(f.history)-1]
}

func (f *Flow) Navigate(t Transition) {
	f.mu.Lock()
	from := f.history[len(f.history)-1].Phase
	f.history = append(f.history, t)
	hook := f.onEnter
	f.mu.Unlock()

	f.logger.Debug("phase transition", zap.String("from", string(from)), zap.String("to", string(t.Phase)))
	if hook != nil {
		hook(t.Phase)
	}
}

// Back pops the current phase and returns the previous one. It returns false at the first phase.
func (f *Flow) Back() (Transition, bool) {
	f.mu.Lock()
	if len(f.history) < 2 {
		current := f.history[0]
		f.mu.Unlock()
		return current, false
	}

	from := f.history[len(f.history)-1].Phase
	f.history = f.history[:len(f.history)-1]
	to := f.history[len(f.history)-1]
	hook := f.onEnter
	f.mu.Unlock()

	f.logger.Debug("phase re-entry", zap.String("from", string(from)), zap.String("to", string(to.Phase)))
	if hook != nil {
		hook(to.Phase)
	}

	return to, true
}

// Depth is the number of phases on the stack.
func (f *Flow) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}
