package assessment

import (
	"context"
	"time"

	"github.com/spigell/resume-coach/internal/workflow"
)

// Metric kind labels, one per backend operation.
const (
	KindScore     = "score"
	KindQuestions = "questions"
	KindEvaluate  = "evaluate"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Service is everything the workflow needs from an assessment backend.
type Service interface {
	ScoreResume(ctx context.Context, submission *workflow.ResumeSubmission) (*workflow.Assessment, error)
	PracticeQuestions(ctx context.Context, jobDescription string) (workflow.QuestionSet, error)
	EvaluateAnswer(ctx context.Context, question, answer string) ([]workflow.Feedback, error)
}

// Observer receives one call per finished backend request.
type Observer interface {
	ObserveRequest(kind, outcome string, elapsed time.Duration)
}

// Instrument reports every call made through svc to obs.
// A nil observer returns svc untouched.
func Instrument(svc Service, obs Observer) Service {
	if obs == nil {
		return svc
	}
	return &instrumented{next: svc, obs: obs, now: time.Now}
}

type instrumented struct {
	next Service
	obs  Observer
	now  func() time.Time
}

func (i *instrumented) ScoreResume(ctx context.Context, submission *workflow.ResumeSubmission) (*workflow.Assessment, error) {
	start := i.now()
	result, err := i.next.ScoreResume(ctx, submission)
	i.observe(KindScore, start, err)
	return result, err
}

func (i *instrumented) PracticeQuestions(ctx context.Context, jobDescription string) (workflow.QuestionSet, error) {
	start := i.now()
	result, err := i.next.PracticeQuestions(ctx, jobDescription)
	i.observe(KindQuestions, start, err)
	return result, err
}

func (i *instrumented) EvaluateAnswer(ctx context.Context, question, answer string) ([]workflow.Feedback, error) {
	start := i.now()
	result, err := i.next.EvaluateAnswer(ctx, question, answer)
	i.observe(KindEvaluate, start, err)
	return result, err
}

func (i *instrumented) observe(kind string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	i.obs.ObserveRequest(kind, outcome, i.now().Sub(start))
}
