package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/analysis"
	"github.com/spigell/resume-coach/internal/animator"
	"github.com/spigell/resume-coach/internal/assessment"
	"github.com/spigell/resume-coach/internal/jobsource"
	"github.com/spigell/resume-coach/internal/practice"
	"github.com/spigell/resume-coach/internal/upload"
	"github.com/spigell/resume-coach/internal/workflow"
)

const (
	PromptChooseResume        = "Choose resume file"
	PromptEnterJobDescription = "Enter job description"
	PromptJobFromURL          = "Load job description from URL"
	PromptPickRole            = "Pick a suggested role"
	PromptAnalyze             = "Analyze resume"
	PromptPractice            = "Practice interview questions"
	PromptRetry               = "Retry"
	PromptAnswer              = "Write answer"
	PromptCheck               = "Check answer"
	PromptNext                = "Next question"
	PromptJump                = "Go to question"
	PromptRetryFeedback       = "Retry feedback"
	PromptRefresh             = "Refresh"
	PromptFinish              = "Finish"
	PromptBack                = "back"
	PromptExit                = "Exit"
)

var (
	errExit = errors.New("exit requested")

	resumeExtensions = []string{".pdf", ".doc", ".docx"}
)

type prompter interface {
	Select(label string, items []string) (int, string, error)
	Input(label, value string, validate func(string) error) (string, error)
}

type terminalPrompter struct{}

func (terminalPrompter) Select(label string, items []string) (int, string, error) {
	prompt := promptui.Select{Label: label, Items: items, Size: 10}
	return prompt.Run()
}

func (terminalPrompter) Input(label, value string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: value, AllowEdit: true, Validate: validate}
	return prompt.Run()
}

type runOptions struct {
	ResumePath   string
	JobSource    jobsource.Source
	SkipPractice bool
}

// session drives one pass through the phases. Every phase gets a fresh controller on entry.
type session struct {
	flow   *workflow.Flow
	svc    assessment.Service
	jobs   *jobsource.Loader
	prompt prompter
	out    io.Writer
	config *Config
	opts   runOptions

	prefilled bool
}

func (s *session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		current := s.flow.Current()
		switch current.Phase {
		case workflow.PhaseUpload:
			err = s.upload(ctx)
		case workflow.PhaseAnalysis:
			err = s.analysis(ctx, current.Submission)
		case workflow.PhasePractice:
			err = s.practice(ctx, current.Practice)
		default:
			err = fmt.Errorf("unknown phase %q", current.Phase)
		}

		if errors.Is(err, errExit) {
			s.flow.Logger().Info("exiting", zap.String("reason", "requested by user"))
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *session) upload(ctx context.Context) error {
	coord := upload.New(&upload.Config{Roles: s.roles()}, &upload.Deps{
		Logger: s.flow.Logger(),
		Alert: func(message string) {
			fmt.Fprintf(s.out, "%s %s\n", promptui.IconBad, message)
		},
		Advance: func(submission *workflow.ResumeSubmission) {
			s.flow.Navigate(workflow.ToAnalysis(submission))
		},
	})

	if !s.prefilled {
		s.prefilled = true
		if s.prefill(ctx, coord) {
			if err := coord.ConfirmAndAdvance(); err == nil {
				return nil
			}
		}
	}

	for {
		items := []string{PromptChooseResume, PromptEnterJobDescription, PromptJobFromURL}
		if len(coord.Suggestions()) > 0 {
			items = append(items, PromptPickRole)
		}
		items = append(items, PromptAnalyze, PromptExit)

		_, choice, err := s.prompt.Select(uploadLabel(coord), items)
		if err != nil {
			return promptErr(err)
		}

		switch choice {
		case PromptChooseResume:
			path, err := s.prompt.Input("Path to your resume (PDF, DOC, DOCX)", "", validateResumePath)
			if err != nil {
				return promptErr(err)
			}
			coord.SetFile(workflow.NewLocalFile(strings.TrimSpace(path)))
		case PromptEnterJobDescription:
			text, err := s.prompt.Input("Job description", coord.JobDescription(), nil)
			if err != nil {
				return promptErr(err)
			}
			if suggestions := coord.SetJobDescription(text); len(suggestions) > 0 {
				fmt.Fprintf(s.out, "Matching roles: %s\n", strings.Join(suggestions, ", "))
			}
		case PromptJobFromURL:
			raw, err := s.prompt.Input("Job posting URL", "", nil)
			if err != nil {
				return promptErr(err)
			}
			text, err := s.jobs.Load(ctx, jobsource.Source{URL: raw})
			if err != nil {
				s.flow.Logger().Warn("loading job description", zap.Error(err))
				fmt.Fprintf(s.out, "%s %v\n", promptui.IconBad, err)
				continue
			}
			coord.SetJobDescription(text)
		case PromptPickRole:
			_, role, err := s.prompt.Select("Choose a role", coord.Suggestions())
			if err != nil {
				return promptErr(err)
			}
			coord.ChooseSuggestion(role)
		case PromptAnalyze:
			err := coord.ConfirmAndAdvance()
			var verr *workflow.ValidationError
			if errors.As(err, &verr) {
				continue
			}
			return err
		case PromptExit:
			return errExit
		}
	}
}

// prefill applies --resume and the job description flags once per run and
// reports whether both halves are set.
func (s *session) prefill(ctx context.Context, coord *upload.Coordinator) bool {
	if path := strings.TrimSpace(s.opts.ResumePath); path != "" {
		if err := validateResumePath(path); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", promptui.IconBad, err)
		} else {
			coord.SetFile(workflow.NewLocalFile(path))
		}
	}

	if !s.opts.JobSource.Empty() {
		text, err := s.jobs.Load(ctx, s.opts.JobSource)
		if err != nil {
			s.flow.Logger().Warn("loading job description", zap.Error(err))
			fmt.Fprintf(s.out, "%s %v\n", promptui.IconBad, err)
		} else {
			coord.SetJobDescription(text)
		}
	}

	return coord.File() != nil && coord.JobDescription() != ""
}

func (s *session) analysis(ctx context.Context, submission *workflow.ResumeSubmission) error {
	views := make(chan analysis.View, 1)
	ctrl := analysis.New(submission, &analysis.Config{TickInterval: s.tick()}, &analysis.Deps{
		Scorer: s.svc,
		Logger: s.flow.Logger(),
		Proceed: func(entry workflow.PracticeEntry) {
			s.flow.Navigate(workflow.ToPractice(entry))
		},
		OnChange: latest(views),
	})
	defer ctrl.Close()

	ctrl.Start(ctx)

	for {
		view, err := s.waitAnalysis(ctx, ctrl, views)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, "\n"+renderAnalysis(view))

		var items []string
		switch view.State {
		case analysis.StateReady:
			if s.opts.SkipPractice {
				items = append(items, PromptFinish)
			} else {
				items = append(items, PromptPractice)
			}
		case analysis.StateFailed:
			items = append(items, PromptRetry)
		}
		items = append(items, PromptBack, PromptExit)

		_, choice, err := s.prompt.Select("What next?", items)
		if err != nil {
			return promptErr(err)
		}

		switch choice {
		case PromptPractice:
			return ctrl.ProceedToPractice()
		case PromptRetry:
			if err := ctrl.Retry(ctx); err != nil {
				return err
			}
		case PromptFinish, PromptExit:
			return errExit
		case PromptBack:
			s.flow.Back()
			return nil
		}
	}
}

func (s *session) waitAnalysis(ctx context.Context, ctrl *analysis.Controller, views <-chan analysis.View) (analysis.View, error) {
	loadingShown, animated := false, false

	return waitUntil(ctx, ctrl.View(), views, func(v analysis.View) bool {
		switch {
		case v.State == analysis.StateIdle || v.Settled():
			if animated {
				fmt.Fprintln(s.out)
			}
			return true
		case v.State == analysis.StateLoading && !loadingShown:
			fmt.Fprintln(s.out, msgAnalyzing)
			loadingShown = true
		case v.Animating:
			fmt.Fprintf(s.out, "\r%s", renderGauge(v.Displayed))
			animated = true
		}
		return false
	})
}

func (s *session) practice(ctx context.Context, entry *workflow.PracticeEntry) error {
	views := make(chan practice.View, 1)
	ctrl := practice.New(entry, &practice.Deps{
		Service:  s.svc,
		Logger:   s.flow.Logger(),
		OnChange: latest(views),
	})
	defer ctrl.Close()

	ctrl.Start(ctx)

	for {
		loadingShown := false
		// Only the question fetch blocks the screen. A pending evaluation
		// stays local to its card so navigation keeps working.
		view, err := waitUntil(ctx, ctrl.View(), views, func(v practice.View) bool {
			if v.State != practice.StateLoading {
				return true
			}
			if !loadingShown {
				fmt.Fprintln(s.out, msgLoadingQs)
				loadingShown = true
			}
			return false
		})
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, "\n"+renderQuestion(view))

		_, choice, err := s.prompt.Select("What next?", practiceMenu(view))
		if err != nil {
			return promptErr(err)
		}

		switch choice {
		case PromptRetry:
			if err := ctrl.Retry(ctx); err != nil {
				return err
			}
		case PromptAnswer:
			text, err := s.prompt.Input("Your answer", view.Answer, nil)
			if err != nil {
				return promptErr(err)
			}
			if err := ctrl.UpdateAnswer(text); err != nil {
				return err
			}
		case PromptCheck, PromptNext:
			err := ctrl.Advance(ctx)
			if errors.Is(err, practice.ErrNoMoreQuestions) {
				fmt.Fprintln(s.out, "That was the last question.")
				continue
			}
			if err != nil {
				return err
			}
		case PromptJump:
			labels := make([]string, 0, view.Total())
			for i, q := range view.Questions {
				labels = append(labels, fmt.Sprintf("%d. %s", i+1, q.Text))
			}
			idx, _, err := s.prompt.Select("Go to question", labels)
			if err != nil {
				return promptErr(err)
			}
			if err := ctrl.JumpTo(idx); err != nil {
				return err
			}
		case PromptRefresh:
			continue
		case PromptRetryFeedback:
			if err := ctrl.RetryEvaluation(ctx); err != nil {
				return err
			}
		case PromptFinish:
			fmt.Fprint(s.out, "\n"+renderSummary(ctrl.View().Summary()))
			return errExit
		case PromptBack:
			s.flow.Back()
			return nil
		case PromptExit:
			return errExit
		}
	}
}

func practiceMenu(view practice.View) []string {
	var items []string
	switch view.State {
	case practice.StateFailed:
		items = append(items, PromptRetry)
	case practice.StateReady:
		items = append(items, PromptAnswer)
		switch {
		case !view.Cursor.Revealed:
			items = append(items, PromptCheck)
		case view.QuestionState == practice.QuestionEvaluating:
			items = append(items, PromptRefresh)
		case view.Cursor.Index < view.Total()-1:
			items = append(items, PromptNext)
		}
		if view.QuestionState == practice.QuestionEvaluationFailed {
			items = append(items, PromptRetryFeedback)
		}
		if view.Total() > 1 {
			items = append(items, PromptJump)
		}
		items = append(items, PromptFinish)
	}

	return append(items, PromptBack, PromptExit)
}

// latest keeps only the newest view in ch. Controllers serialize notifications,
// so the send never blocks.
func latest[V any](ch chan V) func(V) {
	return func(v V) {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// waitUntil feeds the current view and every update to done until it returns true.
func waitUntil[V any](ctx context.Context, view V, views <-chan V, done func(V) bool) (V, error) {
	for !done(view) {
		select {
		case view = <-views:
		case <-ctx.Done():
			return view, ctx.Err()
		}
	}
	return view, nil
}

func (s *session) roles() []string {
	if s.config == nil || s.config.Upload == nil {
		return nil
	}
	return s.config.Upload.Roles
}

func (s *session) tick() time.Duration {
	if s.config == nil || s.config.Analysis == nil {
		return animator.DefaultTick
	}
	return s.config.Analysis.TickInterval
}

func uploadLabel(coord *upload.Coordinator) string {
	file := "none"
	if f := coord.File(); f != nil {
		file = f.Name()
	}

	job := coord.JobDescription()
	if job == "" {
		job = "none"
	}
	job = strings.Join(strings.Fields(job), " ")
	if runes := []rune(job); len(runes) > 40 {
		job = string(runes[:40]) + "..."
	}

	return fmt.Sprintf("Resume: %s | Job: %s", file, job)
}

func validateResumePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New(upload.MessageMissingFile)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(resumeExtensions, ext) {
		return fmt.Errorf("unsupported resume type %q, use %s", ext, strings.Join(resumeExtensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	return nil
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errExit
	}
	return err
}
