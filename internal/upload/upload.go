// Package upload collects the resume and job description and hands them to the scoring phase.
package upload

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/logger"
	"github.com/spigell/resume-coach/internal/workflow"
)

const (
	MessageMissingFile           = "Upload your resume!"
	MessageMissingJobDescription = "Enter a job description!"
)

// DefaultRoles is the role catalog offered as job description suggestions.
var DefaultRoles = []string{
	"Software Engineer",
	"Data Scientist",
	"AI Engineer",
	"Frontend Developer",
	"Backend Developer",
	"ML Researcher",
}

type Config struct {
	// Roles overrides DefaultRoles when not empty.
	Roles []string
}

type Deps struct {
	Logger *zap.Logger
	// Alert shows a blocking message to the user.
	Alert func(message string)
	// Advance requests the transition to the scoring phase.
	Advance func(submission *workflow.ResumeSubmission)
}

type Coordinator struct {
	mu             sync.Mutex
	roles          []string
	file           workflow.File
	jobDescription string
	suggestions    []string

	validate *validator.Validate
	logger   *zap.Logger
	alert    func(string)
	advance  func(*workflow.ResumeSubmission)
}

type draft struct {
	File           workflow.File `validate:"required"`
	JobDescription string        `validate:"required"`
}

var messages = map[string]string{
	"File":           MessageMissingFile,
	"JobDescription": MessageMissingJobDescription,
}

func New(cfg *Config, deps *Deps) *Coordinator {
	roles := DefaultRoles
	if cfg != nil && len(cfg.Roles) > 0 {
		roles = cfg.Roles
	}

	c := &Coordinator{
		roles:    append([]string(nil), roles...),
		validate: validator.New(),
		logger:   zap.NewNop(),
		alert:    func(string) {},
		advance:  func(*workflow.ResumeSubmission) {},
	}

	if deps != nil {
		c.logger = logger.WithPhase(deps.Logger, string(workflow.PhaseUpload))
		if deps.Alert != nil {
			c.alert = deps.Alert
		}
		if deps.Advance != nil {
			c.advance = deps.Advance
		}
	}

	return c
}

// SetFile stores the candidate file as is. Type and size are the picker's business.
func (c *Coordinator) SetFile(file workflow.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.file = file
	if file != nil {
		c.logger.Debug("resume selected", zap.String("file", file.Name()))
	}
}

func (c *Coordinator) File() workflow.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file
}

// SetJobDescription stores the text and returns the refreshed suggestion list.
func (c *Coordinator) SetJobDescription(text string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jobDescription = text
	c.suggestions = Suggest(c.roles, text)

	return append([]string(nil), c.suggestions...)
}

func (c *Coordinator) JobDescription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobDescription
}

func (c *Coordinator) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.suggestions...)
}

// ChooseSuggestion takes a suggested role as the job description and hides the list.
func (c *Coordinator) ChooseSuggestion(role string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jobDescription = role
	c.suggestions = nil
}

// ConfirmAndAdvance checks the file and then the job description. A failed
// check is shown through Alert and returned as *workflow.ValidationError;
// nothing is handed off in that case.
func (c *Coordinator) ConfirmAndAdvance() error {
	c.mu.Lock()
	d := draft{File: c.file, JobDescription: c.jobDescription}
	c.mu.Unlock()

	if err := c.check(d); err != nil {
		c.logger.Info("upload blocked", zap.String("field", err.Field), zap.String("reason", err.Message))
		c.alert(err.Message)
		return err
	}

	submission, err := workflow.NewResumeSubmission(d.File, d.JobDescription)
	if err != nil {
		return err
	}

	c.logger.Info("submission confirmed",
		zap.String("file", submission.File().Name()),
		zap.Int("job_description_length", len(submission.JobDescription())),
	)
	c.advance(submission)

	return nil
}

func (c *Coordinator) check(d draft) *workflow.ValidationError {
	err := c.validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &workflow.ValidationError{Field: "submission", Message: err.Error()}
	}

	// Field order decides which message the user sees first.
	first := fieldErrs[0].Field()
	return &workflow.ValidationError{Field: first, Message: messages[first]}
}

// Suggest returns the roles containing query, ignoring case. An empty query matches nothing.
func Suggest(roles []string, query string) []string {
	if query == "" {
		return nil
	}

	needle := strings.ToLower(query)
	matches := make([]string, 0, len(roles))
	for _, role := range roles {
		if strings.Contains(strings.ToLower(role), needle) {
			matches = append(matches, role)
		}
	}

	return matches
}
