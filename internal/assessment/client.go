package assessment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-coach/internal/workflow"
)

const (
	DefaultBaseURL = "https://smart-hr-assistant-backend.onrender.com"
	userAgent      = "spigell/resume-coach"
	// The hosted backend sleeps when idle and the first request can take a while.
	defaultTimeout      = 2 * time.Minute
	defaultMaxLogLength = 200

	scorePath     = "/analyse_resume/"
	questionsPath = "/practice_question/"
	evaluatePath  = "/analyse_answer/"

	fieldResume         = "resume_file"
	fieldJobDescription = "job_description"
	fieldQuestion       = "question"
	fieldAnswer         = "answer"
)

var _ Service = (*Client)(nil)

// Client talks to the hosted assessment backend over multipart form posts.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	// Limiter throttles outgoing requests when set.
	Limiter      *rate.Limiter
	MaxLogLength int
}

func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger:  logger,
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent:    userAgent,
		MaxLogLength: defaultMaxLogLength,
	}
}

func (c *Client) ScoreResume(ctx context.Context, submission *workflow.ResumeSubmission) (*workflow.Assessment, error) {
	if submission == nil {
		return nil, errors.New("submission is required")
	}

	file, err := readFormFile(fieldResume, submission.File())
	if err != nil {
		return nil, WrapServiceError(OpScore, 0, err)
	}

	body, status, err := c.postForm(ctx, OpScore, scorePath, []formField{
		{name: fieldJobDescription, value: submission.JobDescription()},
	}, file)
	if err != nil {
		return nil, err
	}

	result, err := ParseScore(body)
	if err != nil {
		return nil, WrapServiceError(OpScore, status, err)
	}

	c.logger.Debug("resume scored",
		zap.Int("total", result.Report.Total),
		zap.Int("categories", len(result.Report.Breakdown)),
		zap.Int("reasons", result.Reasons.Len()),
	)

	return result, nil
}

func (c *Client) PracticeQuestions(ctx context.Context, jobDescription string) (workflow.QuestionSet, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return workflow.QuestionSet{}, nil
	}

	body, status, err := c.postForm(ctx, OpQuestions, questionsPath, []formField{
		{name: fieldJobDescription, value: jobDescription},
	}, nil)
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuestions(body)
	if err != nil {
		return nil, WrapServiceError(OpQuestions, status, err)
	}

	c.logger.Debug("practice questions received", zap.Int("count", len(questions)))

	return questions, nil
}

func (c *Client) EvaluateAnswer(ctx context.Context, question, answer string) ([]workflow.Feedback, error) {
	body, status, err := c.postForm(ctx, OpEvaluate, evaluatePath, []formField{
		{name: fieldQuestion, value: question},
		{name: fieldAnswer, value: answer},
	}, nil)
	if err != nil {
		return nil, err
	}

	feedback, err := ParseFeedback(body)
	if err != nil {
		return nil, WrapServiceError(OpEvaluate, status, err)
	}

	return feedback, nil
}
