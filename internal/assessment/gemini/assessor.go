// Package gemini scores resumes and coaches interview answers with Google Gemini
// instead of the hosted assessment backend.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-coach/internal/assessment"
	"github.com/spigell/resume-coach/internal/utils"
	"github.com/spigell/resume-coach/internal/workflow"
)

const defaultMaxLogLength = 200

var (
	//go:embed prompts/score.md
	scorePrompt string
	//go:embed prompts/questions.md
	questionsPrompt string
	//go:embed prompts/evaluate.md
	evaluatePrompt string
)

var _ assessment.Service = (*Assessor)(nil)

type contentGenerator interface {
	Generate(ctx context.Context, parts ...*genai.Part) (string, error)
}

// Assessor speaks the same shapes as the hosted backend, so replies go through
// the assessment parsers.
type Assessor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewAssessor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Assessor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assessor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Assessor) ScoreResume(ctx context.Context, submission *workflow.ResumeSubmission) (*workflow.Assessment, error) {
	if submission == nil {
		return nil, errors.New("submission is required")
	}

	data, mimeType, err := readResume(submission.File())
	if err != nil {
		return nil, assessment.WrapServiceError(assessment.OpScore, 0, err)
	}

	prompt := buildPrompt(scorePrompt, map[string]string{
		"{{JOB_DESCRIPTION}}": submission.JobDescription(),
	})

	raw, err := a.generate(ctx, assessment.OpScore, genai.NewPartFromText(prompt), genai.NewPartFromBytes(data, mimeType))
	if err != nil {
		return nil, err
	}

	payload := assessment.ExtractJSON(raw)
	a.checkShape(assessment.OpScore, scoreSchema, payload)

	result, err := assessment.ParseScore([]byte(payload))
	if err != nil {
		return nil, assessment.WrapServiceError(assessment.OpScore, 0, err)
	}

	return result, nil
}

func (a *Assessor) PracticeQuestions(ctx context.Context, jobDescription string) (workflow.QuestionSet, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return workflow.QuestionSet{}, nil
	}

	prompt := buildPrompt(questionsPrompt, map[string]string{
		"{{JOB_DESCRIPTION}}": jobDescription,
	})

	raw, err := a.generate(ctx, assessment.OpQuestions, genai.NewPartFromText(prompt))
	if err != nil {
		return nil, err
	}

	a.checkShape(assessment.OpQuestions, questionsSchema, assessment.ExtractJSON(raw))

	questions, err := assessment.ParseQuestions([]byte(raw))
	if err != nil {
		return nil, assessment.WrapServiceError(assessment.OpQuestions, 0, err)
	}

	return questions, nil
}

func (a *Assessor) EvaluateAnswer(ctx context.Context, question, answer string) ([]workflow.Feedback, error) {
	prompt := buildPrompt(evaluatePrompt, map[string]string{
		"{{QUESTION}}": question,
		"{{ANSWER}}":   answer,
	})

	raw, err := a.generate(ctx, assessment.OpEvaluate, genai.NewPartFromText(prompt))
	if err != nil {
		return nil, err
	}

	a.checkShape(assessment.OpEvaluate, evaluateSchema, assessment.ExtractJSON(raw))

	feedback, err := assessment.ParseFeedback([]byte(raw))
	if err != nil {
		return nil, assessment.WrapServiceError(assessment.OpEvaluate, 0, err)
	}

	return feedback, nil
}

func (a *Assessor) generate(ctx context.Context, op string, parts ...*genai.Part) (string, error) {
	if a.generator == nil {
		return "", assessment.WrapServiceError(op, 0, errors.New("gemini generator is not configured"))
	}

	a.logger.Debug("gemini generate content request",
		zap.String("op", op),
		zap.Int("prompt_length", utf8.RuneCountInString(parts[0].Text)),
		zap.String("prompt_preview", utils.TruncateForLog(parts[0].Text, a.maxLogLen)),
	)

	raw, err := a.generator.Generate(ctx, parts...)
	if err != nil {
		return "", assessment.WrapServiceError(op, 0, err)
	}

	a.logger.Debug("gemini generate content response",
		zap.String("op", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return raw, nil
}

// checkShape logs schema drift only. The parsers decide what is usable.
func (a *Assessor) checkShape(op string, schema *gojsonschema.Schema, payload string) {
	violations := shapeViolations(schema, payload)
	if len(violations) == 0 {
		return
	}
	a.logger.Warn("gemini reply does not match the requested shape",
		zap.String("op", op),
		zap.Strings("violations", violations),
	)
}

func readResume(file workflow.File) ([]byte, string, error) {
	if file == nil {
		return nil, "", errors.New("resume file is required")
	}

	rc, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name(), err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s is empty", file.Name())
	}

	// Gemini rejects media type parameters such as charset.
	mimeType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")

	return data, strings.TrimSpace(mimeType), nil
}

func buildPrompt(template string, values map[string]string) string {
	prompt := template
	for placeholder, value := range values {
		prompt = strings.ReplaceAll(prompt, placeholder, strings.TrimSpace(value))
	}
	return prompt
}
