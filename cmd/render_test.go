package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spigell/resume-coach/internal/analysis"
	"github.com/spigell/resume-coach/internal/practice"
	"github.com/spigell/resume-coach/internal/workflow"
)

func TestRenderGauge(t *testing.T) {
	tests := []struct {
		value  int
		filled int
	}{
		{value: 0, filled: 0},
		{value: 50, filled: 15},
		{value: 82, filled: 25},
		{value: 100, filled: 30},
		{value: 140, filled: 30},
	}

	for _, tt := range tests {
		got := renderGauge(tt.value)
		assert.Equal(t, tt.filled, strings.Count(got, "█"), got)
		assert.Equal(t, gaugeWidth-tt.filled, strings.Count(got, "░"), got)
	}

	assert.True(t, strings.HasSuffix(renderGauge(7), "  7%"))
}

func TestRenderBreakdownKeepsOrderAndBands(t *testing.T) {
	got := renderBreakdown([]workflow.Category{
		{Name: "skills", Value: 90},
		{Name: "experience", Value: 60},
		{Name: "education", Value: 20},
	})

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if assert.Len(t, lines, 4) {
		assert.Contains(t, lines[1], "skills")
		assert.Contains(t, lines[1], "90%")
		assert.Contains(t, lines[1], "high")
		assert.Contains(t, lines[2], "experience")
		assert.Contains(t, lines[2], "medium")
		assert.Contains(t, lines[3], "education")
		assert.Contains(t, lines[3], "low")
	}

	assert.Empty(t, renderBreakdown(nil))
}

func TestRenderReasons(t *testing.T) {
	strong := renderReasons(workflow.VerdictStrong, workflow.ReasonList{Items: []string{"Go", "Kafka"}, Received: true})
	assert.Contains(t, strong, "Great news! Your CV is a strong match for this job because:")
	assert.Contains(t, strong, "✔ Go")
	assert.Contains(t, strong, "✔ Kafka")

	weak := renderReasons(workflow.VerdictNeedsImprovement, workflow.ReasonList{Items: []string{"No SQL"}, Received: true})
	assert.Contains(t, weak, "Your CV needs improvement to better match the job description:")
	assert.Contains(t, weak, "❌ No SQL")

	assert.Contains(t, renderReasons(workflow.VerdictStrong, workflow.ReasonList{}), msgGenerating)
	assert.Contains(t, renderReasons(workflow.VerdictStrong, workflow.ReasonList{Received: true}), msgNoReasons)
	assert.NotContains(t, renderReasons(workflow.VerdictStrong, workflow.ReasonList{Received: true}), msgGenerating)
	assert.Contains(t, msgGenerating, "Generating insights")
}

func TestRenderAnalysis(t *testing.T) {
	assert.Equal(t, msgAnalyzing+"\n", renderAnalysis(analysis.View{State: analysis.StateLoading}))
	assert.Contains(t, renderAnalysis(analysis.View{State: analysis.StateFailed, Err: errors.New("boom")}), "boom")

	ready := renderAnalysis(analysis.View{
		State:     analysis.StateReady,
		Displayed: 45,
		Assessment: &workflow.Assessment{
			Report:  workflow.ScoreReport{Total: 45, Breakdown: []workflow.Category{{Name: "skills", Value: 45}}},
			Reasons: workflow.ReasonList{Items: []string{"Missing Go"}, Received: true},
		},
	})
	assert.Contains(t, ready, " 45%")
	assert.Contains(t, ready, "skills")
	assert.Contains(t, ready, "❌ Missing Go")
}

func TestRenderQuestion(t *testing.T) {
	assert.Contains(t, renderQuestion(practice.View{State: practice.StateEmpty}), "No questions received.")
	assert.Contains(t, renderQuestion(practice.View{State: practice.StateLoading}), msgLoadingQs)

	view := practice.View{
		State:         practice.StateReady,
		Questions:     workflow.QuestionSet{{Text: "One?"}, {Text: "Two?"}, {Text: "Three?"}},
		Cursor:        practice.Cursor{Index: 1, Revealed: true},
		QuestionState: practice.QuestionRevealed,
		Feedback:      []workflow.Feedback{{Text: "Be specific"}},
	}
	got := renderQuestion(view)
	assert.Contains(t, got, "2/3")
	assert.Contains(t, got, "Q2. Two?")
	assert.Contains(t, got, msgEmptyAnswer)
	assert.Contains(t, got, "• Be specific")

	view.Feedback = nil
	assert.Contains(t, renderQuestion(view), msgNoFeedback)

	view.QuestionState = practice.QuestionEvaluating
	view.Cursor.Revealed = true
	assert.Contains(t, renderQuestion(view), msgEvaluating)
}

func TestPracticeMenu(t *testing.T) {
	questions := workflow.QuestionSet{{Text: "a"}, {Text: "b"}}

	tests := []struct {
		name string
		view practice.View
		want []string
	}{
		{
			name: "failed",
			view: practice.View{State: practice.StateFailed},
			want: []string{PromptRetry, PromptBack, PromptExit},
		},
		{
			name: "empty",
			view: practice.View{State: practice.StateEmpty},
			want: []string{PromptBack, PromptExit},
		},
		{
			name: "awaiting",
			view: practice.View{State: practice.StateReady, Questions: questions},
			want: []string{PromptAnswer, PromptCheck, PromptJump, PromptFinish, PromptBack, PromptExit},
		},
		{
			name: "revealed",
			view: practice.View{State: practice.StateReady, Questions: questions, Cursor: practice.Cursor{Revealed: true}},
			want: []string{PromptAnswer, PromptNext, PromptJump, PromptFinish, PromptBack, PromptExit},
		},
		{
			name: "evaluating",
			view: practice.View{
				State:         practice.StateReady,
				Questions:     questions,
				Cursor:        practice.Cursor{Revealed: true},
				QuestionState: practice.QuestionEvaluating,
			},
			want: []string{PromptAnswer, PromptRefresh, PromptJump, PromptFinish, PromptBack, PromptExit},
		},
		{
			name: "revealed last with failed feedback",
			view: practice.View{
				State:         practice.StateReady,
				Questions:     questions[:1],
				Cursor:        practice.Cursor{Revealed: true},
				QuestionState: practice.QuestionEvaluationFailed,
			},
			want: []string{PromptAnswer, PromptRetryFeedback, PromptFinish, PromptBack, PromptExit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, practiceMenu(tt.view))
		})
	}
}
