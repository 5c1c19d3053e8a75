package practice

import (
	"fmt"

	"github.com/spigell/resume-coach/internal/workflow"
)

// View is a snapshot of the controller. Slices are copies.
type View struct {
	State     State
	Err       error
	Questions workflow.QuestionSet
	Cursor    Cursor
	// Answer is the active question's answer.
	Answer string
	// Feedback is set only while the active question is revealed and has feedback.
	Feedback      []workflow.Feedback
	QuestionState QuestionState
	EvaluationErr error

	answers []string
	cache   [][]workflow.Feedback
}

// SummaryItem is one question with what the user answered and got back.
type SummaryItem struct {
	Question workflow.Question
	Answer   string
	Feedback []workflow.Feedback
}

func (v View) Total() int { return len(v.Questions) }

// Progress renders the position as "active/total".
func (v View) Progress() string {
	if len(v.Questions) == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", v.Cursor.Index+1, len(v.Questions))
}

// Fraction is the share of questions reached, for progress bars.
func (v View) Fraction() float64 {
	if len(v.Questions) == 0 {
		return 0
	}
	return float64(v.Cursor.Index+1) / float64(len(v.Questions))
}

func (v View) Question() (workflow.Question, bool) {
	if v.Cursor.Index < 0 || v.Cursor.Index >= len(v.Questions) {
		return workflow.Question{}, false
	}
	return v.Questions[v.Cursor.Index], true
}

func (v View) AnswerAt(i int) string {
	if i < 0 || i >= len(v.answers) {
		return ""
	}
	return v.answers[i]
}

// FeedbackAt is nil until question i was evaluated.
func (v View) FeedbackAt(i int) []workflow.Feedback {
	if i < 0 || i >= len(v.cache) {
		return nil
	}
	return v.cache[i]
}

func (v View) Summary() []SummaryItem {
	items := make([]SummaryItem, 0, len(v.Questions))
	for i, q := range v.Questions {
		items = append(items, SummaryItem{
			Question: q,
			Answer:   v.AnswerAt(i),
			Feedback: v.FeedbackAt(i),
		})
	}
	return items
}
