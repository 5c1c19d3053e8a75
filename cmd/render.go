package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/spigell/resume-coach/internal/analysis"
	"github.com/spigell/resume-coach/internal/practice"
	"github.com/spigell/resume-coach/internal/workflow"
)

const (
	gaugeWidth     = 30
	progressWidth  = 20
	msgAnalyzing   = "Analyzing your resume..."
	msgGenerating  = "Generating insights..."
	msgNoReasons   = "The service gave no reasons for this score."
	msgLoadingQs   = "Loading practice questions..."
	msgEvaluating  = "Evaluating your answer..."
	msgNoFeedback  = "No feedback for this answer."
	msgEmptyAnswer = "(no answer yet)"
)

var bandStyles = map[workflow.Band]func(interface{}) string{
	workflow.BandHigh:   promptui.Styler(promptui.FGGreen),
	workflow.BandMedium: promptui.Styler(promptui.FGYellow),
	workflow.BandLow:    promptui.Styler(promptui.FGRed),
}

func bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// renderGauge draws the score ring as a horizontal bar.
func renderGauge(value int) string {
	return fmt.Sprintf("Match score [%s] %3d%%", bar(float64(value)/100, gaugeWidth), value)
}

func renderBreakdown(categories []workflow.Category) string {
	if len(categories) == 0 {
		return ""
	}

	width := 0
	for _, c := range categories {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Breakdown:\n")
	for _, c := range categories {
		band := workflow.BandFor(c.Value)
		fmt.Fprintf(&b, "  %-*s %3d%%  %s\n", width, c.Name, c.Value, bandStyles[band](string(band)))
	}
	return b.String()
}

func renderReasons(verdict workflow.Verdict, reasons workflow.ReasonList) string {
	var b strings.Builder
	b.WriteString(verdict.Message())
	b.WriteString("\n")

	switch {
	case reasons.Pending():
		b.WriteString("  " + msgGenerating + "\n")
	case reasons.Len() == 0:
		b.WriteString("  " + msgNoReasons + "\n")
	default:
		for _, r := range reasons.Items {
			fmt.Fprintf(&b, "  %s %s\n", verdict.Glyph(), r)
		}
	}
	return b.String()
}

func renderAnalysis(view analysis.View) string {
	switch view.State {
	case analysis.StateIdle:
		return "Nothing to analyze. Go back and upload your resume.\n"
	case analysis.StateLoading:
		return msgAnalyzing + "\n"
	case analysis.StateFailed:
		return fmt.Sprintf("Scoring failed: %v\n", view.Err)
	}

	var b strings.Builder
	b.WriteString(renderGauge(view.Displayed))
	b.WriteString("\n\n")
	if view.Assessment != nil {
		b.WriteString(renderBreakdown(view.Assessment.Report.Breakdown))
		b.WriteString("\n")
		b.WriteString(renderReasons(view.Verdict(), view.Assessment.Reasons))
	}
	return b.String()
}

func renderQuestion(view practice.View) string {
	switch view.State {
	case practice.StateLoading:
		return msgLoadingQs + "\n"
	case practice.StateEmpty:
		return practice.MessageEmpty + "\n"
	case practice.StateFailed:
		return fmt.Sprintf("Fetching questions failed: %v\n", view.Err)
	}

	q, _ := view.Question()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n\n", bar(view.Fraction(), progressWidth), view.Progress())
	fmt.Fprintf(&b, "Q%d. %s\n\n", view.Cursor.Index+1, q.Text)

	answer := view.Answer
	if strings.TrimSpace(answer) == "" {
		answer = msgEmptyAnswer
	}
	fmt.Fprintf(&b, "Your answer:\n  %s\n", answer)

	switch view.QuestionState {
	case practice.QuestionEvaluating:
		b.WriteString("\n" + msgEvaluating + "\n")
	case practice.QuestionEvaluationFailed:
		fmt.Fprintf(&b, "\nFeedback failed: %v\n", view.EvaluationErr)
	}

	if len(view.Feedback) > 0 {
		b.WriteString("\nFeedback:\n")
		for _, f := range view.Feedback {
			fmt.Fprintf(&b, "  • %s\n", f.Text)
		}
	} else if view.QuestionState == practice.QuestionRevealed {
		b.WriteString("\n" + msgNoFeedback + "\n")
	}

	return b.String()
}

func renderSummary(items []practice.SummaryItem) string {
	var b strings.Builder
	b.WriteString("Practice summary\n")
	for i, item := range items {
		answer := item.Answer
		if strings.TrimSpace(answer) == "" {
			answer = msgEmptyAnswer
		}
		fmt.Fprintf(&b, "\nQ%d. %s\n  A: %s\n", i+1, item.Question.Text, answer)
		for _, f := range item.Feedback {
			fmt.Fprintf(&b, "  • %s\n", f.Text)
		}
	}
	return b.String()
}
