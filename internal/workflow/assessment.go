package workflow

// Category is one named component of the match score.
type Category struct {
	Name  string
	Value int
}

// ScoreReport holds the overall score and its breakdown in the order the service sent it.
type ScoreReport struct {
	Total     int
	Breakdown []Category
}

// ReasonList explains the score. Received distinguishes "nothing yet" from "zero reasons".
type ReasonList struct {
	Items    []string
	Received bool
}

func (r ReasonList) Pending() bool { return !r.Received }

func (r ReasonList) Len() int { return len(r.Items) }

// Assessment is a single scoring response.
type Assessment struct {
	Report  ScoreReport
	Reasons ReasonList
}

// Clone returns a deep copy so callers can't mutate controller state.
func (a *Assessment) Clone() *Assessment {
	if a == nil {
		return nil
	}

	out := &Assessment{
		Report: ScoreReport{
			Total:     a.Report.Total,
			Breakdown: append([]Category(nil), a.Report.Breakdown...),
		},
		Reasons: ReasonList{Received: a.Reasons.Received},
	}
	if a.Reasons.Items != nil {
		out.Reasons.Items = append(make([]string, 0, len(a.Reasons.Items)), a.Reasons.Items...)
	}

	return out
}

type Question struct {
	Text string
}

// QuestionSet is immutable once fetched; the index is the question identity.
type QuestionSet []Question

type Feedback struct {
	Text string
}
