package model

import "fmt"

type issueKey struct {
	stage    StageName
	severity string
	reason   string
}

// IssueLog folds per-row issues into one summary per (stage, severity,
// reason), keeping the first few row indexes as samples.
type IssueLog struct {
	samples int
	order   []issueKey
	byKey   map[issueKey]*IssueSummary
}

// NewIssueLog returns an empty log keeping up to samples row indexes per entry.
func NewIssueLog(samples int) *IssueLog {
	return &IssueLog{samples: samples, byKey: make(map[issueKey]*IssueSummary)}
}

// Add records issues in order.
func (l *IssueLog) Add(issues ...RowIssue) {
	for _, is := range issues {
		k := issueKey{stage: is.Stage, severity: is.Severity, reason: is.Reason}
		sum, ok := l.byKey[k]
		if !ok {
			sum = &IssueSummary{Stage: is.Stage, Severity: is.Severity, Reason: is.Reason}
			l.byKey[k] = sum
			l.order = append(l.order, k)
		}
		sum.Count++
		if len(sum.SampleRows) < l.samples {
			sum.SampleRows = append(sum.SampleRows, is.RowIndex)
		}
	}
}

// Len returns the number of distinct summaries.
func (l *IssueLog) Len() int { return len(l.order) }

// Summaries returns one entry per distinct issue in first-seen order.
func (l *IssueLog) Summaries() []IssueSummary {
	out := make([]IssueSummary, 0, len(l.order))
	for _, k := range l.order {
		sum := *l.byKey[k]
		sum.Message = summaryMessage(sum)
		out = append(out, sum)
	}
	return out
}

// Messages returns the human-readable line of every summary.
func (l *IssueLog) Messages() []string {
	sums := l.Summaries()
	out := make([]string, len(sums))
	for i, s := range sums {
		out[i] = s.Message
	}
	return out
}

func summaryMessage(s IssueSummary) string {
	noun := "rows"
	if s.Count == 1 {
		noun = "row"
	}
	verb := "flagged"
	if s.Severity == SeverityError {
		verb = "skipped"
	}
	return fmt.Sprintf("%d %s %s: %s", s.Count, noun, verb, s.Reason)
}
