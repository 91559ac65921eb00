package render

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/migrate"
)

// Outcome words for a finished run
const (
	OutcomeCompleted    = "completed"
	OutcomeWithFailures = "completed with failures"
	OutcomeInterrupted  = "interrupted"
	OutcomeFailed       = "failed"
)

// Outcome classifies a run from its summary and error.
func Outcome(s *migrate.Summary, runErr error) string {
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		return OutcomeInterrupted
	case runErr != nil:
		return OutcomeFailed
	case s != nil && s.Failures() > 0:
		return OutcomeWithFailures
	default:
		return OutcomeCompleted
	}
}

type summaryDoc struct {
	migrate.Summary `yaml:",inline"`

	Outcome string `json:"outcome" yaml:"outcome"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RenderSummary prints the end-of-run report in the configured format.
func (r *Renderer) RenderSummary(s *migrate.Summary, runErr error) error {
	if s == nil {
		s = &migrate.Summary{}
	}
	outcome := Outcome(s, runErr)
	doc := summaryDoc{Summary: *s, Outcome: outcome}
	if runErr != nil {
		doc.Error = runErr.Error()
	}

	counters := s.Counters()
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(doc)
	case FormatNDJSON:
		return r.RenderNDJSON([]interface{}{doc})
	case FormatYAML:
		return r.RenderYAML(doc)
	case FormatTSV:
		rows := make([][]string, 0, len(counters))
		for _, c := range counters {
			rows = append(rows, []string{c.Name, strconv.Itoa(c.Value)})
		}
		return r.RenderTSV([]string{"counter", "value"}, rows)
	}

	fmt.Fprintf(r.writer, "\nBoard %q -> project %d: %s\n\n", s.Board, s.Project, r.styleOutcome(outcome))

	var rows [][]string
	var shown []migrate.Counter
	for _, c := range counters {
		if c.Value == 0 {
			continue
		}
		rows = append(rows, []string{c.Name, strconv.Itoa(c.Value)})
		shown = append(shown, c)
	}
	if len(rows) == 0 {
		fmt.Fprintln(r.writer, r.styles.dim.Render("nothing to migrate"))
		return nil
	}
	return r.RenderStyledTable([]string{"COUNTER", "VALUE"}, rows, func(row, col int, cell string) string {
		if col != 1 {
			return cell
		}
		if shown[row].Failure {
			return r.styles.bad.Render(cell)
		}
		return r.styles.ok.Render(cell)
	})
}

func (r *Renderer) styleOutcome(outcome string) string {
	switch outcome {
	case OutcomeCompleted:
		return r.styles.ok.Render(outcome)
	case OutcomeWithFailures, OutcomeInterrupted:
		return r.styles.warn.Render(outcome)
	default:
		return r.styles.bad.Render(outcome)
	}
}

// StatusStyle renders a stored run status with the outcome palette.
func (r *Renderer) StatusStyle(status string) string {
	switch status {
	case "completed":
		return r.styles.ok.Render(status)
	case "running", "interrupted":
		return r.styles.warn.Render(status)
	default:
		return r.styles.bad.Render(status)
	}
}
