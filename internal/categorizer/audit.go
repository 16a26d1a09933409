package categorizer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

// Outcome grades the heuristic against one reference sample.
type Outcome string

const (
	Pass  Outcome = "PASS"
	Fail  Outcome = "FAIL"
	XFail Outcome = "XFAIL"
	// XPass is a known failure that now succeeds. The sample's flag is stale,
	// so it counts as a failure.
	XPass Outcome = "XPASS"
)

func grade(match, knownFailure bool) Outcome {
	switch {
	case match && !knownFailure:
		return Pass
	case match:
		return XPass
	case knownFailure:
		return XFail
	default:
		return Fail
	}
}

type AuditResult struct {
	FdcID       int64         `json:"fdcId"`
	Description string        `json:"description"`
	Expected    diet.Category `json:"expected"`
	Heuristic   diet.Category `json:"heuristic"`
	Outcome     Outcome       `json:"outcome"`
}

type AuditReport struct {
	Results []AuditResult   `json:"results"`
	Counts  map[Outcome]int `json:"counts"`
}

// Failed reports whether any sample failed or unexpectedly passed.
func (r AuditReport) Failed() bool {
	return r.Counts[Fail]+r.Counts[XPass] > 0
}

// Audit runs the heuristic for every reference sample and grades it against
// the expected category. Samples whose food is gone are skipped.
func (c *Categorizer) Audit(ctx context.Context) (AuditReport, error) {
	report := AuditReport{Counts: make(map[Outcome]int)}
	for sample := range c.refs.All() {
		food, err := c.foods.ByFdcID(ctx, sample.FdcID)
		if err != nil {
			if apperrors.IsMissing(err) {
				c.logger.Warn("reference sample food missing", "fdc_id", sample.FdcID)
				continue
			}
			return report, fmt.Errorf("auditing fdc id %d: %w", sample.FdcID, err)
		}
		h, err := c.Heuristic(ctx, food)
		if err != nil {
			return report, fmt.Errorf("auditing fdc id %d: %w", sample.FdcID, err)
		}
		outcome := grade(h == sample.ExpectedCategory, sample.KnownFailure)
		report.Counts[outcome]++
		report.Results = append(report.Results, AuditResult{
			FdcID:       sample.FdcID,
			Description: food.Description,
			Expected:    sample.ExpectedCategory,
			Heuristic:   h,
			Outcome:     outcome,
		})
	}
	c.logger.Info("reference audit complete",
		"pass", report.Counts[Pass], "fail", report.Counts[Fail],
		"xfail", report.Counts[XFail], "xpass", report.Counts[XPass])
	return report, nil
}
