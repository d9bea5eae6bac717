package dispense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// TubeResult describes the dispensing of one dose.
type TubeResult struct {
	Tube       string
	Medication string
	Dosage     string

	// Delta is the weight gained on the scale in grams
	Delta float64

	// Reached is true when Delta met the threshold before the feed timeout
	Reached bool

	Elapsed time.Duration

	// Err collects actuator and scale failures for this tube
	Err error
}

// Report is the outcome of dispensing one group.
type Report struct {
	Slot      string
	StartedAt time.Time
	Results   []TubeResult
}

// Complete reports whether every tube reached its weight threshold.
func (r *Report) Complete() bool {
	for _, res := range r.Results {
		if !res.Reached {
			return false
		}
	}
	return len(r.Results) > 0
}

// Summary renders the report as one line, e.g. "Aspirin ok, Vitamin D timeout".
func (r *Report) Summary() string {
	s := ""
	for i, res := range r.Results {
		if i > 0 {
			s += ", "
		}
		outcome := "ok"
		switch {
		case res.Err != nil:
			outcome = "error"
		case !res.Reached:
			outcome = "timeout"
		}
		s += fmt.Sprintf("%s %s", res.Medication, outcome)
	}
	return s
}

// dispense runs every dose of group in order. Failures of one tube are
// recorded and the sequence continues; only ctx stops it early.
func (c *Coordinator) dispense(ctx context.Context, group domain.Group, now time.Time) (*Report, error) {
	report := &Report{Slot: group.Time, StartedAt: now}
	c.logger.Info("dispensing", ports.String("slot", group.Time), ports.Int("doses", group.Count))

	for i, dose := range group.List() {
		if i > 0 && c.cfg.SettleDelay > 0 {
			if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
				return report, err
			}
		}

		res, err := c.dispenseTube(ctx, dose)
		report.Results = append(report.Results, res)
		if err != nil {
			return report, err
		}
	}

	c.logger.Info("dispensing finished",
		ports.String("slot", group.Time),
		ports.Bool("complete", report.Complete()),
		ports.String("summary", report.Summary()),
	)
	return report, nil
}

// dispenseTube feeds one tube until the scale shows the threshold or the feed
// timeout passes. The returned error is ctx's; hardware errors go into the
// result.
func (c *Coordinator) dispenseTube(ctx context.Context, dose domain.Dose) (res TubeResult, ctxErr error) {
	res = TubeResult{Tube: dose.Tube, Medication: dose.Medication, Dosage: dose.Dosage}
	start := c.clock.Now()
	defer func() { res.Elapsed = c.clock.Now().Sub(start) }()

	if err := c.actuator.OpenPath(dose.Tube); err != nil {
		res.Err = fmt.Errorf("open path: %w", err)
		c.logger.Warn("skipping tube", ports.String("tube", dose.Tube), ports.Err(res.Err))
		return res, nil
	}

	baseline, err := c.actuator.ReadWeight()
	if err != nil {
		res.Err = fmt.Errorf("read baseline weight: %w", err)
		c.finishTube(&res)
		return res, nil
	}

	if err := c.actuator.SetFeed(dose.Tube, true); err != nil {
		res.Err = fmt.Errorf("start feed: %w", err)
		c.finishTube(&res)
		return res, nil
	}

	for {
		if err := c.sleep(ctx, c.cfg.WeightPoll); err != nil {
			ctxErr = err
			break
		}
		weight, err := c.actuator.ReadWeight()
		if err != nil {
			c.logger.Debug("scale read failed", ports.String("tube", dose.Tube), ports.Err(err))
		} else {
			res.Delta = weight - baseline
			if res.Delta >= c.cfg.WeightThreshold {
				res.Reached = true
				break
			}
		}
		if c.clock.Now().Sub(start) >= c.cfg.FeedTimeout {
			c.logger.Warn("feed timeout",
				ports.String("tube", dose.Tube),
				ports.Float64("delta", res.Delta),
				ports.Duration("timeout", c.cfg.FeedTimeout),
			)
			break
		}
	}

	if err := c.actuator.SetFeed(dose.Tube, false); err != nil {
		res.Err = errors.Join(res.Err, fmt.Errorf("stop feed: %w", err))
	}
	c.finishTube(&res)

	c.logger.Debug("tube dispensed",
		ports.String("tube", dose.Tube),
		ports.Float64("delta", res.Delta),
		ports.Bool("reached", res.Reached),
	)
	return res, ctxErr
}

func (c *Coordinator) finishTube(res *TubeResult) {
	if err := c.actuator.ClosePath(res.Tube); err != nil {
		res.Err = errors.Join(res.Err, fmt.Errorf("close path: %w", err))
	}
	if res.Err != nil {
		c.logger.Warn("tube dispensed with errors", ports.String("tube", res.Tube), ports.Err(res.Err))
	}
}
