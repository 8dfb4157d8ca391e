// Package jobs runs periodic scoring work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mind-engage/mindengage-p5/internal/grading"
)

// PendingProcessor is the part of grading.Calculator the job needs.
type PendingProcessor interface {
	ProcessPendingSubmissions(ctx context.Context, projectID string) (grading.BatchResult, error)
}

// PendingScorer scores unscored submissions on a cron schedule. Runs never
// overlap; a tick that fires while the previous run is busy is skipped.
type PendingScorer struct {
	calc    PendingProcessor
	log     *slog.Logger
	timeout time.Duration
	cron    *cron.Cron
}

func NewPendingScorer(calc PendingProcessor, log *slog.Logger) *PendingScorer {
	if log == nil {
		log = slog.Default()
	}
	cl := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	return &PendingScorer{
		calc:    calc,
		log:     log,
		timeout: 4 * time.Minute,
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Schedule registers the job. An empty or "off" spec leaves the job disabled
// and returns false.
func (p *PendingScorer) Schedule(spec string) (bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") {
		p.log.Info("pending score job disabled")
		return false, nil
	}
	if _, err := p.cron.AddFunc(spec, func() { p.RunOnce(context.Background()) }); err != nil {
		return false, fmt.Errorf("schedule pending scorer %q: %w", spec, err)
	}
	p.log.Info("pending score job scheduled", "spec", spec)
	return true, nil
}

// RunOnce processes every pending submission across projects.
func (p *PendingScorer) RunOnce(ctx context.Context) grading.BatchResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	start := time.Now()
	res, err := p.calc.ProcessPendingSubmissions(ctx, "")
	if err != nil {
		p.log.Error("pending score run failed", "err", err)
		return res
	}
	p.log.Info("pending score run done",
		"processed", res.Processed, "errors", len(res.Errors), "took", time.Since(start))
	return res
}

func (p *PendingScorer) Start() { p.cron.Start() }

// Stop waits for a running job to finish or ctx to expire.
func (p *PendingScorer) Stop(ctx context.Context) {
	done := p.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
