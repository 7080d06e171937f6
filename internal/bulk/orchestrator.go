// Package bulk fans independent per-client reconciliation jobs across a
// bounded worker pool. A job failure is a first-class outcome recorded on
// that job's result; it never aborts or perturbs sibling jobs.
package bulk

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/recon-engine/internal/domain"
	"github.com/dvloznov/recon-engine/internal/engine"
	"github.com/dvloznov/recon-engine/internal/logger"
)

// Orchestrator runs bulk reconciliation. The zero value is usable; Workers
// defaults to the number of available cores. Orchestrators hold no state
// between Run calls — each call is self-contained, so two concurrent runs
// for different users are fully isolated.
type Orchestrator struct {
	// Workers bounds how many jobs run concurrently.
	Workers int
}

// Run processes every job independently and returns per-client results in
// job input order plus an aggregate. Completion order between jobs is
// unspecified. Settings are validated once, before any job starts; a bad
// configuration rejects the whole call.
//
// There is no mid-job cancellation: jobs are short, bounded by feed size.
// ctx gates the fan-out — once cancelled, queued jobs are recorded as
// errors instead of being started.
func (o *Orchestrator) Run(ctx context.Context, jobs []domain.BulkJob, s engine.Settings) (domain.BulkOutcome, error) {
	if err := s.Validate(); err != nil {
		return domain.BulkOutcome{}, fmt.Errorf("bulk.Run: %w", err)
	}

	outcome := domain.BulkOutcome{
		RunID:   uuid.NewString(),
		Results: make([]domain.BulkResult, len(jobs)),
		Summary: domain.BulkSummary{TotalDiscrepancyAmount: decimal.Zero},
	}
	if len(jobs) == 0 {
		return outcome, nil
	}

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	log := logger.FromContext(ctx).With().Str("run_id", outcome.RunID).Logger()
	log.Info().Int("jobs", len(jobs)).Int("workers", workers).Msg("starting bulk run")

	type indexedJob struct {
		idx int
		job domain.BulkJob
	}
	jobChan := make(chan indexedJob)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range jobChan {
				outcome.Results[ij.idx] = runJob(ctx, ij.job, s)
			}
		}()
	}

	for i, job := range jobs {
		select {
		case <-ctx.Done():
			outcome.Results[i] = domain.BulkResult{
				ClientID: job.ClientID,
				Status:   domain.JobStatusError,
				Err:      ctx.Err().Error(),
			}
		case jobChan <- indexedJob{idx: i, job: job}:
		}
	}
	close(jobChan)
	wg.Wait()

	for _, r := range outcome.Results {
		if r.Status != domain.JobStatusOK {
			outcome.Summary.Failed++
			continue
		}
		outcome.Summary.Succeeded++
		outcome.Summary.TotalMatched += r.MatchedCount
		if r.Discrepancy != nil {
			outcome.Summary.TotalDiscrepancyAmount = outcome.Summary.TotalDiscrepancyAmount.
				Add(r.Discrepancy.OnlyInATotal.Abs()).
				Add(r.Discrepancy.OnlyInBTotal.Abs())
		}
	}

	log.Info().
		Int("succeeded", outcome.Summary.Succeeded).
		Int("failed", outcome.Summary.Failed).
		Msg("bulk run finished")
	return outcome, nil
}

// runJob reconciles one client's feeds. Panics are converted into a
// per-job error result so one poisoned dataset cannot take down the run.
func runJob(ctx context.Context, job domain.BulkJob, s engine.Settings) (result domain.BulkResult) {
	log := logger.FromContext(ctx).With().Str("client_id", job.ClientID).Logger()
	started := time.Now()

	result = domain.BulkResult{ClientID: job.ClientID, Status: domain.JobStatusOK}
	if job.ClientID == "" {
		return domain.BulkResult{
			Status: domain.JobStatusError,
			Err:    "job is missing a client id",
		}
	}
	defer func() {
		if r := recover(); r != nil {
			result = domain.BulkResult{
				ClientID: job.ClientID,
				Status:   domain.JobStatusError,
				Err:      fmt.Sprintf("job panicked: %v", r),
			}
			log.Error().Interface("panic", r).Msg("bulk job panicked")
		}
	}()

	feedA := engine.Canonicalize(feedLabel(job.ClientID, "a"), job.FeedA)
	feedB := engine.Canonicalize(feedLabel(job.ClientID, "b"), job.FeedB)

	matched, err := engine.Match(feedA, feedB, s)
	if err != nil {
		log.Error().Err(err).Msg("bulk job failed")
		return domain.BulkResult{
			ClientID: job.ClientID,
			Status:   domain.JobStatusError,
			Err:      err.Error(),
		}
	}

	report := engine.BuildDiscrepancyReport(matched)
	result.MatchedCount = len(matched.Pairs)
	result.Discrepancy = &report

	log.Info().
		Int("matched", result.MatchedCount).
		Int("only_in_a", len(report.OnlyInA)).
		Int("only_in_b", len(report.OnlyInB)).
		Dur("took", time.Since(started)).
		Msg("bulk job finished")
	return result
}

func feedLabel(clientID, side string) string {
	return fmt.Sprintf("%s_%s", clientID, side)
}
