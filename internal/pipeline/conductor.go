// Package pipeline drives jobs through the fixed stage sequence with
// per-stage retries, append-only lineage, and cross-run idempotency.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/observability/metrics"
	"github.com/inferloop/dataforge/internal/quality"
	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/interfaces"
	"github.com/inferloop/dataforge/pkg/models"
)

// StageRegistration binds a stage to its lineage step label and the status
// the job advances to when the stage succeeds. An empty OnSuccess leaves the
// status unchanged.
type StageRegistration struct {
	Stage     interfaces.Stage
	Step      string
	OnSuccess models.JobStatus
}

// ConductorConfig tunes orchestration behavior.
type ConductorConfig struct {
	Retry RetryPolicy
	// QualityThreshold gates promotion to COMPLETED when > 0. Jobs scoring
	// below it keep their last stage status and return an error.
	QualityThreshold float64
}

// Conductor owns the end-to-end run of one job: ordering, retry, fail-fast,
// lineage, idempotency, and terminal status.
type Conductor struct {
	stages  []StageRegistration
	config  ConductorConfig
	lineage interfaces.LineageStore
	scorer  *quality.Scorer
	metrics *metrics.PipelineMetrics
	logger  *logrus.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewConductor(stages []StageRegistration, lineage interfaces.LineageStore, config ConductorConfig, m *metrics.PipelineMetrics, logger *logrus.Logger) *Conductor {
	if logger == nil {
		logger = logrus.New()
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryPolicy()
	}
	return &Conductor{
		stages:  stages,
		config:  config,
		lineage: lineage,
		scorer:  quality.NewScorer(),
		metrics: m,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Run executes every stage in order against the job and returns the job in
// its terminal state. The returned job is always usable for reporting, even
// when err is non-nil.
func (c *Conductor) Run(ctx context.Context, job *models.Job) (result *models.Job, err error) {
	log := c.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": job.SourcePath,
		"target": fmt.Sprintf("%s.%s", job.TargetDataset, job.TargetTable),
	})
	log.Info("Starting pipeline")
	job.MarkStarted()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			job.Transition(models.StatusRolledBack)
			job.MarkCompleted()
			result = job
			err = apperrors.NewOrchestrationError(apperrors.CodeRolledBack,
				fmt.Sprintf("pipeline panicked: %v", r))
			log.WithField("panic", r).Error("Pipeline rolled back")
		}
		c.metrics.ObserveJob(job.Status, time.Since(started))
	}()

	done, err := c.alreadyCompleted(ctx, job.ID, job.TargetTable)
	if err != nil {
		return c.rollback(job, err)
	}
	if done {
		log.Info("Job already completed, short-circuiting")
		job.Transition(models.StatusCompleted)
		job.MarkCompleted()
		return job, nil
	}

	fingerprintChecked := false
	for _, reg := range c.stages {
		next, stageErr := c.runWithRetry(ctx, reg, job)
		if stageErr != nil {
			if isOrchestrationFailure(stageErr) {
				return c.rollback(job, stageErr)
			}
			job = next
			job.Transition(models.StatusFailed)
			job.MarkCompleted()
			log.WithError(stageErr).WithField("stage", reg.Stage.Name()).Error("Pipeline failed")
			return job, stageErr
		}
		job = next

		// Re-run of a source already loaded under this fingerprint: skip
		// the remaining stages instead of loading twice.
		if !fingerprintChecked && job.Fingerprint != "" {
			fingerprintChecked = true
			loaded, lineageErr := c.alreadyCompleted(ctx, job.Fingerprint, job.TargetTable)
			if lineageErr != nil {
				return c.rollback(job, lineageErr)
			}
			if loaded {
				log.WithField("fingerprint", job.Fingerprint).Info("Source fingerprint already loaded, short-circuiting")
				job.Transition(models.StatusCompleted)
				job.MarkCompleted()
				return job, nil
			}
		}
	}

	c.stampVersions(job)

	dq := c.scorer.DataQualityScore(job)
	compliance := c.scorer.ComplianceScore(job)
	c.metrics.ObserveScores(dq, compliance)
	if c.config.QualityThreshold > 0 && dq < c.config.QualityThreshold {
		log.WithFields(logrus.Fields{
			"quality_score": dq,
			"threshold":     c.config.QualityThreshold,
		}).Warn("Quality gate rejected promotion")
		return job, apperrors.WrapError(apperrors.ErrQualityBelowThreshold,
			apperrors.ErrorTypeValidation, apperrors.CodeQualityBelowThreshold,
			fmt.Sprintf("quality score %.2f below threshold %.2f", dq, c.config.QualityThreshold))
	}

	job.Transition(models.StatusCompleted)
	job.MarkCompleted()
	if err := c.recordCompletion(ctx, job); err != nil {
		return c.rollback(job, err)
	}

	log.WithFields(logrus.Fields{
		"quality_score":    dq,
		"compliance_score": compliance,
		"records_loaded":   job.Statistics.TotalRecordsLoaded,
	}).Info("Pipeline completed")
	return job, nil
}

// runWithRetry executes one stage with the configured retry policy. Each
// attempt starts from a clone of the accepted job so a failed attempt never
// leaks partial mutations into the next one. On success it returns the
// stage's job with the lineage entry appended.
func (c *Conductor) runWithRetry(ctx context.Context, reg StageRegistration, accepted *models.Job) (*models.Job, error) {
	var lastErr error
	var lastElapsed time.Duration
	var lastIn, lastOut int64
	name := reg.Stage.Name()

	for attempt := 1; attempt <= c.config.Retry.MaxAttempts; attempt++ {
		if delay := c.config.Retry.Delay(attempt); delay > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				return accepted, apperrors.WrapError(apperrors.ErrPipelineCancelled,
					apperrors.ErrorTypeOrchestration, apperrors.CodePipelineCancelled, "cancelled during backoff")
			}
		}
		if attempt > 1 {
			c.metrics.ObserveRetry(name)
		}

		start := time.Now()
		next, err := c.attempt(ctx, reg.Stage, accepted.Clone())
		elapsed := time.Since(start)

		if err == nil {
			in, out, ok := next.TakeReportedCounts()
			if !ok {
				in = next.Statistics.TotalRecordsRead
				out = in
			}
			c.appendTerminal(ctx, next, reg, elapsed, in, out, nil)
			if reg.OnSuccess != "" {
				next.Transition(reg.OnSuccess)
			}
			c.metrics.ObserveStage(name, "success", elapsed)
			return next, nil
		}

		c.metrics.ObserveStage(name, "failure", elapsed)
		if isOrchestrationFailure(err) {
			return accepted, err
		}
		lastErr = err
		lastElapsed = elapsed
		if next != nil {
			if in, out, ok := next.TakeReportedCounts(); ok {
				lastIn, lastOut = in, out
			}
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":  accepted.ID,
			"stage":   name,
			"attempt": attempt,
			"max":     c.config.Retry.MaxAttempts,
		}).Warn("Stage attempt failed")
	}

	wrapped := apperrors.WrapError(lastErr,
		apperrors.ErrorTypeStage, apperrors.CodeRetriesExhausted,
		fmt.Sprintf("stage %s failed after %d attempts", name, c.config.Retry.MaxAttempts))
	// The terminal entry carries the last attempt's timing and whatever
	// counts the stage managed to report before failing.
	c.appendTerminal(ctx, accepted, reg, lastElapsed, lastIn, lastOut, wrapped)
	return accepted, wrapped
}

// attempt isolates a single stage execution, converting panics into stage
// errors so one bad stage cannot take down the conductor loop.
func (c *Conductor) attempt(ctx context.Context, stage interfaces.Stage, job *models.Job) (result *models.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = apperrors.NewStageError(apperrors.CodeStageFailed,
				fmt.Sprintf("stage %s panicked: %v", stage.Name(), r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrPipelineCancelled,
			apperrors.ErrorTypeOrchestration, apperrors.CodePipelineCancelled, "context cancelled")
	}
	return stage.Execute(ctx, job)
}

// appendTerminal writes the single lineage entry for a stage's terminal
// outcome, locally and to the lineage store.
func (c *Conductor) appendTerminal(ctx context.Context, job *models.Job, reg StageRegistration, elapsed time.Duration, in, out int64, stageErr error) {
	entry := models.LineageEntry{
		Step:          reg.Step,
		StageName:     reg.Stage.Name(),
		Timestamp:     time.Now().UTC(),
		Duration:      elapsed,
		InputRecords:  in,
		OutputRecords: out,
	}
	if stageErr != nil {
		entry.Failed = true
		entry.Error = stageErr.Error()
	}
	job.AppendLineage(entry)

	if c.lineage != nil {
		if err := c.lineage.Append(ctx, job.ID, &entry); err != nil {
			c.logger.WithError(err).WithField("job_id", job.ID).Warn("Lineage store append failed")
		}
	}
}

func (c *Conductor) alreadyCompleted(ctx context.Context, key, target string) (bool, error) {
	if c.lineage == nil || key == "" {
		return false, nil
	}
	done, err := c.lineage.HasCompleted(ctx, key, target)
	if err != nil {
		return false, apperrors.WrapError(err,
			apperrors.ErrorTypeOrchestration, apperrors.CodeStorageError, "idempotency check failed")
	}
	return done, nil
}

func (c *Conductor) recordCompletion(ctx context.Context, job *models.Job) error {
	if c.lineage == nil {
		return nil
	}
	row := &models.LineageRow{
		JobID:          job.ID,
		TargetTable:    job.TargetTable,
		ExecutionTime:  time.Now().UTC(),
		RecordsLoaded:  job.Statistics.TotalRecordsLoaded,
		DatasetVersion: job.DatasetVersion,
		MappingVersion: job.MappingVersion,
	}
	if err := c.lineage.MarkCompleted(ctx, job.Fingerprint, job.TargetTable, row); err != nil {
		return apperrors.WrapError(err,
			apperrors.ErrorTypeOrchestration, apperrors.CodeStorageError, "completion marker write failed")
	}
	return nil
}

func (c *Conductor) rollback(job *models.Job, cause error) (*models.Job, error) {
	job.Transition(models.StatusRolledBack)
	job.MarkCompleted()
	c.logger.WithError(cause).WithField("job_id", job.ID).Error("Pipeline rolled back")
	return job, cause
}

// stampVersions assigns monotonic, time-derived version identifiers when no
// stage already set them.
func (c *Conductor) stampVersions(job *models.Job) {
	now := time.Now().UnixMilli()
	if job.DatasetVersion == "" {
		job.DatasetVersion = fmt.Sprintf("v1_%d", now)
	}
	if job.MappingVersion == "" {
		job.MappingVersion = fmt.Sprintf("m1_%d", now)
	}
}

// isOrchestrationFailure reports whether the error is infrastructure-level
// rather than a retryable stage failure.
func isOrchestrationFailure(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return false
	}
	return appErr.Type == apperrors.ErrorTypeOrchestration || appErr.Type == apperrors.ErrorTypeInternal
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StepLabel derives a lineage step label from a stage name.
func StepLabel(stageName string) string {
	return strings.ToUpper(strings.ReplaceAll(stageName, "-", "_"))
}
