package cron

import (
	"context"
	"fmt"

	"github.com/nmoreyra/tienda-backend/internal/discounts"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
	"github.com/nmoreyra/tienda-backend/pkg/metrics"
)

const validityJobName = "discount-validity"

type windowReevaluator interface {
	ReevaluateWindows(ctx context.Context) (discounts.WindowTransitions, error)
}

// ValidityJobParams configure the discount window scheduler job.
type ValidityJobParams struct {
	Logger    *logger.Logger
	Discounts windowReevaluator
	Metrics   *metrics.CronJobMetrics
}

// NewValidityJob builds the job that moves discounts in and out of effect
// as their validity windows open and close.
func NewValidityJob(params ValidityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	return &validityJob{
		logg:      params.Logger,
		discounts: params.Discounts,
		metrics:   params.Metrics,
	}, nil
}

type validityJob struct {
	logg      *logger.Logger
	discounts windowReevaluator
	metrics   *metrics.CronJobMetrics
}

func (j *validityJob) Name() string { return validityJobName }

func (j *validityJob) Run(ctx context.Context) error {
	transitions, err := j.discounts.ReevaluateWindows(ctx)
	if j.metrics != nil && transitions.Repriced > 0 {
		j.metrics.AddRepriced(validityJobName, transitions.Repriced)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"entered":  len(transitions.Entered),
		"exited":   len(transitions.Exited),
		"repriced": transitions.Repriced,
	})
	if err != nil {
		j.logg.Error(logCtx, "discount window sweep finished with errors", err)
		return err
	}
	j.logg.Info(logCtx, "discount window sweep complete")
	return nil
}
