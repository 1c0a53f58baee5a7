package valuationobs

import (
	"context"
	"time"

	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
	"eps-report/internal/trace"
	"eps-report/internal/types"
)

type observableValuator struct {
	valuator interfaces.Valuator
}

var _ interfaces.Valuator = (*observableValuator)(nil)

func Wrap(v interfaces.Valuator) interfaces.Valuator {
	return &observableValuator{
		valuator: v,
	}
}

func (ov *observableValuator) Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error) {
	ctx, span := trace.StartSpan(ctx, "valuation.Run")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting valuation run",
		"report_year", req.ReportYear,
		"stocks", len(req.Stocks),
		"prices", len(req.Prices),
	)

	result, err := ov.valuator.Run(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Valuation run failed", err,
			"report_year", req.ReportYear,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	trace.AnnotateRun(ctx, result.RunID, req.ReportYear, "")

	counts := make(map[types.Bucket]int)
	for _, r := range result.Results {
		counts[r.Bucket]++
	}

	logger.InfoSkip(ctx, 1, "Valuation run completed",
		"run_id", result.RunID,
		"report_year", req.ReportYear,
		"considered", result.Considered,
		"valued", len(result.Results),
		"red", counts[types.BucketRed],
		"orange", counts[types.BucketOrange],
		"green", counts[types.BucketGreen],
		"none", counts[types.BucketNone],
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
