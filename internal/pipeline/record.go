package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/model"
	"github.com/sells-group/permit-radar/internal/store"
)

// RunAndRecord executes the pipeline and persists the run lifecycle to st:
// queued on creation, running while executing, complete with the full result,
// or failed with the error message. The returned Run carries the result.
func RunAndRecord(ctx context.Context, p *Pipeline, st store.Store, records []model.LeadRecord) (*model.Run, error) {
	run, err := st.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark run running")
	}

	result, err := p.Run(ctx, records)
	if err != nil {
		if failErr := st.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("pipeline: recording run failure failed",
				zap.String("run_id", run.ID),
				zap.Error(failErr),
			)
		}
		return nil, err
	}

	if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
		return nil, eris.Wrap(err, "pipeline: record run result")
	}

	run.Status = model.RunStatusComplete
	run.Result = result
	return run, nil
}
