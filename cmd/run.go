package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/ingest"
	"github.com/sells-group/permit-radar/internal/model"
	"github.com/sells-group/permit-radar/internal/pipeline"
)

var (
	runInput  string
	runOutput string
	runSave   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lead pipeline over a permit export file",
	Long:  "Reads permit records from a JSON or CSV file, runs the full dedupe/classify/score/cluster pipeline, and writes the ranked result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := ingest.LoadFile(runInput)
		if err != nil {
			return err
		}
		zap.L().Info("records loaded",
			zap.String("input", runInput),
			zap.Int("count", len(records)),
		)

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		if runSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
			run, err := pipeline.RunAndRecord(ctx, p, st, records)
			if err != nil {
				return eris.Wrap(err, "pipeline run")
			}
			zap.L().Info("run persisted", zap.String("run_id", run.ID))
			return writeResult(run.Result)
		}

		result, err := p.Run(ctx, records)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}
		return writeResult(result)
	},
}

func writeResult(result *model.RunResult) error {
	out := os.Stdout
	if runOutput != "" {
		f, err := os.Create(runOutput)
		if err != nil {
			return eris.Wrapf(err, "create %s", runOutput)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "permit export file (.json or .csv, required)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "write result JSON to file instead of stdout")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist the run and its leads to the store")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
