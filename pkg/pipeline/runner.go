package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/datapilot-ml/datapilot-go/pkg/config"
	cleaning "github.com/datapilot-ml/datapilot-go/pipelines/Cleaning"
	eda "github.com/datapilot-ml/datapilot-go/pipelines/EDA"
	ingest "github.com/datapilot-ml/datapilot-go/pipelines/Ingest"
	ml "github.com/datapilot-ml/datapilot-go/pipelines/ML"
	quality "github.com/datapilot-ml/datapilot-go/pipelines/Quality"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
	"github.com/datapilot-ml/datapilot-go/utils"
)

// RunReport is the final payload assembled from every stage's output. It is
// fully JSON-serializable for downstream consumers.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Source     *ingest.Metadata `json:"source"`
	Schema     *schema.Schema   `json:"schema"`
	Cleaning   *cleaning.Report `json:"cleaning"`
	EDA        *eda.Report      `json:"eda"`
	Training   *ml.Results      `json:"training,omitempty"`
	Quality    *quality.Report  `json:"quality,omitempty"`

	// TrainingError is set when the training stage failed with
	// insufficient data; every earlier section remains valid.
	TrainingError string `json:"training_error,omitempty"`
}

// Runner executes the six pipeline stages in order. Each run operates on
// its own object graph; runners are safe to reuse across runs.
type Runner struct {
	cfg *config.Config
	log *utils.Logger
}

// NewRunner creates a runner bound to a configuration.
func NewRunner(cfg *config.Config, logger *utils.Logger) *Runner {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Runner{cfg: cfg, log: logger.WithComponent("Runner")}
}

// Run analyzes one file end to end. target may be empty, in which case the
// schema inferrer picks one heuristically. When the training stage fails
// with insufficient data, the partial report is returned alongside the
// error so earlier stages stay inspectable.
func (r *Runner) Run(filePath, target string) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	r.log.Info("pipeline run started",
		utils.F("run_id", report.RunID),
		utils.F("file", filePath))

	loader := ingest.NewLoader(filePath, r.cfg.MaxFileSizeMB, r.log)
	ds, meta, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", filePath, err)
	}
	report.Source = meta

	sch, err := schema.NewInferrer(ds, r.log).Infer(target)
	if err != nil {
		return nil, fmt.Errorf("inferring schema: %w", err)
	}
	report.Schema = sch

	cleaned, cleanReport, err := cleaning.NewCleaner(ds, sch, r.log).Clean()
	if err != nil {
		return nil, fmt.Errorf("cleaning: %w", err)
	}
	report.Cleaning = cleanReport

	report.EDA = eda.NewProfiler(cleaned, sch, r.log).Profile()

	trainer, err := ml.NewTrainer(cleaned, sch, r.log, r.cfg.CVFolds, r.cfg.RandomSeed)
	if err != nil {
		return nil, fmt.Errorf("configuring trainer: %w", err)
	}
	results, err := r.train(trainer)
	if err != nil {
		var insufficient *schema.InsufficientDataError
		if errors.As(err, &insufficient) {
			report.TrainingError = insufficient.Error()
			report.FinishedAt = time.Now().UTC()
			return report, fmt.Errorf("training: %w", err)
		}
		return nil, fmt.Errorf("training: %w", err)
	}
	report.Training = results

	report.Quality = quality.NewScorer(sch, report.EDA, results, r.log).Score()
	report.FinishedAt = time.Now().UTC()

	if err := r.saveArtifacts(report, trainer); err != nil {
		return nil, err
	}

	r.log.Info("pipeline run finished",
		utils.F("run_id", report.RunID),
		utils.F("best_model", results.BestModel),
		utils.F("learnability_score", report.Quality.LearnabilityScore))
	return report, nil
}

func (r *Runner) train(trainer *ml.Trainer) (*ml.Results, error) {
	if err := trainer.Prepare(); err != nil {
		return nil, err
	}
	if _, err := trainer.TrainAll(); err != nil {
		return nil, err
	}
	if err := trainer.RetrainBest(); err != nil {
		return nil, err
	}
	// Results carries the retrain additions (encoded feature count,
	// importances) on top of the selection outcome.
	return trainer.Results(), nil
}

// saveArtifacts writes the model bundle, training summary and full report
// under <output_dir>/<run_id>/.
func (r *Runner) saveArtifacts(report *RunReport, trainer *ml.Trainer) error {
	dir := filepath.Join(r.cfg.OutputDir, report.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := trainer.SaveModel(filepath.Join(dir, "model.json")); err != nil {
		return fmt.Errorf("saving model bundle: %w", err)
	}
	if err := trainer.SaveSummary(filepath.Join(dir, "training_summary.json")); err != nil {
		return fmt.Errorf("saving training summary: %w", err)
	}
	if err := SaveReport(report, filepath.Join(dir, "report.json")); err != nil {
		return err
	}
	r.log.Info("artifacts written", utils.F("dir", dir))
	return nil
}

// SaveReport writes the full run report as indented JSON.
func SaveReport(report *RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	return nil
}
