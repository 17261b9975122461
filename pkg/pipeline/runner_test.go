package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapilot-ml/datapilot-go/pkg/config"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
)

// writeSurvivalCSV writes a small but fully learnable classification
// dataset: the outcome mirrors the sex column exactly.
func writeSurvivalCSV(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("PassengerId,Age,Fare,Sex,Survived\n")
	for i := 0; i < 120; i++ {
		sex, survived := "male", 0
		if i%3 == 0 {
			sex, survived = "female", 1
		}
		fmt.Fprintf(&b, "%d,%0.1f,%0.2f,%s,%d\n", i+1, 18.5+float64(i%40), 7.25+float64(i)*0.83, sex, survived)
	}

	path := filepath.Join(t.TempDir(), "survival.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:      "error",
		LogFormat:     "text",
		MaxFileSizeMB: 200,
		CVFolds:       5,
		RandomSeed:    42,
		OutputDir:     t.TempDir(),
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	runner := NewRunner(cfg, nil)

	report, err := runner.Run(writeSurvivalCSV(t), "Survived")
	require.NoError(t, err)

	t.Run("All sections are populated", func(t *testing.T) {
		assert.NotEmpty(t, report.RunID)
		require.NotNil(t, report.Source)
		require.NotNil(t, report.Schema)
		require.NotNil(t, report.Cleaning)
		require.NotNil(t, report.EDA)
		require.NotNil(t, report.Training)
		require.NotNil(t, report.Quality)
		assert.Empty(t, report.TrainingError)
	})

	t.Run("Schema reflects the file", func(t *testing.T) {
		assert.Equal(t, "Survived", report.Schema.Target)
		assert.Equal(t, schema.TaskClassification, report.Schema.TaskType)
		assert.Contains(t, report.Schema.IDColumns, "PassengerId")
	})

	t.Run("Identifier never leaks into training features", func(t *testing.T) {
		assert.NotContains(t, report.Schema.FeatureColumns(), "PassengerId")
		assert.Contains(t, report.Cleaning.RemovedColumns["id_columns"], "PassengerId")
	})

	t.Run("Learnable outcome scores well", func(t *testing.T) {
		assert.Greater(t, report.Training.BestScore, 0.95)
		assert.GreaterOrEqual(t, report.Quality.LearnabilityScore, 60)
	})

	t.Run("Artifacts are written", func(t *testing.T) {
		dir := filepath.Join(cfg.OutputDir, report.RunID)
		for _, name := range []string{"model.json", "training_summary.json", "report.json"} {
			_, err := os.Stat(filepath.Join(dir, name))
			assert.NoError(t, err, name)
		}
	})
}

func TestRunnerTargetInference(t *testing.T) {
	cfg := testConfig(t)
	report, err := NewRunner(cfg, nil).Run(writeSurvivalCSV(t), "")
	require.NoError(t, err)
	assert.Equal(t, "Survived", report.Schema.Target, "binary numeric outcome wins the heuristic")
}

func TestRunnerIngestFailure(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewRunner(cfg, nil).Run("/no/such/file.csv", "")
	assert.Error(t, err)
}

func TestRunnerContradictionAborts(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewRunner(cfg, nil).Run(writeSurvivalCSV(t), "PassengerId")
	require.Error(t, err)

	var cerr *schema.ContradictionError
	assert.ErrorAs(t, err, &cerr)
}

func TestSaveReport(t *testing.T) {
	cfg := testConfig(t)
	report, err := NewRunner(cfg, nil).Run(writeSurvivalCSV(t), "Survived")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, SaveReport(report, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "learnability_score")
}
