package ml

import (
	"encoding/json"
	"fmt"
	"os"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
	"github.com/datapilot-ml/datapilot-go/utils"
)

// Trainer lifecycle states. Operations enforce the forward-only order
// construct -> Prepare -> TrainAll -> RetrainBest.
type trainerState int

const (
	stateUnprepared trainerState = iota
	statePrepared
	stateTrained
	stateRetrained
)

const (
	// DefaultCVFolds is the cross-validation fold count.
	DefaultCVFolds = 5
	// DefaultSeed makes runs reproducible by default.
	DefaultSeed = 42

	// MetricF1Weighted scores binary classification.
	MetricF1Weighted = "f1_weighted"
	// MetricF1Macro scores multiclass classification.
	MetricF1Macro = "f1_macro"
	// MetricR2 scores regression.
	MetricR2 = "r2"
)

// ModelResult is the cross-validation outcome for one candidate model.
// A failed candidate carries its error text and no scores.
type ModelResult struct {
	Model       string    `json:"model"`
	CVScores    []float64 `json:"cv_scores,omitempty"`
	CVMeanScore float64   `json:"cv_mean_score"`
	Error       string    `json:"error,omitempty"`
}

// Results is the full model-selection outcome.
type Results struct {
	TaskType            schema.TaskType     `json:"task_type"`
	Metric              string              `json:"metric"`
	Folds               int                 `json:"folds"`
	Seed                int64               `json:"seed"`
	Models              []ModelResult       `json:"models"`
	BestModel           string              `json:"best_model"`
	BestScore           float64             `json:"best_score"`
	BaselineScore       float64             `json:"baseline_score"`
	FeatureCount        int                 `json:"feature_count"`
	EncodedFeatureCount int                 `json:"encoded_feature_count"`
	ClassDistribution   map[string]int      `json:"class_distribution,omitempty"`
	FeatureImportances  []FeatureImportance `json:"feature_importances,omitempty"`
}

// summaryFile is the compact JSON written next to the model artifact.
type summaryFile struct {
	TaskType       schema.TaskType          `json:"task_type"`
	Metric         string                   `json:"metric"`
	BestModel      string                   `json:"best_model"`
	BestScore      float64                  `json:"best_score"`
	AllModelScores map[string]summaryScores `json:"all_model_scores"`
}

type summaryScores struct {
	CVScores    []float64 `json:"cv_scores"`
	CVMeanScore float64   `json:"cv_mean_score"`
}

// candidate pairs a model name with fold-fresh constructors. Exactly one
// constructor is set depending on the task type.
type candidate struct {
	name          string
	newClassifier func(seed int64) Classifier
	newRegressor  func(seed int64) Regressor
}

func classificationCandidates() []candidate {
	return []candidate{
		{name: "baseline_majority", newClassifier: func(int64) Classifier { return NewMajorityClassifier() }},
		{name: "logistic_regression", newClassifier: func(int64) Classifier { return NewLogisticRegression() }},
		{name: "linear_svc", newClassifier: func(seed int64) Classifier { return NewLinearSVC(seed) }},
		{name: "knn", newClassifier: func(int64) Classifier { return NewKNNClassifier() }},
		{name: "random_forest", newClassifier: func(seed int64) Classifier { return NewRandomForestClassifier(seed) }},
	}
}

func regressionCandidates() []candidate {
	return []candidate{
		{name: "baseline_mean", newRegressor: func(int64) Regressor { return NewMeanRegressor() }},
		{name: "linear_regression", newRegressor: func(int64) Regressor { return NewLinearRegression() }},
		{name: "random_forest", newRegressor: func(seed int64) Regressor { return NewRandomForestRegressor(seed) }},
	}
}

// Trainer cross-validates a fixed candidate set over a cleaned dataset,
// selects the best model by mean score, and refits it on all rows.
type Trainer struct {
	ds    *dataset.Dataset
	sch   *schema.Schema
	log   *utils.Logger
	folds int
	seed  int64

	state      trainerState
	frame      *Frame
	results    *Results
	prep       *Preprocessor
	classifier Classifier
	regressor  Regressor
}

// NewTrainer validates the target and binds the trainer to its inputs.
// A constant target cannot be modeled and is rejected outright.
func NewTrainer(ds *dataset.Dataset, sch *schema.Schema, logger *utils.Logger, folds int, seed int64) (*Trainer, error) {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if folds <= 1 {
		folds = DefaultCVFolds
	}

	target, ok := ds.Column(sch.Target)
	if !ok {
		return nil, schema.NewValidationError("target column %q not found in dataset", sch.Target)
	}
	if target.DistinctCount() <= 1 {
		return nil, schema.NewValidationError("target column %q is constant, nothing to learn", sch.Target)
	}

	return &Trainer{
		ds:    ds,
		sch:   sch,
		log:   logger.WithComponent("Trainer"),
		folds: folds,
		seed:  seed,
		state: stateUnprepared,
	}, nil
}

// Prepare extracts the feature frame and verifies there is enough data to
// cross-validate. Must be called exactly once, before TrainAll.
func (t *Trainer) Prepare() error {
	if t.state != stateUnprepared {
		return fmt.Errorf("trainer already prepared")
	}

	frame, err := BuildFrame(t.ds, t.sch)
	if err != nil {
		return fmt.Errorf("building feature frame: %w", err)
	}
	if frame.FeatureCount() == 0 {
		return schema.NewInsufficientDataError("no usable feature columns after cleaning")
	}
	if frame.Rows < 2*t.folds {
		return schema.NewInsufficientDataError("%d rows is too few for %d-fold cross-validation", frame.Rows, t.folds)
	}

	t.frame = frame
	t.state = statePrepared
	t.log.Info("feature frame prepared",
		utils.F("rows", frame.Rows),
		utils.F("numeric_features", len(frame.NumericNames)),
		utils.F("categorical_features", len(frame.CategoricalNames)))
	return nil
}

// TrainAll cross-validates every candidate. A candidate that fails any fold
// is recorded with its error and excluded from selection; only when every
// candidate fails does TrainAll return an error.
func (t *Trainer) TrainAll() (*Results, error) {
	if t.state != statePrepared {
		return nil, fmt.Errorf("trainer must be prepared before training")
	}

	results := &Results{
		TaskType:     t.frame.TaskType,
		Folds:        t.folds,
		Seed:         t.seed,
		FeatureCount: t.frame.FeatureCount(),
	}

	var folds [][]int
	var candidates []candidate
	if t.frame.TaskType == schema.TaskClassification {
		folds = StratifiedKFold(t.frame.ClassLabels, t.folds, t.seed)
		candidates = classificationCandidates()

		results.ClassDistribution = make(map[string]int)
		for _, label := range t.frame.ClassLabels {
			results.ClassDistribution[label]++
		}
		if len(results.ClassDistribution) == 2 {
			results.Metric = MetricF1Weighted
		} else {
			results.Metric = MetricF1Macro
		}
	} else {
		folds = KFold(t.frame.Rows, t.folds, t.seed)
		candidates = regressionCandidates()
		results.Metric = MetricR2
	}

	succeeded := 0
	for _, cand := range candidates {
		result := t.crossValidate(cand, folds, results.Metric)
		results.Models = append(results.Models, result)
		if result.Error != "" {
			t.log.Warn("candidate failed cross-validation",
				utils.F("model", cand.name), utils.F("reason", result.Error))
			continue
		}
		succeeded++
		t.log.Info("candidate scored",
			utils.F("model", cand.name),
			utils.F("metric", results.Metric),
			utils.F("cv_mean_score", result.CVMeanScore))
	}

	if succeeded == 0 {
		return nil, schema.NewInsufficientDataError("all candidate models failed cross-validation")
	}

	// best by mean score; earlier candidate wins ties
	best := -1
	for i, r := range results.Models {
		if r.Error != "" {
			continue
		}
		if best < 0 || r.CVMeanScore > results.Models[best].CVMeanScore {
			best = i
		}
		if r.Model == "baseline_majority" || r.Model == "baseline_mean" {
			results.BaselineScore = r.CVMeanScore
		}
	}
	results.BestModel = results.Models[best].Model
	results.BestScore = results.Models[best].CVMeanScore

	t.results = results
	t.state = stateTrained
	t.log.Info("model selection complete",
		utils.F("best_model", results.BestModel),
		utils.F("best_score", results.BestScore))
	return results, nil
}

func (t *Trainer) crossValidate(cand candidate, folds [][]int, metric string) ModelResult {
	result := ModelResult{Model: cand.name}

	var scores []float64
	for f, test := range folds {
		if len(test) == 0 {
			continue
		}
		train := TrainRows(t.frame.Rows, test)
		if len(train) == 0 {
			result.Error = fmt.Sprintf("fold %d has no training rows", f)
			return result
		}

		prep := FitPreprocessor(t.frame, train)
		XTrain := prep.Transform(t.frame, train)
		XTest := prep.Transform(t.frame, test)

		score, err := t.fitAndScore(cand, XTrain, XTest, train, test, metric)
		if err != nil {
			result.Error = fmt.Sprintf("fold %d: %v", f, err)
			return result
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		result.Error = "no folds produced a score"
		return result
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	result.CVScores = scores
	result.CVMeanScore = sum / float64(len(scores))
	return result
}

func (t *Trainer) fitAndScore(cand candidate, XTrain, XTest [][]float64, train, test []int, metric string) (float64, error) {
	if t.frame.TaskType == schema.TaskClassification {
		yTrain := pickLabels(t.frame.ClassLabels, train)
		yTest := pickLabels(t.frame.ClassLabels, test)

		model := cand.newClassifier(t.seed)
		if err := model.Fit(XTrain, yTrain); err != nil {
			return 0, err
		}
		pred := model.Predict(XTest)
		if metric == MetricF1Weighted {
			return F1Weighted(yTest, pred)
		}
		return F1Macro(yTest, pred)
	}

	yTrain := pickValues(t.frame.TargetValues, train)
	yTest := pickValues(t.frame.TargetValues, test)

	model := cand.newRegressor(t.seed)
	if err := model.Fit(XTrain, yTrain); err != nil {
		return 0, err
	}
	return R2(yTest, model.Predict(XTest))
}

// RetrainBest refits the winning candidate on every row, with a
// preprocessor fitted on the full dataset. Must follow TrainAll.
func (t *Trainer) RetrainBest() error {
	if t.state != stateTrained {
		return fmt.Errorf("trainer must have completed training before retraining")
	}

	all := make([]int, t.frame.Rows)
	for i := range all {
		all[i] = i
	}
	t.prep = FitPreprocessor(t.frame, all)
	X := t.prep.Transform(t.frame, all)

	if t.frame.TaskType == schema.TaskClassification {
		cand, err := findCandidate(classificationCandidates(), t.results.BestModel)
		if err != nil {
			return err
		}
		model := cand.newClassifier(t.seed)
		if err := model.Fit(X, t.frame.ClassLabels); err != nil {
			return fmt.Errorf("refitting %s on full data: %w", t.results.BestModel, err)
		}
		t.classifier = model
		if rf, ok := model.(*RandomForestClassifier); ok {
			t.results.FeatureImportances = rf.FeatureImportances(t.prep.EncodedNames)
		}
	} else {
		cand, err := findCandidate(regressionCandidates(), t.results.BestModel)
		if err != nil {
			return err
		}
		model := cand.newRegressor(t.seed)
		if err := model.Fit(X, t.frame.TargetValues); err != nil {
			return fmt.Errorf("refitting %s on full data: %w", t.results.BestModel, err)
		}
		t.regressor = model
		if rf, ok := model.(*RandomForestRegressor); ok {
			t.results.FeatureImportances = rf.FeatureImportances(t.prep.EncodedNames)
		}
	}

	t.results.EncodedFeatureCount = len(t.prep.EncodedNames)
	t.state = stateRetrained
	t.log.Info("best model refit on full dataset", utils.F("model", t.results.BestModel))
	return nil
}

// Results returns the selection outcome once TrainAll has run.
func (t *Trainer) Results() *Results {
	return t.results
}

// SaveModel serializes the retrained model bundle to path.
func (t *Trainer) SaveModel(path string) error {
	if t.state != stateRetrained {
		return fmt.Errorf("no retrained model to save")
	}
	bundle, err := t.bundle()
	if err != nil {
		return err
	}
	return bundle.Save(path)
}

// SaveSummary writes the compact selection summary JSON to path.
func (t *Trainer) SaveSummary(path string) error {
	if t.state != stateTrained && t.state != stateRetrained {
		return fmt.Errorf("no training results to summarize")
	}

	summary := summaryFile{
		TaskType:       t.results.TaskType,
		Metric:         t.results.Metric,
		BestModel:      t.results.BestModel,
		BestScore:      t.results.BestScore,
		AllModelScores: make(map[string]summaryScores),
	}
	for _, m := range t.results.Models {
		if m.Error == "" {
			summary.AllModelScores[m.Model] = summaryScores{CVScores: m.CVScores, CVMeanScore: m.CVMeanScore}
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling training summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing training summary: %w", err)
	}
	return nil
}

func findCandidate(candidates []candidate, name string) (candidate, error) {
	for _, c := range candidates {
		if c.name == name {
			return c, nil
		}
	}
	return candidate{}, fmt.Errorf("unknown candidate model %q", name)
}

func pickLabels(y []string, idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}

func pickValues(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}
