package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
)

// Bundle is the persisted model artifact: the fitted preprocessor, the
// winning model, and enough metadata to use both later. The model payload
// is stored as raw JSON and revived by kind on load.
type Bundle struct {
	ModelKind    string          `json:"model_kind"`
	TaskType     schema.TaskType `json:"task_type"`
	Target       string          `json:"target"`
	Metric       string          `json:"metric"`
	Score        float64         `json:"score"`
	TrainedAt    time.Time       `json:"trained_at"`
	Preprocessor *Preprocessor   `json:"preprocessor"`
	Model        json.RawMessage `json:"model"`

	classifier Classifier
	regressor  Regressor
}

// bundle assembles the artifact from a retrained trainer.
func (t *Trainer) bundle() (*Bundle, error) {
	b := &Bundle{
		ModelKind:    t.results.BestModel,
		TaskType:     t.results.TaskType,
		Target:       t.sch.Target,
		Metric:       t.results.Metric,
		Score:        t.results.BestScore,
		TrainedAt:    time.Now().UTC(),
		Preprocessor: t.prep,
		classifier:   t.classifier,
		regressor:    t.regressor,
	}

	var payload any
	if t.frame.TaskType == schema.TaskClassification {
		payload = t.classifier
	} else {
		payload = t.regressor
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s model: %w", b.ModelKind, err)
	}
	b.Model = data
	return b, nil
}

// Save writes the bundle as indented JSON.
func (b *Bundle) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing model bundle: %w", err)
	}
	return nil
}

// LoadBundle reads a saved bundle and revives the concrete model type.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing model bundle: %w", err)
	}
	if err := b.reviveModel(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bundle) reviveModel() error {
	if b.TaskType == schema.TaskClassification {
		var model Classifier
		switch b.ModelKind {
		case "baseline_majority":
			model = &MajorityClassifier{}
		case "logistic_regression":
			model = &LogisticRegression{}
		case "linear_svc":
			model = &LinearSVC{}
		case "knn":
			model = &KNNClassifier{}
		case "random_forest":
			model = &RandomForestClassifier{}
		default:
			return fmt.Errorf("unknown classification model kind %q", b.ModelKind)
		}
		if err := json.Unmarshal(b.Model, model); err != nil {
			return fmt.Errorf("parsing %s model payload: %w", b.ModelKind, err)
		}
		b.classifier = model
		return nil
	}

	var model Regressor
	switch b.ModelKind {
	case "baseline_mean":
		model = &MeanRegressor{}
	case "linear_regression":
		model = &LinearRegression{}
	case "random_forest":
		model = &RandomForestRegressor{}
	default:
		return fmt.Errorf("unknown regression model kind %q", b.ModelKind)
	}
	if err := json.Unmarshal(b.Model, model); err != nil {
		return fmt.Errorf("parsing %s model payload: %w", b.ModelKind, err)
	}
	b.regressor = model
	return nil
}

// Predict scores one raw observation, keyed by original column names.
// Classification returns the predicted label, regression the predicted
// value. Missing or malformed feature values are an error.
func (b *Bundle) Predict(row map[string]any) (any, error) {
	if b.Preprocessor == nil {
		return nil, fmt.Errorf("bundle has no preprocessor")
	}

	numeric := make([]float64, len(b.Preprocessor.NumericNames))
	for j, name := range b.Preprocessor.NumericNames {
		raw, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("missing feature %q", name)
		}
		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		numeric[j] = v
	}

	categorical := make([]string, len(b.Preprocessor.CategoricalNames))
	for j, name := range b.Preprocessor.CategoricalNames {
		raw, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("missing feature %q", name)
		}
		categorical[j] = fmt.Sprintf("%v", raw)
	}

	encoded, err := b.Preprocessor.EncodeRaw(numeric, categorical)
	if err != nil {
		return nil, err
	}

	if b.TaskType == schema.TaskClassification {
		if b.classifier == nil {
			return nil, fmt.Errorf("bundle model not loaded")
		}
		return b.classifier.Predict([][]float64{encoded})[0], nil
	}
	if b.regressor == nil {
		return nil, fmt.Errorf("bundle model not loaded")
	}
	return b.regressor.Predict([][]float64{encoded})[0], nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
