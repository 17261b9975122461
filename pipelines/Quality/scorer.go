package quality

import (
	eda "github.com/datapilot-ml/datapilot-go/pipelines/EDA"
	ml "github.com/datapilot-ml/datapilot-go/pipelines/ML"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
	"github.com/datapilot-ml/datapilot-go/utils"
)

const (
	baselineScore = 50

	imbalanceRatioLimit = 10.0
	imbalancePenalty    = 15

	largeGainThreshold    = 0.25
	largeGainBonus        = 25
	moderateGainThreshold = 0.10
	moderateGainBonus     = 15
	noGainPenalty         = 10

	richFeatureCount  = 6
	richFeatureBonus  = 10
	fewFeatureCount   = 2
	fewFeaturePenalty = 10

	strongVerdictScore   = 80
	moderateVerdictScore = 60
)

// Verdict labels for the learnability score bands.
const (
	VerdictStrong   = "Strong ML potential"
	VerdictModerate = "Moderate ML potential"
	VerdictLow      = "Low ML potential"
)

// Report is the learnability assessment of a dataset.
type Report struct {
	LearnabilityScore int      `json:"learnability_score"`
	Verdict           string   `json:"verdict"`
	Strengths         []string `json:"strengths"`
	Risks             []string `json:"risks"`
	Recommendations   []string `json:"recommendations"`
}

// Scorer aggregates schema, EDA and training signals into a single score.
// It is a deterministic function of its inputs with no side effects beyond
// logging.
type Scorer struct {
	sch      *schema.Schema
	eda      *eda.Report
	training *ml.Results
	log      *utils.Logger
}

// NewScorer binds a scorer to the three upstream reports.
func NewScorer(sch *schema.Schema, edaReport *eda.Report, training *ml.Results, logger *utils.Logger) *Scorer {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Scorer{sch: sch, eda: edaReport, training: training, log: logger.WithComponent("QualityScorer")}
}

// Score runs every check and assembles the report. It never fails: missing
// inputs simply skip their checks.
func (s *Scorer) Score() *Report {
	report := &Report{
		LearnabilityScore: baselineScore,
		Strengths:         []string{},
		Risks:             []string{},
		Recommendations:   []string{},
	}

	s.checkTargetImbalance(report)
	s.checkModelImprovement(report)
	s.checkFeatureRichness(report)

	if report.LearnabilityScore > 100 {
		report.LearnabilityScore = 100
	}
	if report.LearnabilityScore < 0 {
		report.LearnabilityScore = 0
	}

	switch {
	case report.LearnabilityScore >= strongVerdictScore:
		report.Verdict = VerdictStrong
	case report.LearnabilityScore >= moderateVerdictScore:
		report.Verdict = VerdictModerate
	default:
		report.Verdict = VerdictLow
	}

	if len(report.Strengths) == 0 && len(report.Risks) == 0 {
		report.Strengths = append(report.Strengths, "no major data quality issues detected")
	}

	s.log.Info("learnability scored",
		utils.F("score", report.LearnabilityScore),
		utils.F("verdict", report.Verdict))
	return report
}

func (s *Scorer) checkTargetImbalance(report *Report) {
	if s.sch == nil || s.sch.TaskType != schema.TaskClassification || s.eda == nil || s.eda.TargetAnalysis == nil {
		return
	}
	dist := s.eda.TargetAnalysis.ClassDistribution
	if len(dist) < 2 {
		return
	}

	maxCount, minCount := 0, -1
	for _, n := range dist {
		if n > maxCount {
			maxCount = n
		}
		if minCount < 0 || n < minCount {
			minCount = n
		}
	}
	if minCount < 1 {
		minCount = 1
	}

	ratio := float64(maxCount) / float64(minCount)
	if ratio > imbalanceRatioLimit {
		report.LearnabilityScore -= imbalancePenalty
		report.Risks = append(report.Risks, "severe target class imbalance")
		report.Recommendations = append(report.Recommendations, "consider resampling, class weighting, or reframing the problem")
	}
}

func (s *Scorer) checkModelImprovement(report *Report) {
	if s.training == nil {
		return
	}
	hasBaseline := false
	for _, m := range s.training.Models {
		if (m.Model == "baseline_majority" || m.Model == "baseline_mean") && m.Error == "" {
			hasBaseline = true
			break
		}
	}
	if !hasBaseline {
		return
	}

	gain := s.training.BestScore - s.training.BaselineScore
	switch {
	case gain >= largeGainThreshold:
		report.LearnabilityScore += largeGainBonus
		report.Strengths = append(report.Strengths, "models substantially outperform the baseline")
	case gain >= moderateGainThreshold:
		report.LearnabilityScore += moderateGainBonus
		report.Strengths = append(report.Strengths, "models moderately outperform the baseline")
		report.Recommendations = append(report.Recommendations, "feature engineering may unlock further gains")
	default:
		report.LearnabilityScore -= noGainPenalty
		report.Risks = append(report.Risks, "models barely outperform the baseline")
		report.Recommendations = append(report.Recommendations, "add stronger features or reconsider the prediction target")
	}
}

func (s *Scorer) checkFeatureRichness(report *Report) {
	if s.sch == nil {
		return
	}
	features := len(s.sch.FeatureColumns())
	switch {
	case features >= richFeatureCount:
		report.LearnabilityScore += richFeatureBonus
		report.Strengths = append(report.Strengths, "rich feature set available for modeling")
	case features <= fewFeatureCount:
		report.LearnabilityScore -= fewFeaturePenalty
		report.Risks = append(report.Risks, "very few usable feature columns")
	}
}
