// Package physical implements the bench screening applied to a sample before
// any sensory judging happens.
package physical

import (
	"fmt"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// Measurements are the director's raw bench readings for one sample.
// Percentages are 0-100, humidity is an absolute percentage.
type Measurements struct {
	Humidity              float64  `json:"humidity" validate:"min=0,max=100"`
	BrokenGrains          float64  `json:"broken_grains" validate:"min=0,max=100"`
	FlatGrains            float64  `json:"flat_grains" validate:"min=0,max=100"`
	AffectedGrainsInsects float64  `json:"affected_grains_insects" validate:"min=0"`
	PurpleBeans           float64  `json:"purple_beans" validate:"min=0,max=100"`
	SlatyBeans            float64  `json:"slaty_beans" validate:"min=0,max=100"`
	InternalMoldyBeans    float64  `json:"internal_moldy_beans" validate:"min=0,max=100"`
	OverFermentedBeans    float64  `json:"over_fermented_beans" validate:"min=0,max=100"`
	WellFermentedBeans    float64  `json:"well_fermented_beans" validate:"min=0,max=100"`
	LightlyFermentedBeans float64  `json:"lightly_fermented_beans" validate:"min=0,max=100"`
	HasUndesirableAromas  bool     `json:"has_undesirable_aromas"`
	UndesirableAromas     []string `json:"undesirable_aromas"`
	ViolatedGrains        bool     `json:"violated_grains"`
}

// Result is the outcome of the screening. A sample is disqualified iff at
// least one disqualification reason fired; warnings never disqualify.
type Result struct {
	GlobalEvaluation        domain.GlobalEvaluation `json:"global_evaluation"`
	DisqualificationReasons []string                `json:"disqualification_reasons"`
	Warnings                []string                `json:"warnings"`
}

// Fixed screening thresholds. All rules are independent; flat grains is the
// single warning-only rule.
const (
	minHumidity          = 3.5
	maxHumidity          = 8.0
	maxBrokenGrains      = 10.0
	maxFlatGrains        = 15.0
	minFermentedTotal    = 60.0
	maxPurpleBeans       = 15.0
	minAffectedByInsects = 1.0
)

// Evaluate runs every screening rule over the measurements. Pure: all
// persistence and the resulting sample status transition belong to the caller.
func Evaluate(m Measurements) Result {
	var reasons, warnings []string

	if m.HasUndesirableAromas && len(m.UndesirableAromas) > 0 {
		reasons = append(reasons, fmt.Sprintf("undesirable aromas present: %v", m.UndesirableAromas))
	}

	if m.Humidity < minHumidity || m.Humidity > maxHumidity {
		reasons = append(reasons, fmt.Sprintf("humidity %.1f%% outside acceptable range %.1f%%-%.1f%%", m.Humidity, minHumidity, maxHumidity))
	}

	if m.BrokenGrains > maxBrokenGrains {
		reasons = append(reasons, fmt.Sprintf("broken grains %.1f%% exceed %.0f%%", m.BrokenGrains, maxBrokenGrains))
	}

	if m.ViolatedGrains {
		reasons = append(reasons, "violated grains present")
	}

	if m.FlatGrains > maxFlatGrains {
		warnings = append(warnings, fmt.Sprintf("flat grains %.1f%% exceed %.0f%%", m.FlatGrains, maxFlatGrains))
	}

	if m.AffectedGrainsInsects >= minAffectedByInsects {
		reasons = append(reasons, fmt.Sprintf("grains affected by insects: %.1f%%", m.AffectedGrainsInsects))
	}

	if fermented := m.WellFermentedBeans + m.LightlyFermentedBeans; fermented < minFermentedTotal {
		reasons = append(reasons, fmt.Sprintf("fermented beans %.1f%% below required %.0f%%", fermented, minFermentedTotal))
	}

	if m.PurpleBeans > maxPurpleBeans {
		reasons = append(reasons, fmt.Sprintf("purple beans %.1f%% exceed %.0f%%", m.PurpleBeans, maxPurpleBeans))
	}

	if m.SlatyBeans > 0 {
		reasons = append(reasons, fmt.Sprintf("slaty beans present: %.1f%%", m.SlatyBeans))
	}

	if m.InternalMoldyBeans > 0 {
		reasons = append(reasons, fmt.Sprintf("internal moldy beans present: %.1f%%", m.InternalMoldyBeans))
	}

	if m.OverFermentedBeans > 0 {
		reasons = append(reasons, fmt.Sprintf("over-fermented beans present: %.1f%%", m.OverFermentedBeans))
	}

	result := Result{
		GlobalEvaluation:        domain.PhysicalPassed,
		DisqualificationReasons: reasons,
		Warnings:                warnings,
	}
	if len(reasons) > 0 {
		result.GlobalEvaluation = domain.PhysicalDisqualified
	}
	return result
}
