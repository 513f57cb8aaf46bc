package scoring

// CocoaBeanAttributes are one judge's raw inputs for a cocoa bean or liquor
// sample. Unlike the chocolate scheme, the judge submits the overall quality
// directly; the sub-attribute totals are stored for reporting and never fold
// into the stored score. Defects only shape the displayed advisory.
type CocoaBeanAttributes struct {
	Acidity     float64 `json:"acidity" validate:"min=0,max=10"`
	FreshFruit  float64 `json:"fresh_fruit" validate:"min=0,max=10"`
	BrownFruit  float64 `json:"brown_fruit" validate:"min=0,max=10"`
	Floral      float64 `json:"floral" validate:"min=0,max=10"`
	Wood        float64 `json:"wood" validate:"min=0,max=10"`
	Spice       float64 `json:"spice" validate:"min=0,max=10"`
	Nut         float64 `json:"nut" validate:"min=0,max=10"`
	RoastDegree float64 `json:"roast_degree" validate:"min=0,max=10"`
	Defects     float64 `json:"defects" validate:"min=0,max=10"`

	OverallQuality float64 `json:"overall_quality" validate:"min=0,max=10"`
}

// Score returns the judge-submitted overall quality unchanged, clamped to the
// shared 0-10 scale. Kept asymmetric with the chocolate scheme on purpose.
func (a CocoaBeanAttributes) Score() float64 {
	return clamp(a.OverallQuality, 0, 10)
}

// QualityAdvisory is the defect-adjusted number shown alongside the stored
// score on reports. It never replaces OverallQuality anywhere in persistence
// or ranking.
func (a CocoaBeanAttributes) QualityAdvisory() float64 {
	return clamp(a.OverallQuality-a.Defects, 0, 10)
}
