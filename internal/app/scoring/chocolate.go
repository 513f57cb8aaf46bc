package scoring

// ChocolateAttributes are one judge's raw 0-10 sub-scores for a chocolate
// sample. Descriptive tasting notes (floral, citrus, ...) are informational
// and never enter the formula, so they live on the evaluation payload, not
// here.
type ChocolateAttributes struct {
	Color              float64 `json:"color" validate:"min=0,max=10"`
	Gloss              float64 `json:"gloss" validate:"min=0,max=10"`
	SurfaceHomogeneity float64 `json:"surface_homogeneity" validate:"min=0,max=10"`

	AromaIntensity float64 `json:"aroma_intensity" validate:"min=0,max=10"`
	AromaQuality   float64 `json:"aroma_quality" validate:"min=0,max=10"`

	Smoothness float64 `json:"smoothness" validate:"min=0,max=10"`
	Melting    float64 `json:"melting" validate:"min=0,max=10"`
	Body       float64 `json:"body" validate:"min=0,max=10"`

	Sweetness       float64 `json:"sweetness" validate:"min=0,max=10"`
	Bitterness      float64 `json:"bitterness" validate:"min=0,max=10"`
	Acidity         float64 `json:"acidity" validate:"min=0,max=10"`
	FlavorIntensity float64 `json:"flavor_intensity" validate:"min=0,max=10"`

	Persistence       float64 `json:"persistence" validate:"min=0,max=10"`
	AftertasteQuality float64 `json:"aftertaste_quality" validate:"min=0,max=10"`
	FinalBalance      float64 `json:"final_balance" validate:"min=0,max=10"`
}

// Category weights sum to exactly 1.0; the overall score is a convex
// combination of category means and therefore already lives in [0,10] for
// in-range inputs. The clamp only guards against out-of-range raw values.
const (
	weightAppearance = 0.05
	weightAroma      = 0.25
	weightTexture    = 0.20
	weightFlavor     = 0.40
	weightAftertaste = 0.10
)

// CategoryScores breaks the chocolate overall down per category for reports.
type CategoryScores struct {
	Appearance float64 `json:"appearance"`
	Aroma      float64 `json:"aroma"`
	Texture    float64 `json:"texture"`
	Flavor     float64 `json:"flavor"`
	Aftertaste float64 `json:"aftertaste"`
}

func (a ChocolateAttributes) Categories() CategoryScores {
	return CategoryScores{
		Appearance: mean(a.Color, a.Gloss, a.SurfaceHomogeneity),
		Aroma:      mean(a.AromaIntensity, a.AromaQuality),
		Texture:    mean(a.Smoothness, a.Melting, a.Body),
		Flavor:     mean(a.Sweetness, a.Bitterness, a.Acidity, a.FlavorIntensity),
		Aftertaste: mean(a.Persistence, a.AftertasteQuality, a.FinalBalance),
	}
}

// Score derives the 0-10 overall quality from the weighted category means.
// Absent attributes are zero values and simply average in as 0; validation of
// required fields happens at the submission boundary, never here.
func (a ChocolateAttributes) Score() float64 {
	c := a.Categories()
	overall := c.Appearance*weightAppearance +
		c.Aroma*weightAroma +
		c.Texture*weightTexture +
		c.Flavor*weightFlavor +
		c.Aftertaste*weightAftertaste
	return clamp(overall, 0, 10)
}

func mean(values ...float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
