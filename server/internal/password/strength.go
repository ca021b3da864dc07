package password

// Points awarded by Strength. Length bonuses are cumulative.
const (
	pointsMinLength   = 20
	pointsLength12    = 10
	pointsLength16    = 10
	pointsCharClass   = 15
	maxStrengthPoints = 100
)

// Score thresholds for Label and TierFor.
const (
	ThresholdMedium = 40
	ThresholdStrong = 70
)

// Labels returned by Label.
const (
	LabelWeak   = "Weak"
	LabelMedium = "Medium"
	LabelStrong = "Strong"
)

// Tier is the visual weight of a strength score.
type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
)

// Color returns the meter colour used by the site for the tier.
func (t Tier) Color() string {
	switch t {
	case TierHigh:
		return "green"
	case TierMid:
		return "yellow"
	default:
		return "red"
	}
}

// Strength returns the 0–100 strength estimate for pw. It is a heuristic for
// the strength meter, not an entropy measure.
func Strength(pw string) int {
	c := classify(pw)

	score := 0
	if c.length >= 8 {
		score += pointsMinLength
	}
	if c.length >= 12 {
		score += pointsLength12
	}
	if c.length >= 16 {
		score += pointsLength16
	}
	for _, has := range []bool{c.lower, c.upper, c.digit, c.special} {
		if has {
			score += pointsCharClass
		}
	}

	if score > maxStrengthPoints {
		score = maxStrengthPoints
	}
	return score
}

// Label maps a score to Weak, Medium or Strong.
func Label(score int) string {
	switch {
	case score >= ThresholdStrong:
		return LabelStrong
	case score >= ThresholdMedium:
		return LabelMedium
	default:
		return LabelWeak
	}
}

// TierFor maps a score to its visual tier. It uses the same thresholds as Label.
func TierFor(score int) Tier {
	switch {
	case score >= ThresholdStrong:
		return TierHigh
	case score >= ThresholdMedium:
		return TierMid
	default:
		return TierLow
	}
}

// Report bundles a validation result with the strength meter values.
type Report struct {
	Result
	Score int    `json:"score"`
	Label string `json:"label"`
	Tier  Tier   `json:"tier"`
	Color string `json:"color"`
}

// Check validates pw against rules and scores it.
func Check(pw string, rules Rules) Report {
	score := Strength(pw)
	tier := TierFor(score)
	return Report{
		Result: Validate(pw, rules),
		Score:  score,
		Label:  Label(score),
		Tier:   tier,
		Color:  tier.Color(),
	}
}
