package matching

import (
	"fmt"
	"math"
	"strings"
)

// Scoring weights and thresholds. Fixed by design; tuning per deployment
// is explicitly not supported.
const (
	weightColor     = 0.3
	weightFormality = 0.3
	weightWeather   = 0.2
	weightOccasion  = 0.2

	// Pairings at or below this confidence are dropped by Generate.
	minConfidence = 0.3

	// Score used when weather is unknown or unremarkable.
	neutralWeatherScore = 0.8

	coldBelowF = 50.0
	warmAboveF = 77.0
)

var occasionFormalityBands = map[Occasion][2]int{
	OccasionCasual:     {1, 5},
	OccasionBusiness:   {6, 9},
	OccasionFormal:     {8, 10},
	OccasionAthletic:   {1, 3},
	OccasionParty:      {4, 8},
	OccasionDate:       {4, 8},
	OccasionTravel:     {2, 6},
	OccasionLoungewear: {1, 3},
}

type weatherBucket int

const (
	weatherNeutral weatherBucket = iota
	weatherCold
	weatherWarm
	weatherRainy
)

var bucketMaterials = map[weatherBucket]struct {
	preferred []string
	avoided   []string
}{
	weatherCold: {
		preferred: []string{"wool", "fleece", "cashmere", "leather", "denim", "corduroy"},
		avoided:   []string{"linen", "chiffon", "mesh"},
	},
	weatherWarm: {
		preferred: []string{"cotton", "linen", "silk", "rayon"},
		avoided:   []string{"wool", "fleece", "cashmere", "leather"},
	},
	weatherRainy: {
		preferred: []string{"polyester", "nylon", "leather"},
		avoided:   []string{"suede", "silk", "linen"},
	},
}

// Score rates one (top, bottom) pair against the context. Pure and
// deterministic: the same inputs always produce the same pairing, so
// results are reproducible across calls and safe to compare.
func Score(top, bottom Garment, ctx MatchingContext) ScoredPairing {
	color := colorHarmonyScore(top.ColorPrimary, bottom.ColorPrimary)
	formality := formalityMatchScore(top, bottom, ctx)
	weather := weatherMatchScore(top, bottom, ctx.Weather)
	occasion := occasionMatchScore(top, bottom, ctx.Occasion)

	confidence := weightColor*color + weightFormality*formality +
		weightWeather*weather + weightOccasion*occasion

	return ScoredPairing{
		Top:            top,
		Bottom:         bottom,
		Confidence:     math.Min(1, confidence),
		ColorScore:     color,
		FormalityScore: formality,
		WeatherScore:   weather,
		OccasionScore:  occasion,
		Reasoning:      buildReasoning(color, formality, weather, occasion, ctx),
	}
}

// formalityMatchScore scales with how close the two formality scores sit,
// then rewards or punishes the pair for landing inside or outside the
// occasion's expected band.
func formalityMatchScore(top, bottom Garment, ctx MatchingContext) float64 {
	diff := math.Abs(float64(top.FormalityScore - bottom.FormalityScore))
	score := math.Max(0, 1-diff/6)
	if band, ok := formalityBand(ctx); ok {
		average := float64(top.FormalityScore+bottom.FormalityScore) / 2
		if average >= float64(band[0]) && average <= float64(band[1]) {
			score *= 1.2
		} else {
			score *= 0.6
		}
	}
	return clamp01(score)
}

func formalityBand(ctx MatchingContext) ([2]int, bool) {
	if ctx.Occasion != "" {
		band, ok := occasionFormalityBands[ctx.Occasion]
		return band, ok
	}
	if ctx.FormalityPreference != nil {
		pref := clampFormality(*ctx.FormalityPreference)
		return [2]int{pref - 1, pref + 1}, true
	}
	return [2]int{}, false
}

func classifyWeather(w WeatherInfo) weatherBucket {
	description := strings.ToLower(w.Description)
	switch {
	case w.TemperatureF < coldBelowF:
		return weatherCold
	case w.TemperatureF > warmAboveF:
		return weatherWarm
	case strings.Contains(description, "rain") || strings.Contains(description, "storm"):
		return weatherRainy
	default:
		return weatherNeutral
	}
}

func weatherMatchScore(top, bottom Garment, w *WeatherInfo) float64 {
	if w == nil {
		return neutralWeatherScore
	}
	bucket := classifyWeather(*w)
	if bucket == weatherNeutral {
		return neutralWeatherScore
	}
	lists := bucketMaterials[bucket]
	score := 0.5
	for _, g := range [2]Garment{top, bottom} {
		if materialMatches(g.Material, lists.preferred) {
			score += 0.2
		}
		if materialMatches(g.Material, lists.avoided) {
			score -= 0.3
		}
	}
	return clamp01(score)
}

func materialMatches(material string, keywords []string) bool {
	if material == "" {
		return false
	}
	material = strings.ToLower(material)
	for _, keyword := range keywords {
		if strings.Contains(material, keyword) {
			return true
		}
	}
	return false
}

func occasionMatchScore(top, bottom Garment, occasion Occasion) float64 {
	if occasion == "" {
		return 0.8
	}
	score := 0.5
	if top.HasOccasion(occasion) {
		score += 0.25
	}
	if bottom.HasOccasion(occasion) {
		score += 0.25
	}
	return clamp01(score)
}

// buildReasoning assembles the user-facing explanation from the component
// scores. Clause order is fixed: color, formality, weather, occasion.
func buildReasoning(color, formality, weather, occasion float64, ctx MatchingContext) string {
	var clauses []string
	switch {
	case color > 0.8:
		clauses = append(clauses, "excellent color harmony between these pieces")
	case color > 0.6:
		clauses = append(clauses, "good color coordination")
	}
	switch {
	case formality > 0.8 && ctx.Occasion != "":
		clauses = append(clauses, fmt.Sprintf("perfect formality level for %s", ctx.Occasion))
	case formality > 0.6:
		clauses = append(clauses, "appropriate formality match")
	}
	if weather > 0.7 && ctx.Weather != nil {
		clauses = append(clauses, weatherClause(classifyWeather(*ctx.Weather)))
	}
	if occasion > 0.7 {
		if ctx.Occasion != "" {
			clauses = append(clauses, fmt.Sprintf("a solid pick for %s occasions", ctx.Occasion))
		} else {
			clauses = append(clauses, "versatile across occasions")
		}
	}
	if len(clauses) == 0 {
		return "these pieces create a balanced look together"
	}
	return strings.Join(clauses, ", ")
}

func weatherClause(bucket weatherBucket) string {
	switch bucket {
	case weatherCold:
		return "warm layers for the cold weather"
	case weatherWarm:
		return "breathable fabrics for the warm weather"
	case weatherRainy:
		return "weather-resistant materials for the rain"
	default:
		return "comfortable in the current weather"
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
