package matching

import (
	"fmt"
	"sort"
	"strings"
)

const maxPairings = 3

// Fixed confidences for the non-AI fallback path.
const (
	basicFilteredConfidence = 0.6
	basicFallbackConfidence = 0.3
)

// Generate scores every (top, bottom) combination in the wardrobe and
// returns up to three pairings, best first. An empty result means the
// wardrobe lacks tops or bottoms (or nothing cleared the confidence
// cutoff), not that something went wrong.
func Generate(wardrobe []Garment, ctx MatchingContext) []ScoredPairing {
	avoided := resolveColorSet(ctx.AvoidColors)
	var tops, bottoms []Garment
	for _, g := range wardrobe {
		if avoided[strings.ToUpper(g.ColorPrimary)] {
			continue
		}
		switch g.Role {
		case RoleTop, RoleOuterwear:
			tops = append(tops, g)
		case RoleBottom:
			bottoms = append(bottoms, g)
		}
	}
	if len(tops) == 0 || len(bottoms) == 0 {
		return nil
	}

	var pairings []ScoredPairing
	for _, top := range tops {
		for _, bottom := range bottoms {
			pairing := Score(top, bottom, ctx)
			if pairing.Confidence <= minConfidence {
				continue
			}
			pairings = append(pairings, pairing)
		}
	}
	// Stable: equally scored pairs keep wardrobe order.
	sort.SliceStable(pairings, func(i, j int) bool {
		return pairings[i].Confidence > pairings[j].Confidence
	})
	if len(pairings) > maxPairings {
		pairings = pairings[:maxPairings]
	}
	return pairings
}

// BasicPairings is the rule-of-thumb path for wardrobes without AI
// attributes (classifier unconfigured or nothing analyzed yet). It skips
// the scorer entirely: occasion filter, neutral-bottom preference, fixed
// confidence.
func BasicPairings(wardrobe []Garment, ctx MatchingContext) []ScoredPairing {
	tops, bottoms := partitionBasic(filterByOccasion(wardrobe, ctx.Occasion))
	confidence := basicFilteredConfidence
	filtered := true
	if len(tops) == 0 || len(bottoms) == 0 {
		tops, bottoms = partitionBasic(wardrobe)
		confidence = basicFallbackConfidence
		filtered = false
		if len(tops) == 0 || len(bottoms) == 0 {
			return nil
		}
	}

	preferred := resolveColorSet(ctx.ColorPreferences)
	var pairings []ScoredPairing
	for _, top := range tops {
		if len(pairings) == maxPairings {
			break
		}
		bottom := pickBasicBottom(top, bottoms, preferred)
		pairings = append(pairings, ScoredPairing{
			Top:        top,
			Bottom:     bottom,
			Confidence: confidence,
			Reasoning:  basicReasoning(bottom, ctx, filtered),
		})
	}
	return pairings
}

func filterByOccasion(wardrobe []Garment, occasion Occasion) []Garment {
	if occasion == "" {
		return wardrobe
	}
	var kept []Garment
	for _, g := range wardrobe {
		if g.HasOccasion(occasion) {
			kept = append(kept, g)
		}
	}
	return kept
}

func partitionBasic(wardrobe []Garment) (tops, bottoms []Garment) {
	for _, g := range wardrobe {
		switch g.Role {
		case RoleTop, RoleOuterwear:
			tops = append(tops, g)
		case RoleBottom:
			bottoms = append(bottoms, g)
		}
	}
	return tops, bottoms
}

// pickBasicBottom prefers a neutral bottom, then a preferred-color one,
// then anything that at least differs from the top's color.
func pickBasicBottom(top Garment, bottoms []Garment, preferred map[string]bool) Garment {
	for _, b := range bottoms {
		if IsNeutralColor(b.ColorPrimary) {
			return b
		}
	}
	for _, b := range bottoms {
		if preferred[strings.ToUpper(b.ColorPrimary)] {
			return b
		}
	}
	for _, b := range bottoms {
		if !strings.EqualFold(b.ColorPrimary, top.ColorPrimary) {
			return b
		}
	}
	return bottoms[0]
}

func basicReasoning(bottom Garment, ctx MatchingContext, filtered bool) string {
	clauses := []string{"a classic combination from your wardrobe"}
	if filtered && ctx.Occasion != "" {
		clauses = append(clauses, fmt.Sprintf("picked for %s", ctx.Occasion))
	}
	if ctx.Weather != nil {
		clauses = append(clauses, "works in the current conditions")
	}
	if IsNeutralColor(bottom.ColorPrimary) {
		clauses = append(clauses, "the neutral bottom pairs easily")
	}
	return strings.Join(clauses, ", ")
}

// resolveColorSet resolves user color words or hexes; entries that map to
// nothing are dropped rather than defaulted, a literal "#000000" fallback
// here would silently ban black.
func resolveColorSet(colors []string) map[string]bool {
	if len(colors) == 0 {
		return nil
	}
	set := make(map[string]bool, len(colors))
	for _, c := range colors {
		if hex, ok := lookupColor(c); ok {
			set[hex] = true
		}
	}
	return set
}
