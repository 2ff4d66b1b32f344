package matching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func casualWardrobe() []Garment {
	return []Garment{
		{ID: 1, Name: "White Tee", Role: RoleTop, ColorPrimary: "#FFFFFF",
			FormalityScore: 3, Occasions: []Occasion{OccasionCasual}},
		{ID: 2, Name: "Gray Hoodie", Role: RoleTop, ColorPrimary: "#808080",
			FormalityScore: 3, Occasions: []Occasion{OccasionCasual}},
		{ID: 3, Name: "Denim Jacket", Role: RoleOuterwear, ColorPrimary: "#0000FF",
			FormalityScore: 4, Occasions: []Occasion{OccasionCasual}},
		{ID: 4, Name: "Black Jeans", Role: RoleBottom, ColorPrimary: "#000000",
			FormalityScore: 4, Occasions: []Occasion{OccasionCasual}},
		{ID: 5, Name: "Beige Chinos", Role: RoleBottom, ColorPrimary: "#F5F5DC",
			FormalityScore: 5, Occasions: []Occasion{OccasionCasual}},
		{ID: 6, Name: "White Sneakers", Role: RoleFootwear, ColorPrimary: "#FFFFFF",
			FormalityScore: 2, Occasions: []Occasion{OccasionCasual}},
	}
}

func TestGenerateReturnsRankedTopThree(t *testing.T) {
	ctx := MatchingContext{Occasion: OccasionCasual}
	pairings := Generate(casualWardrobe(), ctx)

	require.Len(t, pairings, 3, "3 tops x 2 bottoms qualify, capped at three")
	for i := 1; i < len(pairings); i++ {
		require.GreaterOrEqual(t, pairings[i-1].Confidence, pairings[i].Confidence)
	}
	for _, p := range pairings {
		require.Contains(t, []Role{RoleTop, RoleOuterwear}, p.Top.Role)
		require.Equal(t, RoleBottom, p.Bottom.Role)
		require.NotEqual(t, p.Top.ID, p.Bottom.ID)
		require.NotEmpty(t, p.Reasoning)
	}
}

func TestGenerateInsufficientRoles(t *testing.T) {
	wardrobe := casualWardrobe()

	var topsOnly []Garment
	for _, g := range wardrobe {
		if g.Role != RoleBottom {
			topsOnly = append(topsOnly, g)
		}
	}
	require.Empty(t, Generate(topsOnly, MatchingContext{}))

	var bottomsOnly []Garment
	for _, g := range wardrobe {
		if g.Role == RoleBottom {
			bottomsOnly = append(bottomsOnly, g)
		}
	}
	require.Empty(t, Generate(bottomsOnly, MatchingContext{}))
	require.Empty(t, Generate(nil, MatchingContext{}))
}

func TestGenerateHonorsAvoidColors(t *testing.T) {
	wardrobe := casualWardrobe()
	ctx := MatchingContext{
		Occasion:    OccasionCasual,
		AvoidColors: []string{"blue", "#808080"},
	}

	pairings := Generate(wardrobe, ctx)
	require.NotEmpty(t, pairings)
	for _, p := range pairings {
		require.NotEqual(t, "#0000FF", p.Top.ColorPrimary)
		require.NotEqual(t, "#808080", p.Top.ColorPrimary)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	ctx := MatchingContext{Occasion: OccasionCasual}
	first := Generate(casualWardrobe(), ctx)
	second := Generate(casualWardrobe(), ctx)
	require.Equal(t, first, second)
}

func TestBasicPairingsFiltersByOccasion(t *testing.T) {
	wardrobe := []Garment{
		{ID: 1, Name: "Dress Shirt", Role: RoleTop, ColorPrimary: "#ADD8E6",
			Occasions: []Occasion{OccasionBusiness}},
		{ID: 2, Name: "Band Tee", Role: RoleTop, ColorPrimary: "#FF0000",
			Occasions: []Occasion{OccasionCasual}},
		{ID: 3, Name: "Gray Slacks", Role: RoleBottom, ColorPrimary: "#808080",
			Occasions: []Occasion{OccasionBusiness}},
		{ID: 4, Name: "Red Shorts", Role: RoleBottom, ColorPrimary: "#FF0000",
			Occasions: []Occasion{OccasionCasual}},
	}
	ctx := MatchingContext{Occasion: OccasionBusiness}

	pairings := BasicPairings(wardrobe, ctx)
	require.Len(t, pairings, 1)
	p := pairings[0]
	require.Equal(t, uint(1), p.Top.ID)
	require.Equal(t, uint(3), p.Bottom.ID, "neutral business bottom wins")
	require.Equal(t, 0.6, p.Confidence)
	require.Contains(t, p.Reasoning, "picked for business")
	require.Contains(t, p.Reasoning, "the neutral bottom pairs easily")
}

func TestBasicPairingsFallsBackUnfiltered(t *testing.T) {
	wardrobe := []Garment{
		{ID: 1, Name: "Band Tee", Role: RoleTop, ColorPrimary: "#FF0000",
			Occasions: []Occasion{OccasionCasual}},
		{ID: 2, Name: "Blue Jeans", Role: RoleBottom, ColorPrimary: "#0000FF",
			Occasions: []Occasion{OccasionCasual}},
	}
	ctx := MatchingContext{Occasion: OccasionFormal}

	pairings := BasicPairings(wardrobe, ctx)
	require.Len(t, pairings, 1)
	require.Equal(t, 0.3, pairings[0].Confidence, "nothing formal, fell back to the full wardrobe")
	require.NotContains(t, pairings[0].Reasoning, "picked for")
}

func TestBasicPairingsBottomPreference(t *testing.T) {
	wardrobe := []Garment{
		{ID: 1, Name: "Red Top", Role: RoleTop, ColorPrimary: "#FF0000"},
		{ID: 2, Name: "Red Skirt", Role: RoleBottom, ColorPrimary: "#FF0000"},
		{ID: 3, Name: "Green Skirt", Role: RoleBottom, ColorPrimary: "#008000"},
	}

	// No neutral bottom: a preferred color beats plain "different from top".
	pairings := BasicPairings(wardrobe, MatchingContext{ColorPreferences: []string{"green"}})
	require.Len(t, pairings, 1)
	require.Equal(t, uint(3), pairings[0].Bottom.ID)

	// Without preferences the first differing color wins.
	pairings = BasicPairings(wardrobe, MatchingContext{})
	require.Equal(t, uint(3), pairings[0].Bottom.ID)

	// All bottoms clash with the top: still pairs something.
	pairings = BasicPairings(wardrobe[:2], MatchingContext{})
	require.Len(t, pairings, 1)
	require.Equal(t, uint(2), pairings[0].Bottom.ID)
}

func TestBasicPairingsCapsAtThree(t *testing.T) {
	var wardrobe []Garment
	for i := uint(1); i <= 5; i++ {
		wardrobe = append(wardrobe, Garment{
			ID: i, Role: RoleTop, ColorPrimary: "#FF0000",
			Occasions: []Occasion{OccasionCasual},
		})
	}
	wardrobe = append(wardrobe, Garment{
		ID: 10, Role: RoleBottom, ColorPrimary: "#000000",
		Occasions: []Occasion{OccasionCasual},
	})

	pairings := BasicPairings(wardrobe, MatchingContext{Occasion: OccasionCasual})
	require.Len(t, pairings, 3)

	require.Empty(t, BasicPairings(nil, MatchingContext{}))
}
