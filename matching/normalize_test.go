package matching

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func TestNormalizeDefaults(t *testing.T) {
	g := Normalize(ClassifierOutput{})

	require.Equal(t, RoleTop, g.Role)
	require.Equal(t, "#000000", g.ColorPrimary)
	require.Equal(t, "", g.ColorSecondary)
	require.Equal(t, []Season{SeasonAllYear}, g.Seasons)
	require.Equal(t, []Occasion{OccasionCasual}, g.Occasions)
	require.Equal(t, 0.5, g.AIConfidence)
	require.Equal(t, 4, g.FormalityScore)
}

func TestNormalizeMapsClassifierFields(t *testing.T) {
	g := Normalize(ClassifierOutput{
		Name:           "  Light Puffer ",
		Category:       "Jacket",
		Subcategory:    "Puffer Jacket",
		ColorPrimary:   "3ab",
		ColorSecondary: "Navy",
		Material:       "Nylon",
		Seasons:        []string{"Winter", "AUTUMN", "winter", "monsoon"},
		Occasions:      []string{"Work", "officE", "skydiving"},
		Formality:      intPtr(7),
		Confidence:     floatPtr(0.83),
	})

	require.Equal(t, "Light Puffer", g.Name)
	require.Equal(t, RoleOuterwear, g.Role)
	require.Equal(t, "puffer_jacket", g.Subcategory)
	require.Equal(t, "#33AABB", g.ColorPrimary)
	require.Equal(t, "#000080", g.ColorSecondary)
	require.Equal(t, "nylon", g.Material)
	require.Equal(t, []Season{SeasonWinter, SeasonFall}, g.Seasons)
	require.Equal(t, []Occasion{OccasionBusiness}, g.Occasions)
	require.Equal(t, 7, g.FormalityScore)
	require.Equal(t, 0.83, g.AIConfidence)
}

func TestNormalizeColorFallbacks(t *testing.T) {
	// Unmapped color names collapse to black instead of failing.
	require.Equal(t, "#000000", NormalizeColor("ocean blue"))
	require.Equal(t, "#000000", NormalizeColor(""))
	require.Equal(t, "#000000", NormalizeColor("#12GG34"))

	require.Equal(t, "#FFAA00", NormalizeColor("#ffaa00"))
	require.Equal(t, "#FFAA00", NormalizeColor("ffaa00"))
	require.Equal(t, "#FF0000", NormalizeColor("#F00"))
	require.Equal(t, "#808080", NormalizeColor("Grey"))
	require.Equal(t, "#F5F5DC", NormalizeColor(" beige "))
}

func TestNormalizeConfidenceClamp(t *testing.T) {
	require.Equal(t, 1.0, Normalize(ClassifierOutput{Confidence: floatPtr(1.7)}).AIConfidence)
	require.Equal(t, 0.0, Normalize(ClassifierOutput{Confidence: floatPtr(-0.2)}).AIConfidence)
	require.Equal(t, 0.5, Normalize(ClassifierOutput{}).AIConfidence)
}

func TestNormalizeFormalityClamp(t *testing.T) {
	require.Equal(t, 10, Normalize(ClassifierOutput{Formality: intPtr(15)}).FormalityScore)
	require.Equal(t, 1, Normalize(ClassifierOutput{Formality: intPtr(-2)}).FormalityScore)
}

func TestNormalizeSubcategoryPassthrough(t *testing.T) {
	// Unmapped subcategories survive verbatim (lower-cased) so the client
	// can still render a label.
	g := Normalize(ClassifierOutput{Subcategory: "Kimono Wrap"})
	require.Equal(t, "kimono wrap", g.Subcategory)
}

func TestNormalizeInvariants(t *testing.T) {
	colorPattern := regexp.MustCompile(`^#[0-9A-F]{6}$`)
	inputs := []ClassifierOutput{
		{},
		{ColorPrimary: "ocean blue", Category: "spacesuit"},
		{ColorPrimary: "#f0a", Seasons: []string{"monsoon"}, Occasions: []string{"skydiving"}},
		{ColorPrimary: "PINK", Confidence: floatPtr(99)},
	}
	for _, raw := range inputs {
		g := Normalize(raw)
		require.Regexp(t, colorPattern, g.ColorPrimary)
		require.GreaterOrEqual(t, g.AIConfidence, 0.0)
		require.LessOrEqual(t, g.AIConfidence, 1.0)
		require.NotEmpty(t, g.Seasons)
		require.NotEmpty(t, g.Occasions)
	}
}

func TestEstimateFormality(t *testing.T) {
	require.Equal(t, 9, EstimateFormality(RoleOuterwear, "Wool Suit Jacket"))
	require.Equal(t, 6, EstimateFormality(RoleTop, "Summer Dress Shirt"))
	require.Equal(t, 4, EstimateFormality(RoleBottom, "Slim Jeans"))
	// "casual" and "t-shirt" belong to one group, applied once.
	require.Equal(t, 2, EstimateFormality(RoleTop, "Casual T-Shirt"))
	// Base per role when nothing matches.
	require.Equal(t, 5, EstimateFormality(RoleFootwear, "Sneakers"))
	require.Equal(t, 4, EstimateFormality(RoleAccessory, "Leather Belt"))
	// Clamped at both ends.
	require.Equal(t, 1, EstimateFormality(RoleAccessory, "casual jeans look"))
	require.Equal(t, 10, EstimateFormality(RoleOuterwear, "formal suit dress coat"))
}

func TestFallbackGarment(t *testing.T) {
	g := FallbackGarment()
	require.Equal(t, RoleTop, g.Role)
	require.Equal(t, "#000000", g.ColorPrimary)
	require.Equal(t, 0.1, g.AIConfidence)
	require.Equal(t, 4, g.FormalityScore)
	require.Equal(t, []Season{SeasonAllYear}, g.Seasons)
	require.Equal(t, []Occasion{OccasionCasual}, g.Occasions)
}

func TestNormalizeResult(t *testing.T) {
	raw := ClassifierOutput{Category: "pants", ColorPrimary: "navy"}

	ok := NormalizeResult(raw, nil)
	require.Equal(t, RoleBottom, ok.Role)
	require.Equal(t, "#000080", ok.ColorPrimary)

	failed := NormalizeResult(raw, errors.New("model overloaded"))
	require.Equal(t, FallbackGarment(), failed)
}

func TestParseHelpers(t *testing.T) {
	role, ok := ParseRole("jacket")
	require.True(t, ok)
	require.Equal(t, RoleOuterwear, role)

	_, ok = ParseRole("spacesuit")
	require.False(t, ok)

	occasion, ok := ParseOccasion("Night Out")
	require.True(t, ok)
	require.Equal(t, OccasionParty, occasion)

	_, ok = ParseOccasion("skydiving")
	require.False(t, ok)
}
