package matching

import (
	"strings"

	"golang.org/x/text/cases"
)

// ClassifierOutput is the raw, untrusted attribute bag produced by the
// image classifier. Every field may be missing, misspelled or free-form;
// Normalize is responsible for turning it into something usable.
type ClassifierOutput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory"`
	ColorPrimary   string   `json:"color_primary"`
	ColorSecondary string   `json:"color_secondary"`
	Material       string   `json:"material"`
	Seasons        []string `json:"seasons"`
	Occasions      []string `json:"occasions"`
	Formality      *int     `json:"formality"`
	Confidence     *float64 `json:"confidence"`
}

var roleSynonyms = map[string]Role{
	"top": RoleTop, "tops": RoleTop, "shirt": RoleTop, "shirts": RoleTop,
	"blouse": RoleTop, "t-shirt": RoleTop, "tee": RoleTop, "sweater": RoleTop,
	"knitwear": RoleTop, "hoodie": RoleTop, "upper": RoleTop,
	"bottom": RoleBottom, "bottoms": RoleBottom, "pants": RoleBottom,
	"trousers": RoleBottom, "jeans": RoleBottom, "skirt": RoleBottom,
	"shorts": RoleBottom, "leggings": RoleBottom, "lower": RoleBottom,
	"outerwear": RoleOuterwear, "jacket": RoleOuterwear, "coat": RoleOuterwear,
	"blazer": RoleOuterwear, "cardigan": RoleOuterwear, "parka": RoleOuterwear,
	"footwear": RoleFootwear, "shoes": RoleFootwear, "shoe": RoleFootwear,
	"sneakers": RoleFootwear, "boots": RoleFootwear, "sandals": RoleFootwear,
	"heels": RoleFootwear,
	"accessory": RoleAccessory, "accessories": RoleAccessory, "bag": RoleAccessory,
	"hat": RoleAccessory, "scarf": RoleAccessory, "belt": RoleAccessory,
	"jewelry": RoleAccessory,
}

// Canonical subcategory values the mobile clients know icons for. Anything
// the table misses is passed through as-is so the UI can still show a label.
var subcategorySynonyms = map[string]string{
	"t-shirt": "tee_shirt", "tee shirt": "tee_shirt", "tshirt": "tee_shirt",
	"tee": "tee_shirt",
	"dress shirt": "dress_shirt", "button-down": "dress_shirt",
	"button down": "dress_shirt", "oxford shirt": "dress_shirt",
	"polo": "polo_shirt", "polo shirt": "polo_shirt",
	"sweater": "sweater", "pullover": "sweater", "jumper": "sweater",
	"hoodie": "hoodie", "hooded sweatshirt": "hoodie", "sweatshirt": "sweatshirt",
	"blouse": "blouse", "tank top": "tank_top", "camisole": "tank_top",
	"jeans": "jeans", "denim pants": "jeans",
	"chinos": "chinos", "khakis": "chinos",
	"dress pants": "dress_pants", "slacks": "dress_pants", "suit pants": "dress_pants",
	"shorts": "shorts", "skirt": "skirt", "leggings": "leggings",
	"joggers": "joggers", "sweatpants": "joggers", "track pants": "joggers",
	"blazer": "blazer", "suit jacket": "blazer",
	"denim jacket": "denim_jacket", "jean jacket": "denim_jacket",
	"leather jacket": "leather_jacket", "trench coat": "trench_coat",
	"overcoat": "overcoat", "puffer": "puffer_jacket", "puffer jacket": "puffer_jacket",
	"sneakers": "sneakers", "trainers": "sneakers", "running shoes": "sneakers",
	"boots": "boots", "chelsea boots": "boots",
	"loafers": "loafers", "heels": "heels", "sandals": "sandals",
}

var seasonSynonyms = map[string]Season{
	"spring": SeasonSpring, "summer": SeasonSummer,
	"fall": SeasonFall, "autumn": SeasonFall, "winter": SeasonWinter,
	"all": SeasonAllYear, "all seasons": SeasonAllYear, "all_seasons": SeasonAllYear,
	"all-season": SeasonAllYear, "year round": SeasonAllYear,
	"year-round": SeasonAllYear, "any": SeasonAllYear,
}

var occasionSynonyms = map[string]Occasion{
	"casual": OccasionCasual, "everyday": OccasionCasual,
	"daily": OccasionCasual, "weekend": OccasionCasual,
	"business": OccasionBusiness, "work": OccasionBusiness,
	"office": OccasionBusiness, "business casual": OccasionBusiness,
	"professional": OccasionBusiness,
	"formal": OccasionFormal, "black tie": OccasionFormal,
	"wedding": OccasionFormal, "evening": OccasionFormal,
	"athletic": OccasionAthletic, "sport": OccasionAthletic,
	"sports": OccasionAthletic, "gym": OccasionAthletic,
	"workout": OccasionAthletic, "running": OccasionAthletic,
	"party": OccasionParty, "night out": OccasionParty,
	"club": OccasionParty, "cocktail": OccasionParty,
	"date": OccasionDate, "date night": OccasionDate, "dinner": OccasionDate,
	"travel": OccasionTravel, "vacation": OccasionTravel,
	"holiday": OccasionTravel, "trip": OccasionTravel,
	"loungewear": OccasionLoungewear, "lounge": OccasionLoungewear,
	"home": OccasionLoungewear, "sleep": OccasionLoungewear,
	"relaxed": OccasionLoungewear,
}

// foldKey builds the lookup key for the synonym tables. Unicode case
// folding, classifier output is not guaranteed to be ASCII. A fresh Caser
// per call because Casers are not goroutine safe.
func foldKey(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}

// Normalize converts raw classifier output into a canonical Garment. It
// never fails: unusable fields are replaced by deterministic defaults so
// the analysis pipeline stays total.
func Normalize(raw ClassifierOutput) Garment {
	g := Garment{
		Name:           strings.TrimSpace(raw.Name),
		Role:           mapRole(raw.Category),
		Subcategory:    mapSubcategory(raw.Subcategory),
		ColorPrimary:   NormalizeColor(raw.ColorPrimary),
		ColorSecondary: normalizeOptionalColor(raw.ColorSecondary),
		Material:       foldKey(raw.Material),
		Seasons:        mapSeasons(raw.Seasons),
		Occasions:      mapOccasions(raw.Occasions),
		AIConfidence:   clampConfidence(raw.Confidence),
	}
	if raw.Formality != nil {
		g.FormalityScore = clampFormality(*raw.Formality)
	} else {
		g.FormalityScore = EstimateFormality(g.Role, raw.Name+" "+raw.Description)
	}
	return g
}

// NormalizeResult folds a failed classification into the sentinel garment,
// so callers handle "classifier answered" and "classifier unavailable"
// through one visible path instead of a try/catch around the call.
func NormalizeResult(raw ClassifierOutput, err error) Garment {
	if err != nil {
		return FallbackGarment()
	}
	return Normalize(raw)
}

// FallbackGarment is the total-failure sentinel: a deliberately bland item
// that ranks low in scoring but keeps the pipeline alive when the
// classifier produced nothing at all.
func FallbackGarment() Garment {
	return Garment{
		Role:           RoleTop,
		Subcategory:    "unknown",
		ColorPrimary:   fallbackColor,
		Seasons:        []Season{SeasonAllYear},
		Occasions:      []Occasion{OccasionCasual},
		FormalityScore: roleBaseFormality[RoleTop],
		AIConfidence:   0.1,
	}
}

func mapRole(category string) Role {
	if role, ok := roleSynonyms[foldKey(category)]; ok {
		return role
	}
	return RoleTop
}

func mapSubcategory(subcategory string) string {
	key := foldKey(subcategory)
	if canonical, ok := subcategorySynonyms[key]; ok {
		return canonical
	}
	return key
}

func mapSeasons(raw []string) []Season {
	var seasons []Season
	seen := map[Season]bool{}
	for _, entry := range raw {
		season, ok := seasonSynonyms[foldKey(entry)]
		if !ok || seen[season] {
			continue
		}
		seen[season] = true
		seasons = append(seasons, season)
	}
	if len(seasons) == 0 {
		return []Season{SeasonAllYear}
	}
	return seasons
}

func mapOccasions(raw []string) []Occasion {
	var occasions []Occasion
	seen := map[Occasion]bool{}
	for _, entry := range raw {
		occasion, ok := occasionSynonyms[foldKey(entry)]
		if !ok || seen[occasion] {
			continue
		}
		seen[occasion] = true
		occasions = append(occasions, occasion)
	}
	if len(occasions) == 0 {
		return []Occasion{OccasionCasual}
	}
	return occasions
}

// ParseRole resolves user- or classifier-facing role text ("tops",
// "jacket") to the canonical enum.
func ParseRole(s string) (Role, bool) {
	role, ok := roleSynonyms[foldKey(s)]
	return role, ok
}

// ParseOccasion resolves occasion text ("work", "night out") to the
// canonical enum.
func ParseOccasion(s string) (Occasion, bool) {
	occasion, ok := occasionSynonyms[foldKey(s)]
	return occasion, ok
}

func clampConfidence(raw *float64) float64 {
	if raw == nil {
		return 0.5
	}
	return clamp01(*raw)
}

func clampFormality(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
