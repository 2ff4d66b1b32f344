// Package matching holds the outfit compatibility engine: normalization of
// classifier output into canonical garment attributes, pair scoring and
// recommendation generation. Everything here is pure and deterministic, no
// I/O, safe for concurrent callers.
package matching

type Role string

const (
	RoleOuterwear Role = "outerwear"
	RoleTop       Role = "top"
	RoleBottom    Role = "bottom"
	RoleFootwear  Role = "footwear"
	RoleAccessory Role = "accessory"
)

type Season string

const (
	SeasonSpring  Season = "spring"
	SeasonSummer  Season = "summer"
	SeasonFall    Season = "fall"
	SeasonWinter  Season = "winter"
	SeasonAllYear Season = "all_seasons"
)

type Occasion string

const (
	OccasionCasual     Occasion = "casual"
	OccasionBusiness   Occasion = "business"
	OccasionFormal     Occasion = "formal"
	OccasionAthletic   Occasion = "athletic"
	OccasionParty      Occasion = "party"
	OccasionDate       Occasion = "date"
	OccasionTravel     Occasion = "travel"
	OccasionLoungewear Occasion = "loungewear"
)

// Garment is a wardrobe item reduced to the attributes scoring cares about.
// Instances coming out of Normalize always satisfy the color/confidence
// invariants; hand-built instances are the caller's responsibility.
type Garment struct {
	ID             uint
	Name           string
	Role           Role
	Subcategory    string // canonical when mapped, classifier text otherwise
	ColorPrimary   string // "#RRGGBB"
	ColorSecondary string // optional, "" or "#RRGGBB"
	Material       string // lower-cased free text
	Seasons        []Season
	Occasions      []Occasion
	FormalityScore int // 1..10
	AIConfidence   float64
}

func (g Garment) HasOccasion(o Occasion) bool {
	for _, own := range g.Occasions {
		if own == o {
			return true
		}
	}
	return false
}

func (g Garment) HasSeason(s Season) bool {
	for _, own := range g.Seasons {
		if own == s || own == SeasonAllYear {
			return true
		}
	}
	return false
}

// WeatherInfo is the slice of weather state the scorer looks at.
type WeatherInfo struct {
	TemperatureF float64
	Description  string
}

// MatchingContext carries the request-time constraints of one
// recommendation call.
type MatchingContext struct {
	Occasion            Occasion // "" when not constrained
	Weather             *WeatherInfo
	FormalityPreference *int
	ColorPreferences    []string
	AvoidColors         []string
}

// ScoredPairing is one ranked (top, bottom) candidate. Pairings are
// computed per request and never persisted by the engine.
type ScoredPairing struct {
	Top            Garment
	Bottom         Garment
	Confidence     float64
	ColorScore     float64
	FormalityScore float64
	WeatherScore   float64
	OccasionScore  float64
	Reasoning      string
}
