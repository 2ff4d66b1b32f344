package models

import (
	"time"

	"github.com/lib/pq"

	"fitpickapi/matching"
)

type Garment struct {
	JsonModel
	Name        string      `json:"name"`
	Description *string     `gorm:"type:text" json:"description"`
	Owner       UserAccount `json:"-"`
	OwnerID     uint        `json:"-"`
	// role is user-declared on creation and is the source of truth for
	// pairing slots even before analysis ran
	Role                string  `json:"role"`              // outerwear, top, bottom, footwear, accessory
	Status              string  `json:"status"`            // temporary, in_closet
	ImageStatus         string  `json:"image_status"`      // draft, uploaded
	ProcessingStatus    string  `json:"processing_status"` // idle, pending, analyzing, completed, failed
	ProcessRetryTimes   int     `json:"process_retry_times"`
	ProcessErrorMessage *string `json:"process_error_message"`
	ImageURL            *string `json:"image_url"`

	// attributes filled in by analysis
	Subcategory    string         `json:"subcategory"`
	ColorPrimary   string         `json:"color_primary"`
	ColorSecondary *string        `json:"color_secondary"`
	Material       *string        `json:"material"`
	Seasons        pq.StringArray `gorm:"type:text[]" json:"seasons"`
	Occasions      pq.StringArray `gorm:"type:text[]" json:"occasions"`
	FormalityScore *int           `json:"formality_score"`
	AIConfidence   *float64       `json:"ai_confidence"`
	AnalyzedAt     *time.Time     `json:"analyzed_at"`

	LLMModel           *string `json:"-"`
	LLMTotalTokenCount *int32  `json:"-"`
}

func (g *Garment) Analyzed() bool {
	return g.AnalyzedAt != nil
}

// Attributes converts the stored row into the engine's canonical shape.
// Rows that were never analyzed still carry the user-declared role and
// name, which is enough for the basic pairing path.
func (g *Garment) Attributes() matching.Garment {
	attrs := matching.Garment{
		ID:           g.ID,
		Name:         g.Name,
		Role:         matching.Role(g.Role),
		Subcategory:  g.Subcategory,
		ColorPrimary: g.ColorPrimary,
	}
	if g.ColorSecondary != nil {
		attrs.ColorSecondary = *g.ColorSecondary
	}
	if g.Material != nil {
		attrs.Material = *g.Material
	}
	for _, season := range g.Seasons {
		attrs.Seasons = append(attrs.Seasons, matching.Season(season))
	}
	for _, occasion := range g.Occasions {
		attrs.Occasions = append(attrs.Occasions, matching.Occasion(occasion))
	}
	if g.FormalityScore != nil {
		attrs.FormalityScore = *g.FormalityScore
	} else {
		attrs.FormalityScore = matching.EstimateFormality(attrs.Role, g.Name)
	}
	if g.AIConfidence != nil {
		attrs.AIConfidence = *g.AIConfidence
	}
	return attrs
}

// ApplyAttributes writes a normalized analysis result back onto the row.
// The caller decides whether the classifier's role wins over the
// user-declared one before calling this.
func (g *Garment) ApplyAttributes(attrs matching.Garment, analyzedAt time.Time) {
	g.Role = string(attrs.Role)
	g.Subcategory = attrs.Subcategory
	g.ColorPrimary = attrs.ColorPrimary
	if attrs.ColorSecondary != "" {
		g.ColorSecondary = &attrs.ColorSecondary
	} else {
		g.ColorSecondary = nil
	}
	if attrs.Material != "" {
		g.Material = &attrs.Material
	} else {
		g.Material = nil
	}
	g.Seasons = nil
	for _, season := range attrs.Seasons {
		g.Seasons = append(g.Seasons, string(season))
	}
	g.Occasions = nil
	for _, occasion := range attrs.Occasions {
		g.Occasions = append(g.Occasions, string(occasion))
	}
	formality := attrs.FormalityScore
	g.FormalityScore = &formality
	confidence := attrs.AIConfidence
	g.AIConfidence = &confidence
	g.AnalyzedAt = &analyzedAt
}
