package models

type Outfit struct {
	JsonModel
	Owner    UserAccount `json:"-"`
	OwnerID  uint        `json:"-"`
	TopID    uint        `json:"top_id"`
	Top      Garment     `json:"top"`
	BottomID uint        `json:"bottom_id"`
	Bottom   Garment     `json:"bottom"`

	Occasion   *string `json:"occasion"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `gorm:"type:text" json:"reasoning"`
	// true when the pairing came from the rule-only fallback
	Basic bool `json:"basic"`
}
