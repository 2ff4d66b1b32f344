package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"fitpickapi/matching"
	"fitpickapi/models"
	"fitpickapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type RecommendationsIn struct {
	Occasion            *string  `json:"occasion" validate:"omitempty,occasion"`
	Lat                 *float64 `json:"lat"`
	Lon                 *float64 `json:"lon"`
	City                *string  `json:"city" validate:"omitempty,max=100"`
	FormalityPreference *int     `json:"formality_preference" validate:"omitempty,min=1,max=10"`
	ColorPreferences    []string `json:"color_preferences" validate:"omitempty,max=20,dive,max=50"`
	AvoidColors         []string `json:"avoid_colors" validate:"omitempty,max=20,dive,max=50"`
}

type SaveOutfitIn struct {
	TopID    uint    `json:"top_id" validate:"required"`
	BottomID uint    `json:"bottom_id" validate:"required"`
	Occasion *string `json:"occasion" validate:"omitempty,occasion"`
}

type PairingGarmentOut struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	Subcategory  string  `json:"subcategory"`
	ColorPrimary string  `json:"color_primary"`
	Uri          *string `json:"uri,omitempty"`
}

type PairingOut struct {
	Top            PairingGarmentOut `json:"top"`
	Bottom         PairingGarmentOut `json:"bottom"`
	Confidence     float64           `json:"confidence"`
	ColorScore     float64           `json:"color_score"`
	FormalityScore float64           `json:"formality_score"`
	WeatherScore   float64           `json:"weather_score"`
	OccasionScore  float64           `json:"occasion_score"`
	Reasoning      string            `json:"reasoning"`
}

type RecommendationsOut struct {
	Pairings []PairingOut            `json:"pairings"`
	Basic    bool                    `json:"basic"`
	Weather  *models.WeatherSnapshot `json:"weather,omitempty"`
}

type OutfitOut struct {
	ID         uint              `json:"id"`
	Occasion   *string           `json:"occasion"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
	Basic      bool              `json:"basic"`
	Top        PairingGarmentOut `json:"top"`
	Bottom     PairingGarmentOut `json:"bottom"`
	CreatedAt  string            `json:"created_at"`
}

type OutfitsController struct {
	AWSService services.AWSServiceProvider
	Weather    services.WeatherProvider
	URLCache   services.URLCacheServiceProvider
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/recommendations", controller.Recommendations)
	g.POST("", controller.SaveOutfit)
	g.GET("", controller.ListOutfits)
	g.DELETE("/:outfitId", controller.DeleteOutfit)
}

// presignedURLsByGarment resolves read URLs for every distinct garment,
// concurrently, with the same cache-then-direct-presign failsafe the
// garment list uses.
func (controller *OutfitsController) presignedURLsByGarment(ctx context.Context, garments []models.Garment) map[uint]*string {
	urls := make(map[uint]*string, len(garments))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, garmentItem := range garments {
		if garmentItem.ImageURL == nil || *garmentItem.ImageURL == "" {
			continue
		}
		wg.Add(1)
		go func(item models.Garment) {
			defer wg.Done()
			objectKey := *item.ImageURL
			url, err := controller.URLCache.GetReadURL(ctx, objectKey)
			if err != nil {
				log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
				sentry.CaptureException(err)
				url, err = controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
				if err != nil {
					log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, err)
					sentry.CaptureException(err)
					return
				}
			}
			mu.Lock()
			urls[item.ID] = &url
			mu.Unlock()
		}(garmentItem)
	}
	wg.Wait()
	return urls
}

func pairingGarmentOut(g matching.Garment, uri *string) PairingGarmentOut {
	return PairingGarmentOut{
		ID:           g.ID,
		Name:         g.Name,
		Role:         string(g.Role),
		Subcategory:  g.Subcategory,
		ColorPrimary: g.ColorPrimary,
		Uri:          uri,
	}
}

// Recommendations runs the compatibility engine over the caller's closet.
// Weather is best effort: a gateway failure downgrades the scoring
// context instead of failing the request.
func (controller *OutfitsController) Recommendations(c echo.Context) error {
	var req RecommendationsIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var garments []models.Garment
	if err := db.Where("owner_id = ? AND status = ?", user.ID, "in_closet").Find(&garments).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garments"})
	}

	wardrobe := make([]matching.Garment, 0, len(garments))
	analyzed := make([]matching.Garment, 0, len(garments))
	for _, garment := range garments {
		attrs := garment.Attributes()
		wardrobe = append(wardrobe, attrs)
		if garment.Analyzed() {
			analyzed = append(analyzed, attrs)
		}
	}

	matchCtx := matching.MatchingContext{
		FormalityPreference: req.FormalityPreference,
		ColorPreferences:    req.ColorPreferences,
		AvoidColors:         req.AvoidColors,
	}
	if req.Occasion != nil {
		if occasion, found := matching.ParseOccasion(*req.Occasion); found {
			matchCtx.Occasion = occasion
		}
	}

	var snapshot *models.WeatherSnapshot
	if req.Lat != nil && req.Lon != nil {
		snap, err := controller.Weather.CurrentByCoords(c.Request().Context(), *req.Lat, *req.Lon)
		if err != nil {
			fmt.Printf("[Recommend: user %v] Weather unavailable, scoring without it: %v\n", user.ID, err)
		} else {
			snapshot = snap
		}
	} else if req.City != nil && *req.City != "" {
		snap, err := controller.Weather.CurrentByCity(c.Request().Context(), *req.City)
		if err != nil {
			fmt.Printf("[Recommend: user %v] Weather unavailable, scoring without it: %v\n", user.ID, err)
		} else {
			snapshot = snap
		}
	}
	matchCtx.Weather = snapshot.MatchingInfo()

	// the scored path needs classifier output to exist at all
	classifierConfigured := os.Getenv("GOOGLE_API_KEY") != ""
	var pairings []matching.ScoredPairing
	basic := false
	if classifierConfigured && len(analyzed) > 0 {
		pairings = matching.Generate(analyzed, matchCtx)
	}
	if len(pairings) == 0 {
		pairings = matching.BasicPairings(wardrobe, matchCtx)
		basic = true
	}
	fmt.Printf("[Recommend: user %v] closet %v, analyzed %v, pairings %v, basic %v\n", user.ID, len(garments), len(analyzed), len(pairings), basic)

	urls := controller.presignedURLsByGarment(c.Request().Context(), garments)

	out := RecommendationsOut{Pairings: []PairingOut{}, Basic: basic, Weather: snapshot}
	for _, pairing := range pairings {
		out.Pairings = append(out.Pairings, PairingOut{
			Top:            pairingGarmentOut(pairing.Top, urls[pairing.Top.ID]),
			Bottom:         pairingGarmentOut(pairing.Bottom, urls[pairing.Bottom.ID]),
			Confidence:     pairing.Confidence,
			ColorScore:     pairing.ColorScore,
			FormalityScore: pairing.FormalityScore,
			WeatherScore:   pairing.WeatherScore,
			OccasionScore:  pairing.OccasionScore,
			Reasoning:      pairing.Reasoning,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// SaveOutfit persists a pairing the user liked. The score is recomputed
// server side so a stale client cannot store an inflated confidence.
func (controller *OutfitsController) SaveOutfit(c echo.Context) error {
	var req SaveOutfitIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	if req.TopID == req.BottomID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "An outfit needs two different garments"})
	}

	var top, bottom models.Garment
	r := db.Where("id = ? AND owner_id = ?", req.TopID, user.ID).Limit(1).Find(&top)
	if r.Error != nil || r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	r = db.Where("id = ? AND owner_id = ?", req.BottomID, user.ID).Limit(1).Find(&bottom)
	if r.Error != nil || r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if top.Role != string(matching.RoleTop) && top.Role != string(matching.RoleOuterwear) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "top_id must reference a top or outerwear garment"})
	}
	if bottom.Role != string(matching.RoleBottom) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bottom_id must reference a bottom garment"})
	}

	matchCtx := matching.MatchingContext{}
	if req.Occasion != nil {
		if occasion, found := matching.ParseOccasion(*req.Occasion); found {
			matchCtx.Occasion = occasion
		}
	}
	scored := matching.Score(top.Attributes(), bottom.Attributes(), matchCtx)

	outfit := models.Outfit{
		OwnerID:    user.ID,
		TopID:      top.ID,
		BottomID:   bottom.ID,
		Occasion:   req.Occasion,
		Confidence: scored.Confidence,
		Reasoning:  scored.Reasoning,
		Basic:      !top.Analyzed() || !bottom.Analyzed(),
	}
	if err := db.Create(&outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save outfit"})
	}
	fmt.Println("Saved outfit ", outfit.ID, " for user ", user.ID, " top ", top.ID, " bottom ", bottom.ID)

	urls := controller.presignedURLsByGarment(c.Request().Context(), []models.Garment{top, bottom})
	return c.JSON(http.StatusCreated, OutfitOut{
		ID:         outfit.ID,
		Occasion:   outfit.Occasion,
		Confidence: outfit.Confidence,
		Reasoning:  outfit.Reasoning,
		Basic:      outfit.Basic,
		Top:        pairingGarmentOut(top.Attributes(), urls[top.ID]),
		Bottom:     pairingGarmentOut(bottom.Attributes(), urls[bottom.ID]),
		CreatedAt:  outfit.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (controller *OutfitsController) ListOutfits(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var outfits []models.Outfit
	if err := db.Preload("Top").Preload("Bottom").Where("owner_id = ?", user.ID).Order("created_at desc").Find(&outfits).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}

	garments := make([]models.Garment, 0, len(outfits)*2)
	for _, outfit := range outfits {
		garments = append(garments, outfit.Top, outfit.Bottom)
	}
	urls := controller.presignedURLsByGarment(c.Request().Context(), garments)

	out := []OutfitOut{}
	for _, outfit := range outfits {
		out = append(out, OutfitOut{
			ID:         outfit.ID,
			Occasion:   outfit.Occasion,
			Confidence: outfit.Confidence,
			Reasoning:  outfit.Reasoning,
			Basic:      outfit.Basic,
			Top:        pairingGarmentOut(outfit.Top.Attributes(), urls[outfit.Top.ID]),
			Bottom:     pairingGarmentOut(outfit.Bottom.Attributes(), urls[outfit.Bottom.ID]),
			CreatedAt:  outfit.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (controller *OutfitsController) DeleteOutfit(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	var outfitId uint
	if err := echo.PathParamsBinder(c).Uint("outfitId", &outfitId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	result := db.Where("id = ? AND owner_id = ?", outfitId, user.ID).Delete(&models.Outfit{})
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete outfit"})
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	fmt.Println("Deleted outfit ", outfitId, " of user ", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}
