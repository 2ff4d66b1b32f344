package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"fitpickapi/models"
	"fitpickapi/services"
	"fitpickapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Request structs for validation
type CreateGarmentIn struct {
	Name        string  `json:"name" validate:"omitempty,max=100"`
	FileName    *string `json:"file_name" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Role        string  `json:"role" validate:"required,role"` // e.g. top, bottom, outerwear, footwear, accessory
	AddToCloset *bool   `json:"add_to_closet" validate:"required"`
}

// Response structs
type GarmentResponse struct {
	ID               uint     `json:"id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description"`
	Role             string   `json:"role"`
	Subcategory      string   `json:"subcategory"`
	Status           string   `json:"status"`
	ImageStatus      string   `json:"image_status"`
	ProcessingStatus string   `json:"processing_status"`
	ColorPrimary     string   `json:"color_primary"`
	ColorSecondary   *string  `json:"color_secondary"`
	Material         *string  `json:"material"`
	Seasons          []string `json:"seasons"`
	Occasions        []string `json:"occasions"`
	FormalityScore   *int     `json:"formality_score"`
	AIConfidence     *float64 `json:"ai_confidence"`
	Uri              *string  `json:"uri,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type GarmentCreatedResponse struct {
	Garment       GarmentResponse `json:"garment"`
	FileUploadUrl string          `json:"file_upload_url"`
}

type GarmentsListResponse struct {
	Outerwear   []GarmentResponse `json:"outerwear"`
	Tops        []GarmentResponse `json:"tops"`
	Bottoms     []GarmentResponse `json:"bottoms"`
	Footwear    []GarmentResponse `json:"footwear"`
	Accessories []GarmentResponse `json:"accessories"`
}

type GarmentsController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
}

func (controller *GarmentsController) GarmentRoutes(g *echo.Group) {
	g.POST("", controller.CreateGarment)
	g.GET("", controller.ListGarments)
	g.GET("/:garmentId", controller.GetGarment)
	g.DELETE("/:garmentId", controller.DeleteGarment)
	g.POST("/:garmentId/uploaded", controller.SetUploaded)
	g.POST("/:garmentId/reanalyze", controller.Reanalyze)
}

func garmentToResponse(garment models.Garment, uri *string) GarmentResponse {
	return GarmentResponse{
		ID:               garment.ID,
		Name:             garment.Name,
		Description:      garment.Description,
		Role:             garment.Role,
		Subcategory:      garment.Subcategory,
		Status:           garment.Status,
		ImageStatus:      garment.ImageStatus,
		ProcessingStatus: garment.ProcessingStatus,
		ColorPrimary:     garment.ColorPrimary,
		ColorSecondary:   garment.ColorSecondary,
		Material:         garment.Material,
		Seasons:          garment.Seasons,
		Occasions:        garment.Occasions,
		FormalityScore:   garment.FormalityScore,
		AIConfidence:     garment.AIConfidence,
		Uri:              uri,
		CreatedAt:        garment.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:        garment.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (controller *GarmentsController) CreateGarment(c echo.Context) error {
	var req CreateGarmentIn
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

	if req.FileName == nil || *req.FileName == "" {
		sentry.CaptureException(fmt.Errorf("Image was not provided when creating garment %s, user %v", req.Name, user.ID))
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, it seems image was not provided, please try again"})
	}
	if !services.IsAllowedImageName(*req.FileName) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, this image format is not supported"})
	}

	if user.Subscription == nil || *user.Subscription == string(models.Free) {
		var totalGarmentCount int64
		if err := db.Model(&models.Garment{}).Where("owner_id = ?", user.ID).Count(&totalGarmentCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get garment data"})
		}
		fmt.Printf("[User %v] Free plan, garment count: %v\n", user.ID, totalGarmentCount)
		if totalGarmentCount >= 20 {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "You have reached the free limit of 20 garments, please subscribe"})
		}
	}

	status := "temporary"
	if req.AddToCloset != nil && *req.AddToCloset {
		status = "in_closet"
	}
	garment := models.Garment{
		Name:             req.Name,
		Description:      req.Description,
		Role:             req.Role,
		OwnerID:          user.ID,
		Status:           status,
		ImageStatus:      "draft",
		ProcessingStatus: "idle",
	}

	var bucketName = services.GetEnv("R2_BUCKET_NAME", "")
	// todo clean and map the same file name as in FE UI otherwise **FAIL**
	safeFileName := fmt.Sprintf("garments/%v/%s", user.ID, *req.FileName)
	uploadUrl, presignErr := controller.AWSService.PresignLink(context.Background(), bucketName, safeFileName)
	if presignErr != nil {
		log.Printf("Unable to presign generate for %s!, %s", garment.Name, presignErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "Error while creating garment with attachment",
		})
	}
	garment.ImageURL = &safeFileName

	if err := db.Create(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}

	return c.JSON(http.StatusCreated, GarmentCreatedResponse{
		Garment:       garmentToResponse(garment, nil),
		FileUploadUrl: uploadUrl,
	})
}

// populatePresignedGarmentImages takes raw garment models and enriches them with presigned URLs concurrently.
// This version includes a failsafe for when the cache system itself fails.
func (controller *GarmentsController) populatePresignedGarmentImages(ctx context.Context, garments []models.Garment) []GarmentResponse {
	if len(garments) == 0 {
		return []GarmentResponse{}
	}

	var wg sync.WaitGroup
	processedResponses := make([]GarmentResponse, len(garments))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, garmentItem := range garments {
		wg.Add(1)
		go func(index int, item models.Garment) {
			defer wg.Done()

			var imageUrl string
			if item.ImageURL != nil && *item.ImageURL != "" {
				objectKey := *item.ImageURL

				// Attempt to get the URL from the cache service first.
				url, err := controller.URLCache.GetReadURL(ctx, objectKey)
				if err == nil {
					imageUrl = url
				} else {
					// The cache system itself failed, fall back to a direct presign.
					log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetTag("failure_type", "cache_system")
						scope.SetExtra("objectKey", objectKey)
						sentry.CaptureException(err)
					})

					fallbackUrl, fallbackErr := controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
					if fallbackErr != nil {
						log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
						sentry.CaptureException(fallbackErr)
						// imageUrl stays empty, we do not fail the entire request
					} else {
						imageUrl = fallbackUrl
					}
				}
			}
			processedResponses[index] = garmentToResponse(item, &imageUrl)
		}(i, garmentItem)
	}

	wg.Wait()
	return processedResponses
}

func (controller *GarmentsController) ListGarments(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var garments []models.Garment
	if err := db.Where("owner_id = ?", user.ID).Order("created_at desc").Find(&garments).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garments"})
	}

	processedResponses := controller.populatePresignedGarmentImages(c.Request().Context(), garments)

	response := GarmentsListResponse{
		Outerwear:   []GarmentResponse{},
		Tops:        []GarmentResponse{},
		Bottoms:     []GarmentResponse{},
		Footwear:    []GarmentResponse{},
		Accessories: []GarmentResponse{},
	}
	for _, resp := range processedResponses {
		switch resp.Role {
		case "outerwear":
			response.Outerwear = append(response.Outerwear, resp)
		case "top":
			response.Tops = append(response.Tops, resp)
		case "bottom":
			response.Bottoms = append(response.Bottoms, resp)
		case "footwear":
			response.Footwear = append(response.Footwear, resp)
		case "accessory":
			response.Accessories = append(response.Accessories, resp)
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (controller *GarmentsController) GetGarment(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	responses := controller.populatePresignedGarmentImages(c.Request().Context(), []models.Garment{garment})
	return c.JSON(http.StatusOK, responses[0])
}

func (controller *GarmentsController) DeleteGarment(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	// saved outfits referencing the garment go with it
	if err := db.Where("owner_id = ? AND (top_id = ? OR bottom_id = ?)", user.ID, garment.ID, garment.ID).Delete(&models.Outfit{}).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete garment"})
	}
	if err := db.Delete(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete garment"})
	}
	fmt.Println("Deleted garment ", garment.ID, " of user ", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// SetUploaded confirms that the client finished the presigned PUT and
// hands the garment over to the analysis queue.
func (controller *GarmentsController) SetUploaded(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if garment.ProcessingStatus == "pending" || garment.ProcessingStatus == "analyzing" {
		return c.JSON(http.StatusConflict, map[string]string{"message": "This garment is already being analyzed"})
	}

	garment.ImageStatus = "uploaded"
	garment.ProcessingStatus = "pending"
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to update garment status, please try again"})
	}

	task, err := tasks.NewGarmentAnalysisTask(garment.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process garment, please try again"})
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("analysis"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process garment, please try again"})
	}
	fmt.Println("[Queue] Analyze garment task submitted, Garment ID: ", garment.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"message":           "queued",
		"processing_status": garment.ProcessingStatus,
	})
}

func (controller *GarmentsController) Reanalyze(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if garment.ImageStatus != "uploaded" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Upload the garment photo before requesting analysis"})
	}
	if garment.ProcessingStatus == "pending" || garment.ProcessingStatus == "analyzing" {
		return c.JSON(http.StatusConflict, map[string]string{"message": "This garment is already being analyzed"})
	}

	if user.Subscription == nil || *user.Subscription == string(models.Free) {
		var dailyAnalyzedCount int64
		today := time.Now().UTC().Format("2006-01-02")
		if err := db.Model(&models.Garment{}).Where("owner_id = ? AND DATE(analyzed_at) = ?", user.ID, today).Count(&dailyAnalyzedCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get garment data"})
		}
		fmt.Printf("[User %v] Free plan, analyses today: %v\n", user.ID, dailyAnalyzedCount)
		if dailyAnalyzedCount >= 3 {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "You have reached the free limit of 3 analyses per day, please subscribe"})
		}
	}

	garment.ProcessingStatus = "pending"
	garment.ProcessRetryTimes = 0
	garment.ProcessErrorMessage = nil
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to update garment status, please try again"})
	}

	task, err := tasks.NewGarmentAnalysisTask(garment.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process garment, please try again"})
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("analysis"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process garment, please try again"})
	}
	fmt.Println("[Queue] Reanalyze garment task submitted, Garment ID: ", garment.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"message":           "queued",
		"processing_status": garment.ProcessingStatus,
	})
}
