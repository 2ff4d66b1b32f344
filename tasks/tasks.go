package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"fitpickapi/matching"
	"fitpickapi/models"
	"fitpickapi/services"
)

const (
	TypeGarmentAnalysis    = "analyze:garment"
	TypeWardrobeReanalysis = "analyze:wardrobe"
	TypeDailyOutfit        = "suggest:outfit"
)

type GarmentAnalysisPayload struct {
	GarmentID uint `json:"garment_id"`
}

type WardrobeReanalysisPayload struct {
	UserID uint `json:"user_id"`
}

func NewGarmentAnalysisTask(garmentID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(GarmentAnalysisPayload{GarmentID: garmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGarmentAnalysis, payload), nil
}

func NewWardrobeReanalysisTask(userID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(WardrobeReanalysisPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWardrobeReanalysis, payload), nil
}

func NewDailyOutfitTask() *asynq.Task {
	return asynq.NewTask(TypeDailyOutfit, []byte{})
}

func getFileForGarment(awsService services.AWSServiceProvider, garment models.Garment) ([]byte, string, error) {
	bucketName := os.Getenv("R2_BUCKET_NAME")
	fmt.Printf("[Garment: %v] Request presigned download url..\n", garment.ID)
	if garment.ImageURL == nil {
		return nil, "", fmt.Errorf("[Garment: %v] Image URL is nil", garment.ID)
	}
	fileUrl, err := awsService.GetPresignedR2FileReadURL(context.TODO(), bucketName, *garment.ImageURL)
	fileName := filepath.Base(*garment.ImageURL)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on getting presigned URL for file %s", garment.ID, *garment.ImageURL))
		return nil, fileName, err
	}
	fmt.Printf("Downloading... %s\n", fileUrl)
	fileBytes, err := services.ReadFileFromUrl(fileUrl)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on downloading file %s: %v", garment.ID, *garment.ImageURL, err))
		return nil, fileName, err
	}

	return fileBytes, fileName, nil
}

// saveGarmentAnalysisFail bumps the retry counter and, once the budget
// is spent (or the failure is final), marks the garment failed while
// still writing conservative default attributes so pairing keeps
// working with that item.
func saveGarmentAnalysisFail(db *gorm.DB, garment models.Garment, msg string, shouldRetry bool) error {
	garment.ProcessRetryTimes = garment.ProcessRetryTimes + 1
	garment.ProcessErrorMessage = services.StrPointer(msg)
	if !shouldRetry || garment.ProcessRetryTimes >= 3 {
		garment.ProcessingStatus = "failed"
		attrs := matching.NormalizeResult(matching.ClassifierOutput{}, errors.New(msg))
		if garment.Role != "" {
			attrs.Role = matching.Role(garment.Role)
		}
		garment.ApplyAttributes(attrs, time.Now())
	}
	tx := db.Save(&garment)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Garment %v] Error on saving garment for failed status", garment.ID))
		return tx.Error
	}
	return nil
}

// HandleGarmentAnalysisTask downloads the garment photo, runs the
// classifier once and writes the normalized attributes back. Transient
// failures are retried by asynq up to the task's MaxRetry.
func HandleGarmentAnalysisTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, analyzer services.GarmentAnalyzerProvider,
	awsService services.AWSServiceProvider, fbApp *firebase.App) error {
	var payload GarmentAnalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Garment: %v] Start Analysis\n", payload.GarmentID)
	var garment models.Garment
	res := db.First(&garment, payload.GarmentID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving garment for analysis %v", payload.GarmentID))
		return res.Error
	}

	garment.ProcessingStatus = "analyzing"
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}

	fileBytes, fileName, err := getFileForGarment(awsService, garment)
	if err != nil {
		saveGarmentAnalysisFail(db, garment, "Failed to read garment photo, please upload it again", true)
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on getting file: %v", payload.GarmentID, err))
		return err
	}
	fmt.Printf("[Garment: %v] Downloaded file size: %d bytes\n", payload.GarmentID, len(fileBytes))

	classifierBytes, err := services.PrepareGarmentImage(fileBytes, 1024)
	if err != nil {
		fmt.Printf("[Garment: %v] Could not downscale image, sending original: %v\n", payload.GarmentID, err)
		classifierBytes = fileBytes
	}
	filePath, err := services.CreateTempFile(classifierBytes, fileName)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on creating temp file %s: %v", payload.GarmentID, fileName, err))
		return err
	}
	defer os.Remove(filePath)

	model := services.Flash25
	fmt.Printf("[Garment: %v] Model: %s\n", payload.GarmentID, model.String())
	analysis, err := analyzer.AnalyzeGarmentImage(ctx, filePath, model)
	if err != nil {
		if errors.Is(err, services.ErrClassifierUnavailable) {
			// retrying will not help, store defaults right away
			fmt.Printf("[Garment: %v] Classifier unavailable, applying defaults\n", payload.GarmentID)
			saveGarmentAnalysisFail(db, garment, "Analysis is not available right now, using defaults", false)
			return nil
		}
		if strings.Contains(err.Error(), "content violation") {
			saveGarmentAnalysisFail(db, garment, "Sorry, it seems that this photo contains violated content that we cannot process.", false)
			sentry.CaptureException(fmt.Errorf("[Garment: %v] Content violation on analyzing photo: %v", payload.GarmentID, err))
			return nil
		}
		saveGarmentAnalysisFail(db, garment, "Failed to analyze garment photo, please try again", true)
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on analyzing photo %s: %v", payload.GarmentID, *garment.ImageURL, err))
		return err
	}
	if analysis == nil {
		saveGarmentAnalysisFail(db, garment, "Failed to analyze garment photo, please try again", true)
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Response is nil but no error provided on analyzing photo", payload.GarmentID))
		return fmt.Errorf("[Garment: %v] Response is nil but no error provided on analyzing photo", payload.GarmentID)
	}
	fmt.Printf("[Garment: %v] LLM Analyzed: %q, IT: %d, OT: %d, TOT: %d\n", payload.GarmentID, analysis.Output.Name, analysis.InputTokenCount, analysis.OutputTokenCount, analysis.TotalTokenCount)

	attrs := matching.Normalize(analysis.Output)
	// the slot the user picked at upload wins over the classifier's guess
	if garment.Role != "" {
		attrs.Role = matching.Role(garment.Role)
	}

	// best effort catalog cleanup, the original photo stays if anything fails
	if processedKey, ok := whitenAndUpload(awsService, garment, fileBytes); ok {
		garment.ImageURL = &processedKey
	}

	garment.ApplyAttributes(attrs, time.Now())
	garment.ProcessingStatus = "completed"
	garment.ProcessErrorMessage = nil
	modelString := analysis.Model
	garment.LLMModel = &modelString
	garment.LLMTotalTokenCount = &analysis.TotalTokenCount
	if attrs.Name != "" && garment.Name == "" {
		garment.Name = attrs.Name
	}
	tx := db.Save(&garment)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on saving garment %v", payload.GarmentID))
		return tx.Error
	}
	fmt.Printf("[Garment: %v] Analysis finished succesfully..\n", payload.GarmentID)

	var owner models.UserAccount
	db.First(&owner, garment.OwnerID)
	if owner.ReceiveNotifications {
		fmt.Printf("[Garment: %v] Sending notification to user %v\n", payload.GarmentID, garment.OwnerID)
		services.SendNotification(fbApp, db, garment.OwnerID, "Garment Analyzed", fmt.Sprintf("Your %s is ready to be styled", garment.Name), map[string]string{"garment_id": fmt.Sprintf("%d", garment.ID), "type": "garment_analyzed"})
	} else {
		fmt.Printf("[Garment: %v] Notifications disabled, not sending push to user %v\n", payload.GarmentID, garment.OwnerID)
	}

	return nil
}

func whitenAndUpload(awsService services.AWSServiceProvider, garment models.Garment, fileBytes []byte) (string, bool) {
	whitened, err := services.WhitenGarmentBackground(fileBytes, 240, 4.0)
	if err != nil {
		fmt.Printf("[Garment: %v] Error whitening background: %v\n", garment.ID, err)
		return "", false
	}

	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	processedKey := fmt.Sprintf("garments/processed/%v.png", garment.ID)
	uploadUrl, err := awsService.PresignLink(context.Background(), bucketName, processedKey)
	if err != nil {
		fmt.Printf("[Garment: %v] Unable to presign processed image upload: %v\n", garment.ID, err)
		sentry.CaptureException(err)
		return "", false
	}
	respBody, statusCode, err := awsService.UploadToPresignedURL(context.Background(), bucketName, uploadUrl, whitened)
	fmt.Printf("[Garment: %v] R2 Upload file size %v, response body: %s, status code: %d\n", garment.ID, len(whitened), respBody, statusCode)
	if err != nil || statusCode != 200 {
		fmt.Printf("[Garment: %v] Error on uploading processed image: %v\n", garment.ID, err)
		sentry.CaptureException(err)
		return "", false
	}
	return processedKey, true
}

// HandleWardrobeReanalysisTask fans out one analysis task per uploaded
// garment in the user's closet, spaced out to stay under rate limits.
func HandleWardrobeReanalysisTask(ctx context.Context, t *asynq.Task, db *gorm.DB) error {
	var payload WardrobeReanalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Wardrobe: user %v] Start reanalysis fan-out\n", payload.UserID)

	var garments []models.Garment
	result := db.Where("owner_id = ? AND image_status = ?", payload.UserID, "uploaded").Find(&garments)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Wardrobe: user %v] Error fetching garments: %v", payload.UserID, result.Error))
		return result.Error
	}
	if len(garments) == 0 {
		fmt.Printf("[Wardrobe: user %v] Nothing to reanalyze\n", payload.UserID)
		return nil
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")})
	if asynqClient == nil {
		err := fmt.Errorf("failed to create asynq client")
		sentry.CaptureException(err)
		return err
	}
	defer asynqClient.Close()

	for i, garment := range garments {
		task, err := NewGarmentAnalysisTask(garment.ID)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Wardrobe: user %v] Error creating analysis task for garment %v: %v", payload.UserID, garment.ID, err))
			continue
		}
		taskInfo, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.ProcessIn(time.Duration(i)*5*time.Second), asynq.Queue("analysis"))
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Wardrobe: user %v] Error enqueuing analysis for garment %v: %v", payload.UserID, garment.ID, err))
			continue
		}
		fmt.Printf("[Wardrobe: user %v] Analysis task enqueued for garment %v: %s\n", payload.UserID, garment.ID, taskInfo.ID)
	}
	return nil
}

// HandleDailyOutfitTask pushes one outfit suggestion to every user who
// opted into notifications.
func HandleDailyOutfitTask(ctx context.Context, t *asynq.Task, db *gorm.DB, fbApp *firebase.App) error {
	fmt.Printf("[Daily Outfit] Processing for all users\n")

	var users []models.UserAccount
	result := db.Where("banned = ? AND receive_notifications = ?", false, true).Find(&users)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Daily Outfit] Error fetching users: %v", result.Error))
		return result.Error
	}

	fmt.Printf("[Daily Outfit] Found %d users to send suggestions\n", len(users))

	for _, user := range users {
		err := sendOutfitSuggestionToUser(ctx, db, fbApp, user.ID)
		if err != nil {
			fmt.Printf("[Daily Outfit] Failed to send to user %d: %v\n", user.ID, err)
			sentry.CaptureException(fmt.Errorf("[Daily Outfit] Failed to send to user %d: %v", user.ID, err))
			continue
		}
		time.Sleep(1 * time.Second) // To avoid hitting rate limits
	}

	return nil
}

func sendOutfitSuggestionToUser(ctx context.Context, db *gorm.DB, fbApp *firebase.App, userID uint) error {
	var garments []models.Garment
	result := db.Where("owner_id = ? AND status = ?", userID, "in_closet").Find(&garments)
	if result.Error != nil {
		return fmt.Errorf("error fetching user garments: %v", result.Error)
	}
	if len(garments) == 0 {
		fmt.Printf("[Daily Outfit] No closet garments for user %d\n", userID)
		return nil
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

	// no stored location for push suggestions, score without weather
	matchCtx := matching.MatchingContext{Occasion: matching.OccasionCasual}
	pairings := matching.Generate(analyzed, matchCtx)
	if len(pairings) == 0 {
		pairings = matching.BasicPairings(wardrobe, matchCtx)
	}
	if len(pairings) == 0 {
		fmt.Printf("[Daily Outfit] No pairing found for user %d\n", userID)
		return nil
	}

	best := pairings[0]
	title := "Today's outfit pick"
	message := fmt.Sprintf("%s + %s, %s", best.Top.Name, best.Bottom.Name, best.Reasoning)
	if len(message) > 100 {
		message = message[:97] + "..."
	}

	fmt.Println("[Daily Outfit] Sending suggestion to user", userID, "top", best.Top.ID, "bottom", best.Bottom.ID)
	services.SendNotification(fbApp, db, userID, title, message, map[string]string{
		"top_id":    fmt.Sprintf("%d", best.Top.ID),
		"bottom_id": fmt.Sprintf("%d", best.Bottom.ID),
		"type":      "daily_outfit",
	})

	return nil
}
