package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitpickapi/dbhelper"
	"fitpickapi/models"
	"fitpickapi/services"
	"fitpickapi/test"

	"github.com/stretchr/testify/assert"
)

func stringPtr(s string) *string {
	return &s
}

// small garment-on-light-background photo stand-in
func testImageBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x > 16 && x < 48 && y > 8 && y < 56 {
				img.Set(x, y, color.RGBA{27, 42, 74, 255})
			} else {
				img.Set(x, y, color.RGBA{250, 250, 250, 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestGarmentAnalysisTask(t *testing.T) {
	fmt.Println("Starting TestGarmentAnalysisTask")
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	garment := models.Garment{
		Name:             "Blazer",
		Role:             "top",
		OwnerID:          user.ID,
		Status:           "in_closet",
		ImageStatus:      "uploaded",
		ProcessingStatus: "idle",
		ImageURL:         stringPtr("garments/raw/blazer.jpg"),
	}
	db.Create(&garment)

	mockContent := testImageBytes(t)
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(mockContent)
	}))
	defer mockServer.Close()

	fakeTask, err := NewGarmentAnalysisTask(garment.ID)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	awsServiceMock := &test.AWSProviderMock{MockUrl: mockServer.URL}

	err = HandleGarmentAnalysisTask(context.Background(), fakeTask, db, test.GarmentAnalyzerMock{}, awsServiceMock, nil)
	assert.NoError(t, err)

	var updated models.Garment
	err = db.Where("id = ?", garment.ID).First(&updated).Error
	assert.NoError(t, err)
	assert.Equal(t, "completed", updated.ProcessingStatus)
	// user said top, the classifier's outerwear guess must not win
	assert.Equal(t, "top", updated.Role)
	assert.Equal(t, "Blazer", updated.Name)
	assert.Equal(t, "blazer", updated.Subcategory)
	assert.Equal(t, "#1B2A4A", updated.ColorPrimary)
	assert.Equal(t, "wool", *updated.Material)
	assert.Equal(t, 7, *updated.FormalityScore)
	assert.InDelta(t, 0.92, *updated.AIConfidence, 0.001)
	assert.Contains(t, []string(updated.Seasons), "fall")
	assert.Contains(t, []string(updated.Occasions), "business")
	assert.True(t, updated.Analyzed())
	assert.Nil(t, updated.ProcessErrorMessage)
	assert.Equal(t, "gemini-2.5-flash", *updated.LLMModel)
	assert.Equal(t, int32(23), *updated.LLMTotalTokenCount)
	assert.Equal(t, fmt.Sprintf("garments/processed/%v.png", garment.ID), *updated.ImageURL)
}

func TestGarmentAnalysisTaskClassifierDown(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	garment := models.Garment{
		Name:             "Chinos",
		Role:             "bottom",
		OwnerID:          user.ID,
		Status:           "in_closet",
		ImageStatus:      "uploaded",
		ProcessingStatus: "idle",
		ImageURL:         stringPtr("garments/raw/chinos.jpg"),
	}
	db.Create(&garment)

	mockContent := testImageBytes(t)
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(mockContent)
	}))
	defer mockServer.Close()

	fakeTask, err := NewGarmentAnalysisTask(garment.ID)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	awsServiceMock := &test.AWSProviderMock{MockUrl: mockServer.URL}

	err = HandleGarmentAnalysisTask(context.Background(), fakeTask, db, test.GarmentAnalyzerMock{Err: services.ErrClassifierUnavailable}, awsServiceMock, nil)
	// no retry when the classifier itself is down, defaults go in instead
	assert.NoError(t, err)

	var updated models.Garment
	err = db.Where("id = ?", garment.ID).First(&updated).Error
	assert.NoError(t, err)
	assert.Equal(t, "failed", updated.ProcessingStatus)
	assert.Equal(t, 1, updated.ProcessRetryTimes)
	assert.NotNil(t, updated.ProcessErrorMessage)
	assert.Equal(t, "bottom", updated.Role)
	assert.Equal(t, "#000000", updated.ColorPrimary)
	assert.Equal(t, "unknown", updated.Subcategory)
	assert.Equal(t, 4, *updated.FormalityScore)
	assert.InDelta(t, 0.1, *updated.AIConfidence, 0.001)
	assert.Contains(t, []string(updated.Seasons), "all_seasons")
	assert.Contains(t, []string(updated.Occasions), "casual")
	// defaults still count as attributes, pairing keeps working
	assert.True(t, updated.Analyzed())
}

func TestGarmentAnalysisRetryBudget(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	garment := models.Garment{
		Name:             "Sneakers",
		Role:             "footwear",
		OwnerID:          user.ID,
		Status:           "in_closet",
		ImageStatus:      "uploaded",
		ProcessingStatus: "analyzing",
		ImageURL:         stringPtr("garments/raw/sneakers.jpg"),
	}
	db.Create(&garment)

	for attempt := 1; attempt <= 3; attempt++ {
		var current models.Garment
		db.First(&current, garment.ID)
		err := saveGarmentAnalysisFail(db, current, "Failed to analyze garment photo, please try again", true)
		assert.NoError(t, err)

		var updated models.Garment
		db.First(&updated, garment.ID)
		assert.Equal(t, attempt, updated.ProcessRetryTimes)
		if attempt < 3 {
			assert.Equal(t, "analyzing", updated.ProcessingStatus)
			assert.False(t, updated.Analyzed())
		} else {
			assert.Equal(t, "failed", updated.ProcessingStatus)
			assert.True(t, updated.Analyzed())
			assert.Equal(t, "footwear", updated.Role)
			assert.Equal(t, "#000000", updated.ColorPrimary)
		}
	}
}

func TestDailyOutfitTask(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db)

	test.FakeGarment(db, user.ID, "White Oxford Shirt", "top", "#FFFFFF", 6, []string{"business", "casual"})
	test.FakeGarment(db, user.ID, "Navy Chinos", "bottom", "#000080", 5, []string{"business", "casual"})

	err := HandleDailyOutfitTask(context.Background(), NewDailyOutfitTask(), db, nil)
	assert.NoError(t, err)
}
