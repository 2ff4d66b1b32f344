package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"fitpickapi/dbhelper"
	"fitpickapi/models"
	"fitpickapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGarmentOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	// Prepare request payload
	reqBody := CreateGarmentIn{
		Name:        "White Oxford Shirt",
		Description: stringPtr("Crisp button down"),
		Role:        "top",
		FileName:    stringPtr("oxford.jpg"),
		AddToCloset: BoolPointer(true),
	}

	req := test.NewJSONAuthRequest("POST", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, "Expected status code 201 Created, got %d: %s", rec.Code, rec.Body.String())

	var response GarmentCreatedResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Equal(t, reqBody.Name, response.Garment.Name)
	require.Equal(t, reqBody.Role, response.Garment.Role)
	require.Equal(t, "in_closet", response.Garment.Status)
	require.Equal(t, "draft", response.Garment.ImageStatus)
	require.Equal(t, "idle", response.Garment.ProcessingStatus)
	require.Equal(t, fmt.Sprintf("https://fakebucketurl.com/garments/%v/oxford.jpg", user.ID), response.FileUploadUrl)
}

func TestCreateGarmentInvalidInput(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	// Prepare invalid request payload (missing required fields)
	reqBody := CreateGarmentIn{
		Name: "White Oxford Shirt",
		// Role missing
		FileName:    stringPtr("oxford.jpg"),
		AddToCloset: BoolPointer(false),
	}

	req := test.NewJSONAuthRequest("POST", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Contains(t, response["error"], "Role")
}

func TestCreateGarmentBadImageName(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	reqBody := CreateGarmentIn{
		Name:        "Weird file",
		Role:        "top",
		FileName:    stringPtr("payload.exe"),
		AddToCloset: BoolPointer(false),
	}

	req := test.NewJSONAuthRequest("POST", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var response map[string]string
	json.Unmarshal(rec.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "not supported")
}

func TestCreateGarmentUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})

	reqBody := CreateGarmentIn{
		Name:        "White Oxford Shirt",
		Role:        "top",
		FileName:    stringPtr("oxford.jpg"),
		AddToCloset: BoolPointer(false),
	}
	req := test.NewJSONRequest("POST", "/wardrobe/garments", reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateGarmentFreePlanLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	for i := 0; i < 20; i++ {
		test.FakeGarment(db, user.ID, fmt.Sprintf("Tee %v", i), "top", "#FFFFFF", 3, []string{"casual"})
	}

	reqBody := CreateGarmentIn{
		Name:        "One Too Many",
		Role:        "top",
		FileName:    stringPtr("extra.jpg"),
		AddToCloset: BoolPointer(true),
	}
	req := test.NewJSONAuthRequest("POST", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	var response map[string]string
	json.Unmarshal(rec.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "free limit")
}

func TestCreateGarmentProPlanSkipsLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)
	plan := string(models.Pro)
	user.Subscription = &plan
	db.Save(&user)

	for i := 0; i < 20; i++ {
		test.FakeGarment(db, user.ID, fmt.Sprintf("Tee %v", i), "top", "#FFFFFF", 3, []string{"casual"})
	}

	reqBody := CreateGarmentIn{
		Name:        "Twenty First",
		Role:        "top",
		FileName:    stringPtr("extra.jpg"),
		AddToCloset: BoolPointer(true),
	}
	req := test.NewJSONAuthRequest("POST", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestListGarmentsGrouping(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	top := test.FakeGarment(db, user.ID, "White Tee", "top", "#FFFFFF", 2, []string{"casual"})
	bottom := test.FakeGarment(db, user.ID, "Dark Jeans", "bottom", "#000080", 3, []string{"casual"})
	jacket := test.FakeGarment(db, user.ID, "Field Jacket", "outerwear", "#556B2F", 4, []string{"casual"})
	boots := test.FakeGarment(db, user.ID, "Leather Boots", "footwear", "#8B4513", 5, []string{"casual"})

	req := test.NewJSONAuthRequest("GET", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "Expected status code 200 OK, got %d: %s", rec.Code, rec.Body.String())

	var response GarmentsListResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response.Tops, 1)
	require.Len(t, response.Bottoms, 1)
	require.Len(t, response.Outerwear, 1)
	require.Len(t, response.Footwear, 1)
	require.Len(t, response.Accessories, 0)
	require.Equal(t, top.Name, response.Tops[0].Name)
	require.Equal(t, bottom.Name, response.Bottoms[0].Name)
	require.Equal(t, jacket.Name, response.Outerwear[0].Name)
	require.Equal(t, boots.Name, response.Footwear[0].Name)
	require.NotNil(t, response.Tops[0].Uri)
	assert.Equal(t, fmt.Sprintf("https://fakebucketurl.com/read/%s", *top.ImageURL), *response.Tops[0].Uri)
}

func TestListGarmentsEmpty(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("GET", "/wardrobe/garments", strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response GarmentsListResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response.Tops, 0)
	require.Len(t, response.Bottoms, 0)
	require.Len(t, response.Outerwear, 0)
	require.Len(t, response.Footwear, 0)
	require.Len(t, response.Accessories, 0)
}

func TestGetGarmentOfAnotherUser(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	owner := test.FakeUser(db)
	intruder := test.FakeUserV2(db, "Other", "other@example.com")

	garment := test.FakeGarment(db, owner.ID, "White Tee", "top", "#FFFFFF", 2, []string{"casual"})

	req := test.NewJSONAuthRequest("GET", fmt.Sprintf("/wardrobe/garments/%v", garment.ID), strconv.FormatUint(uint64(intruder.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestSetUploadedConflict(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	garment := test.FakeGarment(db, user.ID, "White Tee", "top", "#FFFFFF", 2, []string{"casual"})
	garment.ProcessingStatus = "pending"
	db.Save(&garment)

	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/wardrobe/garments/%v/uploaded", garment.ID), strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestReanalyzeRequiresUploadedImage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	garment := test.FakeGarment(db, user.ID, "White Tee", "top", "#FFFFFF", 2, []string{"casual"})
	garment.ImageStatus = "draft"
	db.Save(&garment)

	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/wardrobe/garments/%v/reanalyze", garment.ID), strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestReanalyzeFreePlanDailyLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	// FakeGarment stamps analyzed_at with now, so three of them use up
	// the free daily analysis allowance
	test.FakeGarment(db, user.ID, "Tee One", "top", "#FFFFFF", 2, []string{"casual"})
	test.FakeGarment(db, user.ID, "Tee Two", "top", "#000080", 2, []string{"casual"})
	garment := test.FakeGarment(db, user.ID, "Tee Three", "top", "#36454F", 2, []string{"casual"})

	req := test.NewJSONAuthRequest("POST", fmt.Sprintf("/wardrobe/garments/%v/reanalyze", garment.ID), strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	var response map[string]string
	json.Unmarshal(rec.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "3 analyses per day")
}

func TestDeleteGarmentRemovesOutfits(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	top := test.FakeGarment(db, user.ID, "White Tee", "top", "#FFFFFF", 2, []string{"casual"})
	bottom := test.FakeGarment(db, user.ID, "Dark Jeans", "bottom", "#000080", 3, []string{"casual"})
	outfit := models.Outfit{OwnerID: user.ID, TopID: top.ID, BottomID: bottom.ID, Confidence: 0.8, Reasoning: "test pair"}
	require.NoError(t, db.Create(&outfit).Error)

	req := test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/wardrobe/garments/%v", top.ID), strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var garmentCount, outfitCount int64
	db.Model(&models.Garment{}).Where("id = ?", top.ID).Count(&garmentCount)
	db.Model(&models.Outfit{}).Where("id = ?", outfit.ID).Count(&outfitCount)
	assert.Equal(t, int64(0), garmentCount)
	assert.Equal(t, int64(0), outfitCount)
}

func stringPtr(s string) *string {
	return &s
}
