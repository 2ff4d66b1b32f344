package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"fitpickapi/dbhelper"
	"fitpickapi/models"
	"fitpickapi/test"

	"github.com/stretchr/testify/assert"
)

func TestGetProfileOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	top := test.FakeGarment(db, user.ID, "White Tee", "top", "#FFFFFF", 2, []string{"casual"})
	bottom := test.FakeGarment(db, user.ID, "Dark Jeans", "bottom", "#000080", 3, []string{"casual"})
	outfit := models.Outfit{OwnerID: user.ID, TopID: top.ID, BottomID: bottom.ID, Confidence: 0.8, Reasoning: "test pair"}
	db.Create(&outfit)

	req := test.NewJSONAuthRequest("GET", "/wardrobe/profile/me", strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := map[string]interface{}{}

	err := json.Unmarshal([]byte(rec.Body.String()), &payload)
	if err != nil {
		log.Fatal(err)
	}
	assert.Equal(t, user.Name, payload["name"])
	assert.Equal(t, user.Email, payload["email"])
	assert.Equal(t, float64(2), payload["garment_count"])
	assert.Equal(t, float64(1), payload["outfit_count"])
	assert.Equal(t, true, payload["receive_notifications"])
}

func TestGetProfileUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})

	req := test.NewJSONRequest("GET", "/wardrobe/profile/me", "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBannedUserLocked(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)
	user.Banned = true
	db.Save(&user)

	req := test.NewJSONAuthRequest("GET", "/wardrobe/profile/me", strconv.FormatUint(uint64(user.ID), 10), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusLocked, rec.Code, rec.Body.String())
}
