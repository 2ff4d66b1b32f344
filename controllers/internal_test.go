package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"fitpickapi/dbhelper"
	"fitpickapi/test"

	"github.com/stretchr/testify/assert"
)

func TestInternalWeatherCacheReset(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	os.Setenv("ROOT_PASSWORD", "root-test-password")
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})

	req := test.NewJSONRootRequest("DELETE", "/internal/weather-cache", nil, "root-test-password")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "weather cache cleared")
}

func TestInternalWrongPassword(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	os.Setenv("ROOT_PASSWORD", "root-test-password")
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, test.WeatherProviderMock{}, nil, nil, nil, &test.URLCacheMock{})

	req := test.NewJSONRootRequest("DELETE", "/internal/weather-cache", nil, "guessed-wrong")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}
