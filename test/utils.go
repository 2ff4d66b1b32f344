package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"fitpickapi/matching"
	"fitpickapi/models"
	"fitpickapi/services"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	log.Println(JsonString(param))
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	log.Println(JsonString(param))
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", authorizationString)
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	user := &models.UserAccount{
		Name:                 "OurName",
		Email:                "email@example.com",
		GoogleID:             "12232",
		Platform:             models.PlatformIOS,
		LastIp:               "123.122.122.122",
		Status:               "FINISHED_AUTH",
		AvatarURL:            "pictureurl",
		ReceiveNotifications: true,
	}
	db.Create(&user)

	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(&user, user.ID)

	return user
}

func FakeUserV2(db *gorm.DB, userName string, email string) *models.UserAccount {

	if email == "" {
		email = "email@example.com"
	}
	user := &models.UserAccount{
		Name:                 userName,
		Email:                email,
		GoogleID:             "12232",
		Platform:             models.PlatformIOS,
		LastIp:               "123.122.122.122",
		Status:               "FINISHED_AUTH",
		AvatarURL:            "pictureurl",
		ReceiveNotifications: true,
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(&user, user.ID)
	return user
}

// FakeGarment stores a closet item with analyzed attributes already in
// place, so matching tests do not have to run the classifier pipeline.
func FakeGarment(db *gorm.DB, ownerID uint, name string, role string, colorPrimary string, formality int, occasions []string) *models.Garment {
	garment := &models.Garment{
		Name:             name,
		OwnerID:          ownerID,
		Role:             role,
		Status:           "in_closet",
		ImageStatus:      "uploaded",
		ProcessingStatus: "completed",
		ImageURL:         NewRefString(fmt.Sprintf("garments/%s.jpg", strings.ReplaceAll(strings.ToLower(name), " ", "-"))),
	}
	attrs := matching.Garment{
		Name:           name,
		Role:           matching.Role(role),
		Subcategory:    "unknown",
		ColorPrimary:   colorPrimary,
		Material:       "cotton",
		Seasons:        []matching.Season{matching.SeasonAllYear},
		FormalityScore: formality,
		AIConfidence:   0.9,
	}
	for _, occasion := range occasions {
		attrs.Occasions = append(attrs.Occasions, matching.Occasion(occasion))
	}
	garment.ApplyAttributes(attrs, time.Now())
	db.Create(&garment)
	return garment
}

func NewJSONRootRequest(method string, target string, param interface{}, password string) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", password)
	return req
}

func Contains(items []string, lookFor string) bool {

	for i := 0; i < len(items); i++ {

		if items[i] == lookFor {
			return true
		}
	}
	return false
}

func NewRefString(data string) *string {
	return &data
}

func InternalRequestMessage(e *echo.Echo, method string, url string, param interface{}, password string) string {
	var req *http.Request
	if password != "" {

		req = NewJSONRootRequest(method, url, param, os.Getenv("ROOT_PASSWORD"))
	} else {
		req = NewJSONRequest(method, url, param)
	}
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)
	var r map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &r)
	if rec.Code > 300 {

		log.Printf("%s", rec.Body.String())
	}
	if val, ok := r["message"]; ok {
		return val.(string)
	}

	return "internal error"

}

func InternalRequestJSON(e *echo.Echo, method string, url string, param interface{}, password string) []byte {
	var req *http.Request
	if password != "" {

		req = NewJSONRootRequest(method, url, param, os.Getenv("ROOT_PASSWORD"))
	} else {
		req = NewJSONRequest(method, url, param)
	}
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)
	if rec.Code > 300 {

		log.Println(rec.Body.String())
		log.Printf("%s", rec.Body.String())
	}
	return rec.Body.Bytes()

}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {

	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil

}

func (gsm GoogleServiceMock) GetUserSubscriptionStatus(ctx context.Context, appUserId string) ([]byte, error) {
	data := `
	{
		"request_date": "2024-05-11T06:50:56Z",
		"request_date_ms": 1715410256322,
		"subscriber": {
		  "entitlements": {
			"Pro": {
			  "expires_date": "2029-05-11T06:51:15Z",
			  "grace_period_expires_date": null,
			  "product_identifier": "prostandard",
			  "product_plan_identifier": "monthly-autorenew",
			  "purchase_date": "2024-05-11T06:49:05Z"
			}
		  },
		  "first_seen": "2024-05-07T12:41:57Z",
		  "last_seen": "2024-05-10T20:43:21Z",
		  "management_url": "https://play.google.com/store/account/subscriptions",
		  "non_subscriptions": {},
		  "original_app_user_id": "$RCAnonymousID:60ad7a0c84694890b4b272b5654efa1f",
		  "original_application_version": null,
		  "original_purchase_date": null,
		  "other_purchases": {},
		  "subscriptions": {
			"prostandard": {
			  "auto_resume_date": null,
			  "billing_issues_detected_at": null,
			  "expires_date": "2029-05-11T06:51:15Z",
			  "grace_period_expires_date": null,
			  "is_sandbox": true,
			  "original_purchase_date": "2024-05-11T06:49:05Z",
			  "period_type": "normal",
			  "product_plan_identifier": "monthly-autorenew",
			  "purchase_date": "2024-05-11T06:49:05Z",
			  "refunded_at": null,
			  "store": "play_store",
			  "store_transaction_id": "GPA.3308-7668-0800-70257",
			  "unsubscribe_detected_at": null
			}
		  }
		}
	  }
	  `

	return []byte(data), nil
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {

	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return awsService.MockUrl, nil
}

func (awsService AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	// Simulate a successful upload
	return url, 200, nil
}

// GarmentAnalyzerMock answers like the Gemini analyzer would for a navy
// blazer photo. The category deliberately disagrees with the role a
// test user picks at upload, so role precedence stays covered.
type GarmentAnalyzerMock struct {
	Err error
}

func (m GarmentAnalyzerMock) AnalyzeGarmentImage(ctx context.Context, filePath string, modelName services.LLMModelName) (*services.GarmentAnalysis, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	formality := 7
	confidence := 0.92
	return &services.GarmentAnalysis{
		Output: matching.ClassifierOutput{
			Name:           "Navy Wool Blazer",
			Description:    "Tailored navy blazer with notch lapels",
			Category:       "outerwear",
			Subcategory:    "blazer",
			ColorPrimary:   "#1B2A4A",
			ColorSecondary: "#C0C0C0",
			Material:       "wool",
			Seasons:        []string{"fall", "winter", "spring"},
			Occasions:      []string{"business", "formal", "date"},
			Formality:      &formality,
			Confidence:     &confidence,
		},
		Model:            "gemini-2.5-flash",
		InputTokenCount:  10,
		OutputTokenCount: 13,
		TotalTokenCount:  23,
	}, nil
}

type URLCacheMock struct{}

func (m *URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", objectKey), nil
}

type WeatherProviderMock struct {
	Snapshot *models.WeatherSnapshot
	Err      error
}

func (m WeatherProviderMock) snapshot() *models.WeatherSnapshot {
	if m.Snapshot != nil {
		return m.Snapshot
	}
	return &models.WeatherSnapshot{
		TemperatureF: 72,
		Description:  "clear sky",
		Humidity:     40,
		WindSpeedMph: 5.5,
		City:         "Oslo",
		FetchedAt:    time.Now(),
	}
}

func (m WeatherProviderMock) CurrentByCoords(ctx context.Context, lat float64, lon float64) (*models.WeatherSnapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.snapshot(), nil
}

func (m WeatherProviderMock) CurrentByCity(ctx context.Context, city string) (*models.WeatherSnapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.snapshot(), nil
}

func (m WeatherProviderMock) ClearCache() {}
