package controllers

import (
	"context"
	"log"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"fitpickapi/models"
	"fitpickapi/services"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	weatherService services.WeatherProvider,
	firebaseApp *firebase.App,
	asynqClient *asynq.Client,
	asynqInspector *asynq.Inspector,
	urlCache services.URLCacheServiceProvider,
) *echo.Echo {

	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}

	e := echo.New()
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("role", models.ValidateRole)
	v.RegisterValidation("occasion", models.ValidateOccasion)
	v.RegisterValidation("subscription", models.ValidateSubscription)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			c.Set("__asynqinspector", asynqInspector)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	authGroup := e.Group("auth")

	controller := AuthController{Google: googleService, FirebaseApp: firebaseApp}
	controller.AuthRoutes(authGroup)

	wardrobeGroup := e.Group("/wardrobe", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	wardrobeGroup.Use(UserMiddleware)

	garmentsController := GarmentsController{AWSService: awsService, FirebaseApp: firebaseApp, URLCache: urlCache}
	garmentsGroup := wardrobeGroup.Group("/garments")
	garmentsController.GarmentRoutes(garmentsGroup)

	outfitsController := OutfitsController{AWSService: awsService, Weather: weatherService, URLCache: urlCache}
	outfitsGroup := wardrobeGroup.Group("/outfits")
	outfitsController.OutfitRoutes(outfitsGroup)

	weatherController := WeatherController{Weather: weatherService}
	weatherController.WeatherRoutes(wardrobeGroup)

	profileController := ProfileController{}
	profileGroup := wardrobeGroup.Group("/profile")
	profileController.ProfileRoutes(profileGroup)

	userDataController := UserDataController{FirebaseApp: firebaseApp}
	userDataGroup := wardrobeGroup.Group("/userdata")
	userDataController.UserDataRoutes(userDataGroup)

	webhooksController := WebhooksController{Google: googleService, FirebaseApp: firebaseApp}
	webhookGroup := e.Group("/webhooks")
	webhooksController.SetupRoutes(webhookGroup)

	internalController := InternalController{Weather: weatherService}
	internalGroup := e.Group("/internal", RootMiddleware)
	internalController.InternalRoutes(internalGroup)

	return e
}
