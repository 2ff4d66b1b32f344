package controllers

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"fitpickapi/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func UserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		db := c.Get("__db").(*gorm.DB)
		userRaw := c.Get("user")
		if userRaw == nil {
			return echo.ErrUnauthorized
		}
		user := userRaw.(*jwt.Token)
		claims := user.Claims.(jwt.MapClaims)
		userId := claims["sub"]
		if userId == nil || userId == "" {
			log.Println("Error while getting the token information!")
			return echo.ErrUnauthorized
		}

		var currentUser models.UserAccount
		result := db.First(&currentUser, userId)
		if result.Error != nil || currentUser.ID == 0 {
			fmt.Println("Failed to fetch user for token sub ", userId)
			return echo.ErrUnauthorized
		}
		if currentUser.Banned {
			return echo.NewHTTPError(http.StatusLocked)
		}
		c.Set("currentUser", currentUser)
		fmt.Printf("Fetched user %s \n", currentUser.Name)
		return next(c)
	}
}

// RootMiddleware guards internal ops endpoints with the plain
// ROOT_PASSWORD header instead of a user token.
func RootMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		password := os.Getenv("ROOT_PASSWORD")
		if password == "" {
			fmt.Println("ROOT_PASSWORD is not configured, internal endpoints are disabled")
			return echo.ErrForbidden
		}
		if c.Request().Header.Get("Authorization") != password {
			fmt.Println("[Malicious] Invalid internal auth. IP: ", c.RealIP(), "User agent: ", c.Request().Header.Get("User-Agent"))
			return echo.ErrUnauthorized
		}
		return next(c)
	}
}
