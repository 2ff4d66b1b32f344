package controllers

import (
	"fmt"
	"net/http"

	"fitpickapi/models"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ProfileController struct {
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var garmentCount int64
		if err := db.Model(&models.Garment{}).Where("owner_id = ?", user.ID).Count(&garmentCount).Error; err != nil {
			fmt.Println("Error counting garments for user ", user.ID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Something went wrong",
			})
		}
		var outfitCount int64
		if err := db.Model(&models.Outfit{}).Where("owner_id = ?", user.ID).Count(&outfitCount).Error; err != nil {
			fmt.Println("Error counting outfits for user ", user.ID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Something went wrong",
			})
		}

		return c.JSON(http.StatusOK, models.UserMeOut{
			Id:                   UIntToStr(user.ID),
			Name:                 user.Name,
			Email:                user.Email,
			AvatarURL:            user.AvatarURL,
			Subscription:         user.Subscription,
			ReceiveNotifications: user.ReceiveNotifications,
			GarmentCount:         garmentCount,
			OutfitCount:          outfitCount,
		})
	})
}
