package controllers

import (
	"fmt"
	"net/http"

	"fitpickapi/services"

	"github.com/labstack/echo/v4"
)

type InternalController struct {
	Weather services.WeatherProvider
}

func (controller *InternalController) InternalRoutes(g *echo.Group) {
	g.DELETE("/weather-cache", func(c echo.Context) error {
		controller.Weather.ClearCache()
		fmt.Println("[Internal] Weather cache cleared by ops request from ", c.RealIP())
		return c.JSON(http.StatusOK, echo.Map{
			"message": "weather cache cleared",
		})
	})
}
