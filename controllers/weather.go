package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"fitpickapi/models"
	"fitpickapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

type WeatherController struct {
	Weather services.WeatherProvider
}

func (controller *WeatherController) WeatherRoutes(g *echo.Group) {
	g.GET("/weather", controller.CurrentWeather)
}

// CurrentWeather proxies the weather gateway for the mobile client.
// Unlike the recommendation path this surfaces gateway exhaustion as 503.
func (controller *WeatherController) CurrentWeather(c echo.Context) error {
	latRaw := c.QueryParam("lat")
	lonRaw := c.QueryParam("lon")
	city := c.QueryParam("city")

	var snapshot *models.WeatherSnapshot
	var err error
	if latRaw != "" && lonRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lon, errLon := strconv.ParseFloat(lonRaw, 64)
		if errLat != nil || errLon != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "lat and lon must be numbers"})
		}
		snapshot, err = controller.Weather.CurrentByCoords(c.Request().Context(), lat, lon)
	} else if city != "" {
		snapshot, err = controller.Weather.CurrentByCity(c.Request().Context(), city)
	} else {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Provide lat and lon, or city"})
	}

	if err != nil {
		if errors.Is(err, services.ErrWeatherUnavailable) {
			fmt.Println("[Weather] Gateway exhausted: ", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Weather service is not available right now, please try again later"})
		}
		sentry.CaptureException(err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, snapshot)
}
