package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/pkg/logger"
)

func (h *Handler) initLocationsRoutes(api *gin.RouterGroup) {
	locations := api.Group("/locations")
	locations.POST("/resolve", h.ensureLocations, h.resolveLocation)
	locations.GET("/status", h.locationsStatus)

	cities := api.Group("/cities")
	cities.GET("", h.ensureLocations, h.getCities)
	cities.GET("/:id/regions", h.getCityRegions)

	partners := api.Group("/partners")
	partners.GET("/:partner/cities/:externalId/regions", h.getPartnerCityRegions)
}

// ensureLocations loads the cache on first use when startup loading failed.
// A load failure is a store failure.
func (h *Handler) ensureLocations(c *gin.Context) {
	if err := h.services.Locations.EnsureLoaded(c.Request.Context()); err != nil {
		logger.Error("load locations failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, LocationsNotLoadedCode)
		return
	}
	c.Next()
}

type resolveLocationRequest struct {
	Text string `json:"text" binding:"max=1000"`
}

// @Summary Resolve address
// @Tags Locations
// @Description Maps free-text address input to a canonical city and region
// @ModuleID resolveLocation
// @Accept  json
// @Produce  json
// @Param input body resolveLocationRequest true "address text"
// @Success 200 {object} domain.LocationResolution
// @Failure 400 {object} ErrorStruct
// @Failure 500 {object} ErrorStruct
// @Router /locations/resolve [post]
func (h *Handler) resolveLocation(c *gin.Context) {
	var req resolveLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	resolution, err := h.services.Resolver.Resolve(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyLocationInput) {
			errorResponse(c, http.StatusBadRequest, LocationInputEmptyCode)
			return
		}
		logger.Error("resolve location failed", zap.Error(err))
		internalErrorResponse(c)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

type locationsStatusResponse struct {
	Loaded  bool `json:"loaded"`
	Loading bool `json:"loading"`
	Cities  int  `json:"cities"`
	Regions int  `json:"regions"`
}

// @Summary Locations cache status
// @Tags Locations
// @ModuleID locationsStatus
// @Produce  json
// @Success 200 {object} locationsStatusResponse
// @Router /locations/status [get]
func (h *Handler) locationsStatus(c *gin.Context) {
	locations := h.services.Locations
	c.JSON(http.StatusOK, locationsStatusResponse{
		Loaded:  locations.IsLoaded(),
		Loading: locations.IsLoading(),
		Cities:  len(locations.Cities()),
		Regions: len(locations.Regions()),
	})
}

// @Summary Get Cities
// @Tags Locations
// @Description Active canonical cities with their partner ids
// @ModuleID getCities
// @Produce  json
// @Success 200 {object} []domain.City
// @Failure 500 {object} ErrorStruct
// @Router /cities [get]
func (h *Handler) getCities(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Locations.Cities())
}

// @Summary Get city regions
// @Tags Locations
// @Description Active regions of a canonical city
// @ModuleID getCityRegions
// @Produce  json
// @Param id path string true "canonical city id"
// @Success 200 {object} []domain.Region
// @Failure 400 {object} ErrorStruct
// @Failure 404 {object} ErrorStruct
// @Failure 500 {object} ErrorStruct
// @Router /cities/{id}/regions [get]
func (h *Handler) getCityRegions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	regions, err := h.services.Locations.CityRegions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, CityNotFoundCode)
			return
		}
		logger.Error("get city regions failed", zap.String("city_id", id.String()), zap.Error(err))
		internalErrorResponse(c)
		return
	}

	c.JSON(http.StatusOK, regions)
}

// @Summary Get regions by partner city id
// @Tags Locations
// @Description Active regions of the city a partner knows under externalId
// @ModuleID getPartnerCityRegions
// @Produce  json
// @Param partner path string true "partner name"
// @Param externalId path string true "partner city id"
// @Success 200 {object} []domain.Region
// @Failure 500 {object} ErrorStruct
// @Router /partners/{partner}/cities/{externalId}/regions [get]
func (h *Handler) getPartnerCityRegions(c *gin.Context) {
	partner := domain.Partner(c.Param("partner")).Normalize()

	regions, err := h.services.Locations.PartnerCityRegions(c.Request.Context(), partner, c.Param("externalId"))
	if err != nil {
		logger.Error("get partner city regions failed", zap.String("partner", partner.String()), zap.Error(err))
		internalErrorResponse(c)
		return
	}

	c.JSON(http.StatusOK, regions)
}
