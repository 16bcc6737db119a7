package v1

import (
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/service"
	"github.com/tajer-app/locations/pkg/auth"

	"github.com/gin-gonic/gin"
)

// @title Delivery Locations API
// @version 1.0
// @description Partner city and region sync, lookup and address resolution

// @BasePath /api/v1

// @securityDefinitions.apikey UserAuth
// @in header
// @name Authorization

type Handler struct {
	services     *service.Services
	tokenManager auth.TokenManager
	config       *config.Config
}

func NewHandler(
	services *service.Services,
	tokenManager auth.TokenManager,
	config *config.Config,
) *Handler {
	return &Handler{
		services:     services,
		tokenManager: tokenManager,
		config:       config,
	}
}

func (h *Handler) Init(api *gin.RouterGroup) {
	v1 := api.Group("v1")

	h.initSyncRoutes(v1)
	h.initLocationsRoutes(v1)
}
