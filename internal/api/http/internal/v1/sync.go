package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/pkg/logger"
)

func (h *Handler) initSyncRoutes(api *gin.RouterGroup) {
	sync := api.Group("/sync")

	sync.POST("", h.userIdentityMiddleware, h.triggerSync)
	sync.GET("", h.userIdentityMiddleware, h.syncHistory)
	sync.GET("/logs", h.userIdentityMiddleware, h.syncLogs)
	sync.GET("/:id", h.getSync)
	sync.POST("/:id/cancel", h.userIdentityMiddleware, h.cancelSync)
}

type triggerSyncRequest struct {
	Partner string `json:"partner" binding:"required,partner"`
	Token   string `json:"token" binding:"max=4096"`
}

type triggerSyncResponse struct {
	ProgressID uuid.UUID `json:"progress_id"`
	Joined     bool      `json:"joined"`
}

// @Summary Trigger location sync
// @Tags Sync
// @Description Starts a background sync of a partner's cities and regions, or joins the one already running
// @ModuleID triggerSync
// @Accept  json
// @Produce  json
// @Param input body triggerSyncRequest true "partner and its api token"
// @Success 202 {object} triggerSyncResponse
// @Failure 400 {object} ErrorStruct
// @Failure 401
// @Failure 500 {object} ErrorStruct
// @Security UserAuth
// @Router /sync [post]
func (h *Handler) triggerSync(c *gin.Context) {
	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	token := req.Token
	if token == "" {
		token = h.config.Partners.DefaultToken
	}

	progressID, joined, err := h.services.Locations.TriggerSync(c.Request.Context(), domain.Partner(req.Partner), token, getUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownPartner):
			errorResponse(c, http.StatusBadRequest, UnknownPartnerCode)
		case errors.Is(err, domain.ErrMissingPartnerToken):
			errorResponse(c, http.StatusBadRequest, MissingPartnerTokenCode)
		default:
			logger.Error("trigger sync failed", zap.String("partner", req.Partner), zap.Error(err))
			internalErrorResponse(c)
		}
		return
	}

	c.JSON(http.StatusAccepted, triggerSyncResponse{ProgressID: progressID, Joined: joined})
}

type syncProgressResponse struct {
	*domain.SyncProgress
	Percent float64 `json:"percent"`
}

func newSyncProgressResponse(p *domain.SyncProgress) syncProgressResponse {
	return syncProgressResponse{SyncProgress: p, Percent: p.Percent()}
}

// @Summary Get sync progress
// @Tags Sync
// @Description Polls the live state of a sync run
// @ModuleID getSync
// @Produce  json
// @Param id path string true "progress id"
// @Success 200 {object} syncProgressResponse
// @Failure 400 {object} ErrorStruct
// @Failure 404 {object} ErrorStruct
// @Failure 500 {object} ErrorStruct
// @Router /sync/{id} [get]
func (h *Handler) getSync(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	progress, err := h.services.Sync.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, SyncNotFoundCode)
			return
		}
		logger.Error("get sync failed", zap.String("progress_id", id.String()), zap.Error(err))
		internalErrorResponse(c)
		return
	}

	c.JSON(http.StatusOK, newSyncProgressResponse(progress))
}

// @Summary Cancel sync
// @Tags Sync
// @Description Cancels a pending or running sync
// @ModuleID cancelSync
// @Produce  json
// @Param id path string true "progress id"
// @Success 202 {object} syncProgressResponse
// @Failure 400 {object} ErrorStruct
// @Failure 401
// @Failure 404 {object} ErrorStruct
// @Failure 409 {object} ErrorStruct
// @Failure 500 {object} ErrorStruct
// @Security UserAuth
// @Router /sync/{id}/cancel [post]
func (h *Handler) cancelSync(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	progress, err := h.services.Sync.Cancel(c.Request.Context(), id, getUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			errorResponse(c, http.StatusNotFound, SyncNotFoundCode)
		case errors.Is(err, domain.ErrInvalidTransition):
			errorResponse(c, http.StatusConflict, SyncAlreadyFinishedCode)
		default:
			logger.Error("cancel sync failed", zap.String("progress_id", id.String()), zap.Error(err))
			internalErrorResponse(c)
		}
		return
	}

	c.JSON(http.StatusAccepted, newSyncProgressResponse(progress))
}

// @Summary Sync history
// @Tags Sync
// @Description Most recent sync runs, newest first
// @ModuleID syncHistory
// @Produce  json
// @Param limit query int false "max rows, default 20, at most 100"
// @Success 200 {object} []domain.SyncProgress
// @Failure 401
// @Failure 500 {object} ErrorStruct
// @Security UserAuth
// @Router /sync [get]
func (h *Handler) syncHistory(c *gin.Context) {
	history, err := h.services.Sync.History(c.Request.Context(), queryLimit(c))
	if err != nil {
		logger.Error("get sync history failed", zap.Error(err))
		internalErrorResponse(c)
		return
	}
	c.JSON(http.StatusOK, history)
}

// @Summary Sync audit log
// @Tags Sync
// @Description Finished sync runs with their outcome
// @ModuleID syncLogs
// @Produce  json
// @Param limit query int false "max rows, default 20, at most 100"
// @Success 200 {object} []domain.SyncLogEntry
// @Failure 401
// @Failure 500 {object} ErrorStruct
// @Security UserAuth
// @Router /sync/logs [get]
func (h *Handler) syncLogs(c *gin.Context) {
	logs, err := h.services.Sync.Logs(c.Request.Context(), queryLimit(c))
	if err != nil {
		logger.Error("get sync logs failed", zap.Error(err))
		internalErrorResponse(c)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, InvalidIDCode)
		return uuid.Nil, false
	}
	return id, true
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
