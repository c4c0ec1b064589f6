package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/replica"
)

// SyncHandler exposes the pull side of the cloud replica. Pushing happens
// implicitly on every mutation; pulling is on demand.
type SyncHandler struct {
	syncer *replica.Syncer // Nil when replica sync is disabled
	logger *zap.Logger
}

// NewSyncHandler creates a new SyncHandler. syncer may be nil.
func NewSyncHandler(syncer *replica.Syncer, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{syncer: syncer, logger: logger}
}

// Pull applies the replica's records onto the local store and reports how
// many were applied or rejected.
func (h *SyncHandler) Pull(c *gin.Context) {
	if h.syncer == nil {
		abortWithError(c, http.StatusServiceUnavailable, "Replica sync is not configured.")
		return
	}

	consultantID, ok := consultantIDFrom(c)
	if !ok {
		return
	}

	result, err := h.syncer.Pull(c.Request.Context(), consultantID)
	if err != nil {
		h.logger.Error("replica pull failed", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Replica pull failed.")
		return
	}
	c.JSON(http.StatusOK, result)
}
