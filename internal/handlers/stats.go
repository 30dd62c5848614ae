// internal/handlers/stats.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

type StatsHandler struct {
	store store.Store
}

func NewStatsHandler(st store.Store) *StatsHandler {
	return &StatsHandler{
		store: st,
	}
}

// GET /stats/platform
func (h *StatsHandler) PlatformStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}
