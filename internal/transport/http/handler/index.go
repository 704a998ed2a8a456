package handler

import (
	"github.com/gin-gonic/gin"

	"copium-tutor/internal/app"
	"copium-tutor/internal/model"
	"copium-tutor/internal/transport/http/response"
)

type IndexHandler struct {
	ingestService *app.IngestService
}

func NewIndexHandler(ingestService *app.IngestService) *IndexHandler {
	return &IndexHandler{ingestService: ingestService}
}

// Ingest uploads the project's new or changed documents into its memory
// thread and reports the counts.
func (h *IndexHandler) Ingest(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := h.ingestService.IngestProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "index documents failed")
		return
	}
	response.OK(c, result)
}

func (h *IndexHandler) Status(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	records, err := h.ingestService.IndexStatus(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "load index status failed")
		return
	}
	if records == nil {
		records = []model.IndexRecord{}
	}
	response.OK(c, gin.H{"project_id": c.Param("id"), "indexed_files": records})
}
