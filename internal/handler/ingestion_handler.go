package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orvex/internal/export"
	"orvex/internal/port"
)

// IngestionHandler exposes the pipeline audit log.
type IngestionHandler struct {
	repo port.IngestionLogRepository
}

// NewIngestionHandler creates a new IngestionHandler.
func NewIngestionHandler(repo port.IngestionLogRepository) *IngestionHandler {
	return &IngestionHandler{repo: repo}
}

// List handles GET /ingestions
func (h *IngestionHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	records, total, err := h.repo.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  records,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// GetByID handles GET /ingestions/:id
func (h *IngestionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, CodeInput, "invalid ingestion id")
		return
	}
	record, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Export handles GET /ingestions/export?format=csv|xlsx
func (h *IngestionHandler) Export(c *gin.Context) {
	offset, limit := pagination(c)
	records, _, err := h.repo.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := "ingestions_" + time.Now().UTC().Format("20060102_150405")

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		var buf bytes.Buffer
		if err := export.WriteIngestionXLSX(&buf, records); err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	case "csv":
		var buf bytes.Buffer
		buf.Write(export.BOM)
		w := export.NewWriter(&buf)
		if err := w.WriteHeader(); err != nil {
			HandleError(c, err)
			return
		}
		if err := w.WriteRecords(records); err != nil {
			HandleError(c, err)
			return
		}
		w.Flush()
		if err := w.Error(); err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		RespondError(c, http.StatusUnprocessableEntity, CodeInput, "unsupported export format; allowed: csv, xlsx")
	}
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return offset, limit
}
