package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AnTengye/contractvigency/backend/ingest"
	"github.com/AnTengye/contractvigency/backend/middleware"
	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/AnTengye/contractvigency/backend/pipeline"
	"github.com/AnTengye/contractvigency/backend/report"
	"github.com/AnTengye/contractvigency/backend/service"
	"github.com/gin-gonic/gin"
)

const maxSupplierLimit = 100

type DatasetHandler struct {
	vigency       *service.VigencyService
	maxUploadSize int64
	now           func() time.Time
}

func NewDatasetHandler(vigency *service.VigencyService, maxUploadSizeMB int) *DatasetHandler {
	return &DatasetHandler{
		vigency:       vigency,
		maxUploadSize: int64(maxUploadSizeMB) << 20,
		now:           time.Now,
	}
}

// Upload imports a spreadsheet sent as multipart field "file".
func (h *DatasetHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if _, err := ingest.FormatFromFilename(header.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only XLSX and CSV files are allowed"})
		return
	}
	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	ds, err := h.vigency.Import(c.Request.Context(), tenant, header.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ds)
}

// Import fetches the configured source spreadsheet.
func (h *DatasetHandler) Import(c *gin.Context) {
	ds, err := h.vigency.ImportFromSource(c.Request.Context(), middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// Reload re-reads a dataset's stored file.
func (h *DatasetHandler) Reload(c *gin.Context) {
	ds, err := h.vigency.Reload(c.Request.Context(), middleware.GetTenant(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// List returns all datasets for the current tenant
func (h *DatasetHandler) List(c *gin.Context) {
	datasets := h.vigency.List(middleware.GetTenant(c))
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}

func (h *DatasetHandler) Get(c *gin.Context) {
	ds, err := h.vigency.Get(middleware.GetTenant(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *DatasetHandler) Delete(c *gin.Context) {
	if err := h.vigency.Delete(c.Request.Context(), middleware.GetTenant(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dataset deleted"})
}

// Contracts lists the enriched rows, optionally filtered by
// ?status=expired,expiring_soon and ?year=2024.
func (h *DatasetHandler) Contracts(c *gin.Context) {
	var statuses []model.Status
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, ok := model.ParseStatus(strings.TrimSpace(s))
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + s})
				return
			}
			statuses = append(statuses, st)
		}
	}
	year, ok := queryYear(c)
	if !ok {
		return
	}

	ev, ok := h.evaluate(c)
	if !ok {
		return
	}

	rows := report.FilterByStatus(ev.rows, statuses...)
	if year != 0 {
		rows = report.FilterByYear(rows, year)
	}
	c.JSON(http.StatusOK, gin.H{
		"today":     ev.today,
		"total":     len(rows),
		"contracts": rows,
	})
}

// Dashboard returns every view; ?year= selects the value-by-status year.
func (h *DatasetHandler) Dashboard(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	ev, ok := h.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"today":     ev.today,
		"dashboard": report.Build(ev.rows, year),
	})
}

func (h *DatasetHandler) Expiring(c *gin.Context) {
	ev, ok := h.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"today":     ev.today,
		"contracts": report.ExpiringSoon(ev.rows),
	})
}

func (h *DatasetHandler) Distribution(c *gin.Context) {
	ev, ok := h.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"today":        ev.today,
		"total":        len(ev.rows),
		"distribution": report.StatusDistribution(ev.rows),
	})
}

// ValueByStatus sums values per status for ?year=, defaulting to the newest year.
func (h *DatasetHandler) ValueByStatus(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	ev, ok := h.evaluate(c)
	if !ok {
		return
	}

	years := report.Years(ev.rows)
	if year == 0 && len(years) > 0 {
		year = years[0]
	}
	c.JSON(http.StatusOK, gin.H{
		"today":  ev.today,
		"years":  years,
		"year":   year,
		"values": report.ValueByStatus(ev.rows, year),
	})
}

// TopSuppliers ranks in-progress suppliers ?by=count (default) or ?by=value.
func (h *DatasetHandler) TopSuppliers(c *gin.Context) {
	by := c.DefaultQuery("by", "count")
	if by != "count" && by != "value" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "by must be count or value"})
		return
	}
	limit := report.TopN
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSupplierLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	ev, ok := h.evaluate(c)
	if !ok {
		return
	}

	var suppliers any
	if by == "value" {
		suppliers = report.TopSuppliersByValue(ev.rows, limit)
	} else {
		suppliers = report.TopSuppliersByCount(ev.rows, limit)
	}
	c.JSON(http.StatusOK, gin.H{
		"today":     ev.today,
		"by":        by,
		"suppliers": suppliers,
	})
}

type evaluation struct {
	today model.Date
	rows  []model.Contract
}

// evaluate derives the requested dataset against a reference date captured
// once for this request. It writes the error response itself.
func (h *DatasetHandler) evaluate(c *gin.Context) (evaluation, bool) {
	now := h.now()
	_, rows, err := h.vigency.Evaluate(c.Request.Context(), middleware.GetTenant(c), c.Param("id"), now)
	if err != nil {
		respondError(c, err)
		return evaluation{}, false
	}
	return evaluation{
		today: pipeline.Today(now, h.vigency.Location()),
		rows:  rows,
	}, true
}

func queryYear(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return 0, false
	}
	return year, true
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var mce *pipeline.MissingColumnError
	switch {
	case errors.Is(err, service.ErrDatasetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &mce):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Required columns missing",
			"columns": mce.Columns,
		})
	case errors.Is(err, ingest.ErrEmptySheet), errors.Is(err, ingest.ErrMalformed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSourceUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoStoredFile):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSourceNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
