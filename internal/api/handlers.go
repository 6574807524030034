package api

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/journal"
	"github.com/faxfinity/faxsort/internal/pipeline"
	"github.com/faxfinity/faxsort/internal/report"
)

// Handlers exposes the read-only monitoring surface: health, counters,
// folder statistics, the processing journal, an XLSX report, and the
// quarantine requeue action. There is no configuration surface here.
type Handlers struct {
	folders fax.Folders
	journal *journal.Journal
	worker  *pipeline.ScanWorker
	logger  *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(folders fax.Folders, j *journal.Journal, w *pipeline.ScanWorker, logger *zap.Logger) *Handlers {
	return &Handlers{folders: folders, journal: j, worker: w, logger: logger}
}

// Register mounts all routes on the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/status", h.Status)
		api.GET("/log", h.Log)
		api.GET("/report", h.Report)
		api.POST("/retry", h.Retry)
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "faxsort",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Status returns worker counters plus per-folder PDF counts.
func (h *Handlers) Status(c *gin.Context) {
	folders := gin.H{
		"inbox":      countPDFs(h.folders.Inbox),
		"archive":    countPDFs(h.folders.Archive),
		"renamed":    countPDFs(h.folders.Renamed),
		"quarantine": countPDFs(h.folders.Quarantine),
	}

	counts, err := h.journal.CountByState(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read journal counts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"worker":  h.worker.Snapshot(),
		"folders": folders,
		"totals":  counts,
	})
}

// Log returns the most recent journal entries.
func (h *Handlers) Log(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	entries, err := h.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read journal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Report streams the journal as an XLSX download.
func (h *Handlers) Report(c *gin.Context) {
	entries, err := h.journal.Recent(c.Request.Context(), 10000)
	if err != nil {
		h.logger.Error("Failed to read journal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}

	var buf bytes.Buffer
	if err := report.Write(entries, &buf); err != nil {
		h.logger.Error("Failed to build report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}

	filename := "faxsort_report_" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// Retry moves quarantined files back into the inbox for reprocessing.
func (h *Handlers) Retry(c *gin.Context) {
	moved, err := pipeline.RequeueQuarantined(h.folders, h.logger)
	if err != nil {
		h.logger.Error("Requeue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": moved})
}

func countPDFs(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			count++
		}
	}
	return count
}
