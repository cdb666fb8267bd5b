package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"junctionflow/export"
	"junctionflow/models"
	"junctionflow/services"

	"github.com/gin-gonic/gin"
)

// JunctionStore is the read side of the store the API needs.
type JunctionStore interface {
	List(ctx context.Context, limit, offset int, junction string) ([]models.JunctionRecord, error)
	Count(ctx context.Context, junction string) (int64, error)
	ReadAll(ctx context.Context) ([]models.JunctionRecord, error)
}

const listCacheTTL = 5 * time.Second

type JunctionHandler struct {
	store JunctionStore
	cache *services.CacheService
}

func NewJunctionHandler(store JunctionStore, cache *services.CacheService) *JunctionHandler {
	return &JunctionHandler{store: store, cache: cache}
}

// List serves GET /api/junctions.
func (h *JunctionHandler) List(c *gin.Context) {
	p := ParsePagination(c)
	junction := c.Query("junction")
	ctx := c.Request.Context()

	cacheKey := fmt.Sprintf("%s%s:%d:%d", services.ListCachePrefix, junction, p.Limit, p.Offset)
	var cached PageResponse
	if found, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		c.JSON(http.StatusOK, cached)
		return
	}

	total, err := h.store.Count(ctx, junction)
	if err != nil {
		log.Printf("count junction rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	rows, err := h.store.List(ctx, p.Limit, p.Offset, junction)
	if err != nil {
		log.Printf("list junction rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	if rows == nil {
		rows = []models.JunctionRecord{}
	}

	resp := PageResponse{
		Data:    rows,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: int64(p.Offset+len(rows)) < total,
	}
	go h.cache.Set(context.Background(), cacheKey, resp, listCacheTTL)

	c.JSON(http.StatusOK, resp)
}

// Summary serves GET /api/junctions/summary.
func (h *JunctionHandler) Summary(c *gin.Context) {
	rows, err := h.store.ReadAll(c.Request.Context())
	if err != nil {
		log.Printf("read junction rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": services.Summarize(rows)})
}

// ExportCSV serves GET /api/junctions/export.csv, the same CSV the exporter
// command writes to disk.
func (h *JunctionHandler) ExportCSV(c *gin.Context) {
	ctx := c.Request.Context()

	if copier, ok := h.store.(export.Copier); ok && copier.CanCopy() {
		h.writeCSVHeaders(c)
		if err := copier.CopyCSV(ctx, c.Writer); err != nil {
			// Headers are already sent; the client sees a truncated body.
			log.Printf("copy junction rows: %v", err)
		}
		return
	}

	rows, err := h.store.ReadAll(ctx)
	if err != nil {
		log.Printf("read junction rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	h.writeCSVHeaders(c)
	if err := export.Write(c.Writer, rows); err != nil {
		log.Printf("write csv: %v", err)
	}
}

func (h *JunctionHandler) writeCSVHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="junction_data_export.csv"`)
	c.Status(http.StatusOK)
}
