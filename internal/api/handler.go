// Package api serves diet category lookups over HTTP. Single foods are
// answered from the Redis results of the last generate run when available
// and categorized on demand otherwise.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
)

type Foods interface {
	categorizer.Foods
	ByCategory(ctx context.Context, description string) iter.Seq2[fooddata.Food, error]
}

type Snapshots interface {
	LatestSnapshot(ctx context.Context) (report.Stats, error)
}

// FoodResponse is the lookup result for one food.
type FoodResponse struct {
	FdcID         int64                         `json:"fdcId"`
	Description   string                        `json:"description"`
	Dataset       string                        `json:"dataset,omitempty"`
	FoodCategory  string                        `json:"foodCategory,omitempty"`
	VegCategory   diet.Category                 `json:"vegCategory"`
	Source        diet.Source                   `json:"source"`
	Discrepancies map[diet.Source]diet.Category `json:"discrepancies,omitempty"`
	URL           string                        `json:"url"`
	Cached        bool                          `json:"cached"`
}

type CategoryResponse struct {
	FoodCategory string         `json:"foodCategory"`
	Diet         *diet.Category `json:"diet,omitempty"`
	Foods        []FoodResponse `json:"foods"`
	Truncated    bool           `json:"truncated"`
}

type Handler struct {
	foods       Foods
	categorizer *categorizer.Categorizer
	cache       *ResultCache
	snapshots   Snapshots
	group       singleflight.Group
	maxList     int
	logger      *slog.Logger
}

// New returns a handler. cache and snapshots may be nil.
func New(foods Foods, c *categorizer.Categorizer, cache *ResultCache, snapshots Snapshots, maxList int) *Handler {
	return &Handler{
		foods:       foods,
		categorizer: c,
		cache:       cache,
		snapshots:   snapshots,
		maxList:     max(maxList, 1),
		logger:      slog.Default().With("component", "lookup-handler"),
	}
}

// Route binds a ServeMux pattern to a handler.
type Route struct {
	Pattern string
	Handler http.HandlerFunc
}

func (h *Handler) Routes() []Route {
	return []Route{
		{"GET /api/v1/foods/{fdcId}", h.Food},
		{"GET /api/v1/categories/{description}/foods", h.Category},
		{"GET /api/v1/stats", h.Stats},
		{"GET /api/v1/cache/stats", h.CacheStats},
		{"POST /api/v1/cache/invalidate", h.CacheInvalidate},
	}
}

func (h *Handler) Food(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	raw := r.PathValue("fdcId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(ctx, w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"fdc id %q is not a positive integer", raw))
		return
	}
	food, err := h.foods.ByFdcID(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	resp := newFoodResponse(food)
	if rec, ok := h.cache.Lookup(ctx, id); ok {
		resp.VegCategory = rec.VegCategory
		if rec.Source != nil {
			resp.Source = *rec.Source
		}
		resp.Discrepancies = rec.Discrepancies
		resp.Cached = true
	} else {
		cat, err := h.categorize(ctx, food)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		resp.withCategorization(cat)
	}

	logger.FromContext(ctx).Info("food looked up",
		"fdc_id", id,
		"category", resp.VegCategory,
		"cached", resp.Cached,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// Category lists the foods of one FoodData Central category with their diet
// categories, optionally filtered by ?diet=<category or shortcut>.
func (h *Handler) Category(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	description := r.PathValue("description")
	resp := CategoryResponse{FoodCategory: description, Foods: []FoodResponse{}}
	if v := r.URL.Query().Get("diet"); v != "" {
		want, err := diet.ParseCategoryOrShortcut(v)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		resp.Diet = &want
	}

	found := false
	for food, err := range h.foods.ByCategory(ctx, description) {
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		found = true
		cat, err := h.categorize(ctx, food)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		if resp.Diet != nil && cat.Category != *resp.Diet {
			continue
		}
		if len(resp.Foods) == h.maxList {
			resp.Truncated = true
			break
		}
		fr := newFoodResponse(food)
		fr.withCategorization(cat)
		resp.Foods = append(resp.Foods, fr)
	}
	if !found {
		h.writeError(ctx, w, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound,
			"no foods in category %q", description))
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Stats returns the report of the most recent generate run.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(r.Context(), w, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound,
			"report snapshots are not configured"))
		return
	}
	stats, err := h.snapshots.LatestSnapshot(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"circuit":  h.cache.State().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(r.Context(), w, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable,
			"caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// categorize collapses concurrent requests for the same food into one walk.
// The shared walk outlives any single caller's cancellation; each caller
// still stops waiting when its own request ends.
func (h *Handler) categorize(ctx context.Context, food fooddata.Food) (categorizer.Categorization, error) {
	ch := h.group.DoChan(strconv.FormatInt(food.FdcID, 10), func() (any, error) {
		return h.categorizer.Categorize(context.WithoutCancel(ctx), food)
	})
	select {
	case <-ctx.Done():
		return categorizer.Categorization{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return categorizer.Categorization{}, res.Err
		}
		return res.Val.(categorizer.Categorization), nil
	}
}

func newFoodResponse(food fooddata.Food) FoodResponse {
	return FoodResponse{
		FdcID:        food.FdcID,
		Description:  food.Description,
		Dataset:      food.Dataset,
		FoodCategory: food.Category,
		URL:          fooddata.AppURL(food.FdcID),
	}
}

func (r *FoodResponse) withCategorization(c categorizer.Categorization) {
	r.VegCategory = c.Category
	r.Source = c.Source
	r.Discrepancies = c.Discrepancies
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case status >= http.StatusInternalServerError:
		logger.FromContext(ctx).Error("request failed", "error", err)
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
