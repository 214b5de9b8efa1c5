package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/pagination"
	"github.com/evently/evently-backend/internal/repository"
)

// ReviewHandler serves per-event ratings. One review per user per event.
type ReviewHandler struct {
	Cfg     config.Config
	Events  *repository.EventRepo
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(cfg config.Config, events *repository.EventRepo, reviews *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Cfg: cfg, Events: events, Reviews: reviews}
}

type reviewResp struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func reviewView(v *repository.EventReview) reviewResp {
	return reviewResp{
		ID:         v.ID,
		EventID:    v.EventID,
		ReviewerID: v.ReviewerID,
		Rating:     v.Rating,
		Comment:    strOrNil(v.Comment),
		CreatedAt:  v.CreatedAt,
	}
}

type reviewCreateReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create records a rating between 1 and 5 for an event.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req reviewCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	v := &repository.EventReview{
		EventID:    c.Param("id"),
		ReviewerID: currentUserID(c),
		Rating:     req.Rating,
		Comment:    nullStr(req.Comment),
	}
	if err := h.Reviews.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "you have already reviewed this event"})
		}
		log.Printf("review: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusCreated, reviewView(v))
}

// ListByEvent returns a page of reviews for one event.
func (h *ReviewHandler) ListByEvent(c echo.Context) error {
	skip, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	reviews, total, err := h.Reviews.ListByEvent(ctx, c.Param("id"), skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]reviewResp, 0, len(reviews))
	for _, v := range reviews {
		items = append(items, reviewView(v))
	}
	base := h.Cfg.BaseURL + "/events/" + c.Param("id") + "/reviews"
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
		"page":  pagination.Page(skip, limit),
		"pages": pagination.TotalPages(total, limit),
		"links": pagination.Links(base, skip, limit, total),
	})
}

// Get returns one review.
func (h *ReviewHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Reviews.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, reviewView(v))
}

// Delete removes a review; only its author or an elevated role may.
func (h *ReviewHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Reviews.Delete(ctx, c.Param("id"), currentUserID(c), elevated(currentRole(c)))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your review"})
	default:
		log.Printf("review: delete failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}
