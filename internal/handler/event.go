package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/pagination"
	"github.com/evently/evently-backend/internal/repository"
	"github.com/evently/evently-backend/internal/utils"
)

// EventHandler serves the event CRUD, publishing and the per-event QR code.
type EventHandler struct {
	Cfg    config.Config
	Events *repository.EventRepo
	Tags   *repository.TagRepo
}

func NewEventHandler(cfg config.Config, events *repository.EventRepo, tags *repository.TagRepo) *EventHandler {
	return &EventHandler{Cfg: cfg, Events: events, Tags: tags}
}

type eventResp struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	Location    *string           `json:"location"`
	StartAt     time.Time         `json:"start_at"`
	EndAt       time.Time         `json:"end_at"`
	Published   bool              `json:"published"`
	Status      string            `json:"status"`
	CreatorID   string            `json:"creator_id"`
	QRCodePath  *string           `json:"qr_code_path"`
	Tags        []string          `json:"tags,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Links       []pagination.Link `json:"links,omitempty"`
}

func eventView(e *repository.Event, tags []*repository.Tag, baseURL string) eventResp {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return eventResp{
		ID:          e.ID,
		Title:       e.Title,
		Description: strOrNil(e.Description),
		Location:    strOrNil(e.Location),
		StartAt:     e.StartAt,
		EndAt:       e.EndAt,
		Published:   e.Published,
		Status:      e.Status,
		CreatorID:   e.CreatorID,
		QRCodePath:  strOrNil(e.QRCodePath),
		Tags:        names,
		CreatedAt:   e.CreatedAt,
		Links:       pagination.EntityLinks(baseURL, "events", e.ID),
	}
}

func (h *EventHandler) view(c echo.Context, e *repository.Event) eventResp {
	ctx, cancel := reqCtx(c)
	defer cancel()
	tags, err := h.Tags.ListByEvent(ctx, e.ID)
	if err != nil {
		log.Printf("event: list tags for %s failed: %v", e.ID, err)
	}
	return eventView(e, tags, h.Cfg.BaseURL)
}

type eventCreateReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
}

// Create makes a new event owned by the caller. Events start unpublished and
// PENDING until an approval verdict arrives.
func (h *EventHandler) Create(c echo.Context) error {
	var req eventCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_at and end_at are required"})
	}
	if req.EndAt.Before(req.StartAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_at must not precede start_at"})
	}

	e := &repository.Event{
		Title:       req.Title,
		Description: nullStr(req.Description),
		Location:    nullStr(req.Location),
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		CreatorID:   currentUserID(c),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.Create(ctx, e); err != nil {
		log.Printf("event: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, h.view(c, e))
}

// ListPublic returns only published events, for anonymous browsing.
func (h *EventHandler) ListPublic(c echo.Context) error {
	return h.list(c, repository.EventFilter{PublishedOnly: true})
}

// List returns events for authenticated callers. Non-elevated users see
// published events plus their own; admins and managers see everything and
// may narrow by ?status=.
func (h *EventHandler) List(c echo.Context) error {
	if elevated(currentRole(c)) {
		f := repository.EventFilter{Status: strings.ToUpper(c.QueryParam("status"))}
		return h.list(c, f)
	}
	if c.QueryParam("mine") == "true" {
		return h.list(c, repository.EventFilter{CreatorID: currentUserID(c)})
	}
	return h.list(c, repository.EventFilter{PublishedOnly: true})
}

func (h *EventHandler) list(c echo.Context, f repository.EventFilter) error {
	skip, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	events, total, err := h.Events.List(ctx, f, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	tagCtx, tagCancel := reqCtx(c)
	defer tagCancel()
	items := make([]eventResp, 0, len(events))
	for _, e := range events {
		tags, err := h.Tags.ListByEvent(tagCtx, e.ID)
		if err != nil {
			log.Printf("event: list tags for %s failed: %v", e.ID, err)
		}
		items = append(items, eventView(e, tags, h.Cfg.BaseURL))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
		"page":  pagination.Page(skip, limit),
		"pages": pagination.TotalPages(total, limit),
		"links": pagination.Links(h.Cfg.BaseURL+"/events", skip, limit, total),
	})
}

// Get returns one event. Unpublished events are visible only to their
// creator and elevated roles.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !e.Published && e.CreatorID != currentUserID(c) && !elevated(currentRole(c)) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, h.view(c, e))
}

type eventUpdateReq struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

// Update applies a partial update. Only the creator or an elevated role may
// change an event; date changes are re-checked for ordering.
func (h *EventHandler) Update(c echo.Context) error {
	var req eventUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.ownEvent(ctx, c)
	if err != nil {
		return h.eventErr(c, err)
	}

	start, end := e.StartAt, e.EndAt
	if req.StartAt != nil {
		start = *req.StartAt
	}
	if req.EndAt != nil {
		end = *req.EndAt
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_at must not precede start_at"})
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
	}

	updated, err := h.Events.Update(ctx, e.ID, repository.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	})
	if err != nil {
		return h.eventErr(c, err)
	}
	return c.JSON(http.StatusOK, h.view(c, updated))
}

// Publish flips an event to publicly visible. Only approved events may be
// published.
func (h *EventHandler) Publish(c echo.Context) error {
	return h.setPublished(c, true)
}

// Unpublish hides an event from public listings again.
func (h *EventHandler) Unpublish(c echo.Context) error {
	return h.setPublished(c, false)
}

func (h *EventHandler) setPublished(c echo.Context, published bool) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.ownEvent(ctx, c)
	if err != nil {
		return h.eventErr(c, err)
	}
	if published && e.Status != repository.EventStatusApproved {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event must be approved before publishing"})
	}

	updated, err := h.Events.SetPublished(ctx, e.ID, published)
	if err != nil {
		return h.eventErr(c, err)
	}
	return c.JSON(http.StatusOK, h.view(c, updated))
}

// GenerateQR renders a QR code pointing at the event page and records the
// file path on the event row.
func (h *EventHandler) GenerateQR(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.ownEvent(ctx, c)
	if err != nil {
		return h.eventErr(c, err)
	}

	link := fmt.Sprintf("%s/events/%s", h.Cfg.BaseURL, e.ID)
	path := fmt.Sprintf("%s/event-%s.png", h.Cfg.QRDir, e.ID)
	if err := utils.GenerateQRCode(link, path, h.Cfg.QRFillColor, h.Cfg.QRBackColor, 10); err != nil {
		log.Printf("event: qr for %s failed: %v", e.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr generation failed"})
	}
	if err := h.Events.SetQRCodePath(ctx, e.ID, path); err != nil {
		return h.eventErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"qr_code_path": path, "data": link})
}

// Delete removes an event and its sections, registrations, reviews, approval
// and tag links in one transaction.
func (h *EventHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.ownEvent(ctx, c)
	if err != nil {
		return h.eventErr(c, err)
	}
	if err := h.Events.Delete(ctx, e.ID); err != nil {
		return h.eventErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ownEvent loads the event from the :id param and enforces that the caller
// is the creator or elevated.
func (h *EventHandler) ownEvent(ctx context.Context, c echo.Context) (*repository.Event, error) {
	e, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if e.CreatorID != currentUserID(c) && !elevated(currentRole(c)) {
		return nil, repository.ErrForbidden
	}
	return e, nil
}

func (h *EventHandler) eventErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the event creator"})
	default:
		log.Printf("event: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}
