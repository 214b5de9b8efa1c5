package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/repository"
)

// SectionHandler manages the schedulable sections inside an event.
type SectionHandler struct {
	Cfg      config.Config
	Events   *repository.EventRepo
	Sections *repository.SectionRepo
}

func NewSectionHandler(cfg config.Config, events *repository.EventRepo, sections *repository.SectionRepo) *SectionHandler {
	return &SectionHandler{Cfg: cfg, Events: events, Sections: sections}
}

type sectionResp struct {
	ID                   string     `json:"id"`
	EventID              string     `json:"event_id"`
	Title                string     `json:"title"`
	StartAt              time.Time  `json:"start_at"`
	EndAt                time.Time  `json:"end_at"`
	Location             *string    `json:"location"`
	Capacity             *int64     `json:"capacity"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	AdditionalInfo       *string    `json:"additional_info"`
}

func sectionView(s *repository.EventSection) sectionResp {
	return sectionResp{
		ID:                   s.ID,
		EventID:              s.EventID,
		Title:                s.Title,
		StartAt:              s.StartAt,
		EndAt:                s.EndAt,
		Location:             strOrNil(s.Location),
		Capacity:             intOrNil(s.Capacity),
		RegistrationDeadline: timeOrNil(s.RegistrationDeadline),
		AdditionalInfo:       strOrNil(s.AdditionalInfo),
	}
}

type sectionCreateReq struct {
	Title                string     `json:"title"`
	StartAt              time.Time  `json:"start_at"`
	EndAt                time.Time  `json:"end_at"`
	Location             string     `json:"location"`
	Capacity             *int64     `json:"capacity"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	AdditionalInfo       string     `json:"additional_info"`
}

// Create adds a section to an event owned by the caller.
func (h *SectionHandler) Create(c echo.Context) error {
	var req sectionCreateReq
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
	if req.Capacity != nil && *req.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if e.CreatorID != currentUserID(c) && !elevated(currentRole(c)) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the event creator"})
	}

	s := &repository.EventSection{
		EventID:        e.ID,
		Title:          req.Title,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Location:       nullStr(req.Location),
		AdditionalInfo: nullStr(req.AdditionalInfo),
	}
	if req.Capacity != nil {
		s.Capacity.Int64, s.Capacity.Valid = *req.Capacity, true
	}
	if req.RegistrationDeadline != nil {
		s.RegistrationDeadline.Time, s.RegistrationDeadline.Valid = *req.RegistrationDeadline, true
	}

	if err := h.Sections.Create(ctx, s); err != nil {
		log.Printf("section: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create section failed"})
	}
	return c.JSON(http.StatusCreated, sectionView(s))
}

// ListByEvent returns all sections of one event.
func (h *SectionHandler) ListByEvent(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	sections, err := h.Sections.ListByEvent(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]sectionResp, 0, len(sections))
	for _, s := range sections {
		items = append(items, sectionView(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": len(items)})
}

// Get returns a single section.
func (h *SectionHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sections.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, sectionView(s))
}

type sectionUpdateReq struct {
	Title                *string    `json:"title"`
	StartAt              *time.Time `json:"start_at"`
	EndAt                *time.Time `json:"end_at"`
	Location             *string    `json:"location"`
	Capacity             *int64     `json:"capacity"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	AdditionalInfo       *string    `json:"additional_info"`
}

// Update applies a partial update to a section, creator or elevated only.
func (h *SectionHandler) Update(c echo.Context) error {
	var req sectionUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.authorized(ctx, c)
	if err != nil {
		return h.sectionErr(c, err)
	}

	start, end := s.StartAt, s.EndAt
	if req.StartAt != nil {
		start = *req.StartAt
	}
	if req.EndAt != nil {
		end = *req.EndAt
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_at must not precede start_at"})
	}

	updated, err := h.Sections.Update(ctx, s.ID, repository.SectionPatch{
		Title:                req.Title,
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		Location:             req.Location,
		Capacity:             req.Capacity,
		RegistrationDeadline: req.RegistrationDeadline,
		AdditionalInfo:       req.AdditionalInfo,
	})
	if err != nil {
		return h.sectionErr(c, err)
	}
	return c.JSON(http.StatusOK, sectionView(updated))
}

// Delete removes a section and its registrations.
func (h *SectionHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.authorized(ctx, c)
	if err != nil {
		return h.sectionErr(c, err)
	}
	if err := h.Sections.Delete(ctx, s.ID); err != nil {
		return h.sectionErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SectionHandler) authorized(ctx context.Context, c echo.Context) (*repository.EventSection, error) {
	s, err := h.Sections.GetByID(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	e, err := h.Events.GetByID(ctx, s.EventID)
	if err != nil {
		return nil, err
	}
	if e.CreatorID != currentUserID(c) && !elevated(currentRole(c)) {
		return nil, repository.ErrForbidden
	}
	return s, nil
}

func (h *SectionHandler) sectionErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the event creator"})
	default:
		log.Printf("section: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}
