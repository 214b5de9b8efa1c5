package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/queue"
	"github.com/evently/evently-backend/internal/repository"
)

// RegistrationHandler lets users claim and release spots in event sections.
type RegistrationHandler struct {
	Events        *repository.EventRepo
	Sections      *repository.SectionRepo
	Registrations *repository.RegistrationRepo
}

func NewRegistrationHandler(events *repository.EventRepo, sections *repository.SectionRepo, regs *repository.RegistrationRepo) *RegistrationHandler {
	return &RegistrationHandler{Events: events, Sections: sections, Registrations: regs}
}

type registrationResp struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SectionID    string     `json:"section_id"`
	RegisteredAt time.Time  `json:"registered_at"`
	Attended     bool       `json:"attended"`
	AttendedAt   *time.Time `json:"attended_at"`
}

func registrationView(g *repository.EventRegistration) registrationResp {
	return registrationResp{
		ID:           g.ID,
		UserID:       g.UserID,
		SectionID:    g.SectionID,
		RegisteredAt: g.RegisteredAt,
		Attended:     g.Attended,
		AttendedAt:   timeOrNil(g.AttendedAt),
	}
}

// Register claims a spot in a section for the caller. The capacity check
// runs under a row lock, a second registration for the same section is
// rejected and a passed deadline closes the section.
func (h *RegistrationHandler) Register(c echo.Context) error {
	sectionID := c.Param("id")

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sections.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if s.RegistrationDeadline.Valid && time.Now().After(s.RegistrationDeadline.Time) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registration deadline has passed"})
	}

	g := &repository.EventRegistration{
		UserID:    currentUserID(c),
		SectionID: sectionID,
	}
	if err := h.Registrations.Create(ctx, g); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "already registered for this section"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "section is full"})
		default:
			log.Printf("registration: create failed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}

	e, err := h.Events.GetByID(ctx, s.EventID)
	title := ""
	if err == nil {
		title = e.Title
	}
	if err := queue.PublishNotification(ctx, queue.NotificationEvent{
		Kind:       queue.KindRegistrationConfirmed,
		UserID:     g.UserID,
		EventID:    s.EventID,
		EventTitle: title,
		SectionID:  sectionID,
		Message:    "Your registration for \"" + s.Title + "\" is confirmed.",
	}); err != nil {
		log.Printf("registration: publish notification failed: %v", err)
	}

	return c.JSON(http.StatusCreated, registrationView(g))
}

// ListMine returns the caller's registrations.
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	regs, err := h.Registrations.ListByUser(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewAll(regs), "total": len(regs)})
}

// ListBySection returns everyone registered for one section; only the event
// creator or an elevated role may see the roster.
func (h *RegistrationHandler) ListBySection(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sections.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	e, err := h.Events.GetByID(ctx, s.EventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if e.CreatorID != currentUserID(c) && !elevated(currentRole(c)) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the event creator"})
	}

	regs, err := h.Registrations.ListBySection(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewAll(regs), "total": len(regs)})
}

// MarkAttended flags a registration as attended, for check-in at the door.
func (h *RegistrationHandler) MarkAttended(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	g, err := h.Registrations.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !elevated(currentRole(c)) {
		s, err := h.Sections.GetByID(ctx, g.SectionID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		e, err := h.Events.GetByID(ctx, s.EventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if e.CreatorID != currentUserID(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not the event creator"})
		}
	}

	updated, err := h.Registrations.MarkAttended(ctx, g.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, registrationView(updated))
}

// Cancel releases the caller's spot. Elevated roles may cancel anyone's.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Registrations.Delete(ctx, c.Param("id"), currentUserID(c), elevated(currentRole(c)))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your registration"})
	default:
		log.Printf("registration: delete failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}

func viewAll(regs []*repository.EventRegistration) []registrationResp {
	items := make([]registrationResp, 0, len(regs))
	for _, g := range regs {
		items = append(items, registrationView(g))
	}
	return items
}
