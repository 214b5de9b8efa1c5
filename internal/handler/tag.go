package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/repository"
)

// TagHandler attaches free-form labels to events. Tag names are global and
// normalized to lower case; attaching reuses an existing tag when the name
// is already known.
type TagHandler struct {
	Events *repository.EventRepo
	Tags   *repository.TagRepo
}

func NewTagHandler(events *repository.EventRepo, tags *repository.TagRepo) *TagHandler {
	return &TagHandler{Events: events, Tags: tags}
}

// Attach adds a tag to an event, creating the tag on first use.
func (h *TagHandler) Attach(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tag name is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.ownEvent(ctx, c)
	if err != nil {
		return h.tagErr(c, err)
	}

	t, err := h.Tags.GetOrCreate(ctx, name)
	if err != nil {
		log.Printf("tag: get or create %q failed: %v", name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Tags.Attach(ctx, e.ID, t.ID); err != nil {
		return h.tagErr(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Detach removes a tag from an event. The tag row itself stays for reuse.
func (h *TagHandler) Detach(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.ownEvent(ctx, c)
	if err != nil {
		return h.tagErr(c, err)
	}
	if err := h.Tags.Detach(ctx, e.ID, c.Param("tag_id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tag not attached to this event"})
		}
		return h.tagErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByEvent returns the tags attached to one event.
func (h *TagHandler) ListByEvent(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, c.Param("id")); err != nil {
		return h.tagErr(c, err)
	}
	tags, err := h.Tags.ListByEvent(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tags, "total": len(tags)})
}

func (h *TagHandler) ownEvent(ctx context.Context, c echo.Context) (*repository.Event, error) {
	e, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if e.CreatorID != currentUserID(c) && !elevated(currentRole(c)) {
		return nil, repository.ErrForbidden
	}
	return e, nil
}

func (h *TagHandler) tagErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the event creator"})
	default:
		log.Printf("tag: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}
