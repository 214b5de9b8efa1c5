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

// ApprovalHandler serves the admin approval workflow. A verdict moves the
// event between PENDING, APPROVED and REJECTED and notifies the creator
// through the broker.
type ApprovalHandler struct {
	Events    *repository.EventRepo
	Approvals *repository.ApprovalRepo
}

func NewApprovalHandler(events *repository.EventRepo, approvals *repository.ApprovalRepo) *ApprovalHandler {
	return &ApprovalHandler{Events: events, Approvals: approvals}
}

type approvalResp struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Approved        bool      `json:"approved"`
	ApprovalReason  *string   `json:"approval_reason"`
	RejectionReason *string   `json:"rejection_reason"`
	ReviewedByID    string    `json:"reviewed_by_id"`
	ReviewedAt      time.Time `json:"reviewed_at"`
}

func approvalView(a *repository.EventApproval) approvalResp {
	return approvalResp{
		ID:              a.ID,
		EventID:         a.EventID,
		Approved:        a.Approved,
		ApprovalReason:  strOrNil(a.ApprovalReason),
		RejectionReason: strOrNil(a.RejectionReason),
		ReviewedByID:    a.ReviewedByID,
		ReviewedAt:      a.ReviewedAt,
	}
}

type approvalReq struct {
	Approved        bool   `json:"approved"`
	ApprovalReason  string `json:"approval_reason"`
	RejectionReason string `json:"rejection_reason"`
}

// Decide records or replaces the verdict for an event. Re-deciding the same
// event overwrites the previous verdict and moves the event status with it.
func (h *ApprovalHandler) Decide(c echo.Context) error {
	var req approvalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !req.Approved && req.RejectionReason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rejection requires a reason"})
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

	a := &repository.EventApproval{
		EventID:         e.ID,
		Approved:        req.Approved,
		ApprovalReason:  nullStr(req.ApprovalReason),
		RejectionReason: nullStr(req.RejectionReason),
		ReviewedByID:    currentUserID(c),
	}
	if err := h.Approvals.Upsert(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		log.Printf("approval: upsert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	kind := queue.KindEventApproved
	msg := "Your event \"" + e.Title + "\" was approved."
	if !req.Approved {
		kind = queue.KindEventRejected
		msg = "Your event \"" + e.Title + "\" was rejected: " + req.RejectionReason
	}
	if err := queue.PublishNotification(ctx, queue.NotificationEvent{
		Kind:       kind,
		UserID:     e.CreatorID,
		EventID:    e.ID,
		EventTitle: e.Title,
		Message:    msg,
	}); err != nil {
		log.Printf("approval: publish notification failed: %v", err)
	}

	return c.JSON(http.StatusOK, approvalView(a))
}

// Get returns the verdict recorded for an event, if any.
func (h *ApprovalHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Approvals.GetByEventID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no verdict for this event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, approvalView(a))
}

// Delete withdraws the verdict and resets the event to PENDING.
func (h *ApprovalHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Approvals.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no verdict for this event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.NoContent(http.StatusNoContent)
}
