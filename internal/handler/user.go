package handler

import (
	"errors"
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

// UserHandler serves the profile surface and the admin user CRUD.
type UserHandler struct {
	Cfg    config.Config
	Users  UserStore
	Mailer MailSender
}

func NewUserHandler(cfg config.Config, users UserStore, mailer MailSender) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Mailer: mailer}
}

// userResp is the outward shape of a user. Hashed password, verification
// token and the failed-attempt counter never leave the server.
type userResp struct {
	ID             string            `json:"id"`
	Username       string            `json:"username"`
	Email          string            `json:"email"`
	FullName       *string           `json:"full_name"`
	Bio            *string           `json:"bio"`
	ProfilePicture *string           `json:"profile_picture"`
	Role           string            `json:"role"`
	EmailVerified  bool              `json:"email_verified"`
	IsLocked       bool              `json:"is_locked"`
	LastLoginAt    *time.Time        `json:"last_login_at"`
	CreatedAt      time.Time         `json:"created_at"`
	Links          []pagination.Link `json:"links,omitempty"`
}

func userView(u *repository.User, baseURL string) userResp {
	return userResp{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FullName:       strOrNil(u.FullName),
		Bio:            strOrNil(u.Bio),
		ProfilePicture: strOrNil(u.ProfilePictureURL),
		Role:           u.Role,
		EmailVerified:  u.EmailVerified,
		IsLocked:       u.IsLocked,
		LastLoginAt:    timeOrNil(u.LastLoginAt),
		CreatedAt:      u.CreatedAt,
		Links:          pagination.EntityLinks(baseURL, "users", u.ID),
	}
}

type userUpdateReq struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	Password       *string `json:"password"`
	FullName       *string `json:"full_name"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

func (h *UserHandler) patchFrom(req userUpdateReq) (repository.UserPatch, error) {
	var p repository.UserPatch
	if req.Username != nil {
		v := strings.TrimSpace(*req.Username)
		if v == "" {
			return p, errors.New("username cannot be empty")
		}
		p.Username = &v
	}
	if req.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Email))
		if v == "" {
			return p, errors.New("email cannot be empty")
		}
		p.Email = &v
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return p, errors.New("password must be at least 8 characters")
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return p, err
		}
		p.HashedPassword = &hash
	}
	p.FullName = req.FullName
	p.Bio = req.Bio
	p.ProfilePictureURL = req.ProfilePicture
	return p, nil
}

// ----- /users/me -----

// Me returns the caller's own profile.
func (h *UserHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, userView(u, h.Cfg.BaseURL))
}

// UpdateMe applies a partial update to the caller's profile. Only fields
// present in the body change; explicit nulls clear nullable fields.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	return h.update(c, currentUserID(c))
}

// CheckProfileCompletion reports whether full name, bio and profile picture
// are all filled in, the precondition for requesting the PRO role.
func (h *UserHandler) CheckProfileCompletion(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"profile_complete": repository.ProfileComplete(u)})
}

// RequestProRole upgrades a regular account to PRO when the profile is
// complete. Admins and managers already outrank PRO and get a no-op message.
func (h *UserHandler) RequestProRole(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	switch u.Role {
	case repository.RoleAdmin, repository.RoleManager:
		return c.JSON(http.StatusOK, echo.Map{"message": "Role unchanged, account already has elevated privileges"})
	case repository.RolePro:
		return c.JSON(http.StatusOK, echo.Map{"message": "Account already has the PRO role"})
	}
	if !repository.ProfileComplete(u) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Profile must be complete (full name, bio and profile picture) before requesting the PRO role"})
	}
	updated, err := h.Users.SetRole(ctx, u.ID, repository.RolePro)
	if err != nil {
		log.Printf("user: set pro role failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Mailer.SendProRoleNotice(u.Email, u.Username); err != nil {
		log.Printf("user: pro role mail to %s failed: %v", u.Email, err)
	}
	return c.JSON(http.StatusOK, userView(updated, h.Cfg.BaseURL))
}

// ----- admin surface -----

type userCreateReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Role     string `json:"role"`
}

// Create inserts a user with a caller-chosen role (admin only). The account
// is created already verified since an administrator vouched for it.
func (h *UserHandler) Create(c echo.Context) error {
	var req userCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = repository.RoleAuthenticated
	}
	switch role {
	case repository.RoleAuthenticated, repository.RoleManager, repository.RoleAdmin, repository.RolePro:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByUsername(ctx, req.Username); err == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists"})
	}
	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already exists"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u := &repository.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hash,
		FullName:       nullStr(req.FullName),
		Bio:            nullStr(req.Bio),
		Role:           role,
		EmailVerified:  true,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists"})
		}
		log.Printf("user: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, userView(u, h.Cfg.BaseURL))
}

// List returns a page of users with navigation links.
func (h *UserHandler) List(c echo.Context) error {
	skip, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	total, err := h.Users.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	items := make([]userResp, 0, len(users))
	for _, u := range users {
		items = append(items, userView(u, h.Cfg.BaseURL))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
		"page":  pagination.Page(skip, limit),
		"pages": pagination.TotalPages(total, limit),
		"links": pagination.Links(h.Cfg.BaseURL+"/users", skip, limit, total),
	})
}

// Get returns one user by id.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, userView(u, h.Cfg.BaseURL))
}

// Update applies a partial update to an arbitrary user (admin only).
func (h *UserHandler) Update(c echo.Context) error {
	return h.update(c, c.Param("id"))
}

func (h *UserHandler) update(c echo.Context, id string) error {
	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch, err := h.patchFrom(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username or email already exists"})
		default:
			log.Printf("user: update %s failed: %v", id, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	return c.JSON(http.StatusOK, userView(u, h.Cfg.BaseURL))
}

// Delete removes a user and everything hanging off the account.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Printf("user: delete failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// SetRole assigns a role directly (admin only).
func (h *UserHandler) SetRole(c echo.Context) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case repository.RoleAuthenticated, repository.RoleManager, repository.RoleAdmin, repository.RolePro:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.SetRole(ctx, c.Param("id"), role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, userView(u, h.Cfg.BaseURL))
}

// Unlock clears the failed-attempt counter and the lock flag (admin only).
func (h *UserHandler) Unlock(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Unlock(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account unlocked"})
}
