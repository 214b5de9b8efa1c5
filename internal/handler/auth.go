package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/repository"
	"github.com/evently/evently-backend/internal/utils"
)

// AuthHandler bundles dependencies for registration, login and email
// verification.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Mailer MailSender
}

func NewAuthHandler(cfg config.Config, users UserStore, mailer MailSender) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Mailer: mailer}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
}

type loginReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates an account with the AUTHENTICATED role and mails a
// verification link. Duplicate usernames and emails answer 400 with a
// message naming the clashing field.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
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

	ctx, cancel := reqCtx(c)
	defer cancel()

	// Distinguish which unique field clashes before inserting; the insert
	// itself still guards against races via the unique indexes.
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
		Username:          req.Username,
		Email:             req.Email,
		HashedPassword:    hash,
		FullName:          nullStr(req.FullName),
		Bio:               nullStr(req.Bio),
		Role:              repository.RoleAuthenticated,
		VerificationToken: nullStr(uuid.New().String()),
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists"})
		}
		log.Printf("auth: create user failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	if err := h.Mailer.SendVerification(u.Email, u.Username, u.ID, u.VerificationToken.String); err != nil {
		log.Printf("auth: verification mail to %s failed: %v", u.Email, err)
	}

	return c.JSON(http.StatusCreated, userView(u, h.Cfg.BaseURL))
}

// Login implements the OAuth2 password flow at POST /token. Both form
// encoding (username/password fields) and a JSON body are accepted. The
// response carries a bearer access token; expiry is the only invalidation.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		// The login form field doubles as an email for clients that prefer it.
		u, err = h.Users.GetByEmail(ctx, req.Username)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Incorrect username or password."})
		}
		log.Printf("auth: lookup user failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	if u.IsLocked {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Account locked due to too many failed login attempts."})
	}

	if !utils.VerifyPassword(u.HashedPassword, req.Password) {
		after, err := h.Users.RecordLoginFailure(ctx, u.ID, h.Cfg.MaxLoginAttempts)
		if err == nil && after.IsLocked {
			if err := h.Mailer.SendAccountLocked(after.Email, after.Username); err != nil {
				log.Printf("auth: lock mail to %s failed: %v", after.Email, err)
			}
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Incorrect username or password."})
	}

	if err := h.Users.RecordLoginSuccess(ctx, u.ID); err != nil {
		log.Printf("auth: record login failed: %v", err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: access.Token, TokenType: "bearer"})
}

// VerifyEmail confirms an account from the link mailed at registration.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	userID := c.Param("user_id")
	token := c.Param("token")

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.VerifyEmail(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid or expired verification token"})
		}
		log.Printf("auth: verify email failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully"})
}
