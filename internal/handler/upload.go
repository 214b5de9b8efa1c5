package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/repository"
	"github.com/evently/evently-backend/internal/storage"
)

// UploadHandler moves profile pictures in and out of object storage.
type UploadHandler struct {
	Cfg   config.Config
	Users UserStore
	Store *storage.Client
}

func NewUploadHandler(cfg config.Config, users UserStore, store *storage.Client) *UploadHandler {
	return &UploadHandler{Cfg: cfg, Users: users, Store: store}
}

// ProfilePicture accepts a multipart "file" field, stores it under
// profile-pictures/<user>/<uuid><ext> and records the resulting URL on the
// caller's profile. Anything that is not image/* is rejected.
func (h *UploadHandler) ProfilePicture(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing file field"})
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only image uploads are accepted"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable upload"})
	}
	defer src.Close()

	userID := currentUserID(c)
	key := fmt.Sprintf("profile-pictures/%s/%s%s", userID, uuid.New().String(), path.Ext(fh.Filename))
	url, err := h.Store.Upload(key, src, contentType)
	if err != nil {
		log.Printf("upload: store %s failed: %v", key, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, userID, repository.UserPatch{ProfilePictureURL: &url})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, userView(u, h.Cfg.BaseURL))
}

// MyProfilePicture streams the caller's own stored picture.
func (h *UploadHandler) MyProfilePicture(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if !u.ProfilePictureURL.Valid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no profile picture set"})
	}

	// The stored value is the object URL; the storage key starts at the
	// profile-pictures/ prefix.
	idx := strings.LastIndex(u.ProfilePictureURL.String, "profile-pictures/")
	if idx < 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no profile picture set"})
	}
	key := u.ProfilePictureURL.String[idx:]

	body, contentType, err := h.Store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "picture not found"})
		}
		log.Printf("upload: fetch %s failed: %v", key, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch failed"})
	}
	defer body.Close()

	return c.Stream(http.StatusOK, contentType, body)
}

// GetProfilePicture streams a stored picture back by key suffix, keeping the
// bucket private while still letting clients fetch images through the API.
func (h *UploadHandler) GetProfilePicture(c echo.Context) error {
	userID := c.Param("user_id")
	filename := c.Param("filename")
	if strings.Contains(filename, "..") || strings.ContainsRune(filename, '/') {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid filename"})
	}

	key := fmt.Sprintf("profile-pictures/%s/%s", userID, filename)
	body, contentType, err := h.Store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "picture not found"})
		}
		log.Printf("upload: fetch %s failed: %v", key, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch failed"})
	}
	defer body.Close()

	return c.Stream(http.StatusOK, contentType, body)
}
