package handler

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/utils"
)

// QRHandler serves ad-hoc QR code generation: render a posted URL to a PNG
// on disk, list the rendered files and remove them.
type QRHandler struct {
	Cfg config.Config
}

func NewQRHandler(cfg config.Config) *QRHandler {
	return &QRHandler{Cfg: cfg}
}

type qrGenerateReq struct {
	URL       string `json:"url"`
	Data      string `json:"data"` // legacy alias for url
	Size      int    `json:"size"`
	FillColor string `json:"fill_color"`
	BackColor string `json:"back_color"`
}

// Generate renders the posted url as a QR code PNG under the configured QR
// directory and answers with the created file's path. Size is the module
// pixel size, 1 to 40, defaulting to 10.
func (h *QRHandler) Generate(c echo.Context) error {
	var req qrGenerateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	data := strings.TrimSpace(req.URL)
	if data == "" {
		data = strings.TrimSpace(req.Data)
	}
	if data == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "url is required"})
	}
	if req.Size == 0 {
		req.Size = 10
	}
	if req.Size < 1 || req.Size > 40 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "size must be between 1 and 40"})
	}
	fill := req.FillColor
	if fill == "" {
		fill = h.Cfg.QRFillColor
	}
	back := req.BackColor
	if back == "" {
		back = h.Cfg.QRBackColor
	}
	if _, err := utils.ParseHexColor(fill); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fill_color"})
	}
	if _, err := utils.ParseHexColor(back); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid back_color"})
	}

	name := fmt.Sprintf("qr-%s.png", uuid.New().String())
	path := filepath.Join(h.Cfg.QRDir, name)
	if err := utils.GenerateQRCode(data, path, fill, back, req.Size); err != nil {
		log.Printf("qr: generate failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr generation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "QR code generated successfully",
		"path":    path,
	})
}

// List returns the filenames of all rendered QR codes.
func (h *QRHandler) List(c echo.Context) error {
	entries, err := os.ReadDir(h.Cfg.QRDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusOK, echo.Map{"items": []string{}, "total": 0})
		}
		log.Printf("qr: list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": names, "total": len(names)})
}

// Download streams one rendered QR code back.
func (h *QRHandler) Download(c echo.Context) error {
	name, err := h.safeName(c.Param("filename"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	path := filepath.Join(h.Cfg.QRDir, name)
	if _, err := os.Stat(path); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "qr code not found"})
	}
	return c.File(path)
}

// Delete removes a rendered QR code file.
func (h *QRHandler) Delete(c echo.Context) error {
	name, err := h.safeName(c.Param("filename"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	path := filepath.Join(h.Cfg.QRDir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "qr code not found"})
		}
		log.Printf("qr: delete %s failed: %v", name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// safeName keeps file access inside the QR directory.
func (h *QRHandler) safeName(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid filename")
	}
	if !strings.HasSuffix(name, ".png") {
		return "", fmt.Errorf("only .png files are served")
	}
	return name, nil
}
