package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/evently-backend/internal/config"
)

func qrHandlerForTest(t *testing.T) *QRHandler {
	t.Helper()
	return NewQRHandler(config.Config{
		QRDir:       t.TempDir(),
		QRFillColor: "#000000",
		QRBackColor: "#ffffff",
	})
}

func doJSON(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestQRGenerateAndList(t *testing.T) {
	h := qrHandlerForTest(t)
	e := echo.New()

	rec, c := doJSON(e, http.MethodPost, "/generate_qr/", `{"url":"https://example.com","size":10}`)
	require.NoError(t, h.Generate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string `json:"message"`
		Path    string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
	require.True(t, strings.HasPrefix(resp.Path, h.Cfg.QRDir), "path is under the QR directory")
	data, err := os.ReadFile(resp.Path)
	require.NoError(t, err, "path points at a created file")
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"), "created file is a PNG")

	rec, c = doJSON(e, http.MethodGet, "/qr-codes", "")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestQRGenerateLegacyDataField(t *testing.T) {
	h := qrHandlerForTest(t)
	e := echo.New()

	rec, c := doJSON(e, http.MethodPost, "/generate_qr/", `{"data":"https://example.com","size":4}`)
	require.NoError(t, h.Generate(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path"`)
}

func TestQRGenerateValidation(t *testing.T) {
	h := qrHandlerForTest(t)
	e := echo.New()

	cases := []struct {
		name string
		body string
	}{
		{"missing url", `{"size":4}`},
		{"size too small", `{"url":"x","size":-1}`},
		{"size too large", `{"url":"x","size":41}`},
		{"bad color", `{"url":"x","size":4,"fill_color":"red"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, c := doJSON(e, http.MethodPost, "/generate_qr/", tc.body)
			require.NoError(t, h.Generate(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQRDeleteLifecycle(t *testing.T) {
	h := qrHandlerForTest(t)
	e := echo.New()

	rec, c := doJSON(e, http.MethodPost, "/generate_qr/", `{"url":"x","size":2}`)
	require.NoError(t, h.Generate(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = doJSON(e, http.MethodGet, "/qr-codes", "")
	require.NoError(t, h.List(c))
	var listed struct {
		Items []string `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	name := listed.Items[0]

	rec, c = doJSON(e, http.MethodDelete, "/qr-codes/"+name, "")
	c.SetParamNames("filename")
	c.SetParamValues(name)
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, c = doJSON(e, http.MethodDelete, "/qr-codes/"+name, "")
	c.SetParamNames("filename")
	c.SetParamValues(name)
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code, "second delete finds nothing")
}

func TestQRFilenameTraversalBlocked(t *testing.T) {
	h := qrHandlerForTest(t)
	e := echo.New()

	for _, name := range []string{"../secret.png", "a/b.png", "code.txt", ""} {
		rec, c := doJSON(e, http.MethodDelete, "/qr-codes/x", "")
		c.SetParamNames("filename")
		c.SetParamValues(name)
		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "name %q must be rejected", name)
	}
}
