package router

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/handler"
)

func TestRouteTable(t *testing.T) {
	h := Handlers{
		Auth:         &handler.AuthHandler{},
		User:         &handler.UserHandler{},
		Upload:       &handler.UploadHandler{},
		Event:        &handler.EventHandler{},
		Section:      &handler.SectionHandler{},
		Approval:     &handler.ApprovalHandler{},
		Registration: &handler.RegistrationHandler{},
		Review:       &handler.ReviewHandler{},
		Notification: &handler.NotificationHandler{},
		Tag:          &handler.TagHandler{},
		QR:           &handler.QRHandler{},
	}
	e := New(config.Config{JWTSecret: "route-test"}, h, nil)

	mounted := map[string]bool{}
	for _, r := range e.Routes() {
		mounted[fmt.Sprintf("%s %s", r.Method, r.Path)] = true
	}

	want := []string{
		http.MethodPost + " /register",
		http.MethodPost + " /token",
		http.MethodGet + " /events",
		http.MethodPost + " /generate_qr/",
		http.MethodGet + " /qr-codes",
		http.MethodPost + " /users",
		http.MethodPut + " /users/:id",
		http.MethodPatch + " /users/:id",
		http.MethodPut + " /users/:id/role",
		http.MethodPut + " /events/:id/approval",
	}
	for _, w := range want {
		assert.True(t, mounted[w], "route %s is mounted", w)
	}
}
