// Package router wires every handler to its route and hangs the right
// middleware on each group.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/handler"
	"github.com/evently/evently-backend/internal/middleware"
	"github.com/evently/evently-backend/internal/repository"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Upload       *handler.UploadHandler
	Event        *handler.EventHandler
	Section      *handler.SectionHandler
	Approval     *handler.ApprovalHandler
	Registration *handler.RegistrationHandler
	Review       *handler.ReviewHandler
	Notification *handler.NotificationHandler
	Tag          *handler.TagHandler
	QR           *handler.QRHandler
}

// New builds the echo instance with all routes registered. rdb may be nil,
// in which case caching and rate limiting silently turn off.
func New(cfg config.Config, h Handlers, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	auth := middleware.JWTAuth(cfg.JWTSecret)
	elevatedOnly := middleware.RequireRole(repository.RoleAdmin, repository.RoleManager)
	adminOnly := middleware.RequireRole(repository.RoleAdmin)

	// Public surface. Cached reads, rate-limited auth endpoints.
	e.GET("/health", handler.Health)
	e.POST("/register", h.Auth.Register, limit)
	e.POST("/token", h.Auth.Login, limit)
	e.GET("/verify-email/:user_id/:token", h.Auth.VerifyEmail)
	e.GET("/events", h.Event.ListPublic, cache)
	e.GET("/events/:id", h.Event.Get, cache)
	e.GET("/events/:id/sections", h.Section.ListByEvent, cache)
	e.GET("/events/:id/reviews", h.Review.ListByEvent, cache)
	e.GET("/events/:id/tags", h.Tag.ListByEvent, cache)
	e.GET("/sections/:id", h.Section.Get, cache)
	e.GET("/reviews/:id", h.Review.Get)
	e.GET("/profile-pictures/:user_id/:filename", h.Upload.GetProfilePicture)

	// Everything below needs a bearer token.
	a := e.Group("", auth)

	me := a.Group("/users/me")
	me.GET("", h.User.Me)
	me.PUT("", h.User.UpdateMe)
	me.PATCH("", h.User.UpdateMe)
	me.GET("/check-profile-completion", h.User.CheckProfileCompletion)
	me.POST("/request-pro-role", h.User.RequestProRole)
	me.POST("/upload-profile-picture", h.Upload.ProfilePicture)
	me.GET("/profile-picture", h.Upload.MyProfilePicture)
	me.GET("/registrations", h.Registration.ListMine)
	me.GET("/notifications", h.Notification.ListMine)

	a.PATCH("/notifications/:id/read", h.Notification.MarkRead)
	a.DELETE("/notifications/:id", h.Notification.Delete)

	a.GET("/my/events", h.Event.List)
	a.POST("/events", h.Event.Create)
	a.PATCH("/events/:id", h.Event.Update)
	a.DELETE("/events/:id", h.Event.Delete)
	a.POST("/events/:id/publish", h.Event.Publish)
	a.POST("/events/:id/unpublish", h.Event.Unpublish)
	a.POST("/events/:id/qr", h.Event.GenerateQR)

	a.POST("/events/:id/sections", h.Section.Create)
	a.PATCH("/sections/:id", h.Section.Update)
	a.DELETE("/sections/:id", h.Section.Delete)

	a.POST("/sections/:id/register", h.Registration.Register)
	a.GET("/sections/:id/registrations", h.Registration.ListBySection)
	a.POST("/registrations/:id/attended", h.Registration.MarkAttended)
	a.DELETE("/registrations/:id", h.Registration.Cancel)

	a.POST("/events/:id/reviews", h.Review.Create)
	a.DELETE("/reviews/:id", h.Review.Delete)

	a.POST("/events/:id/tags", h.Tag.Attach)
	a.DELETE("/events/:id/tags/:tag_id", h.Tag.Detach)

	// Ad-hoc QR rendering for any signed-in account.
	a.POST("/generate_qr/", h.QR.Generate)
	a.GET("/qr-codes", h.QR.List)
	a.GET("/qr-codes/:filename", h.QR.Download)
	a.DELETE("/qr-codes/:filename", h.QR.Delete)

	// Approval verdicts need an elevated role.
	mod := a.Group("", elevatedOnly)
	mod.PUT("/events/:id/approval", h.Approval.Decide)
	mod.GET("/events/:id/approval", h.Approval.Get)
	mod.DELETE("/events/:id/approval", h.Approval.Delete)

	// Admin user management.
	admin := a.Group("/users", adminOnly)
	admin.GET("", h.User.List)
	admin.POST("", h.User.Create)
	admin.GET("/:id", h.User.Get)
	admin.PUT("/:id", h.User.Update)
	admin.PATCH("/:id", h.User.Update)
	admin.DELETE("/:id", h.User.Delete)
	admin.PUT("/:id/role", h.User.SetRole)
	admin.POST("/:id/unlock", h.User.Unlock)

	return e
}
