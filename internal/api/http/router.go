package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	UploadDir      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if cfg.UploadDir != "" {
		app.Static("/uploads", cfg.UploadDir)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/admin-login", cfg.Users.AdminLogin)
	authGroup.Post("/send-verify-otp", cfg.Users.SendVerifyOTP)
	authGroup.Post("/verify-account", cfg.Users.VerifyAccount)
	authGroup.Post("/send-reset-otp", cfg.Users.SendResetOTP)
	authGroup.Post("/reset-password", cfg.Users.ResetPassword)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authProtected.Post("/logout", cfg.Users.Logout)
	authProtected.Get("/me", cfg.Users.Me)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/summary", cfg.Tickets.Summary)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id", cfg.Tickets.Update)
	tickets.Patch("/:id/close", cfg.Tickets.Close)
	tickets.Patch("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/reply", cfg.Tickets.Reply)
	tickets.Delete("/:ticketID/messages/:messageID", cfg.Tickets.DeleteMessage)

	users := api.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Get("/by-unit/:unit", cfg.Users.ListByUnit)

	notifications := api.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	notifications.Get("/", cfg.Notifications.List)
	notifications.Patch("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())

	adminTickets := admin.Group("/tickets")
	adminTickets.Get("/", cfg.AdminTickets.List)
	adminTickets.Get("/status-distribution", cfg.AdminTickets.StatusDistribution)
	adminTickets.Get("/type-distribution", cfg.AdminTickets.TypeDistribution)
	adminTickets.Get("/priority-distribution", cfg.AdminTickets.PriorityDistribution)
	adminTickets.Get("/tickets-by-unit", cfg.AdminTickets.TicketsByUnit)
	adminTickets.Get("/avg-resolution-time", cfg.AdminTickets.AvgResolutionTime)
	adminTickets.Get("/assignee-performance", cfg.AdminTickets.AssigneePerformance)
	adminTickets.Get("/trends", cfg.AdminTickets.Trends)
	adminTickets.Get("/recent", cfg.AdminTickets.Recent)
	adminTickets.Get("/activity-logs", cfg.AdminTickets.ActivityLogs)
	adminTickets.Get("/report/download", cfg.AdminTickets.DownloadReport)
	adminTickets.Get("/report/chart", cfg.AdminTickets.ReportChart)
	adminTickets.Post("/:id/reply", cfg.Tickets.Reply)
	adminTickets.Patch("/:id/resolve", cfg.AdminTickets.Resolve)
	adminTickets.Patch("/:id/reassign", cfg.AdminTickets.Reassign)
	adminTickets.Delete("/:ticketID/messages/:messageID", cfg.Tickets.DeleteMessage)
	adminTickets.Delete("/:id", cfg.AdminTickets.Delete)

	adminUsers := admin.Group("/users")
	adminUsers.Get("/", cfg.Users.List)
	adminUsers.Delete("/:id", cfg.Users.Delete)
}
