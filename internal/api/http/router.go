package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-console/internal/api/http/handlers"
	"github.com/spec-kit/ticket-console/internal/auth"
	"github.com/spec-kit/ticket-console/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Dispatch       *handlers.DispatchHandler
	Board          *handlers.BoardHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle)
	authed.Post("/auth/logout", cfg.Auth.Logout)
	authed.Get("/auth/me", cfg.Auth.Me)

	dispatch := authed.Group("/api/dispatch", auth.RequireRole(domain.RoleDispatcher))
	dispatch.Get("/tickets", cfg.Dispatch.ListTickets)
	dispatch.Post("/tickets/:id/select", cfg.Dispatch.Select)
	dispatch.Put("/selection", cfg.Dispatch.Edit)
	dispatch.Post("/selection/assign", cfg.Dispatch.Assign)
	dispatch.Get("/technicians", cfg.Dispatch.Technicians)

	board := authed.Group("/api/board", auth.RequireRole(domain.RoleTechnician))
	board.Get("/", cfg.Board.View)
	board.Get("/stats", cfg.Board.Stats)
	board.Get("/tickets/:id", cfg.Board.Detail)
	board.Post("/tickets/:id/start", cfg.Board.StartWork)
	board.Post("/tickets/:id/resolve", cfg.Board.Resolve)
	board.Post("/tickets/:id/notes", cfg.Board.AddNote)
}
