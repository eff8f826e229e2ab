package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flowtls/syncplus/internal/api/http/handlers"
	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Companies      *handlers.CompaniesHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Capability middleware is the outer
// authorization layer; the services re-check the same flags.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/export", auth.RequireCapability(domain.CapExportData), cfg.Tickets.ExportTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", auth.RequireCapability(domain.CapManageTickets), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireCapability(domain.CapDeleteTickets), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)
	tickets.Post("/:id/lock", auth.RequireCapability(domain.CapManageTickets), cfg.Tickets.LockTicket)
	tickets.Post("/:id/unlock", cfg.Tickets.UnlockTicket)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Post("", auth.RequireCapability(domain.CapCreateUsers), cfg.Users.CreateUser)
	users.Get("", auth.RequireCapability(domain.CapCreateUsers), cfg.Users.ListUsers)
	users.Get("/:id", auth.RequireCapability(domain.CapCreateUsers), cfg.Users.GetUser)
	users.Put("/:id", auth.RequireCapability(domain.CapCreateUsers), cfg.Users.UpdateUser)
	users.Post("/:id/reset-password", auth.RequireCapability(domain.CapResetPasswords), cfg.Users.ResetPassword)
	users.Post("/:id/deactivate", auth.RequireCapability(domain.CapDeactivateUsers), cfg.Users.DeactivateUser)
	users.Post("/:id/activate", auth.RequireCapability(domain.CapDeactivateUsers), cfg.Users.ActivateUser)

	companies := app.Group("/companies", cfg.AuthMiddleware.Handle)
	companies.Get("", cfg.Companies.ListCompanies)
	companies.Get("/:company_id", cfg.Companies.GetCompany)
	companies.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Companies.CreateCompany)
	companies.Put("/:company_id", auth.RequireRole(domain.RoleAdmin), cfg.Companies.UpdateCompany)
}
