package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inventohq/festival-system/handlers"
	"github.com/inventohq/festival-system/middleware"
	"github.com/inventohq/festival-system/models"
)

// SetupRoutes собирает маршрутизатор шлюза. Четыре уровня доступа:
// публичный, любая сессия, admin|master, только master.
func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Auth,
	authHandler *handlers.AuthHandler,
	eventHandler *handlers.EventHandler,
	participantHandler *handlers.ParticipantHandler,
	registrationHandler *handlers.RegistrationHandler,
	dashboardHandler *handlers.DashboardHandler,
	settingsHandler *handlers.SettingsHandler,
	passHandler *handlers.PassHandler,
	exportHandler *handlers.ExportHandler,
	wsHandler *handlers.WebSocketHandler,
	allowedOrigins []string,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Логин-маршруты только для неаутентифицированных.
	router.Group(func(r chi.Router) {
		r.Use(auth.PublicOnly)
		r.Post("/auth/admins/login", authHandler.LoginAdmin)
		r.Post("/auth/volunteers/login", authHandler.LoginVolunteer)
	})

	// Публичные просмотры событий.
	router.Get("/events", eventHandler.List)
	router.Get("/events/{eventID}", eventHandler.GetByID)

	// Live-обновления дашбордов: читают и киоски без сессии.
	router.Get("/ws/dashboard", wsHandler.ServeDashboard)
	router.Get("/ws/events/{eventID}", wsHandler.ServeEvent)

	// Любая аутентифицированная сессия.
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)

		r.Get("/settings/global", settingsHandler.Get)
		r.Get("/passes/mine", passHandler.Issue)

		// Регистрационный воркфлоу.
		r.Route("/registrations/flows", func(r chi.Router) {
			r.Post("/", registrationHandler.Begin)
			r.Get("/{flowID}", registrationHandler.Get)
			r.Put("/{flowID}/team-name", registrationHandler.SetTeamName)
			r.Post("/{flowID}/members", registrationHandler.AddMember)
			r.Delete("/{flowID}/members/{inventoID}", registrationHandler.RemoveMember)
			r.Put("/{flowID}/official", registrationHandler.SetOfficial)
			r.Post("/{flowID}/submit", registrationHandler.Submit)
			r.Post("/{flowID}/payment", registrationHandler.CompletePayment)
			r.Delete("/{flowID}", registrationHandler.Close)
		})
	})

	// Волонтёры-валидаторы и выше.
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(auth.RequireRole(models.RoleVolunteer, models.RoleAdmin, models.RoleMaster))

		r.Post("/passes/validate", passHandler.Validate)
	})

	// Back-office: admin и master.
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(auth.RequireRole(models.RoleAdmin, models.RoleMaster))

		r.Patch("/events/{eventID}", eventHandler.Update)
		r.Post("/events/{eventID}/poster", eventHandler.UploadPoster)

		r.Get("/participants", participantHandler.List)
		r.Patch("/events/{eventID}/participants/{inventoID}/status", participantHandler.UpdateStatus)
		r.Patch("/events/{eventID}/participants/{inventoID}/attendance", participantHandler.UpdateAttendance)
		r.Patch("/events/{eventID}/teams/{teamName}/status", participantHandler.UpdateTeamStatus)
		r.Patch("/events/{eventID}/teams/{teamName}/members/{inventoID}/attendance", participantHandler.UpdateTeamMemberAttendance)

		r.Get("/dashboard/stats", dashboardHandler.Stats)
		r.Get("/dashboard/occupancy", dashboardHandler.Occupancy)
		r.Get("/dashboard/analytics/overview", dashboardHandler.Overview)
		r.Get("/dashboard/analytics/detailed", dashboardHandler.Detailed)
		r.Post("/dashboard/refresh", dashboardHandler.Refresh)

		r.Post("/exports/registrations", exportHandler.ExportRegistrations)
	})

	// Только master.
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(auth.RequireRole(models.RoleMaster))

		r.Put("/settings/global", settingsHandler.Update)
	})
}
