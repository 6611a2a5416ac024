package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/taskdeck-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskdeck-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	categoryHandler := api.NewCategoryHandler(app.categoryService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Task endpoints. The static segments register before the
			// {id} routes so chi matches them first.
			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Get("/tasks/search", taskHandler.SearchTasks)
			r.Get("/tasks/stats", taskHandler.GetStats)
			r.Post("/tasks/bulk-update", taskHandler.BulkUpdateTasks)
			r.Post("/tasks/bulk-delete", taskHandler.BulkDeleteTasks)
			r.Post("/tasks/reorder", taskHandler.ReorderTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Patch("/tasks/{id}", taskHandler.UpdateTask)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)
			r.Delete("/tasks/{id}/permanent", taskHandler.HardDeleteTask)

			// Category endpoints
			r.Post("/categories", categoryHandler.CreateCategory)
			r.Get("/categories", categoryHandler.ListCategories)
			r.Get("/categories/{id}", categoryHandler.GetCategory)
			r.Delete("/categories/{id}", categoryHandler.DeleteCategory)
		})
	})

	// Operational endpoints (unauthenticated)
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
