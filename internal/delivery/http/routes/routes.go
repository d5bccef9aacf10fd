package routes

import (
	"swap-rec/internal/delivery/http/handler"
	"swap-rec/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health          *handler.HealthHandler
	recommendations *handler.RecommendationHandler
}

func NewRegistry(recommendationUC usecase.RecommendationUsecase) *Registry {
	return &Registry{
		health:          handler.NewHealthHandler(),
		recommendations: handler.NewRecommendationHandler(recommendationUC),
	}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)

	api := app.Group("/api")
	v1 := api.Group("/v1")
	r.recommendations.RegisterRoutes(v1)
}
