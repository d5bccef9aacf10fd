package app

import (
	"context"
	"log"
	"time"

	"swap-rec/internal/config"
	"swap-rec/internal/events"
	"swap-rec/internal/infrastructure/backend"
	"swap-rec/internal/infrastructure/cache"
	"swap-rec/internal/infrastructure/graphdb"
	"swap-rec/internal/repository"
	"swap-rec/internal/usecase"
)

type Container struct {
	Config           config.Config
	Graph            *graphdb.Conn
	Cache            *cache.Redis
	RecommendationUC *usecase.RecommendationService
	Events           *events.Consumer
}

func NewContainer(cfg config.Config, logger *log.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	graphConn, err := graphdb.Connect(ctx, cfg.Neo4j)
	if err != nil {
		return nil, err
	}

	graphRepo := repository.NewNeo4jGraphRepository(graphConn, logger)
	backendClient := backend.NewClient(cfg.Backend.BaseURL, logger)
	responseCache := cache.NewRedis(cfg.Redis, logger)

	recommendationUC := usecase.NewRecommendationUsecase(
		graphRepo,
		backendClient,
		responseCache,
		cfg.App.EnrichMaxInflight,
		logger,
	)

	var consumer *events.Consumer
	if cfg.Events.Enabled {
		consumer = events.NewConsumer(responseCache.Client(), graphRepo, responseCache, logger)
		if consumer == nil && logger != nil {
			logger.Printf("[Events] redis not configured, event consumer disabled")
		}
	}

	return &Container{
		Config:           cfg,
		Graph:            graphConn,
		Cache:            responseCache,
		RecommendationUC: recommendationUC,
		Events:           consumer,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Graph != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.Graph.Close(ctx)
	}
	return nil
}
