package handler

import (
	"errors"
	"strconv"

	"swap-rec/internal/delivery/http/dto"
	"swap-rec/internal/delivery/http/middleware"
	"swap-rec/internal/pkg/response"
	"swap-rec/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

const (
	defaultRecommendationLimit = 10
	maxRecommendationLimit     = 100
)

type RecommendationHandler struct {
	uc usecase.RecommendationUsecase
}

func NewRecommendationHandler(uc usecase.RecommendationUsecase) *RecommendationHandler {
	return &RecommendationHandler{uc: uc}
}

func (h *RecommendationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/recommendations")
	grp.Get("/swaps/:userUid", h.GetSwapRecommendations)
	grp.Get("/graph/stats", h.GetGraphStatistics)
}

func (h *RecommendationHandler) GetSwapRecommendations(c fiber.Ctx) error {
	userUID := c.Params("userUid")
	if userUID == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "User UID is required", nil, nil)
	}

	limit := parseQueryInt(c, "limit", defaultRecommendationLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxRecommendationLimit {
		limit = maxRecommendationLimit
	}

	items, err := h.uc.GetSwapRecommendations(c.Context(), userUID, limit)
	if err != nil {
		return mapRecommendationUsecaseError(err)
	}

	out := make([]dto.RecommendationResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.RecommendationResponse{
			User: dto.RecommendedUserResponse{
				UID:            it.User.UID,
				Username:       it.User.Username,
				Email:          it.User.Email,
				ProfilePicture: it.User.ProfilePicture,
				SkillDesired:   it.User.SkillDesired,
				SkillOffered:   it.User.SkillOffered,
			},
			SkillsOffered:       toSkillDetailResponses(it.SkillsOffered),
			SkillsDesired:       toSkillDetailResponses(it.SkillsDesired),
			RecommendationScore: it.RecommendationScore,
			Reason:              it.Reason,
		})
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *RecommendationHandler) GetGraphStatistics(c fiber.Ctx) error {
	stats, err := h.uc.GetGraphStatistics(c.Context())
	if err != nil {
		return mapRecommendationUsecaseError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.GraphStatsResponse{
		Users:  stats.Users,
		Skills: stats.Skills,
		Relationships: dto.RelationshipCountsResponse{
			Owns:    stats.Relationships.Owns,
			Desires: stats.Relationships.Desires,
			Rates:   stats.Relationships.Rates,
			Swapped: stats.Relationships.Swapped,
			Total:   stats.Relationships.Total,
		},
	})
}

func toSkillDetailResponses(items []usecase.SkillDetail) []dto.SkillDetailResponse {
	out := make([]dto.SkillDetailResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.SkillDetailResponse{
			ID: it.ID,
			Skill: dto.SkillRecordResponse{
				ID:          it.Skill.ID,
				Label:       it.Skill.Label,
				Description: it.Skill.Description,
			},
		})
	}
	return out
}

func parseQueryInt(c fiber.Ctx, key string, defaultVal int) int {
	s := c.Query(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func mapRecommendationUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid user UID or limit parameter", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
