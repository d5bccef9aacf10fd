package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"swap-rec/internal/infrastructure/backend"
	"swap-rec/internal/repository"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

const (
	ReasonMutualSwapNetwork = "recommended via mutual swap network"
	ReasonSkillsPopularity  = "recommended via available skills and popularity"

	swapsCacheTTL = 60 * time.Second
	statsCacheTTL = 30 * time.Second
)

type provenance string

const (
	provenanceLevel2   provenance = "level2"
	provenanceFallback provenance = "fallback"
)

type RecommendedUser struct {
	UID            string   `json:"uid"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	SkillDesired   []string `json:"skillDesired,omitempty"`
	SkillOffered   []string `json:"skillOffered,omitempty"`
}

type SkillRecord struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type SkillDetail struct {
	ID    int64       `json:"id"`
	Skill SkillRecord `json:"skill"`
}

type Recommendation struct {
	User                RecommendedUser `json:"user"`
	SkillsOffered       []SkillDetail   `json:"skillsOffered"`
	SkillsDesired       []SkillDetail   `json:"skillsDesired"`
	RecommendationScore float64         `json:"recommendationScore"`
	Reason              string          `json:"reason"`
}

// RecommendationCache is what the usecase needs from the response cache.
type RecommendationCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type RecommendationUsecase interface {
	GetSwapRecommendations(ctx context.Context, userUID string, limit int) ([]Recommendation, error)
	GetGraphStatistics(ctx context.Context) (repository.GraphStatistics, error)
}

type RecommendationService struct {
	graph   repository.GraphRepository
	backend backend.Client
	cache   RecommendationCache
	logger  *log.Logger

	// max in-flight enrichment lookups; 0 means unbounded
	enrichMaxInflight int

	seeding atomic.Bool
}

func NewRecommendationUsecase(
	graph repository.GraphRepository,
	backendClient backend.Client,
	cache RecommendationCache,
	enrichMaxInflight int,
	logger *log.Logger,
) *RecommendationService {
	return &RecommendationService{
		graph:             graph,
		backend:           backendClient,
		cache:             cache,
		logger:            logger,
		enrichMaxInflight: enrichMaxInflight,
	}
}

func (u *RecommendationService) GetSwapRecommendations(ctx context.Context, userUID string, limit int) ([]Recommendation, error) {
	userUID = strings.TrimSpace(userUID)
	if userUID == "" || limit <= 0 {
		return nil, ErrInvalidInput
	}

	cacheKey := fmt.Sprintf("rec:swaps:%s:%d", userUID, limit)
	if u.cache != nil {
		var cached []Recommendation
		if ok, _ := u.cache.GetJSON(ctx, cacheKey, &cached); ok {
			return cached, nil
		}
	}

	candidates, err := u.graph.Level2Recommendations(ctx, userUID, limit)
	if err != nil {
		return nil, err
	}
	prov := provenanceLevel2

	if len(candidates) == 0 {
		u.logf("[Recommendations] no level 2 results for user %s, trying fallback chain", userUID)
		candidates, err = u.fallbackChain(ctx, userUID, limit)
		if err != nil {
			return nil, err
		}
		prov = provenanceFallback
	}

	if len(candidates) == 0 {
		if u.seedGraph(ctx) {
			u.logf("[Recommendations] graph seeded from backend, recomputing for user %s", userUID)
			candidates, err = u.fallbackChain(ctx, userUID, limit)
			if err != nil {
				return nil, err
			}
			prov = provenanceFallback
		}
	}

	if len(candidates) == 0 {
		u.logf("[Recommendations] nothing available for user %s after fallback and seeding", userUID)
		return []Recommendation{}, nil
	}

	out := u.enrich(ctx, candidates, prov)

	if u.cache != nil {
		_ = u.cache.SetJSON(ctx, cacheKey, out, swapsCacheTTL)
	}
	return out, nil
}

// fallbackChain runs the desire-match tier first; when that comes up empty it
// accumulates unique candidates from the popularity and recency tiers.
func (u *RecommendationService) fallbackChain(ctx context.Context, userUID string, limit int) ([]repository.Candidate, error) {
	candidates, err := u.graph.DesireMatchRecommendations(ctx, userUID, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates, nil
	}
	return u.dedupedFallback(ctx, userUID, limit, nil)
}

// dedupedFallback merges the popularity and recency tiers into a unique list,
// first occurrence wins. The requester and any explicitly excluded uids never
// appear.
func (u *RecommendationService) dedupedFallback(ctx context.Context, userUID string, limit int, excludeUIDs []string) ([]repository.Candidate, error) {
	if limit <= 0 {
		return []repository.Candidate{}, nil
	}

	exclude := map[string]bool{userUID: true}
	for _, uid := range excludeUIDs {
		if uid != "" {
			exclude[uid] = true
		}
	}

	unique := make([]repository.Candidate, 0, limit)
	addUnique := func(items []repository.Candidate) {
		for _, it := range items {
			if it.UID == "" || exclude[it.UID] {
				continue
			}
			unique = append(unique, it)
			exclude[it.UID] = true
			if len(unique) >= limit {
				break
			}
		}
	}

	popular, err := u.graph.MostPopularUsers(ctx, userUID, limit+len(exclude))
	if err != nil {
		return nil, err
	}
	addUnique(popular)

	if len(unique) < limit {
		recent, err := u.graph.UsersByRecency(ctx, userUID, limit+len(exclude))
		if err != nil {
			return nil, err
		}
		addUnique(recent)
	}

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique, nil
}

// seedGraph repopulates the graph from the system of record. A single flight
// runs at a time; a concurrent call reports false without touching the
// backend. Per-user failures are logged and skipped so one bad record cannot
// starve the rest of the roster.
func (u *RecommendationService) seedGraph(ctx context.Context) bool {
	if !u.seeding.CompareAndSwap(false, true) {
		u.logf("[Seeder] seeding already in progress, skipping concurrent attempt")
		return false
	}
	defer u.seeding.Store(false)

	users, err := u.backend.GetAllUsers(ctx)
	if err != nil {
		u.logf("[Seeder] roster fetch failed: %v", err)
		return false
	}
	if len(users) == 0 {
		u.logf("[Seeder] backend returned no users, seeding skipped")
		return false
	}

	for _, user := range users {
		if err := u.graph.UpsertUser(ctx, repository.UserNode{UID: user.UID, Name: user.Username}); err != nil {
			u.logf("[Seeder] user %s upsert failed: %v", user.UID, err)
			continue
		}

		var offered, desired []backend.SkillEntry
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			offered, err = u.backend.GetSkillsOffered(gctx, user.UID)
			return err
		})
		g.Go(func() error {
			var err error
			desired, err = u.backend.GetSkillsDesired(gctx, user.UID)
			return err
		})
		if err := g.Wait(); err != nil {
			u.logf("[Seeder] skill fetch failed for user %s: %v", user.UID, err)
			continue
		}

		u.seedSkillsForUser(ctx, user.UID, offered, desired)
	}

	u.logf("[Seeder] graph seeded with %d users from backend", len(users))
	return true
}

func (u *RecommendationService) seedSkillsForUser(ctx context.Context, userUID string, offered, desired []backend.SkillEntry) {
	relate := func(entries []backend.SkillEntry, link func(context.Context, string, int64) error) {
		seen := map[int64]bool{}
		for _, entry := range entries {
			skillID, ok := parseSkillID(entry.Skill.ID.String())
			if !ok {
				continue
			}
			if !seen[skillID] {
				seen[skillID] = true
				label := entry.Skill.Label
				if label == "" {
					label = fmt.Sprintf("Skill %d", skillID)
				}
				if err := u.graph.UpsertSkill(ctx, repository.SkillNode{
					ID:          skillID,
					Label:       label,
					Description: entry.Skill.Description,
				}); err != nil {
					u.logf("[Seeder] skill %d upsert failed: %v", skillID, err)
					continue
				}
			}
			if err := link(ctx, userUID, skillID); err != nil {
				u.logf("[Seeder] relating user %s to skill %d failed: %v", userUID, skillID, err)
			}
		}
	}

	relate(offered, u.graph.CreateOwns)
	relate(desired, u.graph.CreateDesires)
}

// enrich resolves every candidate against the system of record. A candidate
// whose profile lookup fails is dropped; skill detail failures degrade to an
// empty list. Output preserves the scored order.
func (u *RecommendationService) enrich(ctx context.Context, candidates []repository.Candidate, prov provenance) []Recommendation {
	reason := ReasonSkillsPopularity
	if prov == provenanceLevel2 {
		reason = ReasonMutualSwapNetwork
	}

	results := make([]*Recommendation, len(candidates))
	g := new(errgroup.Group)
	if u.enrichMaxInflight > 0 {
		g.SetLimit(u.enrichMaxInflight)
	}

	for i, cand := range candidates {
		g.Go(func() error {
			user, err := u.backend.GetUser(ctx, cand.UID)
			if err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					u.logf("[Recommendations] user %s not found in backend, dropping candidate", cand.UID)
				} else {
					u.logf("[Recommendations] profile fetch failed for %s, dropping candidate: %v", cand.UID, err)
				}
				return nil
			}

			var offered, desired []backend.SkillEntry
			sg := new(errgroup.Group)
			sg.Go(func() error {
				var err error
				offered, err = u.backend.GetSkillsOffered(ctx, cand.UID)
				return err
			})
			sg.Go(func() error {
				var err error
				desired, err = u.backend.GetSkillsDesired(ctx, cand.UID)
				return err
			})
			if err := sg.Wait(); err != nil {
				u.logf("[Recommendations] skill detail fetch failed for %s: %v", cand.UID, err)
				offered, desired = nil, nil
			}

			results[i] = &Recommendation{
				User: RecommendedUser{
					UID:            user.UID,
					Username:       user.Username,
					Email:          user.Email,
					ProfilePicture: user.ProfilePicture,
					SkillDesired:   user.SkillDesired,
					SkillOffered:   user.SkillOffered,
				},
				SkillsOffered:       toSkillDetails(offered),
				SkillsDesired:       toSkillDetails(desired),
				RecommendationScore: cand.Score,
				Reason:              reason,
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Recommendation, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (u *RecommendationService) GetGraphStatistics(ctx context.Context) (repository.GraphStatistics, error) {
	if u.cache != nil {
		var cached repository.GraphStatistics
		if ok, _ := u.cache.GetJSON(ctx, "rec:graph:stats", &cached); ok {
			return cached, nil
		}
	}

	stats, err := u.graph.Statistics(ctx)
	if err != nil {
		return repository.GraphStatistics{}, err
	}

	if u.cache != nil {
		_ = u.cache.SetJSON(ctx, "rec:graph:stats", stats, statsCacheTTL)
	}
	return stats, nil
}

func (u *RecommendationService) logf(format string, args ...any) {
	if u.logger != nil {
		u.logger.Printf(format, args...)
	}
}

func toSkillDetails(entries []backend.SkillEntry) []SkillDetail {
	out := make([]SkillDetail, 0, len(entries))
	for _, entry := range entries {
		skillID, _ := parseSkillID(entry.Skill.ID.String())
		out = append(out, SkillDetail{
			ID: entry.ID,
			Skill: SkillRecord{
				ID:          skillID,
				Label:       entry.Skill.Label,
				Description: entry.Skill.Description,
			},
		})
	}
	return out
}

func parseSkillID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

var _ RecommendationUsecase = (*RecommendationService)(nil)
