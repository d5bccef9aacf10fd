package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"swap-rec/internal/infrastructure/backend"
	"swap-rec/internal/repository"
)

type mockGraph struct {
	mu sync.Mutex

	level2Result  []repository.Candidate
	desireResult  []repository.Candidate
	popularResult []repository.Candidate
	recentResult  []repository.Candidate

	level2Calls  int
	desireCalls  int
	popularCalls int
	recentCalls  int

	users  map[string]string
	skills map[int64]string
	owns   map[string][]int64
}

func (m *mockGraph) UpsertUser(_ context.Context, user repository.UserNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]string{}
	}
	m.users[user.UID] = user.Name
	return nil
}

func (m *mockGraph) UpsertSkill(_ context.Context, skill repository.SkillNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skills == nil {
		m.skills = map[int64]string{}
	}
	m.skills[skill.ID] = skill.Label
	return nil
}

func (m *mockGraph) CreateOwns(_ context.Context, userUID string, skillID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owns == nil {
		m.owns = map[string][]int64{}
	}
	m.owns[userUID] = append(m.owns[userUID], skillID)
	return nil
}

func (m *mockGraph) RemoveOwns(context.Context, string, int64) error    { return nil }
func (m *mockGraph) CreateDesires(context.Context, string, int64) error { return nil }
func (m *mockGraph) RemoveDesires(context.Context, string, int64) error { return nil }
func (m *mockGraph) CreateRates(context.Context, string, string, repository.RatingProperties) error {
	return nil
}
func (m *mockGraph) CreateSwapped(context.Context, string, string, repository.SwapProperties) error {
	return nil
}

func (m *mockGraph) Level2Recommendations(_ context.Context, _ string, _ int) ([]repository.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level2Calls++
	return m.level2Result, nil
}

func (m *mockGraph) DesireMatchRecommendations(_ context.Context, _ string, _ int) ([]repository.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.desireCalls++
	return m.desireResult, nil
}

func (m *mockGraph) MostPopularUsers(_ context.Context, _ string, _ int) ([]repository.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popularCalls++
	return m.popularResult, nil
}

func (m *mockGraph) UsersByRecency(_ context.Context, userUID string, limit int) ([]repository.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentCalls++
	if m.recentResult != nil {
		return m.recentResult, nil
	}
	// enumerate seeded users other than the requester, uid ascending
	out := []repository.Candidate{}
	uids := make([]string, 0, len(m.users))
	for uid := range m.users {
		if uid != userUID {
			uids = append(uids, uid)
		}
	}
	for i := 0; i < len(uids); i++ {
		for j := i + 1; j < len(uids); j++ {
			if uids[j] < uids[i] {
				uids[i], uids[j] = uids[j], uids[i]
			}
		}
	}
	for _, uid := range uids {
		if len(out) >= limit {
			break
		}
		out = append(out, repository.Candidate{UID: uid, Name: m.users[uid], SkillsOffered: []string{}, SkillsWanted: []string{}})
	}
	return out, nil
}

func (m *mockGraph) Statistics(context.Context) (repository.GraphStatistics, error) {
	return repository.GraphStatistics{}, nil
}

type mockBackend struct {
	mu sync.Mutex

	users   map[string]*backend.User
	all     []backend.User
	offered map[string][]backend.SkillEntry
	desired map[string][]backend.SkillEntry

	allCalls    int
	getCalls    int
	rosterGate  chan struct{}
	rosterEnter chan struct{}
}

func (m *mockBackend) GetUser(_ context.Context, uid string) (*backend.User, error) {
	m.mu.Lock()
	m.getCalls++
	u := m.users[uid]
	m.mu.Unlock()
	if u == nil {
		return nil, backend.ErrNotFound
	}
	return u, nil
}

func (m *mockBackend) GetAllUsers(context.Context) ([]backend.User, error) {
	m.mu.Lock()
	m.allCalls++
	enter := m.rosterEnter
	gate := m.rosterGate
	all := m.all
	m.mu.Unlock()
	if enter != nil {
		close(enter)
	}
	if gate != nil {
		<-gate
	}
	return all, nil
}

func (m *mockBackend) GetSkillsOffered(_ context.Context, uid string) ([]backend.SkillEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offered[uid], nil
}

func (m *mockBackend) GetSkillsDesired(_ context.Context, uid string) ([]backend.SkillEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desired[uid], nil
}

func skillEntry(id int64, rawID, label string) backend.SkillEntry {
	return backend.SkillEntry{
		ID:    id,
		Skill: backend.Skill{ID: json.Number(rawID), Label: label},
	}
}

func TestGetSwapRecommendations_InvalidInput(t *testing.T) {
	uc := NewRecommendationUsecase(&mockGraph{}, &mockBackend{}, nil, 0, nil)

	if _, err := uc.GetSwapRecommendations(context.Background(), "  ", 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank uid, got %v", err)
	}
	if _, err := uc.GetSwapRecommendations(context.Background(), "user_1", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero limit, got %v", err)
	}
}

func TestGetSwapRecommendations_Level2SkipsFallback(t *testing.T) {
	graph := &mockGraph{
		level2Result: []repository.Candidate{
			{UID: "user_c", Name: "C", SkillsOffered: []string{"Guitar"}, SkillsWanted: []string{"Piano"}, Score: 40},
		},
	}
	be := &mockBackend{users: map[string]*backend.User{
		"user_c": {UID: "user_c", Username: "C", Email: "c@example.com"},
	}}
	uc := NewRecommendationUsecase(graph, be, nil, 0, nil)

	out, err := uc.GetSwapRecommendations(context.Background(), "user_u", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out))
	}
	if out[0].User.UID != "user_c" {
		t.Fatalf("unexpected uid %q", out[0].User.UID)
	}
	if out[0].RecommendationScore != 40 {
		t.Fatalf("unexpected score %v", out[0].RecommendationScore)
	}
	if out[0].Reason != ReasonMutualSwapNetwork {
		t.Fatalf("unexpected reason %q", out[0].Reason)
	}
	if graph.desireCalls != 0 || graph.popularCalls != 0 || graph.recentCalls != 0 {
		t.Fatalf("fallback tiers must not run when level 2 has results")
	}
}

func TestGetSwapRecommendations_FallbackOrder(t *testing.T) {
	graph := &mockGraph{
		desireResult: []repository.Candidate{
			{UID: "user_d", Name: "D", SkillsOffered: []string{"Piano"}, SkillsWanted: []string{}, Score: 10},
		},
	}
	be := &mockBackend{users: map[string]*backend.User{
		"user_d": {UID: "user_d", Username: "D", Email: "d@example.com"},
	}}
	uc := NewRecommendationUsecase(graph, be, nil, 0, nil)

	out, err := uc.GetSwapRecommendations(context.Background(), "user_u", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 1 || out[0].User.UID != "user_d" {
		t.Fatalf("expected desire-match candidate, got %+v", out)
	}
	if out[0].Reason != ReasonSkillsPopularity {
		t.Fatalf("unexpected reason %q", out[0].Reason)
	}
	if graph.desireCalls != 1 {
		t.Fatalf("desire-match tier must run once, ran %d times", graph.desireCalls)
	}
	if graph.popularCalls != 0 || graph.recentCalls != 0 {
		t.Fatalf("weaker tiers must not run when desire-match has results")
	}
}

func TestDedupedFallback_MergesUnique(t *testing.T) {
	graph := &mockGraph{
		popularResult: []repository.Candidate{
			{UID: "user_a", Score: 9},
			{UID: "user_u", Score: 8}, // requester, must be excluded
			{UID: "user_b", Score: 7},
		},
		recentResult: []repository.Candidate{
			{UID: "user_a"}, // duplicate, first occurrence wins
			{UID: "user_c"},
		},
	}
	uc := NewRecommendationUsecase(graph, &mockBackend{}, nil, 0, nil)

	out, err := uc.dedupedFallback(context.Background(), "user_u", 10, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := make([]string, 0, len(out))
	seen := map[string]bool{}
	for _, c := range out {
		if seen[c.UID] {
			t.Fatalf("uid %s appears twice", c.UID)
		}
		seen[c.UID] = true
		got = append(got, c.UID)
	}
	if seen["user_u"] {
		t.Fatalf("requester must not appear in merged results")
	}
	if len(got) != 3 || got[0] != "user_a" || got[1] != "user_b" || got[2] != "user_c" {
		t.Fatalf("unexpected merged order %v", got)
	}
	if out[0].Score != 9 {
		t.Fatalf("first occurrence must win, got score %v", out[0].Score)
	}
}

func TestDedupedFallback_RespectsLimitAndExclusions(t *testing.T) {
	graph := &mockGraph{
		popularResult: []repository.Candidate{
			{UID: "user_a"}, {UID: "user_b"}, {UID: "user_c"},
		},
	}
	uc := NewRecommendationUsecase(graph, &mockBackend{}, nil, 0, nil)

	out, err := uc.dedupedFallback(context.Background(), "user_u", 2, []string{"user_a"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 || out[0].UID != "user_b" || out[1].UID != "user_c" {
		t.Fatalf("unexpected result %+v", out)
	}
	if graph.recentCalls != 0 {
		t.Fatalf("recency tier must not run once the limit is filled")
	}
}

func TestSeedGraph_SingleFlight(t *testing.T) {
	graph := &mockGraph{}
	be := &mockBackend{
		all:         []backend.User{{UID: "user_a", Username: "A"}},
		rosterGate:  make(chan struct{}),
		rosterEnter: make(chan struct{}),
	}
	uc := NewRecommendationUsecase(graph, be, nil, 0, nil)

	firstDone := make(chan bool, 1)
	go func() {
		firstDone <- uc.seedGraph(context.Background())
	}()

	// wait until the first flight is inside the roster fetch
	<-be.rosterEnter

	if uc.seedGraph(context.Background()) {
		t.Fatalf("concurrent seed attempt must report not performed")
	}

	close(be.rosterGate)
	if !<-firstDone {
		t.Fatalf("first seed attempt must succeed")
	}

	be.mu.Lock()
	calls := be.allCalls
	be.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one roster fetch, got %d", calls)
	}
}

func TestSeedGraph_SkipsInvalidSkillIDs(t *testing.T) {
	graph := &mockGraph{}
	be := &mockBackend{
		all: []backend.User{{UID: "user_a", Username: "A"}},
		offered: map[string][]backend.SkillEntry{
			"user_a": {
				skillEntry(1, "7", "Guitar"),
				skillEntry(2, "7", "Guitar"), // duplicate skill id
				skillEntry(3, "oops", "Bad"),
				skillEntry(4, "", "Missing"),
			},
		},
	}
	uc := NewRecommendationUsecase(graph, be, nil, 0, nil)

	if !uc.seedGraph(context.Background()) {
		t.Fatalf("seed must succeed")
	}
	if len(graph.skills) != 1 {
		t.Fatalf("expected 1 upserted skill, got %d", len(graph.skills))
	}
	if graph.skills[7] != "Guitar" {
		t.Fatalf("unexpected skill map %v", graph.skills)
	}
	if len(graph.owns["user_a"]) != 2 {
		t.Fatalf("expected 2 OWNS edges (one per valid entry), got %d", len(graph.owns["user_a"]))
	}
}

func TestGetSwapRecommendations_SeedsThenRecency(t *testing.T) {
	graph := &mockGraph{}
	be := &mockBackend{
		all: []backend.User{
			{UID: "user_a", Username: "A"},
			{UID: "user_b", Username: "B"},
			{UID: "user_c", Username: "C"},
		},
		users: map[string]*backend.User{
			"user_a": {UID: "user_a", Username: "A"},
			"user_b": {UID: "user_b", Username: "B"},
			"user_c": {UID: "user_c", Username: "C"},
		},
	}
	uc := NewRecommendationUsecase(graph, be, nil, 0, nil)

	out, err := uc.GetSwapRecommendations(context.Background(), "user_b", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if be.allCalls != 1 {
		t.Fatalf("seeding must have fetched the roster once, got %d", be.allCalls)
	}
	if len(out) != 2 {
		t.Fatalf("expected the 2 other users, got %d", len(out))
	}
	if out[0].User.UID != "user_a" || out[1].User.UID != "user_c" {
		t.Fatalf("expected uid-ascending order, got %s, %s", out[0].User.UID, out[1].User.UID)
	}
	for _, r := range out {
		if r.RecommendationScore != 0 {
			t.Fatalf("recency tier results must score 0, got %v", r.RecommendationScore)
		}
	}
}

func TestGetSwapRecommendations_EmptyAfterSeeding(t *testing.T) {
	graph := &mockGraph{}
	be := &mockBackend{}
	uc := NewRecommendationUsecase(graph, be, nil, 0, nil)

	out, err := uc.GetSwapRecommendations(context.Background(), "user_u", 10)
	if err != nil {
		t.Fatalf("no recommendations is not an error, got %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}

func TestEnrich_DropsUnknownCandidates(t *testing.T) {
	graph := &mockGraph{
		level2Result: []repository.Candidate{
			{UID: "user_a", Score: 50},
			{UID: "user_ghost", Score: 45},
			{UID: "user_b", Score: 40},
		},
	}
	be := &mockBackend{
		users: map[string]*backend.User{
			"user_a": {UID: "user_a", Username: "A"},
			"user_b": {UID: "user_b", Username: "B"},
		},
		offered: map[string][]backend.SkillEntry{
			"user_a": {skillEntry(11, "3", "Guitar")},
		},
	}
	uc := NewRecommendationUsecase(graph, be, nil, 2, nil)

	out, err := uc.GetSwapRecommendations(context.Background(), "user_u", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected ghost candidate dropped, got %d results", len(out))
	}
	if out[0].User.UID != "user_a" || out[1].User.UID != "user_b" {
		t.Fatalf("scored order must be preserved, got %s, %s", out[0].User.UID, out[1].User.UID)
	}
	if len(out[0].SkillsOffered) != 1 || out[0].SkillsOffered[0].Skill.Label != "Guitar" {
		t.Fatalf("expected skill detail for user_a, got %+v", out[0].SkillsOffered)
	}
	if out[0].SkillsOffered[0].Skill.ID != 3 {
		t.Fatalf("expected embedded skill id 3, got %d", out[0].SkillsOffered[0].Skill.ID)
	}
}
