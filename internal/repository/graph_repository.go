package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"swap-rec/internal/infrastructure/graphdb"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	ErrStoreUnavailable = errors.New("graph store unavailable")
	ErrStoreQuery       = errors.New("graph store query error")
)

// Scoring weights for the two-hop traversal tier.
const (
	WeightConnectionStrength = 20
	WeightSkillsOffered      = 5
	WeightMatchingDesires    = 15
	WeightAvgRating          = 3
	WeightRatingCount        = 2
)

// Scoring weights for the desire-match fallback tier.
const (
	FallbackWeightMatchingSkills  = 10
	FallbackWeightAvgRating       = 2
	FallbackWeightSuccessfulSwaps = 5
)

// Scoring weights for the popularity fallback tier.
const (
	PopularityWeightAvgRating       = 2
	PopularityWeightRatingCount     = 1
	PopularityWeightSuccessfulSwaps = 3
)

type UserNode struct {
	UID  string
	Name string
}

type SkillNode struct {
	ID          int64
	Label       string
	Description string
}

type RatingProperties struct {
	Rating float64
	Review string
}

type SwapProperties struct {
	Timestamp time.Time
	Success   bool
}

// Candidate is one scored row returned by a recommendation query.
type Candidate struct {
	UID           string
	Name          string
	SkillsOffered []string
	SkillsWanted  []string
	Score         float64
}

type RelationshipCounts struct {
	Owns    int64 `json:"owns"`
	Desires int64 `json:"desires"`
	Rates   int64 `json:"rates"`
	Swapped int64 `json:"swapped"`
	Total   int64 `json:"total"`
}

type GraphStatistics struct {
	Users         int64              `json:"users"`
	Skills        int64              `json:"skills"`
	Relationships RelationshipCounts `json:"relationships"`
}

type GraphRepository interface {
	UpsertUser(ctx context.Context, user UserNode) error
	UpsertSkill(ctx context.Context, skill SkillNode) error
	CreateOwns(ctx context.Context, userUID string, skillID int64) error
	RemoveOwns(ctx context.Context, userUID string, skillID int64) error
	CreateDesires(ctx context.Context, userUID string, skillID int64) error
	RemoveDesires(ctx context.Context, userUID string, skillID int64) error
	CreateRates(ctx context.Context, reviewerUID, reviewedUID string, props RatingProperties) error
	CreateSwapped(ctx context.Context, userUID1, userUID2 string, props SwapProperties) error

	Level2Recommendations(ctx context.Context, userUID string, limit int) ([]Candidate, error)
	DesireMatchRecommendations(ctx context.Context, userUID string, limit int) ([]Candidate, error)
	MostPopularUsers(ctx context.Context, userUID string, limit int) ([]Candidate, error)
	UsersByRecency(ctx context.Context, userUID string, limit int) ([]Candidate, error)

	Statistics(ctx context.Context) (GraphStatistics, error)
}

type neo4jGraphRepository struct {
	conn   *graphdb.Conn
	logger *log.Logger
}

func NewNeo4jGraphRepository(conn *graphdb.Conn, logger *log.Logger) GraphRepository {
	return &neo4jGraphRepository{conn: conn, logger: logger}
}

func (r *neo4jGraphRepository) UpsertUser(ctx context.Context, user UserNode) error {
	query := `
		MERGE (u:User {uid: $uid})
		SET u.name = $name
	`
	return r.write(ctx, query, map[string]any{
		"uid":  user.UID,
		"name": user.Name,
	})
}

func (r *neo4jGraphRepository) UpsertSkill(ctx context.Context, skill SkillNode) error {
	query := `
		MERGE (s:Skill {id: $id})
		SET s.label = $label,
		    s.description = $description
	`
	return r.write(ctx, query, map[string]any{
		"id":          skill.ID,
		"label":       skill.Label,
		"description": skill.Description,
	})
}

func (r *neo4jGraphRepository) CreateOwns(ctx context.Context, userUID string, skillID int64) error {
	query := `
		MATCH (u:User {uid: $userUid})
		MATCH (s:Skill {id: $skillId})
		MERGE (u)-[r:OWNS]->(s)
	`
	return r.write(ctx, query, map[string]any{"userUid": userUID, "skillId": skillID})
}

func (r *neo4jGraphRepository) RemoveOwns(ctx context.Context, userUID string, skillID int64) error {
	query := `
		MATCH (u:User {uid: $userUid})-[r:OWNS]->(s:Skill {id: $skillId})
		DELETE r
	`
	return r.write(ctx, query, map[string]any{"userUid": userUID, "skillId": skillID})
}

func (r *neo4jGraphRepository) CreateDesires(ctx context.Context, userUID string, skillID int64) error {
	query := `
		MATCH (u:User {uid: $userUid})
		MATCH (s:Skill {id: $skillId})
		MERGE (u)-[r:DESIRES]->(s)
	`
	return r.write(ctx, query, map[string]any{"userUid": userUID, "skillId": skillID})
}

func (r *neo4jGraphRepository) RemoveDesires(ctx context.Context, userUID string, skillID int64) error {
	query := `
		MATCH (u:User {uid: $userUid})-[r:DESIRES]->(s:Skill {id: $skillId})
		DELETE r
	`
	return r.write(ctx, query, map[string]any{"userUid": userUID, "skillId": skillID})
}

// CreateRates keeps a single merged edge per reviewer/reviewed pair; each call
// overwrites rating, review and timestamp. Timestamp is server-assigned.
func (r *neo4jGraphRepository) CreateRates(ctx context.Context, reviewerUID, reviewedUID string, props RatingProperties) error {
	query := `
		MERGE (reviewer:User {uid: $reviewerUid})
		MERGE (reviewed:User {uid: $reviewedUid})
		MERGE (reviewer)-[r:RATES]->(reviewed)
		SET r.rating = $rating,
		    r.review = $review,
		    r.timestamp = datetime()
	`
	return r.write(ctx, query, map[string]any{
		"reviewerUid": reviewerUID,
		"reviewedUid": reviewedUID,
		"rating":      props.Rating,
		"review":      props.Review,
	})
}

func (r *neo4jGraphRepository) CreateSwapped(ctx context.Context, userUID1, userUID2 string, props SwapProperties) error {
	query := `
		MERGE (u1:User {uid: $userUid1})
		MERGE (u2:User {uid: $userUid2})
		MERGE (u1)-[r:SWAPPED_WITH]->(u2)
		SET r.timestamp = $timestamp,
		    r.success = $success
	`
	return r.write(ctx, query, map[string]any{
		"userUid1":  userUID1,
		"userUid2":  userUID2,
		"timestamp": props.Timestamp.UTC().Format(time.RFC3339),
		"success":   props.Success,
	})
}

// Level2Recommendations walks the swap graph two hops out: users who swapped
// with the users the requester swapped with. Candidates already known to the
// requester are excluded. Everything needed to score a candidate is gathered
// in one pass.
func (r *neo4jGraphRepository) Level2Recommendations(ctx context.Context, userUID string, limit int) ([]Candidate, error) {
	query := `
		MATCH (u:User {uid: $userUid})-[swap1:SWAPPED_WITH]->(level1User:User)
		WHERE swap1.success = true

		MATCH (level1User)-[swap2:SWAPPED_WITH]->(level2User:User)
		WHERE swap2.success = true
		  AND level2User.uid <> u.uid
		  AND NOT (u)-[:SWAPPED_WITH]->(level2User)

		OPTIONAL MATCH (level2User)-[:OWNS]->(skill:Skill)

		OPTIONAL MATCH (level2User)-[:DESIRES]->(desiredSkill:Skill)
		WHERE (u)-[:OWNS]->(desiredSkill)

		WITH u, level2User,
		     collect(DISTINCT skill.label) as skillsTheyOffer,
		     collect(DISTINCT desiredSkill.label) as skillsTheyWant,
		     count(DISTINCT skill) as skillsCount,
		     count(DISTINCT desiredSkill) as matchingDesires,
		     count(DISTINCT level1User) as connectionStrength

		OPTIONAL MATCH (rater:User)-[r:RATES]->(level2User)
		WITH level2User, skillsTheyOffer, skillsTheyWant,
		     skillsCount, matchingDesires, connectionStrength,
		     avg(r.rating) as avgRating, count(r) as ratingCount

		WITH level2User, skillsTheyOffer, skillsTheyWant,
		     connectionStrength * %d +
		     skillsCount * %d +
		     matchingDesires * %d +
		     coalesce(avgRating, 0) * %d +
		     coalesce(ratingCount, 0) * %d as score

		ORDER BY score DESC
		LIMIT $limit

		RETURN level2User.uid as recommendedUserUid,
		       level2User.name as recommendedUserName,
		       skillsTheyOffer,
		       skillsTheyWant,
		       score
	`
	query = fmt.Sprintf(query,
		WeightConnectionStrength,
		WeightSkillsOffered,
		WeightMatchingDesires,
		WeightAvgRating,
		WeightRatingCount,
	)
	return r.queryCandidates(ctx, query, map[string]any{"userUid": userUID, "limit": limit})
}

// DesireMatchRecommendations finds users who own a skill the requester
// desires, ignoring the swap network entirely.
func (r *neo4jGraphRepository) DesireMatchRecommendations(ctx context.Context, userUID string, limit int) ([]Candidate, error) {
	query := `
		MATCH (u:User {uid: $userUid})-[:DESIRES]->(desiredSkill:Skill)
		MATCH (otherUser:User)-[:OWNS]->(desiredSkill)
		WHERE otherUser.uid <> u.uid

		OPTIONAL MATCH (otherUser)-[:DESIRES]->(otherDesiredSkill:Skill)
		WHERE (u)-[:OWNS]->(otherDesiredSkill)

		WITH u, otherUser, desiredSkill, otherDesiredSkill,
		     count(otherDesiredSkill) as matchingSkills

		OPTIONAL MATCH (rater:User)-[rr:RATES]->(otherUser)
		WITH u, otherUser, desiredSkill, otherDesiredSkill, matchingSkills,
		     avg(rr.rating) as avgRating

		OPTIONAL MATCH (u)-[swap:SWAPPED_WITH]->(otherUser)
		WHERE swap.success = true
		WITH u, otherUser, desiredSkill, otherDesiredSkill, matchingSkills, avgRating,
		     count(swap) as successfulSwaps

		WITH otherUser, desiredSkill, otherDesiredSkill,
		     (matchingSkills * %d + coalesce(avgRating, 0) * %d + coalesce(successfulSwaps, 0) * %d) as score

		ORDER BY score DESC
		LIMIT $limit

		RETURN otherUser.uid as recommendedUserUid,
		       otherUser.name as recommendedUserName,
		       collect(DISTINCT desiredSkill.label) as skillsTheyOffer,
		       collect(DISTINCT otherDesiredSkill.label) as skillsTheyWant,
		       score
	`
	query = fmt.Sprintf(query,
		FallbackWeightMatchingSkills,
		FallbackWeightAvgRating,
		FallbackWeightSuccessfulSwaps,
	)
	return r.queryCandidates(ctx, query, map[string]any{"userUid": userUID, "limit": limit})
}

// MostPopularUsers ranks every other user by ratings and successful swaps.
// Ties break on uid so the ordering is stable.
func (r *neo4jGraphRepository) MostPopularUsers(ctx context.Context, userUID string, limit int) ([]Candidate, error) {
	query := `
		MATCH (u:User {uid: $userUid})
		MATCH (otherUser:User)
		WHERE otherUser.uid <> u.uid

		OPTIONAL MATCH (rater:User)-[rr:RATES]->(otherUser)
		WITH u, otherUser, avg(rr.rating) as avgRating, count(rr) as ratingCount

		OPTIONAL MATCH (otherUser)-[swap:SWAPPED_WITH]->(anyUser:User)
		WHERE swap.success = true
		WITH u, otherUser, avgRating, ratingCount, count(swap) as successfulSwaps

		OPTIONAL MATCH (otherUser)-[:OWNS]->(skill:Skill)

		WITH otherUser, avgRating, ratingCount, successfulSwaps,
		     collect(DISTINCT skill.label) as skillsTheyOffer

		WITH otherUser, skillsTheyOffer,
		     coalesce(avgRating, 0) * %d + coalesce(ratingCount, 0) * %d + coalesce(successfulSwaps, 0) * %d as popularityScore

		ORDER BY popularityScore DESC, otherUser.uid
		LIMIT $limit

		RETURN otherUser.uid as recommendedUserUid,
		       otherUser.name as recommendedUserName,
		       skillsTheyOffer,
		       [] as skillsTheyWant,
		       popularityScore as score
	`
	query = fmt.Sprintf(query,
		PopularityWeightAvgRating,
		PopularityWeightRatingCount,
		PopularityWeightSuccessfulSwaps,
	)
	return r.queryCandidates(ctx, query, map[string]any{"userUid": userUID, "limit": limit})
}

// UsersByRecency is the last-resort enumeration: every other user ordered by
// uid, score zero.
func (r *neo4jGraphRepository) UsersByRecency(ctx context.Context, userUID string, limit int) ([]Candidate, error) {
	query := `
		MATCH (u:User {uid: $userUid})
		MATCH (otherUser:User)
		WHERE otherUser.uid <> u.uid

		OPTIONAL MATCH (otherUser)-[:OWNS]->(skill:Skill)

		WITH otherUser, collect(DISTINCT skill.label) as skillsTheyOffer

		ORDER BY otherUser.uid
		LIMIT $limit

		RETURN otherUser.uid as recommendedUserUid,
		       otherUser.name as recommendedUserName,
		       skillsTheyOffer,
		       [] as skillsTheyWant,
		       0 as score
	`
	return r.queryCandidates(ctx, query, map[string]any{"userUid": userUID, "limit": limit})
}

func (r *neo4jGraphRepository) Statistics(ctx context.Context) (GraphStatistics, error) {
	query := `
		OPTIONAL MATCH (u:User)
		WITH count(u) as userCount
		OPTIONAL MATCH (s:Skill)
		WITH userCount, count(s) as skillCount
		OPTIONAL MATCH ()-[r:OWNS]->()
		WITH userCount, skillCount, count(r) as ownsCount
		OPTIONAL MATCH ()-[r:DESIRES]->()
		WITH userCount, skillCount, ownsCount, count(r) as desiresCount
		OPTIONAL MATCH ()-[r:RATES]->()
		WITH userCount, skillCount, ownsCount, desiresCount, count(r) as ratesCount
		OPTIONAL MATCH ()-[r:SWAPPED_WITH]->()
		RETURN userCount, skillCount, ownsCount, desiresCount, ratesCount, count(r) as swappedCount
	`
	rows, err := r.read(ctx, query, nil)
	if err != nil {
		return GraphStatistics{}, err
	}
	if len(rows) == 0 {
		return GraphStatistics{}, nil
	}
	return mapStatisticsRow(rows[0]), nil
}

func (r *neo4jGraphRepository) write(ctx context.Context, query string, params map[string]any) error {
	if err := r.conn.ExecuteWrite(ctx, query, params); err != nil {
		return r.classify(err)
	}
	return nil
}

func (r *neo4jGraphRepository) read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := r.conn.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, r.classify(err)
	}
	return rows, nil
}

func (r *neo4jGraphRepository) queryCandidates(ctx context.Context, query string, params map[string]any) ([]Candidate, error) {
	rows, err := r.read(ctx, query, params)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapCandidateRow(row))
	}
	return out, nil
}

func (r *neo4jGraphRepository) classify(err error) error {
	if err == nil {
		return nil
	}
	var ne *neo4j.Neo4jError
	if errors.As(err, &ne) && strings.HasPrefix(ne.Code, "Neo.ClientError") {
		return fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	if r.logger != nil {
		r.logger.Printf("[Graph] store error: %v", err)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

var _ GraphRepository = (*neo4jGraphRepository)(nil)
