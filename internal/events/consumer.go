package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"swap-rec/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Invalidator drops cached responses after a graph mutation.
type Invalidator interface {
	InvalidateRecommendations(ctx context.Context) error
}

// Consumer subscribes to the backend's domain event channels and applies each
// event to the graph. Mutations are upserts, so redelivery is harmless.
type Consumer struct {
	client *redis.Client
	graph  repository.GraphRepository
	cache  Invalidator
	logger *log.Logger
}

func NewConsumer(client *redis.Client, graph repository.GraphRepository, cache Invalidator, logger *log.Logger) *Consumer {
	if client == nil {
		return nil
	}
	return &Consumer{client: client, graph: graph, cache: cache, logger: logger}
}

// Run blocks until ctx is cancelled. A failed event is logged and skipped;
// retries belong to the delivery layer, not here.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	sub := c.client.Subscribe(ctx, ChannelSkill, ChannelFeedback, ChannelSwapProposal)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to event channels: %w", err)
	}

	c.logf("[Events] listening on %s, %s, %s", ChannelSkill, ChannelFeedback, ChannelSwapProposal)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			raw := []byte(msg.Payload)
			if err := c.Dispatch(ctx, msg.Channel, raw); err != nil {
				c.logf("[Events] %s event %s: %v", msg.Channel, eventIDFrom(raw), err)
				continue
			}
			if c.cache != nil {
				_ = c.cache.InvalidateRecommendations(ctx)
			}
		}
	}
}

// Dispatch applies one raw event from the named channel.
func (c *Consumer) Dispatch(ctx context.Context, channel string, raw []byte) error {
	switch channel {
	case ChannelSkill:
		return c.handleSkillEvent(ctx, raw)
	case ChannelFeedback:
		return c.handleFeedbackEvent(ctx, raw)
	case ChannelSwapProposal:
		return c.handleSwapProposalEvent(ctx, raw)
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

func (c *Consumer) handleSkillEvent(ctx context.Context, raw []byte) error {
	payload, eventType := unwrap(raw, "Create")
	if eventType != "Create" && eventType != "Update" {
		return nil
	}

	var evt SkillEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("decoding skill event: %w", err)
	}

	if err := c.graph.UpsertSkill(ctx, repository.SkillNode{
		ID:          evt.ID,
		Label:       evt.Label,
		Description: evt.Description,
	}); err != nil {
		return err
	}
	c.logf("[Events] skill %q synced", evt.Label)
	return nil
}

func (c *Consumer) handleFeedbackEvent(ctx context.Context, raw []byte) error {
	payload, eventType := unwrap(raw, "Rate")
	if eventType != "Rate" {
		return nil
	}

	var evt FeedbackEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("decoding feedback event: %w", err)
	}

	if err := c.graph.CreateRates(ctx, evt.ReviewerUID, evt.ReviewedUID, repository.RatingProperties{
		Rating: evt.Rating,
		Review: evt.Review,
	}); err != nil {
		return err
	}
	c.logf("[Events] rating recorded %s -> %s", evt.ReviewerUID, evt.ReviewedUID)
	return nil
}

func (c *Consumer) handleSwapProposalEvent(ctx context.Context, raw []byte) error {
	payload, eventType := unwrap(raw, "Swapped")
	if eventType != "Swapped" {
		return nil
	}

	var evt SwapProposalEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("decoding swap proposal event: %w", err)
	}

	// Status arrives as an enum serialized with inconsistent casing.
	if !strings.EqualFold(strings.TrimSpace(evt.Status), "ACCEPTED") {
		return nil
	}

	if err := c.graph.CreateSwapped(ctx, evt.RequestUserUID, evt.OfferUserUID, repository.SwapProperties{
		Timestamp: time.Now().UTC(),
		Success:   true,
	}); err != nil {
		return err
	}
	c.logf("[Events] swap recorded %s -> %s", evt.RequestUserUID, evt.OfferUserUID)
	return nil
}

func (c *Consumer) logf(format string, args ...any) {
	if c != nil && c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
