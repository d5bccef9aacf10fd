package graphdb

import (
	"context"
	"fmt"

	"swap-rec/internal/config"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Conn wraps the Neo4j driver and owns its lifecycle.
type Conn struct {
	driver   neo4j.DriverWithContext
	database string
}

func Connect(ctx context.Context, cfg config.Neo4jConfig) (*Conn, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	return &Conn{driver: driver, database: cfg.Database}, nil
}

func (c *Conn) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

// ExecuteWrite runs a single write query in a managed transaction.
func (c *Conn) ExecuteWrite(ctx context.Context, query string, params map[string]any) error {
	if c == nil || c.driver == nil {
		return fmt.Errorf("nil graph connection")
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return nil, result.Err()
	})
	return err
}

// ExecuteRead runs a read query in a managed transaction and returns each
// record as a key/value map.
func (c *Conn) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if c == nil || c.driver == nil {
		return nil, fmt.Errorf("nil graph connection")
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(records))
		for _, record := range records {
			out = append(out, record.AsMap())
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return rows.([]map[string]any), nil
}
