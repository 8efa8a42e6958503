package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
)

// GraphDB manages the Neo4j driver connection
type GraphDB struct {
	driver neo4j.DriverWithContext
	logger arbor.ILogger
	config *common.Neo4jConfig
}

// NewGraphDB creates a new Neo4j connection and verifies it is reachable
func NewGraphDB(ctx context.Context, logger arbor.ILogger, config *common.Neo4jConfig) (*GraphDB, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("neo4j uri is required")
	}

	logger.Debug().Str("uri", config.URI).Msg("Opening Neo4j connection")

	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", config.URI, err)
	}

	logger.Debug().Str("uri", config.URI).Msg("Neo4j connection verified")

	return &GraphDB{
		driver: driver,
		logger: logger,
		config: config,
	}, nil
}

// session opens a new session against the configured database. Callers
// must close it with session.Close(ctx) on every exit path.
func (g *GraphDB) session(ctx context.Context) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.config.Database,
	})
}

// Close releases the underlying driver
func (g *GraphDB) Close(ctx context.Context) error {
	if g.driver != nil {
		return g.driver.Close(ctx)
	}
	return nil
}
