package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TopologyStore answers plant wiring queries against a neo4j graph of
// panels and strings. Panels on the same string share current paths, so
// an electrical defect on one puts its siblings at risk.
type TopologyStore struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(uri, user, password, database string) (*TopologyStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &TopologyStore{driver: driver, database: database}, nil
}

func (s *TopologyStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// RelatedPanels returns the ids of panels wired into the same string as
// the given panel, excluding the panel itself.
func (s *TopologyStore) RelatedPanels(ctx context.Context, panelID string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]string, error) {
		result, err := tx.Run(ctx, `
MATCH (p:Panel {id: $panel_id})-[:ON_STRING]->(:String)<-[:ON_STRING]-(sibling:Panel)
RETURN DISTINCT sibling.id AS id
ORDER BY id
`, map[string]any{"panel_id": panelID})
		if err != nil {
			return nil, err
		}

		var ids []string
		for result.Next(ctx) {
			value, ok := result.Record().Get("id")
			if !ok {
				continue
			}
			if id, ok := value.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
		return ids, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query related panels for %s: %w", panelID, err)
	}
	return records, nil
}
