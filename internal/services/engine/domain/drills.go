package domain

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed drills.yaml
var defaultDrillsYAML []byte

// Drill is a named practice script recommended for a dominant event type.
type Drill struct {
	Name        string   `json:"name" yaml:"name"`
	Steps       []string `json:"steps" yaml:"steps"`
	DurationMin int      `json:"duration_min" yaml:"duration_min"`
}

// DrillCatalog maps event types to drill recommendations. The catalog is
// configuration, not code: it ships with an embedded default table and can
// be replaced by an external YAML file without touching orchestration.
type DrillCatalog struct {
	drills map[string]Drill
}

// DefaultDrillCatalog parses the embedded drill table.
func DefaultDrillCatalog() (*DrillCatalog, error) {
	return ParseDrillCatalog(defaultDrillsYAML)
}

// LoadDrillCatalog reads a drill table from a YAML file.
func LoadDrillCatalog(path string) (*DrillCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("drill catalog path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drill catalog: %w", err)
	}
	return ParseDrillCatalog(data)
}

// ParseDrillCatalog decodes a YAML drill table. The table must include the
// "none" fallback entry, and every drill needs a name and at least one step.
func ParseDrillCatalog(data []byte) (*DrillCatalog, error) {
	drills := make(map[string]Drill)
	if err := yaml.Unmarshal(data, &drills); err != nil {
		return nil, fmt.Errorf("decode drill catalog: %w", err)
	}
	if len(drills) == 0 {
		return nil, fmt.Errorf("drill catalog is empty")
	}
	if _, ok := drills[EventTypeNone]; !ok {
		return nil, fmt.Errorf("drill catalog is missing the %q fallback entry", EventTypeNone)
	}
	for eventType, drill := range drills {
		if strings.TrimSpace(drill.Name) == "" {
			return nil, fmt.Errorf("drill for %q has no name", eventType)
		}
		if len(drill.Steps) == 0 {
			return nil, fmt.Errorf("drill for %q has no steps", eventType)
		}
	}
	return &DrillCatalog{drills: drills}, nil
}

// Get returns the drill for an event type, falling back to the "none" entry
// for unknown or unmapped types.
func (c *DrillCatalog) Get(eventType string) Drill {
	if c == nil {
		return Drill{}
	}
	if drill, ok := c.drills[eventType]; ok {
		return drill
	}
	return c.drills[EventTypeNone]
}
