package graphanalyzer

import (
	"fmt"
	"time"

	"github.com/c360studio/semstreams/component"
)

// Config holds configuration for the graph-analyzer processor component.
type Config struct {
	Ports         *component.PortConfig `json:"ports"          schema:"type:ports,description:Port configuration,category:basic"`
	Paths         []string              `json:"paths"          schema:"type:array,description:Codebase roots to analyze (glob patterns allowed),category:basic"`
	Org           string                `json:"org"            schema:"type:string,description:Organization for entity IDs,category:basic"`
	Project       string                `json:"project"        schema:"type:string,description:Project name for entity IDs,category:basic"`
	WatchEnabled  bool                  `json:"watch_enabled"  schema:"type:bool,description:Enable file watcher for incremental reanalysis,category:basic,default:true"`
	IndexInterval string                `json:"index_interval" schema:"type:string,description:Full reanalysis interval (e.g. 10m),category:advanced,default:10m"`
	StreamName    string                `json:"stream_name"    schema:"type:string,description:JetStream stream name,category:advanced,default:AGENT"`
	Workers       int                   `json:"workers"        schema:"type:int,description:Concurrent analysis workers,category:advanced,default:4"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Paths) == 0 {
		return fmt.Errorf("at least one path is required")
	}

	if c.Org == "" {
		return fmt.Errorf("org is required")
	}

	if c.Project == "" {
		return fmt.Errorf("project is required")
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	if c.IndexInterval != "" {
		d, err := time.ParseDuration(c.IndexInterval)
		if err != nil {
			return fmt.Errorf("invalid index_interval format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("index_interval must be positive")
		}
	}

	return nil
}

// DefaultConfig returns default configuration for the graph-analyzer
// processor.
func DefaultConfig() Config {
	outputDefs := []component.PortDefinition{
		{
			Name:        "graph.ingest",
			Type:        "jetstream",
			Subject:     "graph.ingest.entity",
			StreamName:  "AGENT",
			Required:    true,
			Description: "Analysis entity updates for graph ingestion",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Outputs: outputDefs,
		},
		Paths:         []string{"."},
		WatchEnabled:  true,
		IndexInterval: "10m",
		StreamName:    "AGENT",
		Workers:       4,
	}
}
