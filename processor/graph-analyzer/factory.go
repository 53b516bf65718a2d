package graphanalyzer

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the graph-analyzer processor component with the
// given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "graph-analyzer",
		Factory:     NewComponent,
		Schema:      graphAnalyzerSchema,
		Type:        "processor",
		Protocol:    "analysis",
		Domain:      "audit",
		Description: "Codebase analyzer publishing structure, drift, and hallucination facts to the graph",
		Version:     "0.1.0",
	})
}
