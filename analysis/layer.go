package analysis

// Layer is an architectural layer in the dependency-rule ordering:
// core is innermost, infrastructure outermost. Unknown means no layer
// could be determined.
type Layer string

// Architectural layers, innermost first.
const (
	LayerCore           Layer = "core"
	LayerApplication    Layer = "application"
	LayerInfrastructure Layer = "infrastructure"
	LayerUnknown        Layer = "unknown"
)

// ParseLayer maps a string to a Layer, returning LayerUnknown for
// anything unrecognized.
func ParseLayer(s string) Layer {
	switch Layer(s) {
	case LayerCore, LayerApplication, LayerInfrastructure:
		return Layer(s)
	default:
		return LayerUnknown
	}
}

// layerDepth assigns each known layer its position in the ordering.
var layerDepth = map[Layer]int{
	LayerCore:           0,
	LayerApplication:    1,
	LayerInfrastructure: 2,
}

// LayerDistance returns the absolute distance between two layers in the
// ordering, or -1 if either layer is unknown.
func LayerDistance(a, b Layer) int {
	da, ok := layerDepth[a]
	if !ok {
		return -1
	}
	db, ok := layerDepth[b]
	if !ok {
		return -1
	}
	if da > db {
		return da - db
	}
	return db - da
}
