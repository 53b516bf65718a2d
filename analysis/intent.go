package analysis

// TagSource records where an intent tag came from.
type TagSource string

// Intent tag sources. Declared tags are written by developers in
// docstrings or decorators; inferred tags are produced by tooling and
// never trigger drift checks on their own.
const (
	TagDeclared TagSource = "declared"
	TagInferred TagSource = "inferred"
)

// Constraint names with drift-detector semantics. Any other constraint
// string is carried through but not checked.
const (
	ConstraintImmutable  = "immutable"
	ConstraintStateless  = "stateless"
	ConstraintThreadSafe = "thread-safe"
	ConstraintNoIO       = "no-io"
)

// IntentTag is the declared architectural intent for one code element,
// parsed from structured comment tags.
type IntentTag struct {
	ElementID            string            `json:"element_id"`
	Layer                Layer             `json:"layer"`
	Role                 string            `json:"role,omitempty"`
	Pattern              string            `json:"pattern,omitempty"`
	Constraints          []string          `json:"constraints,omitempty"`
	DeclaredDependencies []string          `json:"declared_dependencies,omitempty"`
	BusinessRules        []string          `json:"business_rules,omitempty"`
	Source               TagSource         `json:"source"`
	Confidence           float64           `json:"confidence"`
	Other                map[string]string `json:"other,omitempty"`
}

// HasConstraint reports whether the tag declares the named constraint.
func (t *IntentTag) HasConstraint(name string) bool {
	for _, c := range t.Constraints {
		if c == name {
			return true
		}
	}
	return false
}

// AllowsDependencyOn reports whether the tag's declared dependencies
// include the given layer. A tag with no declared dependencies allows
// only same-layer and inward dependencies.
func (t *IntentTag) AllowsDependencyOn(layer Layer) bool {
	for _, d := range t.DeclaredDependencies {
		if ParseLayer(d) == layer {
			return true
		}
	}
	return false
}
