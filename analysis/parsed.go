package analysis

// NodeKind categorizes a node in a parsed module tree.
type NodeKind string

// Parsed node kinds. The parser collaborator produces these; the
// extractor maps them to element kinds using lexical context.
const (
	NodeModule   NodeKind = "module"
	NodeClass    NodeKind = "class"
	NodeFunction NodeKind = "function"
	NodeVariable NodeKind = "variable"
	NodeImport   NodeKind = "import"
)

// CallRef is a call expression observed inside a node's body. Target is
// the dotted name as written at the call site.
type CallRef struct {
	Target string `json:"target"`
	Line   int    `json:"line"`

	// Attribute marks receiver-dotted calls (obj.method()) whose
	// receiver type is unknown; resolution of these is heuristic.
	Attribute bool `json:"attribute,omitempty"`
}

// ImportRef is one imported module name with the line it appears on.
type ImportRef struct {
	Module string `json:"module"`
	Alias  string `json:"alias,omitempty"`
	Line   int    `json:"line"`
}

// Mutation is an attribute assignment observed inside a function body,
// used for constraint checking (immutable, stateless).
type Mutation struct {
	Target string `json:"target"`
	Line   int    `json:"line"`

	// InInit marks mutations inside a constructor, which the immutable
	// constraint permits.
	InInit bool `json:"in_init,omitempty"`
}

// ParsedNode is one node in the tree a parser collaborator hands to the
// extractor. The extractor never touches source text; everything it
// needs is on the node.
type ParsedNode struct {
	Kind         NodeKind      `json:"kind"`
	Name         string        `json:"name"`
	StartLine    int           `json:"start_line"`
	EndLine      int           `json:"end_line"`
	Docstring    string        `json:"docstring,omitempty"`
	Decorators   []string      `json:"decorators,omitempty"`
	RawSignature string        `json:"raw_signature,omitempty"`
	Bases        []string      `json:"bases,omitempty"`
	Calls        []CallRef     `json:"calls,omitempty"`
	Imports      []ImportRef   `json:"imports,omitempty"`
	Mutations    []Mutation    `json:"mutations,omitempty"`
	Children     []*ParsedNode `json:"children,omitempty"`

	// AllCaps marks variable nodes whose name is an all-uppercase
	// identifier, the convention for constants.
	AllCaps bool `json:"all_caps,omitempty"`
}

// ParsedModule is the parse result for one source file.
type ParsedModule struct {
	FilePath   string      `json:"file_path"`
	ModuleName string      `json:"module_name"`
	Hash       string      `json:"hash"`
	Root       *ParsedNode `json:"root"`
}

// TagText returns the text the intent tag processor should scan for a
// node: its docstring followed by its decorator lines.
func (n *ParsedNode) TagText() string {
	text := n.Docstring
	for _, d := range n.Decorators {
		if text != "" {
			text += "\n"
		}
		text += d
	}
	return text
}
