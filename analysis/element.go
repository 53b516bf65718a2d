// Package analysis defines the data model shared by the archdrift pipeline:
// code elements and relationships extracted from parsed source, declared
// intent tags, architectural classifications, drift violations, and
// hallucination findings.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ElementKind categorizes a code element in the knowledge graph.
type ElementKind string

// Element kinds produced by the extractor.
const (
	KindModule   ElementKind = "module"
	KindClass    ElementKind = "class"
	KindMethod   ElementKind = "method"
	KindFunction ElementKind = "function"
	KindProperty ElementKind = "property"
	KindVariable ElementKind = "variable"
	KindConstant ElementKind = "constant"
	KindImport   ElementKind = "import"
)

// CodeElement is a node in the knowledge graph: one structural unit of a
// source file (module, class, function, ...) or an external placeholder for
// a reference that could not be resolved inside the analyzed codebase.
type CodeElement struct {
	ID            string      `json:"id"`
	Kind          ElementKind `json:"kind"`
	Name          string      `json:"name"`
	QualifiedName string      `json:"qualified_name"`
	FilePath      string      `json:"file_path"`
	StartLine     int         `json:"start_line"`
	EndLine       int         `json:"end_line"`
	Docstring     string      `json:"docstring,omitempty"`
	RawSignature  string      `json:"raw_signature,omitempty"`

	// External marks a placeholder for a symbol defined outside the
	// analyzed codebase (third-party import, builtin, unresolved call
	// target). External elements have no FilePath and no line range.
	External bool `json:"external,omitempty"`
}

// ElementID computes the stable identifier for an element. The same
// file path, qualified name, and kind always produce the same ID, so
// re-analysis of an unchanged file is idempotent.
func ElementID(filePath, qualifiedName string, kind ElementKind) string {
	h := sha256.Sum256([]byte(filePath + "\x00" + qualifiedName + "\x00" + string(kind)))
	return hex.EncodeToString(h[:8])
}

// ExternalID computes the identifier for an external placeholder element.
// Placeholders are keyed by qualified name alone so every file referencing
// the same unresolved symbol shares one node.
func ExternalID(qualifiedName string) string {
	return ElementID("", qualifiedName, "external")
}

// NewElement constructs a CodeElement with its ID derived from the
// identity fields.
func NewElement(kind ElementKind, name, qualifiedName, filePath string, startLine, endLine int) *CodeElement {
	return &CodeElement{
		ID:            ElementID(filePath, qualifiedName, kind),
		Kind:          kind,
		Name:          name,
		QualifiedName: qualifiedName,
		FilePath:      filePath,
		StartLine:     startLine,
		EndLine:       endLine,
	}
}

// NewExternalElement constructs a placeholder for a symbol that lives
// outside the analyzed codebase. The kind records what the reference
// looked like at the call site (module for imports, function for calls,
// class for base classes).
func NewExternalElement(kind ElementKind, qualifiedName string) *CodeElement {
	name := qualifiedName
	if idx := strings.LastIndex(qualifiedName, "."); idx >= 0 {
		name = qualifiedName[idx+1:]
	}
	return &CodeElement{
		ID:            ExternalID(qualifiedName),
		Kind:          kind,
		Name:          name,
		QualifiedName: qualifiedName,
		External:      true,
	}
}

// ContentHash returns a hash of the element's mutable content (position,
// docstring, signature). Classification caches use it to detect when an
// element changed enough to need reclassification.
func (e *CodeElement) ContentHash() string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%d\x00%d\x00%s\x00%s",
		e.QualifiedName, e.StartLine, e.EndLine, e.Docstring, e.RawSignature))
	return hex.EncodeToString(h[:8])
}

// Validate checks structural invariants before an element enters the graph.
func (e *CodeElement) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("element has no ID")
	}
	if e.QualifiedName == "" {
		return fmt.Errorf("element %s has no qualified name", e.ID)
	}
	if e.External {
		return nil
	}
	if e.FilePath == "" {
		return fmt.Errorf("element %s (%s) has no file path", e.ID, e.QualifiedName)
	}
	if e.StartLine < 1 || e.EndLine < e.StartLine {
		return fmt.Errorf("element %s (%s) has invalid line range %d-%d",
			e.ID, e.QualifiedName, e.StartLine, e.EndLine)
	}
	return nil
}
