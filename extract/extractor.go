// Package extract walks parsed module trees and emits the code elements
// and relationships that make up the knowledge graph. It never reads
// source text; everything comes from the parser collaborator's tree.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/archdrift/analysis"
)

// Lookup resolves qualified names against the current graph so calls
// and imports can target elements from previously analyzed files.
type Lookup interface {
	ResolveQualifiedName(name string) (string, bool)
}

// Result is everything extracted from one file. TagText carries each
// element's docstring and decorator text for the intent tag processor;
// Mutations carries observed attribute assignments for constraint
// checking.
type Result struct {
	FilePath      string
	Elements      []*analysis.CodeElement
	Relationships []analysis.Relationship
	TagText       map[string]string
	Mutations     map[string][]analysis.Mutation
}

// Extractor turns ParsedModules into graph batches.
type Extractor struct {
	lookup Lookup
	logger *slog.Logger
}

// New creates an extractor. lookup may be nil, in which case every
// unresolved reference becomes an external placeholder.
func New(lookup Lookup, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{lookup: lookup, logger: logger}
}

// extraction is per-file walk state.
type extraction struct {
	*Extractor
	result     *Result
	moduleName string
	batch      map[string]string // qualified name -> element ID
	externals  map[string]bool   // placeholder IDs already in the batch
	imports    map[string]string // local alias -> imported module
}

// ExtractModule extracts elements and relationships from one parsed
// file. A parse failure (nil or non-module root) yields an
// ExtractionError so the caller can isolate the file.
func (e *Extractor) ExtractModule(pm *analysis.ParsedModule) (*Result, error) {
	if pm == nil || pm.Root == nil {
		return nil, analysis.NewExtractionError(pathOf(pm), fmt.Errorf("no parse tree"))
	}
	if pm.Root.Kind != analysis.NodeModule {
		return nil, analysis.NewExtractionError(pm.FilePath,
			fmt.Errorf("root node is %s, expected module", pm.Root.Kind))
	}

	ex := &extraction{
		Extractor: e,
		result: &Result{
			FilePath:  pm.FilePath,
			TagText:   make(map[string]string),
			Mutations: make(map[string][]analysis.Mutation),
		},
		moduleName: pm.ModuleName,
		batch:      make(map[string]string),
		externals:  make(map[string]bool),
		imports:    make(map[string]string),
	}

	// First pass registers every element so references within the file
	// resolve regardless of declaration order.
	mod := ex.addElement(analysis.KindModule, pm.Root, pm.ModuleName, pm.FilePath)
	for _, imp := range pm.Root.Imports {
		alias := imp.Alias
		if alias == "" {
			alias = imp.Module
			if idx := strings.Index(alias, "."); idx >= 0 {
				alias = alias[:idx]
			}
		}
		ex.imports[alias] = imp.Module
	}
	ex.declare(pm.Root, pm.ModuleName, false)

	// Second pass emits edges now that the whole batch is known.
	ex.relate(pm.Root, mod, pm.ModuleName, "")

	e.logger.Debug("extracted module",
		"file", pm.FilePath,
		"elements", len(ex.result.Elements),
		"relationships", len(ex.result.Relationships))
	return ex.result, nil
}

func pathOf(pm *analysis.ParsedModule) string {
	if pm == nil {
		return ""
	}
	return pm.FilePath
}

func (x *extraction) addElement(kind analysis.ElementKind, node *analysis.ParsedNode, qualified, filePath string) *analysis.CodeElement {
	el := analysis.NewElement(kind, node.Name, qualified, filePath, node.StartLine, node.EndLine)
	if el.Name == "" {
		el.Name = qualified
	}
	el.Docstring = node.Docstring
	el.RawSignature = node.RawSignature
	x.result.Elements = append(x.result.Elements, el)
	x.batch[qualified] = el.ID
	if text := node.TagText(); text != "" {
		x.result.TagText[el.ID] = text
	}
	return el
}

// declare registers elements for node's children.
func (x *extraction) declare(node *analysis.ParsedNode, parentQName string, inClass bool) {
	for _, child := range node.Children {
		qualified := parentQName + "." + child.Name
		switch child.Kind {
		case analysis.NodeClass:
			x.addElement(analysis.KindClass, child, qualified, x.result.FilePath)
			x.declare(child, qualified, true)
		case analysis.NodeFunction:
			kind := analysis.KindFunction
			if inClass {
				kind = analysis.KindMethod
			}
			el := x.addElement(kind, child, qualified, x.result.FilePath)
			if len(child.Mutations) > 0 {
				x.result.Mutations[el.ID] = child.Mutations
			}
			x.declare(child, qualified, false)
		case analysis.NodeVariable:
			kind := analysis.KindVariable
			switch {
			case inClass:
				kind = analysis.KindProperty
			case child.AllCaps:
				kind = analysis.KindConstant
			}
			x.addElement(kind, child, qualified, x.result.FilePath)
		case analysis.NodeImport:
			x.addElement(analysis.KindImport, child, qualified, x.result.FilePath)
		}
	}
}

// relate emits CONTAINS, IMPORTS, CALLS, INHERITS_FROM, and USES edges
// for node's subtree, plus derived module-level DEPENDS_ON edges.
func (x *extraction) relate(node *analysis.ParsedNode, el *analysis.CodeElement, qname, className string) {
	if node.Kind == analysis.NodeModule {
		seen := make(map[string]bool)
		for _, imp := range node.Imports {
			targetID := x.resolveImport(imp.Module)
			x.edge(analysis.RelImports, el.ID, targetID, imp.Line, nil)
			if !seen[targetID] {
				seen[targetID] = true
				x.edge(analysis.RelDependsOn, el.ID, targetID, 0,
					map[string]string{"derived": "true"})
			}
		}
	}

	if node.Kind == analysis.NodeClass {
		for _, base := range node.Bases {
			targetID, heuristic := x.resolveName(base, true)
			x.edge(analysis.RelInheritsFrom, el.ID, targetID, node.StartLine, resolutionMeta(heuristic))
		}
	}

	if node.Kind == analysis.NodeFunction {
		for _, call := range node.Calls {
			targetID, heuristic := x.resolveCall(call, className)
			if targetID == "" {
				continue
			}
			x.edge(analysis.RelCalls, el.ID, targetID, call.Line, resolutionMeta(heuristic))
		}
		for _, mut := range node.Mutations {
			if attr, ok := strings.CutPrefix(mut.Target, "self."); ok && className != "" {
				if propID, found := x.batch[className+"."+attr]; found {
					x.edge(analysis.RelUses, el.ID, propID, mut.Line,
						resolutionMeta(true))
				}
			}
		}
	}

	for _, child := range node.Children {
		childQName := qname + "." + child.Name
		childID, ok := x.batch[childQName]
		if !ok {
			continue
		}
		x.edge(analysis.RelContains, el.ID, childID, child.StartLine, nil)

		childEl := x.elementByID(childID)
		nextClass := className
		if child.Kind == analysis.NodeClass {
			nextClass = childQName
		}
		x.relate(child, childEl, childQName, nextClass)
	}
}

func (x *extraction) elementByID(id string) *analysis.CodeElement {
	for _, el := range x.result.Elements {
		if el.ID == id {
			return el
		}
	}
	return nil
}

func (x *extraction) edge(kind analysis.RelationKind, source, target string, line int, metadata map[string]string) {
	x.result.Relationships = append(x.result.Relationships, analysis.Relationship{
		Kind:     kind,
		SourceID: source,
		TargetID: target,
		Line:     line,
		Metadata: metadata,
	})
}

func resolutionMeta(heuristic bool) map[string]string {
	if !heuristic {
		return nil
	}
	return map[string]string{analysis.MetaResolution: analysis.ResolutionHeuristic}
}

// resolveImport maps an imported module name to a graph element,
// preferring an analyzed module over an external placeholder.
func (x *extraction) resolveImport(module string) string {
	if id, ok := x.batch[module]; ok {
		return id
	}
	if x.lookup != nil {
		if id, ok := x.lookup.ResolveQualifiedName(module); ok {
			return id
		}
	}
	return x.external(analysis.KindModule, module)
}

// resolveCall maps a call site to a target element ID. Resolution is
// best-effort: self calls and bare attribute calls are name matches and
// get heuristic metadata.
func (x *extraction) resolveCall(call analysis.CallRef, className string) (string, bool) {
	target := call.Target
	if target == "" {
		return "", false
	}
	if isPythonBuiltin(target) {
		return x.external(analysis.KindFunction, "builtin:"+target), false
	}

	head, rest, dotted := strings.Cut(target, ".")

	// self.method() resolves inside the enclosing class.
	if dotted && head == "self" && className != "" {
		if id, ok := x.resolveQualified(className + "." + rest); ok {
			return id, true
		}
		return x.external(analysis.KindFunction, className+"."+rest), true
	}

	// alias.func() resolves through the import map.
	if dotted {
		if module, ok := x.imports[head]; ok {
			qualified := module + "." + rest
			if id, found := x.resolveQualified(qualified); found {
				return id, false
			}
			return x.external(analysis.KindFunction, qualified), false
		}
		// Receiver of unknown type: pure name match.
		if id, ok := x.resolveQualified(x.moduleName + "." + target); ok {
			return id, true
		}
		return x.external(analysis.KindFunction, target), true
	}

	// Bare name: module-local first, then the wider graph.
	if id, ok := x.batch[x.moduleName+"."+target]; ok {
		return id, false
	}
	if x.lookup != nil {
		if id, ok := x.lookup.ResolveQualifiedName(target); ok {
			return id, true
		}
	}
	return x.external(analysis.KindFunction, target), call.Attribute
}

// resolveName resolves a base class or type reference.
func (x *extraction) resolveName(name string, class bool) (string, bool) {
	kind := analysis.KindFunction
	if class {
		kind = analysis.KindClass
	}
	if id, ok := x.resolveQualified(x.moduleName + "." + name); ok {
		return id, false
	}
	head, _, dotted := strings.Cut(name, ".")
	if dotted {
		if module, ok := x.imports[head]; ok {
			qualified := module + name[len(head):]
			if id, found := x.resolveQualified(qualified); found {
				return id, false
			}
			return x.external(kind, qualified), false
		}
	}
	if id, ok := x.resolveQualified(name); ok {
		return id, true
	}
	return x.external(kind, name), !dotted
}

func (x *extraction) resolveQualified(name string) (string, bool) {
	if id, ok := x.batch[name]; ok {
		return id, true
	}
	if x.lookup != nil {
		if id, ok := x.lookup.ResolveQualifiedName(name); ok {
			return id, true
		}
	}
	return "", false
}

// external returns the placeholder element ID for an unresolved name,
// adding the placeholder to the batch the first time it appears.
func (x *extraction) external(kind analysis.ElementKind, qualifiedName string) string {
	el := analysis.NewExternalElement(kind, qualifiedName)
	if !x.externals[el.ID] {
		x.externals[el.ID] = true
		x.result.Elements = append(x.result.Elements, el)
	}
	return el.ID
}
