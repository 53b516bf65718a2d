// Package python parses Python source into module trees using
// tree-sitter. It registers itself for the .py extension.
package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/parser"
)

func init() {
	parser.DefaultRegistry.Register("python", []string{".py"},
		func(repoRoot string) parser.FileParser {
			return NewParser(repoRoot)
		})
}

// Parser extracts module trees from Python source files.
type Parser struct {
	repoRoot string
	parser   *sitter.Parser
}

// NewParser creates a Python parser rooted at repoRoot.
func NewParser(repoRoot string) *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{repoRoot: repoRoot, parser: p}
}

// ParseFile parses a single Python file.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*analysis.ParsedModule, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	relPath, err := filepath.Rel(p.repoRoot, filePath)
	if err != nil {
		relPath = filePath
	}

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	moduleName := moduleNameFor(relPath)

	root := &analysis.ParsedNode{
		Kind:      analysis.NodeModule,
		Name:      moduleName,
		StartLine: 1,
		EndLine:   int(rootNode.EndPoint().Row) + 1,
		Docstring: bodyDocstring(rootNode, content),
	}

	for i := 0; i < int(rootNode.NamedChildCount()); i++ {
		child := rootNode.NamedChild(i)

		if imports := extractImports(child, content); len(imports) > 0 {
			root.Imports = append(root.Imports, imports...)
			for _, imp := range imports {
				root.Children = append(root.Children, &analysis.ParsedNode{
					Kind:      analysis.NodeImport,
					Name:      imp.Module,
					StartLine: imp.Line,
					EndLine:   imp.Line,
				})
			}
			continue
		}

		if node := p.extractStatement(child, content, false); node != nil {
			root.Children = append(root.Children, node)
		}
	}

	return &analysis.ParsedModule{
		FilePath:   relPath,
		ModuleName: moduleName,
		Hash:       parser.ComputeHash(content),
		Root:       root,
	}, nil
}

// ParseDirectory parses every Python file under dirPath. Files that
// fail to parse are skipped so one bad file never blocks indexing.
func (p *Parser) ParseDirectory(ctx context.Context, dirPath string) ([]*analysis.ParsedModule, error) {
	var results []*analysis.ParsedModule

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}
		relPath, _ := filepath.Rel(p.repoRoot, path)
		if parser.SkipPath(relPath) {
			return nil
		}

		module, err := p.ParseFile(ctx, path)
		if err != nil {
			return nil
		}
		results = append(results, module)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return results, nil
}

// moduleNameFor derives the dotted module name from a relative path.
func moduleNameFor(relPath string) string {
	modPath := strings.TrimSuffix(relPath, ".py")
	modPath = strings.ReplaceAll(modPath, string(filepath.Separator), ".")
	return strings.TrimSuffix(modPath, ".__init__")
}

// extractStatement converts one statement node into a ParsedNode, or
// nil for statements that declare nothing.
func (p *Parser) extractStatement(node *sitter.Node, content []byte, inClass bool) *analysis.ParsedNode {
	switch node.Type() {
	case "class_definition":
		return p.extractClass(node, content, nil)

	case "function_definition":
		return p.extractFunction(node, content, nil)

	case "decorated_definition":
		def := definitionInDecorated(node)
		if def == nil {
			return nil
		}
		decorators := extractDecorators(node, content)
		switch def.Type() {
		case "class_definition":
			return p.extractClass(def, content, decorators)
		case "function_definition":
			return p.extractFunction(def, content, decorators)
		}
		return nil

	case "expression_statement":
		return extractAssignment(node, content, inClass)
	}
	return nil
}

// extractClass builds a class node with its bases, methods, and class
// variables.
func (p *Parser) extractClass(node *sitter.Node, content []byte, decorators []string) *analysis.ParsedNode {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	cls := &analysis.ParsedNode{
		Kind:         analysis.NodeClass,
		Name:         text(nameNode, content),
		StartLine:    int(node.StartPoint().Row) + 1,
		EndLine:      int(node.EndPoint().Row) + 1,
		Decorators:   decorators,
		RawSignature: signature(node, content),
	}

	if argList := node.ChildByFieldName("superclasses"); argList != nil {
		for i := 0; i < int(argList.NamedChildCount()); i++ {
			base := text(argList.NamedChild(i), content)
			// Keyword arguments (metaclass=...) are not bases.
			if !strings.Contains(base, "=") {
				cls.Bases = append(cls.Bases, base)
			}
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	cls.Docstring = bodyDocstring(body, content)

	for i := 0; i < int(body.NamedChildCount()); i++ {
		if child := p.extractStatement(body.NamedChild(i), content, true); child != nil {
			cls.Children = append(cls.Children, child)
		}
	}
	return cls
}

// extractFunction builds a function node with its calls and attribute
// mutations.
func (p *Parser) extractFunction(node *sitter.Node, content []byte, decorators []string) *analysis.ParsedNode {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, content)

	fn := &analysis.ParsedNode{
		Kind:         analysis.NodeFunction,
		Name:         name,
		StartLine:    int(node.StartPoint().Row) + 1,
		EndLine:      int(node.EndPoint().Row) + 1,
		Decorators:   decorators,
		RawSignature: signature(node, content),
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return fn
	}
	fn.Docstring = bodyDocstring(body, content)
	fn.Calls = collectCalls(body, content)
	fn.Mutations = collectMutations(body, content, name == "__init__")
	return fn
}

// extractAssignment turns a module- or class-level assignment into a
// variable node.
func extractAssignment(node *sitter.Node, content []byte, inClass bool) *analysis.ParsedNode {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "assignment" {
			continue
		}
		left := child.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := text(left, content)
		return &analysis.ParsedNode{
			Kind:      analysis.NodeVariable,
			Name:      name,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
			AllCaps:   !inClass && isAllCaps(name),
		}
	}
	return nil
}

// extractImports reads import statements into ImportRefs.
func extractImports(node *sitter.Node, content []byte) []analysis.ImportRef {
	var imports []analysis.ImportRef
	line := int(node.StartPoint().Row) + 1

	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				imports = append(imports, analysis.ImportRef{
					Module: text(child, content),
					Line:   line,
				})
			case "aliased_import":
				ref := analysis.ImportRef{Line: line}
				if nameNode := child.ChildByFieldName("name"); nameNode != nil {
					ref.Module = text(nameNode, content)
				}
				if aliasNode := child.ChildByFieldName("alias"); aliasNode != nil {
					ref.Alias = text(aliasNode, content)
				}
				if ref.Module != "" {
					imports = append(imports, ref)
				}
			}
		}

	case "import_from_statement":
		if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
			imports = append(imports, analysis.ImportRef{
				Module: text(moduleNode, content),
				Line:   line,
			})
		}
	}
	return imports
}

// collectCalls gathers every call expression in a body, including
// nested blocks.
func collectCalls(body *sitter.Node, content []byte) []analysis.CallRef {
	var calls []analysis.CallRef
	walk(body, func(n *sitter.Node) {
		if n.Type() != "call" {
			return
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return
		}
		switch fn.Type() {
		case "identifier":
			calls = append(calls, analysis.CallRef{
				Target: text(fn, content),
				Line:   int(n.StartPoint().Row) + 1,
			})
		case "attribute":
			calls = append(calls, analysis.CallRef{
				Target:    text(fn, content),
				Line:      int(n.StartPoint().Row) + 1,
				Attribute: true,
			})
		}
	})
	return calls
}

// collectMutations gathers self attribute assignments in a body.
func collectMutations(body *sitter.Node, content []byte, inInit bool) []analysis.Mutation {
	var mutations []analysis.Mutation
	walk(body, func(n *sitter.Node) {
		switch n.Type() {
		case "assignment", "augmented_assignment":
		default:
			return
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "attribute" {
			return
		}
		target := text(left, content)
		if !strings.HasPrefix(target, "self.") {
			return
		}
		mutations = append(mutations, analysis.Mutation{
			Target: target,
			Line:   int(n.StartPoint().Row) + 1,
			InInit: inInit,
		})
	})
	return mutations
}

// walk visits every named node in a subtree.
func walk(node *sitter.Node, visit func(*sitter.Node)) {
	visit(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walk(node.NamedChild(i), visit)
	}
}

// signature returns the header text of a definition, up to its body.
func signature(node *sitter.Node, content []byte) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	return strings.TrimSpace(string(content[node.StartByte():end]))
}

func text(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// bodyDocstring extracts a leading docstring from a module, class, or
// function body.
func bodyDocstring(body *sitter.Node, content []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return ""
	}
	return stringContent(expr, content)
}

// stringContent strips quoting from a string literal.
func stringContent(node *sitter.Node, content []byte) string {
	raw := text(node, content)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			raw = strings.TrimPrefix(raw, q)
			raw = strings.TrimSuffix(raw, q)
			break
		}
	}
	return strings.TrimSpace(raw)
}

// extractDecorators reads decorator source lines from a decorated
// definition.
func extractDecorators(node *sitter.Node, content []byte) []string {
	var decorators []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimSpace(text(child, content)))
		}
	}
	return decorators
}

// definitionInDecorated finds the definition inside a
// decorated_definition.
func definitionInDecorated(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_definition", "function_definition":
			return child
		}
	}
	return nil
}

// isAllCaps reports the constant naming convention.
func isAllCaps(s string) bool {
	if s == "" {
		return false
	}
	hasUpper := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasUpper = true
		}
	}
	return hasUpper
}
