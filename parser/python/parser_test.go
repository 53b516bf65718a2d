package python

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/archdrift/analysis"
)

func parseSource(t *testing.T, name, code string) *analysis.ParsedModule {
	t.Helper()
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filePath, []byte(code), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	p := NewParser(tmpDir)
	module, err := p.ParseFile(context.Background(), filePath)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return module
}

func childNamed(node *analysis.ParsedNode, name string) *analysis.ParsedNode {
	for _, c := range node.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestParseFileSimpleFunction(t *testing.T) {
	module := parseSource(t, "mathops.py", `"""Module for math operations."""

def add(a, b):
    """Add two integers."""
    return a + b
`)

	if module.ModuleName != "mathops" {
		t.Errorf("ModuleName = %q, want mathops", module.ModuleName)
	}
	if module.Hash == "" {
		t.Error("Hash is empty")
	}
	if module.Root.Docstring != "Module for math operations." {
		t.Errorf("module docstring = %q", module.Root.Docstring)
	}

	fn := childNamed(module.Root, "add")
	if fn == nil {
		t.Fatal("add function not found")
	}
	if fn.Kind != analysis.NodeFunction {
		t.Errorf("Kind = %q, want function", fn.Kind)
	}
	if fn.Docstring != "Add two integers." {
		t.Errorf("Docstring = %q", fn.Docstring)
	}
	if fn.RawSignature != "def add(a, b):" {
		t.Errorf("RawSignature = %q", fn.RawSignature)
	}
	if fn.StartLine != 3 {
		t.Errorf("StartLine = %d, want 3", fn.StartLine)
	}
}

func TestParseFileClassWithMethods(t *testing.T) {
	module := parseSource(t, "orders.py", `import decimal
from infra import db

TAX_RATE = 0.2

class Order(Base):
    """An order.

    @intent: core:entity:immutable
    """

    items = []

    def __init__(self, items):
        self.items = items

    def total(self):
        self.cached = compute(self.items)
        return self.cached
`)

	root := module.Root
	if len(root.Imports) != 2 {
		t.Fatalf("Imports = %d, want 2", len(root.Imports))
	}
	if root.Imports[0].Module != "decimal" || root.Imports[0].Line != 1 {
		t.Errorf("import[0] = %+v", root.Imports[0])
	}
	if root.Imports[1].Module != "infra" {
		t.Errorf("import[1] = %+v", root.Imports[1])
	}

	rate := childNamed(root, "TAX_RATE")
	if rate == nil {
		t.Fatal("TAX_RATE not found")
	}
	if rate.Kind != analysis.NodeVariable || !rate.AllCaps {
		t.Errorf("TAX_RATE = kind %q allcaps %v", rate.Kind, rate.AllCaps)
	}

	cls := childNamed(root, "Order")
	if cls == nil {
		t.Fatal("Order class not found")
	}
	if cls.Kind != analysis.NodeClass {
		t.Errorf("Kind = %q, want class", cls.Kind)
	}
	if len(cls.Bases) != 1 || cls.Bases[0] != "Base" {
		t.Errorf("Bases = %v", cls.Bases)
	}
	if !strings.HasPrefix(cls.Docstring, "An order.") {
		t.Errorf("Docstring = %q", cls.Docstring)
	}
	if !strings.Contains(cls.Docstring, "@intent: core:entity:immutable") {
		t.Errorf("docstring lost the tag lines: %q", cls.Docstring)
	}

	items := childNamed(cls, "items")
	if items == nil || items.Kind != analysis.NodeVariable {
		t.Fatalf("items class variable not found")
	}
	if items.AllCaps {
		t.Error("class variables are not constants")
	}

	init := childNamed(cls, "__init__")
	if init == nil {
		t.Fatal("__init__ not found")
	}
	if len(init.Mutations) != 1 || !init.Mutations[0].InInit {
		t.Errorf("__init__ mutations = %+v", init.Mutations)
	}
	if init.Mutations[0].Target != "self.items" {
		t.Errorf("mutation target = %q", init.Mutations[0].Target)
	}

	total := childNamed(cls, "total")
	if total == nil {
		t.Fatal("total not found")
	}
	if len(total.Mutations) != 1 || total.Mutations[0].InInit {
		t.Errorf("total mutations = %+v", total.Mutations)
	}
	foundCall := false
	for _, c := range total.Calls {
		if c.Target == "compute" && !c.Attribute {
			foundCall = true
		}
	}
	if !foundCall {
		t.Errorf("compute call not found in %+v", total.Calls)
	}
}

func TestParseFileDecoratedFunction(t *testing.T) {
	module := parseSource(t, "svc.py", `@lru_cache
def lookup(key):
    pass
`)

	fn := childNamed(module.Root, "lookup")
	if fn == nil {
		t.Fatal("lookup not found")
	}
	if len(fn.Decorators) != 1 || fn.Decorators[0] != "@lru_cache" {
		t.Errorf("Decorators = %v", fn.Decorators)
	}
}

func TestParseFileAliasedImport(t *testing.T) {
	module := parseSource(t, "client.py", `import numpy as np

def mean(xs):
    return np.mean(xs)
`)

	root := module.Root
	if len(root.Imports) != 1 {
		t.Fatalf("Imports = %d, want 1", len(root.Imports))
	}
	if root.Imports[0].Module != "numpy" || root.Imports[0].Alias != "np" {
		t.Errorf("import = %+v", root.Imports[0])
	}

	fn := childNamed(root, "mean")
	if fn == nil {
		t.Fatal("mean not found")
	}
	if len(fn.Calls) != 1 || fn.Calls[0].Target != "np.mean" || !fn.Calls[0].Attribute {
		t.Errorf("Calls = %+v", fn.Calls)
	}
}

func TestModuleNameForInitFile(t *testing.T) {
	if got := moduleNameFor(filepath.Join("pkg", "sub", "__init__.py")); got != "pkg.sub" {
		t.Errorf("moduleNameFor = %q, want pkg.sub", got)
	}
	if got := moduleNameFor(filepath.Join("pkg", "mod.py")); got != "pkg.mod" {
		t.Errorf("moduleNameFor = %q, want pkg.mod", got)
	}
}

func TestParseDirectorySkipsVirtualEnv(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(rel, code string) {
		path := filepath.Join(tmpDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("app/main.py", "def run():\n    pass\n")
	write("venv/lib/site.py", "def hidden():\n    pass\n")
	write("__pycache__/cached.py", "def hidden():\n    pass\n")

	p := NewParser(tmpDir)
	modules, err := p.ParseDirectory(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("modules = %d, want 1", len(modules))
	}
	if modules[0].ModuleName != "app.main" {
		t.Errorf("ModuleName = %q", modules[0].ModuleName)
	}
}
