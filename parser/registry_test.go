package parser

import (
	"context"
	"testing"

	"github.com/c360studio/archdrift/analysis"
)

type stubParser struct{ root string }

func (s stubParser) ParseFile(context.Context, string) (*analysis.ParsedModule, error) {
	return nil, nil
}

func (s stubParser) ParseDirectory(context.Context, string) ([]*analysis.ParsedModule, error) {
	return nil, nil
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", []string{".st"}, func(repoRoot string) FileParser {
		return stubParser{root: repoRoot}
	})

	name, ok := r.ParserName(".st")
	if !ok || name != "stub" {
		t.Fatalf("ParserName = %q, %v", name, ok)
	}

	p, err := r.CreateForExtension(".st", "/repo")
	if err != nil {
		t.Fatalf("CreateForExtension: %v", err)
	}
	if sp, ok := p.(stubParser); !ok || sp.root != "/repo" {
		t.Errorf("parser = %#v", p)
	}
}

func TestRegistryFirstExtensionWins(t *testing.T) {
	r := NewRegistry()
	r.Register("first", []string{".x"}, func(string) FileParser { return stubParser{} })
	r.Register("second", []string{".x"}, func(string) FileParser { return stubParser{} })

	name, _ := r.ParserName(".x")
	if name != "first" {
		t.Errorf("ParserName = %q, want first", name)
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("missing", "/repo"); err == nil {
		t.Error("expected error for unregistered parser")
	}
	if _, err := r.CreateForExtension(".zz", "/repo"); err == nil {
		t.Error("expected error for unregistered extension")
	}
}

func TestSkipPath(t *testing.T) {
	cases := []struct {
		path string
		skip bool
	}{
		{"app/main.py", false},
		{"venv/lib/site.py", true},
		{".git/hooks/pre-commit", true},
		{"src/__pycache__/mod.py", true},
		{"build/out.py", true},
		{"domain/order.py", false},
	}
	for _, tc := range cases {
		if got := SkipPath(tc.path); got != tc.skip {
			t.Errorf("SkipPath(%q) = %v, want %v", tc.path, got, tc.skip)
		}
	}
}
