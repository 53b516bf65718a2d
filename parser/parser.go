// Package parser defines the parser-collaborator contract: language
// parsers turn source files into ParsedModule trees for the extractor.
// Parsers register themselves by file extension; the watcher and the
// CLI pick a parser through the registry rather than hardcoding one.
package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/c360studio/archdrift/analysis"
)

// FileParser parses source files of one language into module trees.
type FileParser interface {
	// ParseFile parses a single source file.
	ParseFile(ctx context.Context, filePath string) (*analysis.ParsedModule, error)

	// ParseDirectory parses all matching files under dirPath, skipping
	// files that fail to parse.
	ParseDirectory(ctx context.Context, dirPath string) ([]*analysis.ParsedModule, error)
}

// Factory creates a FileParser rooted at repoRoot. File paths in the
// produced modules are relative to repoRoot.
type Factory func(repoRoot string) FileParser

// ComputeHash returns the content hash used for change detection.
func ComputeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SkipPath reports whether a repo-relative path sits inside a directory
// that should never be analyzed: hidden directories, virtual
// environments, caches, and build output.
func SkipPath(relPath string) bool {
	for _, part := range strings.Split(relPath, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
		switch part {
		case "venv", "env", "__pycache__", "node_modules", "vendor",
			"dist", "build", "site-packages", "eggs":
			return true
		}
	}
	return false
}
