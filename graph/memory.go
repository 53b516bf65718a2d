package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/archdrift/analysis"
)

// MemoryStore is the mutex-guarded in-memory Store implementation. It
// is the reference backend: persistence adapters wrap it and replay
// their state into it on open.
//
// External placeholder elements are global nodes shared by every file
// that references them; file replacement never removes them.
type MemoryStore struct {
	mu sync.RWMutex

	elements map[string]*analysis.CodeElement
	byFile   map[string][]string
	byQName  map[string]string
	fileRels map[string][]*analysis.Relationship
	outgoing map[string][]*analysis.Relationship
	incoming map[string][]*analysis.Relationship

	classifications map[string]analysis.Classification
	intents         map[string]analysis.IntentTag
	violations      map[string][]analysis.Violation
	findings        map[string]analysis.HallucinationFinding
}

// NewMemoryStore creates an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		elements:        make(map[string]*analysis.CodeElement),
		byFile:          make(map[string][]string),
		byQName:         make(map[string]string),
		fileRels:        make(map[string][]*analysis.Relationship),
		outgoing:        make(map[string][]*analysis.Relationship),
		incoming:        make(map[string][]*analysis.Relationship),
		classifications: make(map[string]analysis.Classification),
		intents:         make(map[string]analysis.IntentTag),
		violations:      make(map[string][]analysis.Violation),
		findings:        make(map[string]analysis.HallucinationFinding),
	}
}

// UpsertFile implements Store.
func (s *MemoryStore) UpsertFile(_ context.Context, filePath string, elements []*analysis.CodeElement, rels []analysis.Relationship) error {
	if filePath == "" {
		return fmt.Errorf("upsert: empty file path")
	}
	for _, el := range elements {
		if err := el.Validate(); err != nil {
			return fmt.Errorf("upsert %s: %w", filePath, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Integrity check before any mutation so a rejected batch leaves
	// the graph untouched.
	inBatch := make(map[string]bool, len(elements))
	for _, el := range elements {
		inBatch[el.ID] = true
	}
	var missing []string
	seen := make(map[string]bool)
	for _, rel := range rels {
		for _, id := range []string{rel.SourceID, rel.TargetID} {
			if inBatch[id] || seen[id] {
				continue
			}
			if _, ok := s.elements[id]; ok {
				continue
			}
			seen[id] = true
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &IntegrityError{FilePath: filePath, Missing: missing}
	}

	s.removeFileLocked(filePath)

	var fileIDs []string
	for _, el := range elements {
		cp := *el
		s.elements[cp.ID] = &cp
		if prev, ok := s.byQName[cp.QualifiedName]; !ok || s.elements[prev] == nil || s.elements[prev].External {
			s.byQName[cp.QualifiedName] = cp.ID
		}
		if !cp.External {
			fileIDs = append(fileIDs, cp.ID)
		}
	}
	s.byFile[filePath] = fileIDs

	filePtrs := make([]*analysis.Relationship, 0, len(rels))
	for i := range rels {
		cp := rels[i]
		filePtrs = append(filePtrs, &cp)
		s.outgoing[cp.SourceID] = append(s.outgoing[cp.SourceID], &cp)
		s.incoming[cp.TargetID] = append(s.incoming[cp.TargetID], &cp)
	}
	s.fileRels[filePath] = filePtrs

	return nil
}

// removeFileLocked drops a file's previous elements, edges, and derived
// facts. Derived facts are dropped unconditionally; re-analysis
// recomputes them for any element that comes back. Edges from other
// files that resolved to a removed element are re-pointed at an
// external placeholder so no stored edge targets a missing ID.
func (s *MemoryStore) removeFileLocked(filePath string) {
	old := s.fileRels[filePath]
	if len(old) > 0 {
		drop := make(map[*analysis.Relationship]bool, len(old))
		for _, r := range old {
			drop[r] = true
		}
		for _, r := range old {
			s.outgoing[r.SourceID] = filterRels(s.outgoing[r.SourceID], drop)
			s.incoming[r.TargetID] = filterRels(s.incoming[r.TargetID], drop)
		}
	}
	delete(s.fileRels, filePath)

	for _, id := range s.byFile[filePath] {
		el, ok := s.elements[id]
		if !ok {
			continue
		}
		if s.byQName[el.QualifiedName] == id {
			delete(s.byQName, el.QualifiedName)
		}
		delete(s.elements, id)
		delete(s.classifications, id)
		delete(s.intents, id)
		delete(s.violations, id)
		delete(s.findings, id)
		delete(s.outgoing, id)
		s.retargetIncomingLocked(id, el)
	}
	delete(s.byFile, filePath)
}

// retargetIncomingLocked re-points edges from other files that still
// target a removed element at an external placeholder carrying the
// element's qualified name. Edge pointers are shared with the owning
// file's list, so the stored edges update in place. A later re-add of
// the real definition takes the qualified name back from the
// placeholder in UpsertFile.
func (s *MemoryStore) retargetIncomingLocked(id string, el *analysis.CodeElement) {
	survivors := s.incoming[id]
	delete(s.incoming, id)
	if len(survivors) == 0 {
		return
	}
	ph := analysis.NewExternalElement(el.Kind, el.QualifiedName)
	if _, ok := s.elements[ph.ID]; !ok {
		s.elements[ph.ID] = ph
	}
	if _, ok := s.byQName[el.QualifiedName]; !ok {
		s.byQName[el.QualifiedName] = ph.ID
	}
	for _, r := range survivors {
		r.TargetID = ph.ID
	}
	s.incoming[ph.ID] = append(s.incoming[ph.ID], survivors...)
}

func filterRels(rels []*analysis.Relationship, drop map[*analysis.Relationship]bool) []*analysis.Relationship {
	out := rels[:0]
	for _, r := range rels {
		if !drop[r] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Element implements Store.
func (s *MemoryStore) Element(_ context.Context, id string) (*analysis.CodeElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.elements[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *el
	return &cp, nil
}

// ResolveQualifiedName looks up an element ID by its qualified name.
// The extractor uses it to resolve call and import references against
// the current graph.
func (s *MemoryStore) ResolveQualifiedName(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byQName[name]
	return id, ok
}

// ElementsInFile returns the non-external element IDs currently
// recorded for a file. Persistence adapters use it to find stale
// per-element records when a file is re-upserted.
func (s *MemoryStore) ElementsInFile(filePath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.byFile[filePath]...)
}

// Relationships implements Store.
func (s *MemoryStore) Relationships(_ context.Context, elementID string, kind analysis.RelationKind, dir Direction) ([]analysis.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []analysis.Relationship
	appendMatching := func(rels []*analysis.Relationship) {
		for _, r := range rels {
			if kind == "" || r.Kind == kind {
				out = append(out, *r)
			}
		}
	}
	switch dir {
	case DirOutgoing:
		appendMatching(s.outgoing[elementID])
	case DirIncoming:
		appendMatching(s.incoming[elementID])
	case DirBoth:
		appendMatching(s.outgoing[elementID])
		appendMatching(s.incoming[elementID])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out, nil
}

// SetClassification implements Store.
func (s *MemoryStore) SetClassification(_ context.Context, c analysis.Classification) error {
	if c.ElementID == "" {
		return fmt.Errorf("classification has no element ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[c.ElementID] = c
	return nil
}

// Classification implements Store.
func (s *MemoryStore) Classification(_ context.Context, elementID string) (*analysis.Classification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classifications[elementID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// SetIntentTag implements Store.
func (s *MemoryStore) SetIntentTag(_ context.Context, tag analysis.IntentTag) error {
	if tag.ElementID == "" {
		return fmt.Errorf("intent tag has no element ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[tag.ElementID] = tag
	return nil
}

// IntentTag implements Store.
func (s *MemoryStore) IntentTag(_ context.Context, elementID string) (*analysis.IntentTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.intents[elementID]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// RecordViolations implements Store.
func (s *MemoryStore) RecordViolations(_ context.Context, elementID string, violations []analysis.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(violations) == 0 {
		delete(s.violations, elementID)
		return nil
	}
	s.violations[elementID] = append([]analysis.Violation(nil), violations...)
	return nil
}

// RecordFinding implements Store.
func (s *MemoryStore) RecordFinding(_ context.Context, f analysis.HallucinationFinding) error {
	if f.ElementID == "" {
		return fmt.Errorf("finding has no element ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings[f.ElementID] = f
	return nil
}

// Query implements Store.
func (s *MemoryStore) Query(_ context.Context, q Query) ([]*analysis.CodeElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*analysis.CodeElement
	for _, el := range s.elements {
		if q.Kind != "" && el.Kind != q.Kind {
			continue
		}
		if q.NameContains != "" && !containsFold(el.QualifiedName, q.NameContains) {
			continue
		}
		if q.Layer != "" && s.layerOfLocked(el.ID) != q.Layer {
			continue
		}
		if q.DependsOnLayer != "" && !s.dependsOnLayerLocked(el.ID, q.DependsOnLayer) {
			continue
		}
		cp := *el
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out, nil
}

func (s *MemoryStore) layerOfLocked(elementID string) analysis.Layer {
	if c, ok := s.classifications[elementID]; ok {
		return c.Layer
	}
	if el, ok := s.elements[elementID]; ok && el.External {
		return analysis.LayerInfrastructure
	}
	return analysis.LayerUnknown
}

func (s *MemoryStore) dependsOnLayerLocked(elementID string, layer analysis.Layer) bool {
	for _, r := range s.outgoing[elementID] {
		switch r.Kind {
		case analysis.RelImports, analysis.RelCalls, analysis.RelDependsOn:
			if s.layerOfLocked(r.TargetID) == layer {
				return true
			}
		}
	}
	return false
}

// Violations implements Store.
func (s *MemoryStore) Violations(_ context.Context, min analysis.Severity) ([]analysis.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []analysis.Violation
	for _, vs := range s.violations {
		for _, v := range vs {
			if analysis.SeverityAtLeast(v.Severity, min) {
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ElementID != out[j].ElementID {
			return out[i].ElementID < out[j].ElementID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// Findings implements Store.
func (s *MemoryStore) Findings(_ context.Context, min analysis.RiskLevel) ([]analysis.HallucinationFinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []analysis.HallucinationFinding
	for _, f := range s.findings {
		if analysis.RiskAtLeast(f.RiskLevel, min) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CombinedConfidence != out[j].CombinedConfidence {
			return out[i].CombinedConfidence > out[j].CombinedConfidence
		}
		return out[i].ElementID < out[j].ElementID
	})
	return out, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{TakenAt: time.Now().UTC()}
	for _, el := range s.elements {
		cp := *el
		snap.Elements = append(snap.Elements, &cp)
	}
	sort.Slice(snap.Elements, func(i, j int) bool {
		return snap.Elements[i].QualifiedName < snap.Elements[j].QualifiedName
	})
	files := make([]string, 0, len(s.fileRels))
	for f := range s.fileRels {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, r := range s.fileRels[f] {
			snap.Relationships = append(snap.Relationships, *r)
		}
	}
	for _, c := range s.classifications {
		snap.Classifications = append(snap.Classifications, c)
	}
	sort.Slice(snap.Classifications, func(i, j int) bool {
		return snap.Classifications[i].ElementID < snap.Classifications[j].ElementID
	})
	for _, t := range s.intents {
		snap.IntentTags = append(snap.IntentTags, t)
	}
	sort.Slice(snap.IntentTags, func(i, j int) bool {
		return snap.IntentTags[i].ElementID < snap.IntentTags[j].ElementID
	})
	violations, _ := s.violationsLocked()
	snap.Violations = violations
	for _, f := range s.findings {
		snap.Findings = append(snap.Findings, f)
	}
	sort.Slice(snap.Findings, func(i, j int) bool {
		return snap.Findings[i].ElementID < snap.Findings[j].ElementID
	})
	return snap, nil
}

func (s *MemoryStore) violationsLocked() ([]analysis.Violation, error) {
	var out []analysis.Violation
	for _, vs := range s.violations {
		out = append(out, vs...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ElementID != out[j].ElementID {
			return out[i].ElementID < out[j].ElementID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// Close implements Store. The in-memory store holds no resources.
func (s *MemoryStore) Close() error { return nil }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
