package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/classify"
	"github.com/c360studio/archdrift/drift"
	"github.com/c360studio/archdrift/extract"
	"github.com/c360studio/archdrift/hallucinate"
)

// AnalysisDelta summarizes what one file's analysis produced.
type AnalysisDelta struct {
	FilePath        string
	Batch           *extract.Result
	Classifications []analysis.Classification
	IntentTags      []analysis.IntentTag
	Warnings        []analysis.TagParseWarning
	Violations      []analysis.Violation
	Findings        []analysis.HallucinationFinding
}

// FileError records one file's failure inside an otherwise successful run.
type FileError struct {
	FilePath string
	Err      error
}

// RunReport is the partial-success summary of one AnalyzeAll run.
type RunReport struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	FilesAnalyzed int
	FilesFailed   int
	Elements      int
	Violations    int
	Findings      int
	Errors        []FileError
}

// Analyze runs the full pass for one parsed file and commits the
// results. Extraction or store failures return an error; tag problems
// and collaborator outages degrade into warnings and heuristics.
func (p *Pipeline) Analyze(ctx context.Context, pm *analysis.ParsedModule) (*AnalysisDelta, error) {
	prepared, err := p.prepare(ctx, pm)
	if err != nil {
		return nil, err
	}
	if err := p.commit(ctx, prepared); err != nil {
		return nil, err
	}
	return prepared, nil
}

// prepare runs the store-independent passes: extraction, intent tags,
// and classification.
func (p *Pipeline) prepare(ctx context.Context, pm *analysis.ParsedModule) (*AnalysisDelta, error) {
	res, err := p.extractor.ExtractModule(pm)
	if err != nil {
		return nil, err
	}

	delta := &AnalysisDelta{FilePath: pm.FilePath, Batch: res}

	var imports []string
	for _, imp := range pm.Root.Imports {
		imports = append(imports, imp.Module)
	}

	for _, el := range res.Elements {
		if el.External {
			continue
		}
		if tag, warnings := p.intents.Parse(el.ID, res.TagText[el.ID]); tag != nil {
			delta.IntentTags = append(delta.IntentTags, *tag)
			delta.Warnings = append(delta.Warnings, warnings...)
		}
		cls := p.classifier.Classify(ctx, classify.Subject{Element: el, Imports: imports})
		delta.Classifications = append(delta.Classifications, cls)
	}
	return delta, nil
}

// commit writes the delta to the store and runs the graph-dependent
// detectors. All store mutation for a run flows through here.
func (p *Pipeline) commit(ctx context.Context, delta *AnalysisDelta) error {
	res := delta.Batch
	if err := p.store.UpsertFile(ctx, delta.FilePath, res.Elements, res.Relationships); err != nil {
		return fmt.Errorf("commit %s: %w", delta.FilePath, err)
	}
	for _, tag := range delta.IntentTags {
		if err := p.store.SetIntentTag(ctx, tag); err != nil {
			return fmt.Errorf("commit %s: %w", delta.FilePath, err)
		}
	}
	for _, cls := range delta.Classifications {
		if err := p.store.SetClassification(ctx, cls); err != nil {
			return fmt.Errorf("commit %s: %w", delta.FilePath, err)
		}
	}

	tags := make(map[string]*analysis.IntentTag, len(delta.IntentTags))
	for i := range delta.IntentTags {
		tags[delta.IntentTags[i].ElementID] = &delta.IntentTags[i]
	}
	classifications := make(map[string]analysis.Classification, len(delta.Classifications))
	for _, c := range delta.Classifications {
		classifications[c.ElementID] = c
	}

	scope := newFileScope(res)

	for _, el := range res.Elements {
		if el.External {
			continue
		}

		violations := p.drift.Detect(ctx, drift.Input{
			Element:        el,
			Tag:            tags[el.ID],
			Classification: classifications[el.ID],
			Outgoing:       scope.aggregatedOutgoing(el.ID),
			Mutations:      scope.aggregatedMutations(el.ID),
		})
		if err := p.store.RecordViolations(ctx, el.ID, violations); err != nil {
			return fmt.Errorf("commit %s: %w", delta.FilePath, err)
		}
		delta.Violations = append(delta.Violations, violations...)

		finding := p.hallucinator.Detect(ctx, hallucinate.Target{
			Element:    el,
			Outgoing:   scope.outgoing[el.ID],
			TargetName: scope.externalNames,
			ParseOK:    true,
			Stub:       scope.isStub(el),
			Snippet:    snippetFor(el, res),
		})
		if err := p.store.RecordFinding(ctx, finding); err != nil {
			return fmt.Errorf("commit %s: %w", delta.FilePath, err)
		}
		delta.Findings = append(delta.Findings, finding)
	}
	return nil
}

// AnalyzeAll analyzes files concurrently with a bounded worker pool.
// Workers run the store-independent passes; a single committer
// goroutine applies every store mutation in arrival order. Canceling
// the context stops dispatch but lets in-flight commits finish.
func (p *Pipeline) AnalyzeAll(ctx context.Context, modules []*analysis.ParsedModule) *RunReport {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("analysis run started", "files", len(modules))

	type outcome struct {
		filePath string
		delta    *AnalysisDelta
		err      error
	}

	jobs := make(chan *analysis.ParsedModule, p.cfg.QueueSize)
	results := make(chan outcome, p.cfg.QueueSize)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pm := range jobs {
				delta, err := p.prepare(ctx, pm)
				results <- outcome{filePath: pm.FilePath, delta: delta, err: err}
			}
		}()
	}

	go func() {
	dispatch:
		for _, pm := range modules {
			select {
			case <-ctx.Done():
				break dispatch
			case jobs <- pm:
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single committer: in-flight work is committed even after
	// cancellation so the graph never holds half a file.
	for out := range results {
		if out.err == nil {
			out.err = p.commit(context.WithoutCancel(ctx), out.delta)
		}
		if out.err != nil {
			report.FilesFailed++
			report.Errors = append(report.Errors, FileError{FilePath: out.filePath, Err: out.err})
			logger.Warn("file analysis failed", "file", out.filePath, "error", out.err)
			continue
		}
		report.FilesAnalyzed++
		report.Elements += len(out.delta.Batch.Elements)
		report.Violations += len(out.delta.Violations)
		for _, f := range out.delta.Findings {
			if analysis.RiskAtLeast(f.RiskLevel, analysis.RiskLow) {
				report.Findings++
			}
		}
	}

	report.Duration = time.Since(report.StartedAt)
	logger.Info("analysis run finished",
		"analyzed", report.FilesAnalyzed,
		"failed", report.FilesFailed,
		"violations", report.Violations,
		"findings", report.Findings,
		"duration", report.Duration)
	return report
}

// fileScope indexes one file's batch for per-element aggregation.
type fileScope struct {
	outgoing      map[string][]analysis.Relationship
	children      map[string][]string
	mutations     map[string][]analysis.Mutation
	externalNames map[string]string
}

func newFileScope(res *extract.Result) *fileScope {
	s := &fileScope{
		outgoing:      make(map[string][]analysis.Relationship),
		children:      make(map[string][]string),
		mutations:     res.Mutations,
		externalNames: make(map[string]string),
	}
	for _, rel := range res.Relationships {
		s.outgoing[rel.SourceID] = append(s.outgoing[rel.SourceID], rel)
		if rel.Kind == analysis.RelContains {
			s.children[rel.SourceID] = append(s.children[rel.SourceID], rel.TargetID)
		}
	}
	for _, el := range res.Elements {
		if el.External {
			s.externalNames[el.ID] = el.QualifiedName
		}
	}
	return s
}

// aggregatedOutgoing returns the element's outgoing edges plus those of
// its contained descendants, so a tag declared on a class covers its
// methods.
func (s *fileScope) aggregatedOutgoing(id string) []analysis.Relationship {
	var out []analysis.Relationship
	s.walk(id, func(eid string) {
		out = append(out, s.outgoing[eid]...)
	})
	return out
}

// aggregatedMutations returns mutations observed in the element and its
// descendants.
func (s *fileScope) aggregatedMutations(id string) []analysis.Mutation {
	var out []analysis.Mutation
	s.walk(id, func(eid string) {
		out = append(out, s.mutations[eid]...)
	})
	return out
}

// isStub reports whether a callable's body produced no observable
// activity at all: no edges, no mutations, no nested definitions.
func (s *fileScope) isStub(el *analysis.CodeElement) bool {
	if el.Kind != analysis.KindFunction && el.Kind != analysis.KindMethod {
		return false
	}
	return len(s.outgoing[el.ID]) == 0 && len(s.mutations[el.ID]) == 0
}

func (s *fileScope) walk(id string, fn func(string)) {
	fn(id)
	for _, child := range s.children[id] {
		s.walk(child, fn)
	}
}

// snippetFor assembles the text the hallucination layers inspect.
func snippetFor(el *analysis.CodeElement, res *extract.Result) string {
	snippet := el.RawSignature
	if text := res.TagText[el.ID]; text != "" {
		if snippet != "" {
			snippet += "\n"
		}
		snippet += text
	} else if el.Docstring != "" {
		if snippet != "" {
			snippet += "\n"
		}
		snippet += el.Docstring
	}
	return snippet
}
