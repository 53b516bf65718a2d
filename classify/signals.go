package classify

import (
	"strings"

	"github.com/c360studio/archdrift/analysis"
)

// Signal weights. Confidence is the weight of signals agreeing with the
// winning layer divided by the weight of all signals that voted, so a
// lone voting signal is fully confident and disagreement lowers the
// score.
const (
	weightPath      = 0.35
	weightImports   = 0.30
	weightNaming    = 0.20
	weightStructure = 0.15
)

type vote struct {
	layer  analysis.Layer
	role   string
	weight float64
}

// heuristic runs the deterministic signals and combines their votes.
func (c *Classifier) heuristic(subject Subject) analysis.Classification {
	el := subject.Element

	votes := make([]vote, 0, 4)
	if v, ok := pathSignal(el.FilePath); ok {
		v.weight = weightPath
		votes = append(votes, v)
	}
	if v, ok := importSignal(subject.Imports); ok {
		v.weight = weightImports
		votes = append(votes, v)
	}
	if v, ok := namingSignal(el.Name); ok {
		v.weight = weightNaming
		votes = append(votes, v)
	}
	if v, ok := structureSignal(el); ok {
		v.weight = weightStructure
		votes = append(votes, v)
	}

	result := analysis.Classification{
		ElementID: el.ID,
		Layer:     analysis.LayerUnknown,
		Method:    analysis.MethodHeuristic,
		Pattern:   patternSignal(el.Name),
	}
	if len(votes) == 0 {
		return result
	}

	tally := make(map[analysis.Layer]float64)
	var total float64
	for _, v := range votes {
		tally[v.layer] += v.weight
		total += v.weight
	}
	var winner analysis.Layer
	var best float64
	for _, layer := range []analysis.Layer{analysis.LayerCore, analysis.LayerApplication, analysis.LayerInfrastructure} {
		if tally[layer] > best {
			winner, best = layer, tally[layer]
		}
	}
	result.Layer = winner
	result.Confidence = best / total

	// Role comes from the most specific agreeing signal.
	for _, v := range votes {
		if v.layer == winner && v.role != "" {
			result.Role = v.role
			break
		}
	}
	return result
}

var pathKeywords = []struct {
	keyword string
	layer   analysis.Layer
	role    string
}{
	{"domain", analysis.LayerCore, ""},
	{"core", analysis.LayerCore, ""},
	{"entities", analysis.LayerCore, "entity"},
	{"models", analysis.LayerCore, "entity"},
	{"usecases", analysis.LayerApplication, "use-case"},
	{"services", analysis.LayerApplication, "service"},
	{"application", analysis.LayerApplication, ""},
	{"handlers", analysis.LayerApplication, "handler"},
	{"workflows", analysis.LayerApplication, ""},
	{"infrastructure", analysis.LayerInfrastructure, ""},
	{"infra", analysis.LayerInfrastructure, ""},
	{"adapters", analysis.LayerInfrastructure, "adapter"},
	{"repositories", analysis.LayerInfrastructure, "repository"},
	{"storage", analysis.LayerInfrastructure, "repository"},
	{"db", analysis.LayerInfrastructure, "repository"},
	{"api", analysis.LayerInfrastructure, "controller"},
	{"clients", analysis.LayerInfrastructure, "client"},
	{"gateways", analysis.LayerInfrastructure, "gateway"},
}

func pathSignal(filePath string) (vote, bool) {
	segments := strings.FieldsFunc(strings.ToLower(filePath), func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, seg := range segments {
		for _, kw := range pathKeywords {
			if seg == kw.keyword {
				return vote{layer: kw.layer, role: kw.role}, true
			}
		}
	}
	return vote{}, false
}

// infraImports are Python packages that mark a module as talking to the
// outside world.
var infraImports = map[string]bool{
	"requests": true, "httpx": true, "urllib3": true, "aiohttp": true,
	"sqlalchemy": true, "psycopg2": true, "pymysql": true, "sqlite3": true,
	"boto3": true, "redis": true, "pymongo": true, "kafka": true, "pika": true,
	"django": true, "flask": true, "fastapi": true, "celery": true,
	"grpc": true, "elasticsearch": true, "smtplib": true, "paramiko": true,
}

// pureImports never disqualify a module from the core layer.
var pureImports = map[string]bool{
	"typing": true, "dataclasses": true, "abc": true, "enum": true,
	"decimal": true, "datetime": true, "uuid": true, "math": true,
	"functools": true, "itertools": true, "collections": true, "re": true,
}

func importSignal(imports []string) (vote, bool) {
	if len(imports) == 0 {
		return vote{}, false
	}
	pure := true
	for _, imp := range imports {
		root, _, _ := strings.Cut(imp, ".")
		if infraImports[root] {
			return vote{layer: analysis.LayerInfrastructure}, true
		}
		if !pureImports[root] {
			pure = false
		}
	}
	if pure {
		return vote{layer: analysis.LayerCore}, true
	}
	return vote{}, false
}

var namingSuffixes = []struct {
	suffix string
	layer  analysis.Layer
	role   string
}{
	{"Repository", analysis.LayerInfrastructure, "repository"},
	{"Store", analysis.LayerInfrastructure, "repository"},
	{"DAO", analysis.LayerInfrastructure, "repository"},
	{"Client", analysis.LayerInfrastructure, "client"},
	{"Gateway", analysis.LayerInfrastructure, "gateway"},
	{"Adapter", analysis.LayerInfrastructure, "adapter"},
	{"Controller", analysis.LayerInfrastructure, "controller"},
	{"Service", analysis.LayerApplication, "service"},
	{"Handler", analysis.LayerApplication, "handler"},
	{"UseCase", analysis.LayerApplication, "use-case"},
	{"Command", analysis.LayerApplication, "command"},
	{"Query", analysis.LayerApplication, "query"},
	{"Entity", analysis.LayerCore, "entity"},
	{"ValueObject", analysis.LayerCore, "value-object"},
	{"Aggregate", analysis.LayerCore, "entity"},
	{"Policy", analysis.LayerCore, "policy"},
}

func namingSignal(name string) (vote, bool) {
	for _, s := range namingSuffixes {
		if strings.HasSuffix(name, s.suffix) && name != s.suffix {
			return vote{layer: s.layer, role: s.role}, true
		}
	}
	return vote{}, false
}

// structureSignal votes on element kind alone, weakly: constants and
// plain data shapes lean core.
func structureSignal(el *analysis.CodeElement) (vote, bool) {
	switch el.Kind {
	case analysis.KindConstant:
		return vote{layer: analysis.LayerCore}, true
	default:
		return vote{}, false
	}
}

// patternSignal detects common design patterns from naming conventions.
func patternSignal(name string) string {
	switch {
	case strings.HasSuffix(name, "Factory"):
		return "factory"
	case strings.HasSuffix(name, "Builder"):
		return "builder"
	case strings.HasSuffix(name, "Singleton") || name == "get_instance":
		return "singleton"
	case strings.HasSuffix(name, "Repository"):
		return "repository"
	case strings.HasSuffix(name, "Observer") || strings.HasSuffix(name, "Listener"):
		return "observer"
	case strings.HasSuffix(name, "Strategy"):
		return "strategy"
	default:
		return ""
	}
}
