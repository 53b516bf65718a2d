package export

import (
	"fmt"
	"strings"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "Raw graph snapshot as indented JSON",
	},
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(name))
	if _, ok := FormatRegistry[f]; !ok {
		return "", fmt.Errorf("unsupported format %q (supported: json, turtle, ntriples)", name)
	}
	return f, nil
}

// TurtleWriter writes RDF in Turtle format.
type TurtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

// NewTurtleWriter creates a new Turtle writer with default prefixes.
func NewTurtleWriter() *TurtleWriter {
	return &TurtleWriter{
		prefixes: defaultPrefixes(),
	}
}

// SetPrefix sets a namespace prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// WritePrefixes writes prefix declarations in stable order.
func (w *TurtleWriter) WritePrefixes() {
	for _, prefix := range sortedPrefixKeys(w.prefixes) {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	w.sb.WriteString("\n")
}

// WriteSubject starts a new subject block.
func (w *TurtleWriter) WriteSubject(iri string) {
	w.sb.WriteString(fmt.Sprintf("<%s>\n", iri))
}

// WriteType writes a type assertion.
func (w *TurtleWriter) WriteType(typeIRI string, last bool) {
	terminator := " ;"
	if last {
		terminator = " ."
	}
	w.sb.WriteString(fmt.Sprintf("    a <%s>%s\n", typeIRI, terminator))
}

// WritePredicate writes a predicate-object pair.
func (w *TurtleWriter) WritePredicate(predicateIRI string, object any, last bool) {
	terminator := " ;"
	if last {
		terminator = " ."
	}
	objectStr := formatObject(object)
	w.sb.WriteString(fmt.Sprintf("    <%s> %s%s\n", predicateIRI, objectStr, terminator))
}

// WriteBlank writes a blank line for readability.
func (w *TurtleWriter) WriteBlank() {
	w.sb.WriteString("\n")
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(subject, predicate string, object any) {
	objectStr := formatObjectNTriples(object)
	w.sb.WriteString(fmt.Sprintf("<%s> <%s> %s .\n", subject, predicate, objectStr))
}

// WriteTypeTriple writes a type assertion triple.
func (w *NTriplesWriter) WriteTypeTriple(subject, typeIRI string) {
	rdfType := "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	w.sb.WriteString(fmt.Sprintf("<%s> <%s> <%s> .\n", subject, rdfType, typeIRI))
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}
