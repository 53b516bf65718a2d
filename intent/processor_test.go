package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archdrift/analysis"
)

func TestParseFullIntentLine(t *testing.T) {
	p := NewProcessor(nil)
	text := `Order aggregate root.

    @intent: core:entity:aggregate-root:immutable,thread-safe
    @depends-on: core
    @business-rule: total must equal sum of line items
`
	tag, warnings := p.Parse("el1", text)
	require.NotNil(t, tag)
	assert.Empty(t, warnings)
	assert.Equal(t, analysis.LayerCore, tag.Layer)
	assert.Equal(t, "entity", tag.Role)
	assert.Equal(t, "aggregate-root", tag.Pattern)
	assert.Equal(t, []string{"immutable", "thread-safe"}, tag.Constraints)
	assert.Equal(t, []string{"core"}, tag.DeclaredDependencies)
	assert.Equal(t, []string{"total must equal sum of line items"}, tag.BusinessRules)
	assert.Equal(t, analysis.TagDeclared, tag.Source)
}

func TestParseConstraintShorthand(t *testing.T) {
	p := NewProcessor(nil)
	tag, warnings := p.Parse("el1", "@intent: core:entity:immutable")
	require.NotNil(t, tag)
	assert.Empty(t, warnings)
	assert.Empty(t, tag.Pattern, "constraint names in the third field are not a pattern")
	assert.Equal(t, []string{"immutable"}, tag.Constraints)
}

func TestParseNoTags(t *testing.T) {
	p := NewProcessor(nil)
	tag, warnings := p.Parse("el1", "Just a docstring.\nNothing declared here.")
	assert.Nil(t, tag)
	assert.Empty(t, warnings)
}

func TestParseMalformedIntentDegrades(t *testing.T) {
	p := NewProcessor(nil)
	tag, warnings := p.Parse("el1", "@intent: core")
	require.NotNil(t, tag, "malformed intent must still yield a tag")
	assert.Equal(t, analysis.LayerUnknown, tag.Layer)
	require.Len(t, warnings, 1)
	assert.Equal(t, "el1", warnings[0].ElementID)
	assert.Contains(t, warnings[0].Reason, "layer:role")
}

func TestParseUnknownLayerWarns(t *testing.T) {
	p := NewProcessor(nil)
	tag, warnings := p.Parse("el1", "@intent: busines:service")
	require.NotNil(t, tag)
	assert.Equal(t, analysis.LayerUnknown, tag.Layer)
	assert.Equal(t, "service", tag.Role, "role survives an unknown layer")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Reason, "unknown layer")
}

func TestParseUnknownKeyPreserved(t *testing.T) {
	p := NewProcessor(nil)
	tag, warnings := p.Parse("el1", "@intent: application:service\n@owner: billing-team")
	require.NotNil(t, tag)
	assert.Empty(t, warnings)
	assert.Equal(t, "billing-team", tag.Other["owner"])
}

func TestParseCommentLeadersStripped(t *testing.T) {
	p := NewProcessor(nil)
	tag, warnings := p.Parse("el1", "# @intent: infrastructure:repository")
	require.NotNil(t, tag)
	assert.Empty(t, warnings)
	assert.Equal(t, analysis.LayerInfrastructure, tag.Layer)
	assert.Equal(t, "repository", tag.Role)
}

func TestParseDependsOnAccumulates(t *testing.T) {
	p := NewProcessor(nil)
	tag, _ := p.Parse("el1", "@depends-on: core, application\n@depends-on: infrastructure")
	require.NotNil(t, tag)
	assert.Equal(t, []string{"core", "application", "infrastructure"}, tag.DeclaredDependencies)
	assert.Equal(t, analysis.LayerUnknown, tag.Layer, "depends-on alone does not set a layer")
}
