package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterhub/clustercore/internal/schema"
)

func TestResolveCollectionRoot(t *testing.T) {
	out := Resolve(schema.NodeSchema, nil)
	require.Equal(t, Collection, out.Kind)
	assert.Contains(t, out.Children, "attributes")
	assert.Contains(t, out.Children, "power")
	// hidden segments never show up in enumeration
	assert.NotContains(t, out.Children, "_console")
	assert.NotContains(t, out.Children, "_shell")
}

func TestResolveFixedRoute(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"attributes", "all"})
	require.Equal(t, Matched, out.Kind)
	fr, ok := out.Route.(schema.FixedRoute)
	require.True(t, ok)
	assert.Equal(t, "attributes", fr.Handler)
	assert.Empty(t, out.Remainder)
}

func TestResolveAttributesExpression(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"attributes", "expression"})
	require.Equal(t, Matched, out.Kind)
	_, ok := out.Route.(schema.FixedRoute)
	require.True(t, ok)
}

func TestResolvePluginRoute(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"power", "state"})
	require.Equal(t, Matched, out.Kind)
	pr, ok := out.Route.(schema.PluginRoute)
	require.True(t, ok)
	assert.Equal(t, "ipmi", pr.Default)
}

func TestResolvePluginCollectionKeepsRemainder(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"shell", "sessions", "42"})
	require.Equal(t, Matched, out.Kind)
	_, ok := out.Route.(schema.PluginCollection)
	require.True(t, ok)
	assert.Equal(t, []string{"42"}, out.Remainder)
}

func TestResolveHiddenSegmentResolvesExplicitly(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"_shell", "session"})
	require.Equal(t, Matched, out.Kind)
	fr, ok := out.Route.(schema.FixedRoute)
	require.True(t, ok)
	assert.Equal(t, "ssh", fr.Handler)
}

func TestResolveOpaque(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"console", "session"})
	require.Equal(t, CustomInterface, out.Kind)
	_, ok := out.Route.(schema.Opaque)
	assert.True(t, ok)
}

func TestResolveOpaqueWithTrailingSegmentNotFound(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"console", "session", "extra"})
	assert.Equal(t, NotFound, out.Kind)
}

func TestResolveUnknownSegment(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"nonexistent"})
	assert.Equal(t, NotFound, out.Kind)
}

func TestResolveFixedRouteWithTrailingSegmentNotFound(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"attributes", "all", "extra"})
	assert.Equal(t, NotFound, out.Kind)
}

func TestResolveNestedCollection(t *testing.T) {
	out := Resolve(schema.NodeSchema, []string{"configuration", "storage"})
	require.Equal(t, Collection, out.Kind)
	assert.ElementsMatch(t, []string{"all", "arrays", "disks", "volumes"}, out.Children)
}

func TestResolveNodeGroupAttributes(t *testing.T) {
	out := Resolve(schema.NodeGroupSchema, []string{"attributes", "current"})
	require.Equal(t, Matched, out.Kind)
	_, ok := out.Route.(schema.FixedRoute)
	assert.True(t, ok)
}
