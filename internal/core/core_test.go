package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterhub/clustercore/internal/configmanager"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/plugin"
)

func newTestCore() (*Core, *configmanager.InMemoryManager) {
	mgr := configmanager.NewInMemoryManager("member1")
	plugin.Register("attributes", func() plugin.Handler { return configmanager.NewAttributesHandler(mgr) })
	plugin.Register("group_attributes", func() plugin.Handler { return configmanager.NewGroupAttributesHandler(mgr) })
	exec := executor.New(mgr, nil)
	users := configmanager.NewUserStore()
	return New(exec, mgr, users, nil), mgr
}

func TestDispatchRootCollection(t *testing.T) {
	c, _ := newTestCore()
	out, err := c.Dispatch(context.Background(), "/", plugin.Retrieve, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"discovery/", "events/", "networking/", "noderange/",
		"nodes/", "nodegroups/", "users/", "version",
	}, out)
}

func TestDispatchVersion(t *testing.T) {
	c, _ := newTestCore()
	out, err := c.Dispatch(context.Background(), "/version", plugin.Retrieve, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"version": Version}, out)
}

// §8 scenario 1: single node selecting ipmi via its attribute, no collective.
func TestDispatchSingleNodeAutoStrip(t *testing.T) {
	c, mgr := newTestCore()
	ctx := context.Background()
	require.NoError(t, mgr.SetAttributes(ctx, "n1", map[string]string{"hardwaremanagement.method": "ipmi"}))

	out, err := c.Dispatch(ctx, "/nodes/n1/power/state", plugin.Retrieve, nil)
	require.NoError(t, err)
	// stripped: a bare value, not a {"n1": ...} map
	_, isMap := out.(map[string]any)
	assert.False(t, isMap)
}

// §8 scenario 2: mixed plugin set across a node range.
func TestDispatchNodeRangeMixedPlugins(t *testing.T) {
	c, mgr := newTestCore()
	ctx := context.Background()
	require.NoError(t, mgr.SetAttributes(ctx, "n1", map[string]string{"hardwaremanagement.method": "ipmi"}))
	require.NoError(t, mgr.SetAttributes(ctx, "n2", map[string]string{"hardwaremanagement.method": "ipmi"}))
	require.NoError(t, mgr.SetAttributes(ctx, "n3", map[string]string{"hardwaremanagement.method": "redfish"}))

	out, err := c.Dispatch(ctx, "/noderange/n[1-3]/power/state", plugin.Retrieve, nil)
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Len(t, m, 3)
	assert.Contains(t, m, "n1")
	assert.Contains(t, m, "n2")
	assert.Contains(t, m, "n3")
}

// §8 scenario 6: abbreviate bypasses fan-out entirely.
func TestDispatchAbbreviate(t *testing.T) {
	c, _ := newTestCore()
	body, err := json.Marshal(map[string]any{"nodes": []string{"n1", "n2"}})
	require.NoError(t, err)

	out, err := c.Dispatch(context.Background(), "/noderange/n[1-2]/abbreviate", plugin.Create, body)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"noderange": "n1-n2"}, out)
}

// §8 scenario 4: password never round-trips in cleartext.
func TestDispatchUserPasswordNeverLeaks(t *testing.T) {
	c, _ := newTestCore()
	ctx := context.Background()

	createBody, err := json.Marshal(map[string]string{"name": "alice", "password": "secret"})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, "/users/", plugin.Create, createBody)
	require.NoError(t, err)

	out, err := c.Dispatch(ctx, "/users/alice", plugin.Retrieve, nil)
	require.NoError(t, err)
	view, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]bool{"cryptvalue": true}, view["password"])
	for _, v := range view {
		if s, ok := v.(string); ok {
			assert.NotEqual(t, "secret", s)
		}
	}
}

// §8 scenario 5: natural sort order for node listings.
func TestDispatchNodesListingNaturalSort(t *testing.T) {
	c, mgr := newTestCore()
	ctx := context.Background()
	for _, n := range []string{"n10", "n2", "n1"} {
		require.NoError(t, mgr.SetAttributes(ctx, n, map[string]string{}))
	}

	out, err := c.Dispatch(ctx, "/nodes/", plugin.Retrieve, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n10"}, out)
}

func TestDispatchNodeRangeEmptyExpressionIsInvalid(t *testing.T) {
	c, _ := newTestCore()
	out, err := c.Dispatch(context.Background(), "/noderange/", plugin.Retrieve, nil)
	assert.Error(t, err) // empty expression is invalid, not zero-node
	_ = out
}

func TestDispatchUnknownRootNotFound(t *testing.T) {
	c, _ := newTestCore()
	_, err := c.Dispatch(context.Background(), "/bogus", plugin.Retrieve, nil)
	require.Error(t, err)
}

func TestDispatchNodeGroupAttributes(t *testing.T) {
	c, mgr := newTestCore()
	ctx := context.Background()
	mgr.AddToGroup("rack1", "n1", "n2")

	body, err := json.Marshal(map[string]string{"site": "dc1"})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, "/nodegroups/rack1/attributes/all", plugin.Update, body)
	require.NoError(t, err)

	out, err := c.Dispatch(ctx, "/nodegroups/rack1/attributes/all", plugin.Retrieve, nil)
	require.NoError(t, err)
	attrs, ok := out.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "dc1", attrs["site"])
}
