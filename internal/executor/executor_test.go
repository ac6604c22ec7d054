package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterhub/clustercore/internal/configmanager"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/schema"
)

func newTestExecutor() (*Executor, *configmanager.InMemoryManager) {
	mgr := configmanager.NewInMemoryManager("member1")
	return New(mgr, nil), mgr
}

func TestRunFixedRouteAllNodesSameHandler(t *testing.T) {
	exec, _ := newTestExecutor()
	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1", "n2"},
		Route:     schema.FixedRoute{Handler: "ssh"},
		Operation: plugin.Create,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "n1", results[0].Node)
	assert.Equal(t, "n2", results[1].Node)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestRunPluginRouteDefault(t *testing.T) {
	exec, _ := newTestExecutor()
	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
		Operation: plugin.Retrieve,
		AutoStrip: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRunPluginRouteAttributeOverride(t *testing.T) {
	exec, mgr := newTestExecutor()
	require.NoError(t, mgr.SetAttributes(context.Background(), "n1", map[string]string{"hardwaremanagement.method": "redfish"}))

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
		Operation: plugin.Retrieve,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRunUnresolvedHandlerReportsError(t *testing.T) {
	exec, _ := newTestExecutor()
	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}},
		Operation: plugin.Retrieve,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestRunQuorumGateBlocksIPMI(t *testing.T) {
	// Quorum loss aborts the whole request synchronously (spec.md §4.4
	// step 3, §5, §7) rather than degrading to a per-node result, so a
	// mixed-plugin range never silently runs its non-ipmi nodes anyway.
	exec, mgr := newTestExecutor()
	mgr.SetQuorum(false)

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
		Operation: plugin.Retrieve,
	})
	require.Error(t, err)
	assert.Nil(t, results)

	var appErr *apperr.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.ErrCodeTargetResourceUnavailable, appErr.Code)
}

func TestRunQuorumGateMixedPluginsAbortsWholeRequest(t *testing.T) {
	// A range spanning both a non-dispatchable (ssh) node and an ipmi
	// node still aborts entirely on quorum loss — n2 never gets a
	// chance to produce a result just because it'd have succeeded on
	// its own (spec.md §4.4 step 3).
	exec, mgr := newTestExecutor()
	mgr.SetQuorum(false)
	require.NoError(t, mgr.SetAttributes(context.Background(), "n2", map[string]string{"hardwaremanagement.method": "ssh"}))

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes: []string{"n2", "n1"},
		Route: schema.PluginRoute{
			PluginAttrs: []string{"hardwaremanagement.method"},
			Default:     "ipmi",
		},
		Operation: plugin.Retrieve,
	})
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestRunRemoteNodeWithoutDispatcherReportsUnavailable(t *testing.T) {
	// Only handlers in the dispatchable/quorum set (currently "ipmi")
	// ever consult NodeOwner/collective.manager at all (spec.md §4.4
	// step 3) — a FixedRoute("ssh") node is always handled locally
	// regardless of ownership, so this exercises collective forwarding
	// through a PluginRoute whose Default is "ipmi".
	exec, mgr := newTestExecutor()
	mgr.SetNodeOwner("n1", "member2")
	mgr.AddMember(configmanager.CollectiveMember{Name: "member2", Address: "10.0.0.2:13001", Fingerprint: "x"})

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
		Operation: plugin.Retrieve,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestRunNonDispatchableHandlerIgnoresNodeOwner(t *testing.T) {
	// A node owned by a peer but resolving to a non-dispatchable
	// handler (e.g. "ssh") is handled locally, not forwarded — the
	// collective/quorum gate only applies to the dispatchable set
	// (spec.md §4.4 step 3).
	exec, mgr := newTestExecutor()
	mgr.SetNodeOwner("n1", "member2")
	mgr.AddMember(configmanager.CollectiveMember{Name: "member2", Address: "10.0.0.2:13001", Fingerprint: "x"})

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.FixedRoute{Handler: "ssh"},
		Operation: plugin.Create,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRunBadCollectiveWhenNodeHasNoManagerButCollectiveActive(t *testing.T) {
	// A collective is configured (another member is known) but n1 has
	// never been assigned an owner at all — spec.md §4.4 step 3's
	// BadCollective branch, distinct from both the local and the
	// peer-forward cases.
	exec, mgr := newTestExecutor()
	mgr.AddMember(configmanager.CollectiveMember{Name: "member2", Address: "10.0.0.2:13001", Fingerprint: "x"})

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
		Operation: plugin.Retrieve,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestRunLocalOwnerExplicitlyNamedSelfIsLocal(t *testing.T) {
	// A collective.manager attribute explicitly naming this member is
	// local even while a collective is active — only an entirely
	// missing collective.manager trips the BadCollective branch.
	exec, mgr := newTestExecutor()
	mgr.AddMember(configmanager.CollectiveMember{Name: "member2", Address: "10.0.0.2:13001", Fingerprint: "x"})
	mgr.SetNodeOwner("n1", "member1")

	results, err := exec.Run(context.Background(), ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
		Operation: plugin.Retrieve,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestStripAutoStripSingleNode(t *testing.T) {
	value, err := Strip([]plugin.Result{{Node: "n1", Value: "ok"}}, true)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestStripMultiNodeReturnsMap(t *testing.T) {
	value, err := Strip([]plugin.Result{{Node: "n1", Value: "a"}, {Node: "n2", Value: "b"}}, true)
	require.NoError(t, err)
	m, ok := value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a", m["n1"])
	assert.Equal(t, "b", m["n2"])
}
