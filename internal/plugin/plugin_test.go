package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPlugin struct {
	BasePlugin
}

func (p *echoPlugin) Retrieve(ctx context.Context, req Request, out chan<- Result) {
	for _, node := range req.Nodes {
		out <- Result{Node: node, Value: "echo"}
	}
}

func TestRegisterGetList(t *testing.T) {
	Register("test-echo", func() Handler { return &echoPlugin{BasePlugin: BasePlugin{Name: "test-echo"}} })

	handler, ok := Get("test-echo")
	require.True(t, ok)
	assert.NotNil(t, handler)

	assert.Contains(t, List(), "test-echo")

	_, ok = Get("test-does-not-exist")
	assert.False(t, ok)
}

func TestRegisterOverwritesDuplicate(t *testing.T) {
	Register("test-dup", func() Handler { return &echoPlugin{BasePlugin: BasePlugin{Name: "first"}} })
	Register("test-dup", func() Handler { return &echoPlugin{BasePlugin: BasePlugin{Name: "second"}} })

	handler, ok := Get("test-dup")
	require.True(t, ok)
	e, ok := handler.(*echoPlugin)
	require.True(t, ok)
	assert.Equal(t, "second", e.Name)
}

func TestBasePluginDefaultsToNotImplemented(t *testing.T) {
	p := &BasePlugin{Name: "bare"}
	out := make(chan Result, 4)

	p.Create(context.Background(), Request{Nodes: []string{"n1"}}, out)
	p.Retrieve(context.Background(), Request{Nodes: []string{"n1"}}, out)
	p.Update(context.Background(), Request{Nodes: []string{"n1"}}, out)
	p.Delete(context.Background(), Request{Nodes: []string{"n1"}}, out)
	close(out)

	count := 0
	for r := range out {
		count++
		assert.Equal(t, "n1", r.Node)
		assert.Error(t, r.Err)
	}
	assert.Equal(t, 4, count)
}

func TestBadPluginFailsUniformlyPerNode(t *testing.T) {
	want := UnresolvedHandler("hardwaremanagement.method")
	handler := NewBadPlugin(want)
	out := make(chan Result, 2)

	handler.Retrieve(context.Background(), Request{Nodes: []string{"n1", "n2"}}, out)
	close(out)

	for r := range out {
		assert.ErrorIs(t, r.Err, want)
	}
}

func TestNewBadCollectiveReportsSameErrorForEveryNode(t *testing.T) {
	want := UnresolvedHandler("peer unreachable")
	handler := NewBadCollective("member2", want)
	out := make(chan Result, 3)

	handler.Create(context.Background(), Request{Nodes: []string{"n1", "n2", "n3"}}, out)
	close(out)

	count := 0
	for r := range out {
		count++
		assert.ErrorIs(t, r.Err, want)
	}
	assert.Equal(t, 3, count)
}
