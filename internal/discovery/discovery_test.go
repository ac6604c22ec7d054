package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterhub/clustercore/internal/configmanager"
	"github.com/clusterhub/clustercore/internal/plugin"
)

func TestInMemoryDiscoveryDetectedCollection(t *testing.T) {
	d := NewInMemoryDiscovery()
	d.Seed(DetectedNode{Name: "n1", Address: "10.0.0.1"})
	d.Seed(DetectedNode{Name: "n2", Address: "10.0.0.2"})

	mgr := configmanager.NewInMemoryManager("member1")
	result, err := d.HandleAPIRequest(context.Background(), mgr, nil, plugin.Retrieve, []string{"detected"})
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	nodes, ok := m["nodes"].([]DetectedNode)
	require.True(t, ok)
	assert.Len(t, nodes, 2)
}

func TestInMemoryDiscoveryAdoptRemovesNode(t *testing.T) {
	d := NewInMemoryDiscovery()
	d.Seed(DetectedNode{Name: "n1"})
	d.Adopt("n1")

	mgr := configmanager.NewInMemoryManager("member1")
	result, err := d.HandleAPIRequest(context.Background(), mgr, nil, plugin.Retrieve, []string{"detected"})
	require.NoError(t, err)

	m := result.(map[string]any)
	nodes := m["nodes"].([]DetectedNode)
	assert.Len(t, nodes, 0)
}

func TestInMemoryDiscoveryRejectsUnknownPath(t *testing.T) {
	d := NewInMemoryDiscovery()
	mgr := configmanager.NewInMemoryManager("member1")
	_, err := d.HandleAPIRequest(context.Background(), mgr, nil, plugin.Retrieve, []string{"bogus"})
	assert.Error(t, err)
}

func TestInMemoryDiscoveryRejectsWriteOperations(t *testing.T) {
	d := NewInMemoryDiscovery()
	mgr := configmanager.NewInMemoryManager("member1")
	_, err := d.HandleAPIRequest(context.Background(), mgr, nil, plugin.Create, []string{"detected"})
	assert.Error(t, err)
}

func TestNewNATSDiscoveryDisabledWithoutURL(t *testing.T) {
	d, err := NewNATSDiscovery(Config{})
	require.NoError(t, err)
	assert.False(t, d.Enabled())

	mgr := configmanager.NewInMemoryManager("member1")
	result, err := d.HandleAPIRequest(context.Background(), mgr, nil, plugin.Retrieve, []string{"detected"})
	require.NoError(t, err)
	m := result.(map[string]any)
	assert.Len(t, m["nodes"], 0)
}
