// Package configmanager is the external configuration-and-membership
// collaborator spec.md §2/§5 assumes exists: node/group attribute
// storage, collective peer membership, and the quorum gate the
// Executor checks before dispatching to a quorum-requiring plugin
// (SPEC_FULL.md §D.4, formalizing core.py's inline
// `cfm.get_collective_member`/`cfm.check_quorum` calls into named
// methods).
//
// Manager is deliberately narrow: it is the interface the rest of the
// core depends on, not a general-purpose persistence layer (SPEC_FULL.md
// §E Non-goals). InMemoryManager is the default, always-available
// reference implementation used by tests and by cmd/clustercored when
// no Postgres/Redis backend is configured.
package configmanager

import (
	"context"
	"sync"

	"github.com/clusterhub/clustercore/internal/logger"
)

// CollectiveMember describes a peer collective node, pinned by
// certificate fingerprint rather than verified against a CA (spec.md
// §5, C5).
type CollectiveMember struct {
	Name        string
	Address     string
	Fingerprint string
}

// Manager is the named interface spec.md's dispatch core depends on.
type Manager interface {
	// Attributes returns the full attribute set currently stored for
	// node. A node with no attributes at all returns an empty, non-nil
	// map and no error.
	Attributes(ctx context.Context, node string) (map[string]string, error)

	// SetAttributes merges attrs into node's stored attribute set.
	SetAttributes(ctx context.Context, node string, attrs map[string]string) error

	// GroupAttributes is the nodegroup analogue of Attributes.
	GroupAttributes(ctx context.Context, group string) (map[string]string, error)
	SetGroupAttributes(ctx context.Context, group string, attrs map[string]string) error

	// NodesInGroup lists the members of a nodegroup, for noderange
	// expansion of group references.
	NodesInGroup(ctx context.Context, group string) ([]string, error)

	// CollectiveMember looks up a peer by name (SPEC_FULL.md §D.4).
	CollectiveMember(ctx context.Context, name string) (CollectiveMember, bool)

	// Quorum reports whether the local collective member currently has
	// quorum — checked only for the plugin set that requires it
	// (spec.md §5; currently just "ipmi").
	Quorum(ctx context.Context) bool

	// MyName is this collective member's own name, used to decide
	// whether a node's owning member is the local one or a peer
	// (spec.md §5, C5).
	MyName() string

	// NodeOwner returns the name of the collective member that owns
	// node, or "" if no owner was ever assigned. A node owned by this
	// member may report either "" or MyName() (spec.md §5).
	NodeOwner(ctx context.Context, node string) string

	// Nodes lists every known node name, for the `/nodes/` collection
	// enumeration (spec.md §6, §8 scenario 5) — callers sort the
	// result with noderange.Compare before presenting it.
	Nodes(ctx context.Context) ([]string, error)

	// Groups lists every known nodegroup name, for the `/nodegroups/`
	// collection enumeration.
	Groups(ctx context.Context) ([]string, error)

	// HasCollective reports whether any peer collective member is
	// configured at all. The Executor only needs this to distinguish
	// "this node simply has no collective.manager because the member
	// isn't running a collective" from "a collective is active and this
	// node was never assigned an owner" (spec.md §4.4 step 3,
	// BadCollective).
	HasCollective(ctx context.Context) bool
}

// InMemoryManager is a thread-safe, process-local Manager used as the
// default reference implementation and in tests.
type InMemoryManager struct {
	mu sync.RWMutex

	nodeAttrs  map[string]map[string]string
	groupAttrs map[string]map[string]string
	groups     map[string][]string
	members    map[string]CollectiveMember
	owners     map[string]string
	nodeSet    map[string]bool
	groupSet   map[string]bool
	myName     string
	quorum     bool
}

// NewInMemoryManager constructs an InMemoryManager. myName is this
// collective member's own name (spec.md §5); quorum starts out true,
// and tests can flip it with SetQuorum.
func NewInMemoryManager(myName string) *InMemoryManager {
	return &InMemoryManager{
		nodeAttrs:  make(map[string]map[string]string),
		groupAttrs: make(map[string]map[string]string),
		groups:     make(map[string][]string),
		members:    make(map[string]CollectiveMember),
		owners:     make(map[string]string),
		nodeSet:    make(map[string]bool),
		groupSet:   make(map[string]bool),
		myName:     myName,
		quorum:     true,
	}
}

// RegisterNode records node as known, independent of it having any
// attributes set yet — the `/nodes/` collection enumeration (spec.md
// §6) must list a bare node the moment it's adopted, before any
// attribute write has happened.
func (m *InMemoryManager) RegisterNode(node string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeSet[node] = true
}

// RegisterGroup records group as known, independent of it having any
// attributes or members yet.
func (m *InMemoryManager) RegisterGroup(group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupSet[group] = true
}

func (m *InMemoryManager) Nodes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.nodeSet))
	for n := range m.nodeSet {
		out = append(out, n)
	}
	return out, nil
}

func (m *InMemoryManager) Groups(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.groupSet))
	for g := range m.groupSet {
		out = append(out, g)
	}
	return out, nil
}

func (m *InMemoryManager) Attributes(ctx context.Context, node string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAttrs(m.nodeAttrs[node]), nil
}

func (m *InMemoryManager) SetAttributes(ctx context.Context, node string, attrs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.nodeAttrs[node]
	if existing == nil {
		existing = make(map[string]string)
	}
	for k, v := range attrs {
		existing[k] = v
	}
	m.nodeAttrs[node] = existing
	m.nodeSet[node] = true
	logger.ConfigManager().Debug().Str("node", node).Int("attrs", len(attrs)).Msg("set node attributes")
	return nil
}

func (m *InMemoryManager) GroupAttributes(ctx context.Context, group string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAttrs(m.groupAttrs[group]), nil
}

func (m *InMemoryManager) SetGroupAttributes(ctx context.Context, group string, attrs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.groupAttrs[group]
	if existing == nil {
		existing = make(map[string]string)
	}
	for k, v := range attrs {
		existing[k] = v
	}
	m.groupAttrs[group] = existing
	m.groupSet[group] = true
	return nil
}

func (m *InMemoryManager) NodesInGroup(ctx context.Context, group string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.groups[group]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

// AddToGroup is a test/seeding helper; the real grammar for
// maintaining group membership lives outside this package's scope
// (SPEC_FULL.md §E Non-goals).
func (m *InMemoryManager) AddToGroup(group string, nodes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group] = append(m.groups[group], nodes...)
	m.groupSet[group] = true
	for _, n := range nodes {
		m.nodeSet[n] = true
	}
}

func (m *InMemoryManager) CollectiveMember(ctx context.Context, name string) (CollectiveMember, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[name]
	return member, ok
}

// AddMember registers a peer collective member, typically at startup
// from configuration (internal/config).
func (m *InMemoryManager) AddMember(member CollectiveMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.Name] = member
}

func (m *InMemoryManager) Quorum(ctx context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quorum
}

// SetQuorum lets tests and the collective heartbeat monitor flip
// quorum state.
func (m *InMemoryManager) SetQuorum(q bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quorum = q
}

func (m *InMemoryManager) MyName() string { return m.myName }

func (m *InMemoryManager) HasCollective(ctx context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members) > 0
}

func (m *InMemoryManager) NodeOwner(ctx context.Context, node string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[node]
}

// SetNodeOwner records which collective member owns node — "" or
// MyName() for local, any other registered member name for a peer
// (spec.md §5). Typically seeded from configuration at startup.
func (m *InMemoryManager) SetNodeOwner(node, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[node] = owner
	m.nodeSet[node] = true
}

func cloneAttrs(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
