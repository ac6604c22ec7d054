package collective

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterhub/clustercore/internal/configmanager"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	_ "github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/schema"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	lis.Close()
	return addr
}

func TestDispatchRoundTripOverTLS(t *testing.T) {
	serverCert := generateTestCert(t)
	clientCert := generateTestCert(t)

	serverMgr := configmanager.NewInMemoryManager("server-member")
	serverMgr.AddMember(configmanager.CollectiveMember{
		Name:        "client-member",
		Fingerprint: certFingerprint(t, clientCert),
	})
	serverExec := executor.New(serverMgr, nil)
	srv := NewServer(serverCert, serverMgr, serverExec)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Listen(ctx, addr)
	time.Sleep(50 * time.Millisecond)

	dispatcher := NewDispatcher(clientCert, "client-member")
	member := configmanager.CollectiveMember{
		Name:        "server-member",
		Address:     addr,
		Fingerprint: certFingerprint(t, serverCert),
	}

	req := executor.ExecRequest{
		Nodes:     []string{"n1", "n2"},
		Route:     schema.FixedRoute{Handler: "ssh"},
		Operation: "create",
	}

	ch, err := dispatcher.Dispatch(context.Background(), member, req)
	require.NoError(t, err)

	var results []string
	for r := range ch {
		results = append(results, r.Node)
		assert.NoError(t, r.Err)
	}
	assert.ElementsMatch(t, []string{"n1", "n2"}, results)
}

func TestDispatchFingerprintMismatchFailsClosed(t *testing.T) {
	serverCert := generateTestCert(t)
	clientCert := generateTestCert(t)
	wrongCert := generateTestCert(t)

	serverMgr := configmanager.NewInMemoryManager("server-member")
	serverMgr.AddMember(configmanager.CollectiveMember{
		Name:        "client-member",
		Fingerprint: certFingerprint(t, wrongCert), // deliberately wrong
	})
	serverExec := executor.New(serverMgr, nil)
	srv := NewServer(serverCert, serverMgr, serverExec)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Listen(ctx, addr)
	time.Sleep(50 * time.Millisecond)

	dispatcher := NewDispatcher(clientCert, "client-member")
	member := configmanager.CollectiveMember{
		Name:        "server-member",
		Address:     addr,
		Fingerprint: certFingerprint(t, serverCert),
	}

	req := executor.ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.FixedRoute{Handler: "ssh"},
		Operation: "create",
	}

	ch, err := dispatcher.Dispatch(context.Background(), member, req)
	require.NoError(t, err)

	var got []string
	for r := range ch {
		got = append(got, r.Node)
		assert.Error(t, r.Err)
	}
	assert.Len(t, got, 1)
}

func TestDispatchOwnFingerprintMismatchIsFatal(t *testing.T) {
	// This is the inverse of TestDispatchFingerprintMismatchFailsClosed:
	// there the *server* rejects the client's certificate (it closes the
	// connection after the Hello, still degraded to per-node
	// TargetResourceUnavailable).
	// Here the *dispatcher itself* pinned the wrong fingerprint for the
	// peer it's dialing, so its own VerifyPeerCertificate callback
	// raises apperr.PeerCertificateMismatch directly — that must abort
	// the whole request rather than read as an unreachable peer.
	serverCert := generateTestCert(t)
	clientCert := generateTestCert(t)

	serverMgr := configmanager.NewInMemoryManager("server-member")
	serverMgr.AddMember(configmanager.CollectiveMember{
		Name:        "client-member",
		Fingerprint: certFingerprint(t, clientCert),
	})
	serverExec := executor.New(serverMgr, nil)
	srv := NewServer(serverCert, serverMgr, serverExec)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Listen(ctx, addr)
	time.Sleep(50 * time.Millisecond)

	dispatcher := NewDispatcher(clientCert, "client-member")
	member := configmanager.CollectiveMember{
		Name:        "server-member",
		Address:     addr,
		Fingerprint: "deadbeefdeadbeef", // deliberately wrong pin
	}

	req := executor.ExecRequest{
		Nodes:     []string{"n1"},
		Route:     schema.FixedRoute{Handler: "ssh"},
		Operation: "create",
	}

	ch, err := dispatcher.Dispatch(context.Background(), member, req)
	assert.Nil(t, ch)
	require.Error(t, err)

	var appErr *apperr.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.ErrCodePeerCertificateMismatch, appErr.Code)
}

func TestDispatchUnreachablePeerReportsUnavailable(t *testing.T) {
	clientCert := generateTestCert(t)
	dispatcher := NewDispatcher(clientCert, "client-member")

	member := configmanager.CollectiveMember{
		Name:        "ghost-member",
		Address:     "127.0.0.1:1", // nothing listens here
		Fingerprint: "deadbeef",
	}

	req := executor.ExecRequest{
		Nodes:     []string{"n1", "n2"},
		Route:     schema.FixedRoute{Handler: "ssh"},
		Operation: "retrieve",
	}

	ch, err := dispatcher.Dispatch(context.Background(), member, req)
	require.NoError(t, err)

	var got []string
	for r := range ch {
		got = append(got, r.Node)
		assert.Error(t, r.Err)
	}
	assert.ElementsMatch(t, []string{"n1", "n2"}, got)
}
