package grpc

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T, seen chan<- metadata.MD) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		seen <- md
		return h(ctx, req)
	}))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	p := NewPool()
	defer p.Close()

	var wg sync.WaitGroup
	conns := make([]*grpc.ClientConn, 16)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := p.GetConnection("passthrough:///a")
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()
	for _, c := range conns {
		assert.Same(t, conns[0], c)
	}

	other, err := p.GetConnection("passthrough:///b")
	require.NoError(t, err)
	assert.NotSame(t, conns[0], other)
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	p := NewPool()
	first, err := p.GetConnection("passthrough:///a")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := p.GetConnection("passthrough:///a")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	require.NoError(t, p.Close())
	_, ok := p.load("passthrough:///a")
	assert.False(t, ok)
}

func TestPool_BearerToken(t *testing.T) {
	seen := make(chan metadata.MD, 2)
	dialer := startHealthServer(t, seen)

	token := ""
	p := NewPool(WithInterceptor(BearerToken(func(context.Context) string { return token })))
	defer p.Close()

	conn, err := p.GetConnection("passthrough:///bufnet", dialer)
	require.NoError(t, err)
	client := healthpb.NewHealthClient(conn)

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Empty(t, (<-seen).Get("authorization"))

	token = "abc"
	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer abc"}, (<-seen).Get("authorization"))
}
