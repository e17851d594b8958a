package mocksrv

import (
	"net/http/httptest"
	"strings"
	"testing"

	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

// StartServer serves the JSON-RPC namespaces over HTTP on every path, returns "host:port" of the server.
func StartServer(t *testing.T, namespaces map[string]interface{}) string {
	rpcServer := ethrpc.NewServer()
	for name, service := range namespaces {
		require.NoError(t, rpcServer.RegisterName(name, service), "registering namespace %q", name)
	}
	srv := httptest.NewServer(rpcServer)
	t.Cleanup(func() {
		srv.Close()
		rpcServer.Stop()
	})
	return strings.TrimPrefix(srv.URL, "http://")
}

// StartGatewayServer serves the account, tx, chain, token and masp namespaces of the mock gateway.
func StartGatewayServer(t *testing.T, gw *GatewayMock) string {
	return StartServer(t, gw.Services())
}
