package server

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testTokenEnv = "MUNINN_TEST_PROXY_TOKEN"
	testToken    = "test-proxy-token"
)

// writeFile writes content to name inside dir and returns the path
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// writeEnvFile writes a dotenv file with the test token and an OpenAI key
func writeEnvFile(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "gateway.env", testTokenEnv+"="+testToken+"\nOPENAI_API_KEY=sk-test\n")
}

// gatewayConfig renders a YAML config whose services all point at baseURL
func gatewayConfig(port int, baseURL string, services ...string) string {
	var sb strings.Builder
	sb.WriteString("server:\n  host: 127.0.0.1\n")
	if port != 0 {
		sb.WriteString("  port: " + strconv.Itoa(port) + "\n")
	}
	sb.WriteString("  health_path: /_health\n")
	sb.WriteString("secrets:\n  env_file: gateway.env\n  proxy_token_env: " + testTokenEnv + "\n")
	sb.WriteString("services:\n")
	for _, name := range services {
		sb.WriteString("  - name: " + name + "\n")
		sb.WriteString("    base_url: " + baseURL + "\n")
		sb.WriteString("    auth: bearer\n")
		sb.WriteString("    credential: OPENAI_API_KEY\n")
	}
	return sb.String()
}

// freePort returns a TCP port that was free a moment ago
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
