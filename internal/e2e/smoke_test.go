package e2e

import (
	"bytes"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	addr := freeAddr(t)
	startGateway(t, binaryPath, home, addr)

	env := []string{"MT_GATEWAY_BASE_URL=http://" + addr + "/api", "MT_CREDENTIALS_BACKEND=file"}

	stdout, stderr, err := runMT(t, binaryPath, home, env, "mastertrainer\n", "auth", "login", "--email", "rep@example.com")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Logged in as Demo Rep")

	stdout, stderr, err = runMT(t, binaryPath, home, env, "", "scenario", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Pricing pushback at renewal")

	_, stderr, err = runMT(t, binaryPath, home, env, "", "roleplay", "start", "demo-pricing")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err = runMT(t, binaryPath, home, env, "", "roleplay", "send", "What would a 30% discount need to unlock for you?")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Buyer: ")

	stdout, stderr, err = runMT(t, binaryPath, home, env, "", "roleplay", "end", "--yes")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "ended")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "mt-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/mt")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build mt binary: %s", string(output))
	return binaryPath
}

// startGateway runs `mt serve` on an in-memory database until the test ends.
func startGateway(t *testing.T, binaryPath, home, addr string) {
	t.Helper()

	cmd := exec.Command(binaryPath, "serve", "--addr", addr, "--db", ":memory:")
	cmd.Env = append(os.Environ(), "HOME="+home)
	var logs bytes.Buffer
	cmd.Stdout = &logs
	cmd.Stderr = &logs
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		_ = cmd.Wait()
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/scenarios")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusUnauthorized
	}, 10*time.Second, 50*time.Millisecond, "gateway did not come up: %s", logs.String())
}

func runMT(t *testing.T, binaryPath, home string, env []string, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(append(os.Environ(), "HOME="+home), env...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
