package harness

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EnvBuildGuest enables building cmd/bridge-wasm for wasip1 and checking it.
const EnvBuildGuest = "NATIVEBRIDGE_TEST_BUILD_GUEST"

func TestGoGuestConforms(t *testing.T) {
	if os.Getenv(EnvBuildGuest) == "" {
		t.Skipf("set %s=1 to build and check the Go wasip1 guest", EnvBuildGuest)
	}
	goTool, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not found in PATH")
	}

	out := filepath.Join(t.TempDir(), "bridge.wasm")
	build := exec.Command(goTool, "build", "-buildmode=c-shared", "-o", out, "./cmd/bridge-wasm")
	build.Dir = filepath.Join("..", "..")
	build.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	output, err := build.CombinedOutput()
	require.NoError(t, err, "building the guest failed:\n%s", output)

	h := newTestHarness(t, t.TempDir())
	_, err = h.Manager().LoadFile(context.Background(), out)
	require.NoError(t, err)

	report, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Guests, 1)
	for _, c := range report.Guests[0].Checks {
		assert.NoError(t, c.Err, c.Name)
	}
	assert.True(t, report.Passed())
}
