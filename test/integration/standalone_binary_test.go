package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/picolens into a temp dir and returns its path.
func buildBinary(t *testing.T) string {
	t.Helper()
	gomod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err)
	repoRoot := filepath.Dir(strings.TrimSpace(string(gomod)))
	require.NotEqual(t, ".", repoRoot, "go env GOMOD returned empty")

	binary := filepath.Join(t.TempDir(), "picolens")
	build := exec.Command("go", "build", "-o", binary, "./cmd/picolens")
	build.Dir = repoRoot
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, string(out))
	return binary
}

// The binary carries its prompt and identity, so it must work from any
// directory without the repository checkout.
func TestStandaloneBinaryWorksOutsideRepo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary exec test is unix-focused")
	}
	binary := buildBinary(t)
	outside := t.TempDir()
	configHome := t.TempDir()

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"version"}, "picolens"},
		{[]string{"--help"}, "analyze"},
		{[]string{"doctor", "init"}, "config.yaml"},
		{[]string{"envinfo"}, "Rate limit"},
	}

	for _, tc := range cases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			cmd := exec.Command(binary, tc.args...)
			cmd.Dir = outside
			cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+configHome)
			out, err := cmd.CombinedOutput()
			require.NoError(t, err, string(out))
			assert.Contains(t, string(out), tc.want)
		})
	}

	_, err := os.Stat(filepath.Join(configHome, "picolens", "config.yaml"))
	assert.NoError(t, err)
}
