package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskhq/internal/config"
	"github.com/tgienger/taskhq/internal/dashboard"
	"github.com/tgienger/taskhq/internal/db"
)

func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{config.EnvEndpoint, config.EnvBackend, config.EnvTimeout, config.EnvLogFile, config.EnvDataDir} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataDir := t.TempDir()
	t.Setenv(config.EnvDataDir, dataDir)
	return dataDir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(BuildInfo{Version: "test", Commit: "abc", Date: "today"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestEndpointFlagRederivesBackend(t *testing.T) {
	isolate(t)
	opts := &options{endpoint: "http://api.test:9000/graphql/"}
	cfg, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "http://api.test:9000/graphql/", cfg.GraphQLEndpoint)
	assert.Equal(t, "http://api.test:9000", cfg.BackendURL)

	opts.backend = "http://rest.test"
	cfg, err = opts.load()
	require.NoError(t, err)
	assert.Equal(t, "http://rest.test", cfg.BackendURL)
}

func TestPrefsListAndClear(t *testing.T) {
	dataDir := isolate(t)

	path, err := db.DefaultPath(dataDir)
	require.NoError(t, err)
	database, err := db.New(path)
	require.NoError(t, err)
	require.NoError(t, database.SetSetting(dashboard.PrefLastOrganization, "4"))
	require.NoError(t, database.SetSetting(dashboard.PrefCommentAuthor, "me@acme.test"))
	require.NoError(t, database.Close())

	out := run(t, "prefs")
	assert.Equal(t, "comment_author=me@acme.test\nlast_organization_id=4\n", out)

	assert.Contains(t, run(t, "prefs", "clear"), "preferences cleared")
	assert.Empty(t, run(t, "prefs"))
	assert.FileExists(t, filepath.Join(dataDir, "taskhq.db"))
}

func TestVersion(t *testing.T) {
	isolate(t)
	assert.Contains(t, run(t, "--version"), "test (commit: abc, built: today)")
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
