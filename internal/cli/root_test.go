package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingstore"
)

// session runs thingctl commands against one filesystem store and collects
// their standard output.
type session struct {
	t    *testing.T
	root string
	out  bytes.Buffer
	logs bytes.Buffer
}

func newSession(t *testing.T) *session {
	t.Helper()
	return &session{t: t, root: t.TempDir()}
}

func (s *session) run(args ...string) error {
	s.t.Helper()

	cmd := NewRootCommand()
	cmd.SetOut(&s.out)
	cmd.SetErr(&s.logs)
	cmd.SetArgs(append(args,
		"--type", thingstore.TypeFilesystem,
		"--file-path", s.root,
		"--env-file", "",
		"--log-level", "error",
	))
	return cmd.ExecuteContext(context.Background())
}

func (s *session) mustRun(args ...string) {
	s.t.Helper()
	require.NoError(s.t, s.run(args...), "thingctl %v", args)
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "thingctl", cmd.Use)
	assert.Contains(t, cmd.Long, thingstore.TypeDynamoDB)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"create", "update", "delete", "get"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())

			idFlag := subCmd.Flags().Lookup("id")
			require.NotNil(t, idFlag)
			assert.Equal(t, "", idFlag.DefValue)
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)

	typeFlag := cmd.PersistentFlags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "t", typeFlag.Shorthand)

	legacyFlag := cmd.PersistentFlags().Lookup("legacy-delete")
	require.NotNil(t, legacyFlag)
	assert.Equal(t, "false", legacyFlag.DefValue)
}

func TestWriteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"create", "update"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		labelFlag := sub.Flags().Lookup("label")
		require.NotNil(t, labelFlag, name)
		assert.Equal(t, "l", labelFlag.Shorthand)

		nameFlag := sub.Flags().Lookup("name")
		require.NotNil(t, nameFlag, name)
		assert.Equal(t, "n", nameFlag.Shorthand)
	}
}

func TestSession(t *testing.T) {
	s := newSession(t)

	s.mustRun("create", "--id", "abc", "--name", "widget", "--label", "team=core")
	s.mustRun("create", "--id", "abc", "--name", "other")
	s.mustRun("get", "--id", "abc")
	s.mustRun("update", "--id", "abc", "--name", "gadget", "-l", "team=core", "-l", "rev=2")
	s.mustRun("update", "--id", "nope")
	s.mustRun("get", "--id", "abc")
	s.mustRun("get", "--id", "nope")
	s.mustRun("delete", "--id", "abc")
	s.mustRun("delete", "--id", "abc")
	s.mustRun("get", "--id", "abc")

	assertGolden(t, "session", s.out.Bytes())
}

func TestLegacyDeleteSession(t *testing.T) {
	s := newSession(t)

	s.mustRun("create", "--id", "abc", "--name", "widget")
	s.mustRun("create", "--id", "abc")
	s.mustRun("get", "--id", "abc")
	s.mustRun("delete", "--id", "abc", "--legacy-delete")
	s.mustRun("get", "--id", "abc")
	s.mustRun("delete", "--id", "ghost", "--legacy-delete")

	assertGolden(t, "legacy_delete", s.out.Bytes())
}

func TestExitCodes(t *testing.T) {
	t.Run("missing id is a command error", func(t *testing.T) {
		s := newSession(t)
		err := s.run("create", "--name", "widget")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.True(t, thingstore.IsValidationError(err))
		assert.Empty(t, s.out.String())
	})

	t.Run("unknown store type is a command error", func(t *testing.T) {
		cmd := NewRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"get", "--id", "abc", "--type", "cassandra", "--env-file", ""})

		err := cmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.True(t, thingstore.IsConfigError(err))
	})

	t.Run("missing config file is a command error", func(t *testing.T) {
		s := newSession(t)
		err := s.run("get", "--id", "abc", "--config", filepath.Join(s.root, "missing.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unreachable store is a failure", func(t *testing.T) {
		cmd := NewRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{
			"get", "--id", "abc",
			"--type", thingstore.TypeSQLite,
			"--file-path", filepath.Join(t.TempDir(), "missing", "things.db"),
			"--env-file", "",
		})

		err := cmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	usage := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"create", "--bogus"}},
		{"positional argument", []string{"get", "abc"}},
		{"unknown subcommand", []string{"frobnicate"}},
	}
	for _, tt := range usage {
		t.Run(tt.name+" is a command error", func(t *testing.T) {
			var out bytes.Buffer
			cmd := NewRootCommand()
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, "--env-file", ""))

			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Empty(t, out.String())
		})
	}

	t.Run("malformed environment is a command error", func(t *testing.T) {
		t.Setenv("STORE_QUERY_TIMEOUT", "soon")

		s := newSession(t)
		err := s.run("get", "--id", "abc")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.True(t, thingstore.IsConfigError(err))
	})

	t.Run("success", func(t *testing.T) {
		assert.Equal(t, ExitSuccess, GetExitCode(nil))
	})
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	configPath := filepath.Join(dir, "thingctl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"type: filesystem\n"+
			"file_path: "+root+"\n"+
			"collection: gadgets\n"+
			"log_level: error\n"), 0o600))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create", "--id", "abc", "--config", configPath, "--env-file", ""})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, `{"op":"create","id":"abc","ok":true}`+"\n", out.String())

	assert.DirExists(t, filepath.Join(root, "gadgets"))
}

func TestConfigFileKeepsEnvironment(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	t.Setenv("STORE_TYPE", thingstore.TypeFilesystem)
	t.Setenv("STORE_FILE_PATH", root)
	t.Setenv("STORE_COLLECTION", "from-env")

	configPath := filepath.Join(dir, "thingctl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("collection: gadgets\n"), 0o600))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"get", "--id", "abc", "--config", configPath, "--env-file", ""})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, `{"op":"get","id":"abc","ok":false}`+"\n", out.String())

	assert.DirExists(t, filepath.Join(root, "gadgets"))
	assert.NoDirExists(t, filepath.Join(root, "from-env"))
}

func TestEnvFile(t *testing.T) {
	// godotenv never overrides variables that are already set, so register
	// the restore with t.Setenv and then clear them.
	for _, key := range []string{"STORE_TYPE", "STORE_FILE_PATH", "STORE_COLLECTION"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"STORE_TYPE=filesystem\n"+
			"STORE_FILE_PATH="+root+"\n"+
			"STORE_COLLECTION=from-env\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"get", "--id", "abc", "--env-file", envPath, "--collection", "from-flag"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.DirExists(t, filepath.Join(root, "from-flag"))
	assert.NoDirExists(t, filepath.Join(root, "from-env"))
}
