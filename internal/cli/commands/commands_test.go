package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/grr-sub002/internal/cli/output"
	"github.com/google/grr-sub002/internal/provider"
	"github.com/google/grr-sub002/internal/testutil"
	"github.com/google/grr-sub002/pkg/schema"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewCheckCommand(), "check [query]", []string{"fail-on"}},
		{NewCompleteCommand(), "complete [query]", []string{"offset"}},
		{NewTablesCommand(), "tables [prefix]", []string{"all"}},
		{NewDescribeCommand(), "describe <table>", nil},
		{NewREPLCommand(), "repl", []string{"history"}},
		{NewLSPCommand("test"), "lsp", []string{"watch"}},
		{NewServeCommand(), "serve", []string{"addr", "watch"}},
		{NewVersionCommand("test"), "version", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "osqhelper v1.2.3")
	assert.Contains(t, buf.String(), "default "+schema.DefaultVersion)
}

func TestReadQuery(t *testing.T) {
	cmd := &cobra.Command{}

	q, err := readQuery(cmd, []string{"SELECT", "*", "FROM", "time"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM time", q)

	cmd.SetIn(strings.NewReader("SELECT *\nFROM uptime\n"))
	q, err = readQuery(cmd, []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM uptime", q)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

type replFixture struct {
	session *replSession
	prov    *provider.Provider
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

func newREPLFixture(t *testing.T) *replFixture {
	t.Helper()
	idx, err := schema.Open(schema.DefaultVersion, "")
	require.NoError(t, err)
	prov := provider.New(idx, provider.Options{Platform: schema.Linux, Logger: testutil.NewTestLogger(t)})

	var out, errOut bytes.Buffer
	r := output.NewRenderer(&out, &errOut, output.ModeMarkdown)
	return &replFixture{
		session: newREPLSession(context.Background(), prov, r),
		prov:    prov,
		out:     &out,
		errOut:  &errOut,
	}
}

func TestREPL_Statements(t *testing.T) {
	f := newREPLFixture(t)
	s := f.session

	assert.False(t, s.handleLine("SELECT *"))
	assert.Equal(t, replContinue, s.prompt())
	assert.Empty(t, f.out.String(), "nothing is checked before the semicolon")

	assert.False(t, s.handleLine("FROM proceses;"))
	assert.Equal(t, replPrompt, s.prompt())
	assert.Contains(t, f.out.String(), "OSQ001")
	assert.Contains(t, f.out.String(), `did you mean "processes"?`)

	f.out.Reset()
	assert.False(t, s.handleLine("SELECT pid FROM processes;"))
	assert.Contains(t, f.out.String(), "No problems found")
}

func TestREPL_DotCommands(t *testing.T) {
	f := newREPLFixture(t)
	s := f.session

	assert.False(t, s.handleLine(".platform windows"))
	assert.Equal(t, schema.Windows, f.prov.Platform())
	assert.Contains(t, f.out.String(), "Target platform is now windows")

	f.out.Reset()
	assert.False(t, s.handleLine(".tables wmi_bios"))
	assert.Contains(t, f.out.String(), "wmi_bios_info")

	f.out.Reset()
	assert.False(t, s.handleLine(".describe uptime"))
	assert.Contains(t, f.out.String(), "# uptime")

	assert.False(t, s.handleLine(".describe nope"))
	assert.Contains(t, f.errOut.String(), `unknown table "nope"`)

	assert.False(t, s.handleLine(".platform beos"))
	assert.Contains(t, f.errOut.String(), "beos")

	assert.False(t, s.handleLine(".frobnicate"))
	assert.Contains(t, f.errOut.String(), "Unknown command: .frobnicate")

	assert.True(t, s.handleLine(".quit"))
}

func runes(ss ...string) [][]rune {
	out := make([][]rune, len(ss))
	for i, s := range ss {
		out[i] = []rune(s)
	}
	return out
}

func TestREPL_Complete(t *testing.T) {
	f := newREPLFixture(t)
	s := f.session

	t.Run("table", func(t *testing.T) {
		line := []rune("SELECT * FROM proc")
		got, n := s.Do(line, len(line))
		assert.Equal(t, 4, n)
		assert.Contains(t, got, []rune("ess_envs"))
		assert.Contains(t, got, []rune("esses"))
	})

	t.Run("lower case keyword", func(t *testing.T) {
		line := []rune("sel")
		got, n := s.Do(line, len(line))
		assert.Equal(t, 3, n)
		assert.Contains(t, got, []rune("ect"))
	})

	t.Run("dot command", func(t *testing.T) {
		line := []rune(".ta")
		got, n := s.Do(line, len(line))
		assert.Equal(t, 3, n)
		assert.Equal(t, runes("bles"), got)
	})

	t.Run("continues the pending statement", func(t *testing.T) {
		require.False(t, s.handleLine("SELECT pi"))
		defer s.reset()

		line := []rune("FROM processes WHERE pi")
		got, n := s.Do(line, len(line))
		assert.Equal(t, 2, n)
		assert.Contains(t, got, []rune("d"))
	})
}
