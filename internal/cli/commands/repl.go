package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/google/grr-sub002/internal/cli/output"
	"github.com/google/grr-sub002/internal/provider"
	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

const (
	replPrompt     = "osq> "
	replContinue   = " ...> "
	historyDirName = "osqhelper"
)

// REPLOptions holds options for the repl command.
type REPLOptions struct {
	HistoryFile string
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	opts := &REPLOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Write queries interactively with schema-aware completion",
		Long: `Start an interactive prompt that checks each query against the schema.

Tab completes tables, columns and keywords. Statements end with a
semicolon. Type .help for the dot-commands.`,
		Example: `  osqhelper repl
  osqhelper repl -p darwin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.HistoryFile, "history", defaultHistoryFile(), "History file (empty disables history)")

	return cmd
}

func defaultHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, historyDirName, "history")
}

func runREPL(cmd *cobra.Command, opts *REPLOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if opts.HistoryFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.HistoryFile), 0o750); err != nil {
			cmdCtx.Logger.Warn("history disabled", "error", err)
			opts.HistoryFile = ""
		}
	}

	session := newREPLSession(ctx, cmdCtx.Provider, cmdCtx.Renderer)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     opts.HistoryFile,
		AutoComplete:    session,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	idx := cmdCtx.Provider.Index()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "osquery %s schema, %d tables, target platform %s\n",
		idx.Version(), idx.Len(), cmdCtx.Provider.Platform())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit := session.handleLine(line)
		if quit {
			return nil
		}
		rl.SetPrompt(session.prompt())
	}
}

// replSession holds the statement being typed and answers tab completion
// for it.
type replSession struct {
	ctx  context.Context
	prov *provider.Provider
	r    *output.Renderer
	buf  strings.Builder
}

func newREPLSession(ctx context.Context, prov *provider.Provider, r *output.Renderer) *replSession {
	return &replSession{ctx: ctx, prov: prov, r: r}
}

func (s *replSession) reset() {
	s.buf.Reset()
}

func (s *replSession) prompt() string {
	if s.buf.Len() > 0 {
		return replContinue
	}
	return replPrompt
}

// handleLine consumes one input line and reports whether to quit.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dotCommand(line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	query := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()

	res, err := s.prov.Analyze(s.ctx, assist.Request{Text: query, Cursor: len(query), Limit: -1})
	if err != nil {
		s.errorf("%v", err)
		return false
	}
	if err := renderDiagnostics(s.r, res); err != nil {
		s.errorf("%v", err)
	}
	return false
}

func (s *replSession) dotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".tables":
		var prefix string
		if len(parts) > 1 {
			prefix = parts[1]
		}
		if err := writeTables(s.r, s.prov.Index(), prefix, s.prov.Platform()); err != nil {
			s.errorf("%v", err)
		}

	case ".describe", ".schema":
		if len(parts) < 2 {
			s.errorf("Usage: %s <table>", command)
			return false
		}
		t, ok := s.prov.Index().Table(parts[1])
		if !ok {
			s.errorf("%v", unknownTable(s.ctx, s.prov, parts[1]))
			return false
		}
		if err := writeTable(s.r, t); err != nil {
			s.errorf("%v", err)
		}

	case ".platform":
		if len(parts) < 2 {
			s.r.Println(s.prov.Platform().String())
			return false
		}
		p, err := schema.ParsePlatform(parts[1])
		if err != nil {
			s.errorf("%v", err)
			return false
		}
		s.prov.SetPlatform(p)
		s.r.Printf("Target platform is now %s\n", p)

	default:
		s.errorf("Unknown command: %s (type .help for commands)", command)
	}
	return false
}

func (s *replSession) errorf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.r.ErrWriter(), "Error: "+format+"\n", a...)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help               Show this help message
  .tables [prefix]    List tables on the target platform
  .describe <table>   Show the columns of a table
  .platform [name]    Show or change the target platform
  .quit / .exit       Exit the REPL

Tips:
  - Statements must end with a semicolon (;)
  - Tab completes tables, columns and keywords
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

var dotCommands = []string{".describe", ".exit", ".help", ".platform", ".quit", ".schema", ".tables"}

// Do implements readline.AutoCompleter. Candidates are the rest of each
// suggestion after the word already typed.
func (s *replSession) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])

	if s.buf.Len() == 0 && strings.HasPrefix(strings.TrimLeft(typed, " "), ".") {
		word := strings.TrimLeft(typed, " ")
		if strings.ContainsRune(word, ' ') {
			return nil, 0
		}
		var out [][]rune
		for _, c := range dotCommands {
			if strings.HasPrefix(c, word) {
				out = append(out, []rune(c[len(word):]))
			}
		}
		return out, len([]rune(word))
	}

	text := s.buf.String() + typed
	res, err := s.prov.Analyze(s.ctx, assist.Request{Text: text, Cursor: len(text)})
	if err != nil || res.Lexed.Cursor == nil {
		return nil, 0
	}

	prefix := res.Lexed.Cursor.Prefix
	var out [][]rune
	for _, sg := range res.Suggestions {
		if len(sg.Text) < len(prefix) || !strings.EqualFold(sg.Text[:len(prefix)], prefix) {
			// Substring matches cannot be completed by appending.
			continue
		}
		rest := sg.Text[len(prefix):]
		if sg.Kind == assist.KindKeyword && prefix != "" && isLower(prefix) {
			rest = strings.ToLower(rest)
		}
		out = append(out, []rune(rest))
	}
	return out, len([]rune(prefix))
}

func isLower(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
