package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/fs"
	docslog "github.com/fwojciec/docint/slog"
	"github.com/fwojciec/docint/sqlite"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// A missing .env file is not an error.
	_ = godotenv.Load()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run(); --db overrides it.
	DBPath string

	// SQLite database backing the extraction cache.
	DB *sqlite.DB

	// Engine is set once a command that needs it has been parsed.
	Engine *Engine
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var err error
	if m.Engine != nil {
		err = m.Engine.Close()
	}
	if m.DB != nil {
		if cerr := m.DB.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:         ctx,
		Stdout:      stdout,
		Stderr:      stderr,
		Interactive: isTerminal(stderr),
		NewStore: func(baseDir, name, format string) (docint.ResultStore, error) {
			return fs.NewResultStore(baseDir, name, format)
		},
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docint"),
		kong.Description("Extract text, tables and metadata from documents"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docint --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	command := kongCtx.Command()

	deps.Logger = newLogger(stderr, cli.Verbose)
	defer m.Close()

	if cli.DB != "" {
		m.DBPath = cli.DB
	}
	needsDB := strings.HasPrefix(command, "cache") ||
		(strings.HasPrefix(command, "extract") && !cli.Extract.NoCache)
	if needsDB {
		if err := os.MkdirAll(filepath.Dir(m.DBPath), 0755); err != nil {
			return err
		}
		m.DB = sqlite.NewDB(m.DBPath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set DOCINT_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
		}
		deps.Cache = sqlite.NewCacheService(m.DB)
	}

	if strings.HasPrefix(command, "extract") || command == "plugins" {
		opts := EngineOptions{Workers: cli.Workers}
		if strings.HasPrefix(command, "extract") {
			if opts.Hooks, err = ParseHooks(cli.Extract.Hook); err != nil {
				fmt.Fprintf(stderr, "error: %s\n", docint.ErrorMessage(err))
				return err
			}
			opts.Schemas = cli.Extract.Schema
			opts.Summarize = cli.Extract.Summarize
			opts.CountTokens = cli.Extract.Tokens
		}
		m.Engine, err = NewEngine(ctx, opts, deps.Logger)
		if err != nil {
			return err
		}
		if m.DB != nil {
			m.Engine.Orchestrator.Cache = docslog.NewLoggingCache(sqlite.NewCacheService(m.DB), deps.Logger)
		}
		deps.Plugins = m.Engine.Plugins
		deps.Pool = m.Engine.Pool
		deps.Service = docslog.NewLoggingService(m.Engine.Orchestrator, deps.Logger)
	}

	return kongCtx.Run(deps)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func defaultDBPath() string {
	if path := os.Getenv("DOCINT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docint.db"
	}
	return filepath.Join(home, ".docint", "cache.db")
}
