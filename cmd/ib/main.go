// Command ib is the issueboard CLI: it drives the issue store from a shell and
// serves it to agents over MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issueboard/internal/config"
	"github.com/steveyegge/issueboard/internal/logging"
	"github.com/steveyegge/issueboard/internal/manager"
	"github.com/steveyegge/issueboard/internal/telemetry"
	"github.com/steveyegge/issueboard/internal/ui"

	// Registered backends.
	_ "github.com/steveyegge/issueboard/internal/github"
	_ "github.com/steveyegge/issueboard/internal/jira"
	_ "github.com/steveyegge/issueboard/internal/storage/filelog"
)

var (
	// Version is set at build time.
	Version = "0.1.0"
	// Build is the commit hash, set at build time.
	Build = "dev"
)

// errFailed reports a failed outcome that has already been printed.
var errFailed = errors.New("request failed")

// cli holds per-invocation state shared by the subcommands.
type cli struct {
	cfgFile     string
	backendName string
	board       string
	caller      string
	jsonOutput  bool
	verbose     bool
	noColor     bool

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	closer io.Closer
	mgr    *manager.Manager
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "ib",
		Short:         "ib - hierarchical issue board for agents",
		Long:          `Issues live in a tree ("5", "5/2", "5/2/1"). Every change is an appended event and the current state is derived from the history.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Build),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: discover .issueboard/config.yaml)")
	pf.StringVar(&c.backendName, "backend", "", "backend to use: local, github, jira")
	pf.StringVar(&c.board, "board", "", "board directory for the local backend")
	pf.StringVar(&c.caller, "caller", "", "name recorded as updated_by (default: $IB_CALLER, then $USER)")
	pf.BoolVar(&c.jsonOutput, "json", false, "output JSON")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	pf.Duration("timeout", 0, "per-request backend timeout (default from config)")

	root.AddGroup(&cobra.Group{ID: "issues", Title: "Working With Issues:"})
	root.AddCommand(
		newListCmd(c),
		newCreateCmd(c),
		newReadCmd(c),
		newUpdateCmd(c),
		newAssignCmd(c),
		newWatchCmd(c),
		newServeCmd(c),
		newBackendsCmd(c),
		newConfigCmd(c),
	)
	return root
}

// setup loads configuration, applies flag overrides and starts logging and telemetry.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.InitializeWithFile(c.cfgFile); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		config.Set("backend", c.backendName)
	}
	if flags.Changed("board") {
		config.Set("local.board", c.board)
	}
	if flags.Changed("caller") {
		config.Set("caller", c.caller)
	}
	if flags.Changed("json") {
		config.Set("json", c.jsonOutput)
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		config.Set("timeout", d)
	}
	if c.verbose {
		config.Set("log.level", "debug")
	}
	c.jsonOutput = config.GetBool("json")

	logger, closer, err := logging.New(logging.Options{
		Level:  config.GetString("log.level"),
		Format: config.GetString("log.format"),
		File:   config.ResolvePath(config.GetString("log.file")),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	c.logger, c.closer = logger, closer
	slog.SetDefault(logger)

	ui.ConfigureColor(!c.noColor && !c.jsonOutput && ui.ShouldUseColor())

	if config.GetBool("otel.enabled") && os.Getenv("IB_OTEL_ENABLED") == "" {
		_ = os.Setenv("IB_OTEL_ENABLED", "true")
	}
	if err := telemetry.Init(c.context(), "ib", Version); err != nil {
		logger.Warn("telemetry disabled", "error", err)
	}
	return nil
}

// context returns the signal-aware root context.
func (c *cli) context() context.Context {
	if c.ctx == nil {
		c.ctx, c.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
	return c.ctx
}

// callerName resolves the caller: --caller or config, then $USER.
func (c *cli) callerName() string {
	if name := config.GetString("caller"); name != "" {
		return name
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func (c *cli) close() {
	if err := telemetry.Shutdown(context.Background()); err != nil && c.logger != nil {
		c.logger.Debug("telemetry shutdown", "error", err)
	}
	if c.closer != nil {
		_ = c.closer.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{}
	defer c.close()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
