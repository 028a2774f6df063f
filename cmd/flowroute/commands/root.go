// Package commands implements the CLI commands for flowroute.
package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"flowroute/config"
	"flowroute/diagram"
	"flowroute/logger"
	"flowroute/session"
)

// ScreenFactory opens the terminal used by the view command.
type ScreenFactory func() (tcell.Screen, error)

// CLI represents the command line interface for flowroute.
type CLI struct {
	rootCmd   *cobra.Command
	newScreen ScreenFactory

	configPath string
	logLevel   string
	jsonLogs   bool
}

// New creates a new CLI instance.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "flowroute",
		Short:         "Route connections between the nodes of a diagram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		rootCmd:   rootCmd,
		newScreen: tcell.NewScreen,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to a YAML configuration file")
	flags.StringVar(&c.logLevel, "log-level", "", "Override the configured log level")
	flags.BoolVar(&c.jsonLogs, "json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(c.newRouteCmd())
	rootCmd.AddCommand(c.newViewCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetScreen replaces the terminal opened by the view command. Used for testing.
func (c *CLI) SetScreen(f ScreenFactory) {
	c.newScreen = f
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.jsonLogs {
		cfg.Log.Format = "json"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openSession loads the graph at path into a fresh session and applies the
// initial batch.
func openSession(cfg config.Config, log *slog.Logger, path string) (*session.Session, error) {
	nodes, conns, err := config.LoadGraph(path)
	if err != nil {
		return nil, err
	}

	s := session.New(session.OptionsFromConfig(cfg, log))
	if err := s.Load(nodes, conns); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Flush()

	log.Debug("graph loaded", "path", path, "nodes", len(nodes), "connections", len(conns))
	return s, nil
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return logger.New(w, cfg.LoggerOptions())
}

func portLabel(node diagram.NodeID, port string) string {
	if port == "" {
		return string(node)
	}
	return string(node) + ":" + port
}
