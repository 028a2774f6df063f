package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"flowroute/terminal"
)

func (c *CLI) newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <graph>",
		Short: "Open a graph in the terminal and move nodes interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath, _ := cmd.Flags().GetString("log-file")

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			// the screen owns the terminal, so logs go to a file or nowhere
			var logOut io.Writer = io.Discard
			if logPath != "" {
				// #nosec G304 -- path comes from the command line
				f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
				if err != nil {
					return zerr.With(zerr.Wrap(err, "failed to open log file"), "path", logPath)
				}
				defer func() { _ = f.Close() }()
				logOut = f
			}
			log := newLogger(logOut, cfg)

			s, err := openSession(cfg, log, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			screen, err := c.newScreen()
			if err != nil {
				return zerr.Wrap(err, "failed to open terminal")
			}
			return terminal.NewViewer(screen, s, log).Run(cmd.Context())
		},
	}
	cmd.Flags().String("log-file", "", "Append logs to this file while the viewer runs")
	return cmd
}
