// Package commands implements the pagectl command tree.
package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/pagekit/internal/config"
	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/persist"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	baseURL  string
	logLevel string
	log      logger.Logger
}

// Execute runs pagectl with os.Args.
func Execute() error {
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

// NewRootCmd builds the command tree writing results to out and logs to
// errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pagectl",
		Short:         "Talk to a pagekit server and query HTML pages",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("url") {
				opts.baseURL = cfg.BaseURL
			}
			if !cmd.Flags().Changed("log-level") {
				opts.logLevel = cfg.LogLevel
			}
			level, err := logger.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.log = logger.New(errOut, level).Named("pagectl")
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&opts.baseURL, "url", "", "server base URL (default from PAGEKIT_BASE_URL or config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(getCmd(opts), setCmd(opts), queryCmd(opts), checkCmd(opts))
	return root
}

func (o *options) client() *persist.Client {
	return persist.New(o.baseURL, persist.WithLogger(o.log))
}
