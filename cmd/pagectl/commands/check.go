package commands

import (
	"github.com/spf13/cobra"

	"github.com/okian/pagekit/internal/loadcheck"
)

func checkCmd(opts *options) *cobra.Command {
	cfg := loadcheck.Config{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Write, read back and remove generated keys concurrently",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BaseURL = opts.baseURL
			stats, err := loadcheck.New(cfg, opts.log).Run(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), stats); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&cfg.Keys, "keys", loadcheck.DefaultKeys, "number of keys to write")
	cmd.Flags().IntVar(&cfg.Workers, "workers", loadcheck.DefaultWorkers, "concurrent requests")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", loadcheck.DefaultTimeout, "per-request timeout")
	cmd.Flags().StringVar(&cfg.Prefix, "prefix", loadcheck.DefaultPrefix, "key prefix")
	cmd.Flags().BoolVar(&cfg.Keep, "keep", false, "leave the written keys in place")
	return cmd
}
