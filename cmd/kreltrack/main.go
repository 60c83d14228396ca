package main

import (
	"os"

	"github.com/spf13/cobra"

	"kreltrack/internal/interfaces/cli/app"
	"kreltrack/internal/interfaces/cli/csv"
	"kreltrack/internal/interfaces/cli/lookup"
	"kreltrack/internal/interfaces/cli/migrate"
	"kreltrack/internal/interfaces/cli/request"
	"kreltrack/internal/interfaces/cli/secret"
	"kreltrack/internal/interfaces/cli/seed"
	"kreltrack/internal/interfaces/cli/user"
	"kreltrack/internal/interfaces/cli/watch"
	"kreltrack/internal/shared/version"
)

func main() {
	opts := &app.Options{}

	rootCmd := &cobra.Command{
		Use:           "kreltrack",
		Short:         "kreltrack - reliability test request tracker",
		Long:          `kreltrack books reliability tests against lab equipment and follows each request from Draft to Completed.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.Env, "env", "e", "", "Environment (development, test, production)")
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.Token, "token", "t", "", "Session token from `user login` (default: $KRELTRACK_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&opts.AutoMigrate, "auto-migrate", false, "Apply pending migrations before running the command")

	rootCmd.AddCommand(
		migrate.NewCommand(opts),
		seed.NewCommand(opts),
		user.NewCommand(opts),
		request.NewCommand(opts),
		lookup.NewCommand(opts),
		csv.NewCommand(opts),
		watch.NewCommand(opts),
		secret.NewCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Println(version.String())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
