package secret

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kreltrack/internal/interfaces/cli/app"
	"kreltrack/internal/shared/secret"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Seal credentials for the config file",
	}
	cmd.AddCommand(newSealCommand())
	return cmd
}

func newSealCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seal",
		Short: "Seal a value read from stdin",
		Long: `Seal a value, such as database.password, with the passphrase in $` + secret.KeyEnv + `.
Paste the printed sealed:... string into the config file; the same variable must be set when kreltrack runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret.NewKey(os.Getenv(secret.KeyEnv))
			if err != nil {
				return err
			}
			value, err := app.ReadPassword(cmd, "Value: ")
			if err != nil {
				return err
			}
			sealed, err := secret.Seal(value, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}
