package main

import (
	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/model"
	"github.com/nhle/opencart-qa/internal/ui/setup"
)

func newCredsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage secrets kept in the system keyring",
	}
	cmd.AddCommand(newCredsSetCmd(a))
	return cmd
}

func newCredsSetCmd(a *app) *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the mailbox and database passwords in the keyring",
		Long: "Prompts for the mailbox app password and the MySQL password, stores them in\n" +
			"the system keyring and prints the keyring references to use in the config.\n" +
			"With --write the updated configuration is saved as YAML to that path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			secrets, err := a.keyring()
			if err != nil {
				return err
			}
			if err := setup.Run(cmd.Context(), secrets, cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			field(out, "mail.email", cfg.Mail.Email)
			field(out, "mail.app_password", cfg.Mail.AppPassword)
			field(out, "mysql.password", cfg.MySQL.Password)

			if writePath == "" {
				return nil
			}
			if err := model.SaveConfig(writePath, cfg); err != nil {
				return err
			}
			a.logger.Info("config written", "path", writePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&writePath, "write", "", "Save the updated configuration as YAML to this path")

	return cmd
}
