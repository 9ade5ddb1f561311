package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/opencart"
)

func newAPICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call the OpenCart REST API",
	}
	cmd.AddCommand(newAPILoginCmd(a), newAPIUpdateEmailCmd(a), newAPILinkActiveCmd(a))
	return cmd
}

func newAPILoginCmd(a *app) *cobra.Command {
	var userName, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if userName == "" {
				userName = cfg.Users.EmailAddress
			}
			if password == "" {
				if password, err = a.resolve("users.password", cfg.Users.Password); err != nil {
					return err
				}
			}
			if userName == "" || password == "" {
				return errors.New("user name and password are required (flags or the users section)")
			}

			client, err := a.client(cfg)
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context(), userName, password)
			if err != nil {
				if code := opencart.StatusCode(err); code != 0 {
					a.logger.Warn("login rejected", "status", code)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "User name (default users.email_address)")
	cmd.Flags().StringVar(&password, "password", "", "Password (default users.password)")

	return cmd
}

func newAPIUpdateEmailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update-email <old> <new>",
		Short: "Change the email address of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			client, err := a.client(cfg)
			if err != nil {
				return err
			}
			if err := client.UpdateEmailAddress(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			field(cmd.OutOrStdout(), "email", args[1])
			return nil
		},
	}
}

func newAPILinkActiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link-active <url>",
		Short: "Report whether a link answers with HTTP 200",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			client, err := a.client(cfg)
			if err != nil {
				return err
			}
			active, err := client.IsLinkActive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			field(cmd.OutOrStdout(), "active", strconv.FormatBool(active))
			return nil
		},
	}
}
