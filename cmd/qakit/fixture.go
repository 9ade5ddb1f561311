package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/fixture"
	"github.com/nhle/opencart-qa/internal/model"
)

func newFixtureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Print random test data",
	}

	var (
		length  int
		special bool
		base    string
		digits  int
	)

	email := &cobra.Command{
		Use:   "email",
		Short: "Print a random email address",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), fixture.RandomEmail())
		},
	}

	str := &cobra.Command{
		Use:   "string",
		Short: "Print a random string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if length <= 0 {
				return fmt.Errorf("--length must be positive, got %d", length)
			}
			fmt.Fprintln(cmd.OutOrStdout(), fixture.RandomString(length, special))
			return nil
		},
	}
	str.Flags().IntVar(&length, "length", 12, "Number of characters")
	str.Flags().BoolVar(&special, "special", false, "Include at least one of "+fixture.SpecialChars)

	username := &cobra.Command{
		Use:   "username",
		Short: "Print a unique username",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), fixture.UniqueUsername(base, digits))
		},
	}
	username.Flags().StringVar(&base, "base", "user", "Username prefix")
	username.Flags().IntVar(&digits, "digits", 6, "Number of random digits")

	user := &cobra.Command{
		Use:   "user",
		Short: "Print a random registration identity",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			u := fixture.NewRegisteredUser(model.RegisterUserConfig{})
			out := cmd.OutOrStdout()
			field(out, "name", u.FirstName+" "+u.LastName)
			field(out, "email", u.Email)
			field(out, "telephone", u.Telephone)
			field(out, "password", u.Password)
		},
	}

	cmd.AddCommand(email, str, username, user)
	return cmd
}
