package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/fixture"
	"github.com/nhle/opencart-qa/internal/model"
	"github.com/nhle/opencart-qa/internal/userdb"
	"github.com/nhle/opencart-qa/internal/workbook"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create, record and look up test accounts",
	}
	cmd.AddCommand(newUserRegisterCmd(a), newUserStoreCmd(a), newUserLookupCmd(a))
	return cmd
}

func newUserRegisterCmd(a *app) *cobra.Command {
	var (
		tmpl      model.RegisterUserConfig
		email     string
		password  string
		skipExcel bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Generate a registration identity and record it in the database and workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			base := cfg.RegisterUser
			if tmpl.FirstName != "" {
				base.FirstName = tmpl.FirstName
			}
			if tmpl.LastName != "" {
				base.LastName = tmpl.LastName
			}
			if tmpl.Telephone != "" {
				base.Telephone = tmpl.Telephone
			}

			u := fixture.NewRegisteredUser(base)
			if email != "" {
				u.Email = email
			}
			if password != "" {
				u.Password, u.ConfirmPassword = password, password
			}
			u.CreatedAt = time.Now().UTC()

			s, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SaveRegisteredUser(cmd.Context(), &u); err != nil {
				return err
			}
			if !skipExcel && cfg.Excel.RegisteredUsersPath != "" {
				if err := workbook.AppendRegisteredUser(cfg.Excel.RegisteredUsersPath, u); err != nil {
					return err
				}
			}
			a.logger.Info("registered user recorded", "email", u.Email)

			out := cmd.OutOrStdout()
			field(out, "name", u.FirstName+" "+u.LastName)
			field(out, "email", u.Email)
			field(out, "telephone", u.Telephone)
			field(out, "password", u.Password)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&tmpl.FirstName, "first-name", "", "First name (default register_users.first_name or random)")
	flags.StringVar(&tmpl.LastName, "last-name", "", "Last name (default register_users.last_name or random)")
	flags.StringVar(&tmpl.Telephone, "telephone", "", "Telephone (default register_users.telephone or random)")
	flags.StringVar(&email, "email", "", "Email address (default random)")
	flags.StringVar(&password, "password", "", "Password (default random, with a special character)")
	flags.BoolVar(&skipExcel, "no-excel", false, "Do not append to the registered users workbook")

	return cmd
}

func newUserStoreCmd(a *app) *cobra.Command {
	var (
		u         model.UserData
		skipExcel bool
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Record back-office account data in the database and workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if u.BusinessName == "" {
				return errors.New("--business-name is required")
			}
			if u.Username == "" {
				u.Username = fixture.UniqueUsername("user", 6)
			}
			if u.Password == "" {
				u.Password = fixture.RandomString(12, true)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.StoreUserData(cmd.Context(), &u); err != nil {
				return err
			}
			if !skipExcel && cfg.Excel.UserDataPath != "" {
				if err := workbook.AppendUserData(cfg.Excel.UserDataPath, u); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			field(out, "username", u.Username)
			field(out, "password", u.Password)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&u.BusinessName, "business-name", "", "Business name")
	flags.StringVar(&u.Username, "username", "", "Username (default user_ plus 6 random digits)")
	flags.StringVar(&u.Password, "password", "", "Password (default random)")
	flags.StringVar(&u.Email, "email", "", "Email address")
	flags.BoolVar(&skipExcel, "no-excel", false, "Do not append to the user data workbook")

	return cmd
}

func newUserLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <email>",
		Short: "Print the user name stored in MongoDB for an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			mongoCfg := cfg.MongoDB
			if mongoCfg.URI, err = a.resolve("mongodb.uri", mongoCfg.URI); err != nil {
				return err
			}

			var users *userdb.Store
			err = a.spin(cmd.Context(), "Connecting to MongoDB", func(ctx context.Context) error {
				var err error
				users, err = userdb.Open(ctx, mongoCfg, a.logger)
				return err
			})
			if err != nil {
				if users != nil {
					_ = users.Close(context.WithoutCancel(cmd.Context()))
				}
				return err
			}
			defer users.Close(context.WithoutCancel(cmd.Context()))

			name, err := users.FindUserName(cmd.Context(), args[0])
			if errors.Is(err, userdb.ErrNotFound) {
				return fmt.Errorf("no user with email %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}
