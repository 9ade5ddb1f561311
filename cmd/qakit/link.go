package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/inbox"
	"github.com/nhle/opencart-qa/internal/model"
	"github.com/nhle/opencart-qa/internal/theme"
)

var errLinkNotFound = errors.New("no matching link found")

// linkOptions are the search flags shared by the link commands.
type linkOptions struct {
	sender     string
	subject    string
	exact      bool
	pattern    string
	allFolders bool
	folder     string
	limit      int
	wait       time.Duration
	interval   time.Duration
}

func (o *linkOptions) registerFilter(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.sender, "sender", "", "Only consider messages from this address")
	flags.StringVar(&o.subject, "subject", "", "Subject to match (case-insensitive)")
	flags.BoolVar(&o.exact, "exact", false, "Require the whole subject to match instead of a substring")
	flags.StringVar(&o.pattern, "pattern", "", "Regular expression the link must match")
	flags.BoolVar(&o.allFolders, "all-folders", false, "Search every selectable folder instead of --folder")
	flags.StringVar(&o.folder, "folder", inbox.DefaultFolder, "Folder to search")
	flags.IntVar(&o.limit, "limit", inbox.DefaultLimit, "Messages per folder to consider when no sender is given; negative means all")
}

func (o *linkOptions) registerWait(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&o.wait, "wait", 0, "Keep polling until a link arrives or this much time has passed")
	cmd.Flags().DurationVar(&o.interval, "interval", 10*time.Second, "Polling interval used with --wait")
}

// apply overrides f with every flag the user set explicitly.
func (o *linkOptions) apply(cmd *cobra.Command, f inbox.Filter) (inbox.Filter, error) {
	flags := cmd.Flags()
	if flags.Changed("sender") {
		f.Sender = o.sender
	}
	if flags.Changed("subject") {
		f.Subject = o.subject
	}
	if flags.Changed("exact") {
		f.SubjectMatch = inbox.SubjectContains
		if o.exact {
			f.SubjectMatch = inbox.SubjectExact
		}
	}
	if flags.Changed("pattern") {
		re, err := regexp.Compile(o.pattern)
		if err != nil {
			return f, fmt.Errorf("--pattern: %w", err)
		}
		f.Pattern = re
	}
	if flags.Changed("all-folders") {
		f.Scope = inbox.ScopeFolder
		if o.allFolders {
			f.Scope = inbox.ScopeAllFolders
		}
	}
	if flags.Changed("folder") {
		f.Folder = o.folder
	}
	if flags.Changed("limit") {
		f.Limit = o.limit
	}
	return f, nil
}

func newLinkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Find links in emails sent by the application",
	}
	cmd.AddCommand(newLinkFindCmd(a), newLinkLoginCmd(a), newLinkSetPasswordCmd(a))
	return cmd
}

func newLinkFindCmd(a *app) *cobra.Command {
	opts := &linkOptions{}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the newest link matching the mail section and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			filter, err := inbox.FilterFromConfig(cfg.Mail)
			if err != nil {
				return err
			}
			if filter, err = opts.apply(cmd, filter); err != nil {
				return err
			}
			if filter.Pattern == nil {
				return errors.New("a link pattern is required: set mail.link_pattern or --pattern")
			}

			res, err := a.findLink(cmd.Context(), cfg, filter, opts)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}

	opts.registerFilter(cmd)
	opts.registerWait(cmd)

	return cmd
}

// loginFilter starts from the registration preset, narrows it to
// mail.sender and mail.subject when set, then applies the flags. The
// preset searches every folder unless --folder or --all-folders=false
// says otherwise.
func loginFilter(cmd *cobra.Command, mail model.MailConfig, opts *linkOptions) (inbox.Filter, error) {
	filter := inbox.LoginLinkFilter()
	if sender := strings.TrimSpace(mail.Sender); sender != "" {
		filter.Sender = sender
	}
	if mail.Subject != "" {
		filter.Subject = mail.Subject
	}
	if cmd.Flags().Changed("folder") && !cmd.Flags().Changed("all-folders") {
		filter.Scope = inbox.ScopeFolder
	}
	return opts.apply(cmd, filter)
}

func newLinkLoginCmd(a *app) *cobra.Command {
	opts := &linkOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Find the login link from the registration confirmation email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			filter, err := loginFilter(cmd, cfg.Mail, opts)
			if err != nil {
				return err
			}

			res, err := a.findLink(cmd.Context(), cfg, filter, opts)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	opts.registerFilter(cmd)
	opts.registerWait(cmd)

	return cmd
}

func newLinkSetPasswordCmd(a *app) *cobra.Command {
	opts := &linkOptions{}
	var newPassword string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Find the set-password link and check that it is still active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			sender := cfg.Mail.Sender
			if cmd.Flags().Changed("sender") {
				sender = opts.sender
			}
			var pattern *regexp.Regexp
			if cmd.Flags().Changed("pattern") {
				if pattern, err = regexp.Compile(opts.pattern); err != nil {
					return fmt.Errorf("--pattern: %w", err)
				}
			}
			filter := inbox.SetPasswordFilter(sender, pattern)

			res, err := a.findLink(cmd.Context(), cfg, filter, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printResult(out, res); err != nil {
				return err
			}

			client, err := a.client(cfg)
			if err != nil {
				return err
			}
			active, err := client.IsLinkActive(cmd.Context(), res.Link)
			if err != nil {
				return err
			}
			field(out, "active", strconv.FormatBool(active))
			if !active {
				return fmt.Errorf("set-password link is no longer active")
			}

			if newPassword != "" {
				if err := client.SetPassword(cmd.Context(), res.Link, newPassword); err != nil {
					return err
				}
				field(out, "password", theme.OutcomeStyle("completed").Render("updated"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.sender, "sender", "", "Sender of the set-password email (default mail.sender)")
	cmd.Flags().StringVar(&opts.pattern, "pattern", "", "Regular expression the link must match")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "Also submit this password through the link")
	opts.registerWait(cmd)

	return cmd
}

// findLink runs one search, or polls for up to opts.wait, behind a spinner.
func (a *app) findLink(ctx context.Context, cfg *model.AppConfig, filter inbox.Filter, opts *linkOptions) (inbox.Result, error) {
	mailCfg := cfg.Mail
	password, err := a.resolve("mail.app_password", mailCfg.AppPassword)
	if err != nil {
		return inbox.Result{}, err
	}
	mailCfg.AppPassword = password

	creds, err := inbox.CredentialsFromConfig(mailCfg, nil)
	if err != nil {
		return inbox.Result{}, err
	}

	finder := inbox.NewFinder(inbox.IMAPDialer{Logger: a.logger}, a.logger)

	var res inbox.Result
	err = a.spin(ctx, "Searching "+creds.Username, func(ctx context.Context) error {
		if opts.wait <= 0 {
			res = finder.Find(ctx, creds, filter)
			return nil
		}
		ctx, cancel := context.WithTimeout(ctx, opts.wait)
		defer cancel()
		var err error
		res, err = inbox.WaitForLink(ctx, finder, creds, filter, opts.interval)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	if err != nil {
		return res, err
	}

	for _, e := range res.Errors {
		a.logger.Warn("recovered mailbox error", "err", e)
	}
	return res, nil
}

// printResult writes the link and the message it came from. A search
// without a link yields errLinkNotFound, wrapping any recovered errors.
func printResult(w io.Writer, res inbox.Result) error {
	outcome := res.Outcome.String()
	field(w, "outcome", theme.OutcomeStyle(outcome).Render(outcome))
	field(w, "examined", strconv.Itoa(res.Examined))

	if !res.Found() {
		if err := res.Err(); err != nil {
			return fmt.Errorf("%w: %w", errLinkNotFound, err)
		}
		return errLinkNotFound
	}

	msg := res.Message
	field(w, "folder", fmt.Sprintf("%s (uid %d)", msg.Folder, msg.UID))
	field(w, "subject", msg.Subject)
	if msg.Sender != "" {
		field(w, "from", msg.Sender)
	}
	if !msg.SentAt.IsZero() {
		field(w, "sent", msg.SentAt.Format(time.RFC1123Z))
	}
	fmt.Fprintln(w, theme.LinkStyle.Render(res.Link))
	return nil
}
