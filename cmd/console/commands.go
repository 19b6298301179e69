package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gkmit/notify-console/internal/logquery"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/gkmit/notify-console/internal/statuswatcher"
	"github.com/spf13/cobra"
)

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if ok && buildInfo != nil {
		return buildInfo.Main.Version
	}
	return ""
}

func newRootCmd(c *console) *cobra.Command {
	root := &cobra.Command{
		Use:               "console",
		Short:             "Send notifications and follow their delivery from the terminal",
		Version:           version(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "", "directory containing config.yaml and secret_config.yaml")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")
	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newSendCmd(c),
		newLogsCmd(c),
		newStatusCmd(c),
		newWatchCmd(c),
		newShellCmd(c),
	)
	return root
}

func newLoginCmd(c *console) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the notification backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CONSOLE_PASSWORD")
			}
			err := c.service.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			cmd.Println("Login successful")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username, e.g. admin@gkmit")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, read from CONSOLE_PASSWORD when not set")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.service.Logout(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := c.service.Whoami(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%s (access token expires at %s)\n", info.Username, info.ExpiresAt.Format(time.RFC3339))
			switch {
			case info.Expired:
				cmd.Println("The access token has expired, it will be refreshed by the next request")
			case info.ExpiresSoon:
				cmd.Println("The access token expires soon, it will be refreshed when needed")
			}
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, res models.NotifyResult) {
	cmd.Printf("Notification queued with id %d (message id %s)\n", res.ID, res.MessageID)
}

func newSendCmd(c *console) *cobra.Command {
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a notification",
	}

	var email models.EmailPayload
	var attachments []string
	emailCmd := &cobra.Command{
		Use:   "email",
		Short: "Send an email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := email
			for _, path := range attachments {
				attachment, err := uploadFile(cmd, c, path)
				if err != nil {
					return err
				}
				payload.Attachments = append(payload.Attachments, attachment)
			}
			res, err := c.service.SendEmail(cmd.Context(), payload)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
	emailCmd.Flags().StringVar(&email.Destination, "to", "", "recipient address")
	emailCmd.Flags().StringVar(&email.Subject, "subject", "", "subject")
	emailCmd.Flags().StringVar(&email.Body, "body", "", "body")
	emailCmd.Flags().StringVar(&email.FromEmail, "from", "", "sender address")
	emailCmd.Flags().StringVar(&email.Cc, "cc", "", "comma separated cc addresses")
	emailCmd.Flags().StringVar(&email.Bcc, "bcc", "", "comma separated bcc addresses")
	emailCmd.Flags().StringArrayVar(&attachments, "attach", nil, "file to attach, can be repeated")

	var sms models.SMSPayload
	smsCmd := &cobra.Command{
		Use:   "sms",
		Short: "Send a text message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.service.SendSMS(cmd.Context(), sms)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
	smsCmd.Flags().StringVar(&sms.Destination, "to", "", "phone number with country code")
	smsCmd.Flags().StringVar(&sms.Message, "message", "", "text of the message")

	var slack models.SlackPayload
	slackCmd := &cobra.Command{
		Use:   "slack",
		Short: "Post a slack message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.service.SendSlack(cmd.Context(), slack)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
	slackCmd.Flags().StringVar(&slack.Destination, "channel", "", "channel ID, e.g. C01234567")
	slackCmd.Flags().StringVar(&slack.Message, "message", "", "text of the message")

	send.AddCommand(emailCmd, smsCmd, slackCmd)
	return send
}

func uploadFile(cmd *cobra.Command, c *console, path string) (models.Attachment, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Attachment{}, err
	}
	defer file.Close()
	attachment, err := c.service.UploadAttachment(cmd.Context(), filepath.Base(path), "", file)
	if err != nil {
		return models.Attachment{}, err
	}
	cmd.Printf("Uploaded %s (%s, %d bytes)\n", attachment.Name, attachment.ContentType, attachment.Size)
	return attachment, nil
}

// buildQuery turns the flags of the logs and watch commands into a log query
func buildQuery(page, pageSize int, filters []string, sort string) (logquery.LogQuery, error) {
	query := logquery.New()
	var err error
	for _, filter := range filters {
		column, value, found := strings.Cut(filter, "=")
		if !found {
			return query, fmt.Errorf("invalid filter %q, expected column=value", filter)
		}
		query, err = query.WithFilter(column, value)
		if err != nil {
			return query, err
		}
	}
	if sort != "" {
		query, err = query.WithSort(sort)
		if err != nil {
			return query, err
		}
	}
	if pageSize != 0 {
		query, err = query.WithPageSize(pageSize)
		if err != nil {
			return query, err
		}
	}
	if page != 0 {
		query, err = query.WithPage(page)
		if err != nil {
			return query, err
		}
	}
	return query, nil
}

type queryFlags struct {
	page     int
	pageSize int
	filters  []string
	sort     string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&q.page, "page", 0, "page to show, starting at 1")
	cmd.Flags().IntVar(&q.pageSize, "page-size", 0, fmt.Sprintf("rows per page, one of %v", logquery.PageSizes))
	cmd.Flags().StringArrayVar(&q.filters, "filter", nil, "column=value filter, can be repeated")
	cmd.Flags().StringVar(&q.sort, "sort", "", "sort columns, e.g. -messageDate,service")
}

func (q *queryFlags) query() (logquery.LogQuery, error) {
	return buildQuery(q.page, q.pageSize, q.filters, q.sort)
}

func printLogs(cmd *cobra.Command, page models.LogPage) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMESSAGE ID\tSERVICE\tDESTINATION\tSTATUS\tATTEMPTS\tDATE\tMESSAGE")
	for _, msg := range page.Items {
		fmt.Fprintf(
			w,
			"%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			msg.ID,
			msg.MessageID,
			msg.Service,
			msg.Destination,
			msg.Status,
			msg.Attempts,
			msg.MessageDate.Format(time.RFC3339),
			msg.Message,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	cmd.Printf(
		"Page %d of %d (%d rows)\n",
		page.Pagination.Page,
		page.Pagination.TotalPages,
		page.Pagination.TotalItems,
	)
	return nil
}

func newLogsCmd(c *console) *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List the sent notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.query()
			if err != nil {
				return err
			}
			page, err := c.service.ListLogs(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printLogs(cmd, page)
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the delivery status of a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("the id has to be a number, got %q", args[0])
			}
			status, err := c.service.DeliveryStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			cmd.Println(status)
			return nil
		},
	}
}

func newWatchCmd(c *console) *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the delivery status of the pending notifications of a logs page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.query()
			if err != nil {
				return err
			}
			page, err := c.service.ListLogs(cmd.Context(), query)
			if err != nil {
				return err
			}
			done := make(chan struct{}, 1)
			var watcher *statuswatcher.Watcher
			watcher, err = statuswatcher.NewWatcher(
				statuswatcher.WithConfig(c.config.StatusWatcher),
				statuswatcher.WithStatusFetcher(c.service),
				statuswatcher.WithOnChange(func(id int, previous, current models.DeliveryStatus) {
					cmd.Printf("%d: %s -> %s\n", id, previous, current)
					if len(watcher.Tracked()) == 0 {
						select {
						case done <- struct{}{}:
						default:
						}
					}
				}),
			)
			if err != nil {
				return err
			}
			for _, row := range page.Items {
				watcher.Track(row)
			}
			if len(watcher.Tracked()) == 0 {
				cmd.Println("Nothing to watch, every notification on the page is delivered or failed")
				return nil
			}
			cmd.Printf("Watching %d notifications\n", len(watcher.Tracked()))
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-done:
					return nil
				case <-ticker.C:
					if len(watcher.Tracked()) == 0 {
						return nil
					}
				}
			}
		},
	}
	flags.register(cmd)
	return cmd
}

// newShellCmd reads commands from the standard input and runs them in the same process,
// which keeps the in-memory credentials between commands.
func newShellCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run several commands in one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			cmd.Print("> ")
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) > 0 {
					if fields[0] == "exit" || fields[0] == "quit" {
						return nil
					}
					if fields[0] == "shell" {
						cmd.PrintErrln("Error: already in a shell")
					} else {
						root := newRootCmd(c)
						root.SetArgs(fields)
						if err := root.ExecuteContext(cmd.Context()); err != nil {
							cmd.PrintErrln("Error:", err)
						}
					}
				}
				if cmd.Context().Err() != nil {
					return nil
				}
				cmd.Print("> ")
			}
			return scanner.Err()
		},
	}
}
