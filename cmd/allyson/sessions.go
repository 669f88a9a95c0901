package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/allysonai/allyson/internal/browser"
	"github.com/allysonai/allyson/internal/pager"
	"github.com/allysonai/allyson/pkg/client"
	"github.com/allysonai/allyson/pkg/domain"
)

var (
	sessionsStatus string
	sessionsLimit  int
	sessionsPage   int
	sessionsAll    bool
	newNoOpen      bool
)

func init() {
	f := sessionsCmd.Flags()
	f.StringVar(&sessionsStatus, "status", "all", "filter: all, active, humanInput, completed, stopped")
	f.IntVar(&sessionsLimit, "limit", 0, "sessions per page (default from config)")
	f.IntVar(&sessionsPage, "page", 1, "page to show")
	f.BoolVar(&sessionsAll, "all", false, "page through every session")

	newCmd.Flags().BoolVar(&newNoOpen, "no-open", false, "print the session link instead of opening it")

	rootCmd.AddCommand(sessionsCmd, newCmd, openCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := domain.ParseStatusFilter(sessionsStatus)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := requireClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		limit := sessionsLimit
		if limit <= 0 {
			limit = cfg.PageSize
		}

		var list []domain.Session
		if sessionsAll {
			p := pager.New(limit, filter)
			list, err = pager.Collect(cmd.Context(), &p, listFetcher(c), 0)
		} else {
			list, err = c.ListSessions(cmd.Context(), client.ListSessionsParams{
				Page:   sessionsPage,
				Limit:  limit,
				Status: filter,
			})
		}
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		return printSessions(cmd.OutOrStdout(), list)
	},
}

func listFetcher(c *client.Client) pager.FetchFunc {
	return func(ctx context.Context, req pager.Request) ([]domain.Session, error) {
		return c.ListSessions(ctx, client.ListSessionsParams{
			Page:   req.Page,
			Limit:  req.Limit,
			Status: req.Filter,
		})
	}
}

func printSessions(out io.Writer, list []domain.Session) error {
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCOST\tNAME")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.SessionID,
			s.Status.Label(),
			domain.FormatAmount(s.Cost),
			strings.Join(strings.Fields(s.Name), " "),
		)
	}
	return w.Flush()
}

var newCmd = &cobra.Command{
	Use:   "new <task...>",
	Short: "Start a session for a free-text task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.TrimSpace(strings.Join(args, " "))
		if task == "" {
			return fmt.Errorf("task is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := requireClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		id, err := c.CreateSession(cmd.Context(), client.NewCreateSessionRequest(task))
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		link := cfg.SessionURL(id)
		fmt.Fprintln(cmd.OutOrStdout(), "Session created successfully")
		if newNoOpen {
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		}
		browser.OpenOrPrint(link)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <sessionId>",
	Short: "Open a session's web view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		browser.OpenOrPrint(cfg.SessionURL(args[0]))
		return nil
	},
}
