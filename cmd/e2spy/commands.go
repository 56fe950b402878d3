package main

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/williamjackson/e2spy/history"
	"github.com/williamjackson/e2spy/paths"
)

func newPathsCmd(dirs paths.Directories) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the data directories the launcher and backend use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "appData:  %s\n", dirs.AppData)
			fmt.Fprintf(out, "userData: %s\n", dirs.UserData)
			fmt.Fprintf(out, "logs:     %s\n", dirs.Logs)
			return nil
		},
	}
}

func newHistoryCmd(dirs paths.Directories) *cobra.Command {
	var (
		limit   int
		session string
		prune   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			if err := dirs.Ensure(); err != nil {
				return err
			}
			db, err := sqlx.Connect("sqlite3", dirs.File(historyFileName))
			if err != nil {
				return fmt.Errorf("open launch history: %w", err)
			}
			defer db.Close()
			logger, err := history.NewLogger(db)
			if err != nil {
				return fmt.Errorf("open launch history: %w", err)
			}

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := logger.DeleteOldEvents(prune)
				if err != nil {
					return fmt.Errorf("prune launch history: %w", err)
				}
				fmt.Fprintf(out, "Deleted %d events older than %s\n", n, prune)
			}

			if session != "" {
				events, err := logger.GetEventsBySession(session)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					return fmt.Errorf("no events for session %s", session)
				}
				for _, e := range events {
					pid := "-"
					if e.PID != nil {
						pid = fmt.Sprint(*e.PID)
					}
					fmt.Fprintf(out, "%s  %-16s %-16s pid=%-7s %s\n",
						e.Time().Format(time.RFC3339), e.EventType, e.State, pid, e.Detail)
				}
				return nil
			}

			sessions, err := logger.GetSessions(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No launches recorded")
				return nil
			}
			for _, s := range sessions {
				started := time.UnixMilli(s.StartedAt)
				ended := time.UnixMilli(s.EndedAt)
				fmt.Fprintf(out, "%s  %s  %-10s %d events\n",
					s.SessionID, started.Format(time.RFC3339), ended.Sub(started).Round(time.Second), s.Events)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of launches to list")
	cmd.Flags().StringVar(&session, "session", "", "show the events of one launch")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete events older than this before listing")
	return cmd
}
