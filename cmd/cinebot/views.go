package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Piravision/Votaciones/internal/calendar"
	"github.com/Piravision/Votaciones/internal/history"
	"github.com/Piravision/Votaciones/internal/ledger"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/preflight"
	"github.com/Piravision/Votaciones/internal/render"
	"github.com/Piravision/Votaciones/internal/state"
)

func newLeaderboardCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show lifetime voter participation",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store(logging.NewNop())
			if err != nil {
				return err
			}
			doc, err := store.Read(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rows := render.TopVoters(doc.Leaderboard, limit)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No votes recorded yet")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for i, row := range rows {
				table = append(table, []string{strconv.Itoa(i + 1), row.Voter, strconv.Itoa(row.Count)})
			}
			fmt.Fprintln(out, renderTable(out, []string{"#", "Voter", "Sessions"}, table, []columnAlignment{alignRight, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", render.LeaderboardSize, "Number of voters to show (0 for all)")
	return cmd
}

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	var showEmpty bool
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the current month's calendar",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store(logging.NewNop())
			if err != nil {
				return err
			}
			doc, err := store.Read(cmd.Context())
			if err != nil {
				return err
			}
			days, err := calendar.MonthDays(doc, doc.Month)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(days))
			for _, day := range days {
				if !showEmpty && day.Daytime == nil && day.Night == nil {
					continue
				}
				rows = append(rows, []string{
					day.Key,
					render.WeekdayName(day.Date.Weekday()),
					formatEntry(day.Daytime),
					formatEntry(day.Night),
				})
			}
			fmt.Fprintf(out, "Calendar %s\n", doc.Month)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No sessions archived this month")
				return nil
			}
			headers := []string{"Date", "Day", string(state.SlotDaytime), string(state.SlotNightCinema)}
			fmt.Fprintln(out, renderTable(out, headers, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showEmpty, "all", false, "Include days without sessions")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the title open for voting",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store(logging.NewNop())
			if err != nil {
				return err
			}
			doc, err := store.Read(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Month: %s\n", doc.Month)
			if !doc.HasActiveSession() {
				fmt.Fprintln(out, "Voting: closed (nothing playing)")
				return nil
			}
			current := doc.Current
			fmt.Fprintf(out, "Playing: %s (%s)\n", current.Title, current.Year)
			fmt.Fprintf(out, "Slot: %s\n", current.TimeSlot)
			if !current.StartTime.IsZero() {
				fmt.Fprintf(out, "Started: %s\n", current.StartTime.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(out, "Votes: %d (average %.2f)\n", doc.Votes.NumVotes, ledger.Average(doc.Votes))
			if len(doc.Votes.Voters) > 0 {
				rows := make([][]string, 0, len(doc.Votes.Voters))
				for _, v := range doc.Votes.Voters {
					cast := ""
					if !v.Timestamp.IsZero() {
						cast = v.Timestamp.Format("15:04:05")
					}
					rows = append(rows, []string{v.User, ledger.FormatScore(v.Score), cast})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Voter", "Score", "Cast"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			return nil
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history [YYYY-MM]",
		Short: "Show archived sessions for a month",
		Long:  "Without a month, lists the months present in the archive.",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			archive, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer archive.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				months, err := archive.Months(cmd.Context())
				if err != nil {
					return err
				}
				if len(months) == 0 {
					fmt.Fprintln(out, "History is empty")
					return nil
				}
				fmt.Fprintln(out, strings.Join(months, "\n"))
				return nil
			}

			records, err := archive.Month(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(out, "No sessions archived for %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.Day,
					rec.Slot,
					rec.Title,
					rec.Year,
					strconv.FormatFloat(rec.FinalRating, 'f', 2, 64),
					strconv.Itoa(rec.NumVotes),
				})
			}
			headers := []string{"Date", "Slot", "Title", "Year", "Rating", "Votes"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Regenerate the calendar page without publishing",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.store(logging.NewNop())
			if err != nil {
				return err
			}
			renderer, err := ctx.renderer()
			if err != nil {
				return err
			}
			doc, err := store.Read(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderer.WriteFile(doc, cfg.Paths.OutputHTML); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.Paths.OutputHTML)
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run environment checks",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, yesNo(r.Passed), r.Detail})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Check", "OK", "Detail"}, rows, nil))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func formatEntry(entry *state.CalendarEntry) string {
	if entry == nil {
		return "-"
	}
	label := entry.Title
	if entry.Year != "" {
		label += " (" + entry.Year + ")"
	}
	return fmt.Sprintf("%s ★ %.2f", label, entry.FinalRating)
}
