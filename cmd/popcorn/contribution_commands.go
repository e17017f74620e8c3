package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"popcorn/internal/catalog"
)

func newContributionsCommand(ctx *commandContext) *cobra.Command {
	var (
		recordID int64
		field    string
		status   string
		since    string
		until    string
		page     int
		perPage  int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "contributions",
		Short: "Search contributions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			filter := catalog.SearchFilter{RecordID: recordID}
			if field != "" {
				parsed, err := parseField(field)
				if err != nil {
					return err
				}
				filter.Field = parsed
			}
			if status != "" {
				parsed, ok := catalog.ParseContributionStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q (waiting, accepted, or rejected)", status)
				}
				filter.Status = parsed
			}
			if filter.From, err = parseDayFlag(since); err != nil {
				return err
			}
			if filter.To, err = parseDayFlag(until); err != nil {
				return err
			}
			if !filter.To.IsZero() {
				filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
			}

			if perPage <= 0 {
				perPage = cfg.Search.DefaultPerPage
			}
			if perPage > cfg.Search.MaxPerPage {
				perPage = cfg.Search.MaxPerPage
			}

			return ctx.withStore(func(store *catalog.Store) error {
				result, err := store.SearchContributions(cmd.Context(), filter, catalog.Page{Number: page, PerPage: perPage})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.Total == 0 {
					fmt.Fprintln(out, "No matching contributions")
					return nil
				}
				rows := make([][]string, 0, len(result.Contributions))
				for _, c := range result.Contributions {
					rows = append(rows, []string{
						strconv.FormatInt(c.ID, 10),
						strconv.FormatInt(c.RecordID, 10),
						string(c.Field),
						c.AuthorID,
						string(c.Status),
						summarizeDiff(c),
						formatTime(c.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Record", "Field", "Author", "Status", "Diff", "Created"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				pages := (result.Total + result.PerPage - 1) / result.PerPage
				fmt.Fprintf(out, "Page %d of %d (%d total)\n", result.Page, pages, result.Total)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&recordID, "record", 0, "Only contributions against this record")
	cmd.Flags().StringVar(&field, "field", "", "Only contributions to this field")
	cmd.Flags().StringVar(&status, "status", "", "Only contributions in this status")
	cmd.Flags().StringVar(&since, "since", "", "Only contributions created on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Only contributions created on or before this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Results per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	return cmd
}

func newContributionCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "contribution <id>",
		Short: "Show one contribution in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contribution id")
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				c, err := store.GetContribution(cmd.Context(), id)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("no contribution found with id %d", id)
				}
				if asJSON {
					return writeJSON(cmd, c)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Contribution %d (%s)\n", c.ID, c.Status)
				fmt.Fprintf(out, "  Record:   %d\n", c.RecordID)
				fmt.Fprintf(out, "  Field:    %s\n", c.Field)
				fmt.Fprintf(out, "  Author:   %s\n", c.AuthorID)
				fmt.Fprintf(out, "  Created:  %s\n", formatTime(c.CreatedAt))
				fmt.Fprintf(out, "  Comment:  %s\n", dash(c.UserComment))
				fmt.Fprintf(out, "  Sources:  %s\n", strings.Join(c.Sources, ", "))
				fmt.Fprintf(out, "  Diff:     %s\n", summarizeDiff(c))
				if c.VerifiedAt != nil {
					fmt.Fprintf(out, "  Verified: %s by %s\n", formatTime(*c.VerifiedAt), c.VerifierID)
					fmt.Fprintf(out, "  Decision: %s\n", dash(c.VerificationComment))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func parseDayFlag(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD", raw)
	}
	return day, nil
}

func summarizeDiff(c *catalog.Contribution) string {
	var parts []string
	if n := len(c.IDsToAdd); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d", n))
	}
	if n := len(c.IDsToUpdate); n > 0 {
		parts = append(parts, fmt.Sprintf("~%d", n))
	}
	if n := len(c.IDsToDelete); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d", n))
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, " ")
}

func newUsersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List configured users and their permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := ctx.authorizer()
			if err != nil {
				return err
			}
			users := auth.Users()
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users configured")
				return nil
			}
			rows := make([][]string, 0, len(users))
			for _, user := range users {
				perms := append([]string(nil), user.Permissions...)
				sort.Strings(perms)
				rows = append(rows, []string{
					user.ID,
					user.Name,
					yesNo(user.Verifier),
					strings.Join(perms, ", "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Verifier", "Permissions"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
