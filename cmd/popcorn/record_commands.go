package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"popcorn/internal/catalog"
	"popcorn/internal/fields"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Manage movie records",
	}

	recordCmd.AddCommand(newRecordAddCommand(ctx))
	recordCmd.AddCommand(newRecordListCommand(ctx))
	recordCmd.AddCommand(newRecordShowCommand(ctx))

	return recordCmd
}

func newRecordAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Create a new movie record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				record, err := store.CreateRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created record %d: %s\n", record.ID, record.Title)
				return nil
			})
		},
	}
}

func newRecordListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movie records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				records, err := store.ListRecords(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						strconv.FormatInt(record.ID, 10),
						record.Title,
						formatTime(record.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newRecordShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show a record and its accepted field items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				record, err := store.GetRecord(cmd.Context(), id)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no record found with id %d", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Record %d: %s\n", record.ID, record.Title)

				var rows [][]string
				for _, field := range fields.AllTypes() {
					items, err := store.ListAccepted(cmd.Context(), record.ID, field)
					if err != nil {
						return err
					}
					for _, item := range items {
						locked := ""
						if item.Locked() {
							locked = "reported"
						}
						rows = append(rows, []string{
							strconv.FormatInt(item.ID, 10),
							string(field),
							item.Value.Display(field),
							locked,
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No accepted field items")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Item", "Field", "Value", ""},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "items <record-id> <field>",
		Short: "List the accepted items of one field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			field, err := parseField(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				items, err := store.ListAccepted(cmd.Context(), id, field)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No accepted %s items on record %d\n", field, id)
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Value.Display(field),
						yesNo(item.Locked()),
						formatTime(item.UpdatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Value", "Reported", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
