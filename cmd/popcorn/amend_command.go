package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"popcorn/internal/catalog"
	"popcorn/internal/engine"
	"popcorn/internal/fields"
)

func newAmendCommand(ctx *commandContext) *cobra.Command {
	var (
		user    string
		adds    []string
		updates []string
		deletes []int64
		sources []string
		comment string
	)

	cmd := &cobra.Command{
		Use:   "amend <contribution-id>",
		Short: "Rework your own waiting contribution",
		Long: `Amend replaces the staged diff of a contribution that has not been
verified yet. The record and field stay the same; the diff, sources and
comment are replaced wholesale. Only the original author may amend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contributionID, err := parseID(args[0], "contribution id")
			if err != nil {
				return err
			}

			proposal := engine.Proposal{
				AuthorID: user,
				Sources:  sources,
				Comment:  comment,
				Deletes:  deletes,
			}
			for _, raw := range adds {
				value, err := parseValue(raw)
				if err != nil {
					return err
				}
				proposal.Adds = append(proposal.Adds, value)
			}
			if len(updates) > 0 {
				proposal.Updates = make(map[int64]fields.Value, len(updates))
				for _, raw := range updates {
					id, value, err := parseUpdateSpec(raw)
					if err != nil {
						return err
					}
					proposal.Updates[id] = value
				}
			}

			return ctx.withEngine(func(eng *engine.Engine, _ *catalog.Store) error {
				contribution, err := eng.Amend(cmd.Context(), contributionID, proposal)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Amended contribution %d on record %d (%s): %d add(s), %d update(s), %d delete(s)\n",
					contribution.ID, contribution.RecordID, contribution.Field,
					len(contribution.IDsToAdd), len(contribution.IDsToUpdate), len(contribution.IDsToDelete),
				)
				fmt.Fprintln(cmd.OutOrStdout(), "Waiting for verification")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Contributing user ID")
	cmd.Flags().StringArrayVar(&adds, "add", nil, "Value to add, as a JSON object (repeatable)")
	cmd.Flags().StringArrayVar(&updates, "update", nil, "Replacement in id={...} form (repeatable)")
	cmd.Flags().Int64SliceVar(&deletes, "delete", nil, "Accepted item ID to remove (repeatable)")
	cmd.Flags().StringArrayVarP(&sources, "source", "s", nil, "Evidence URL or citation (repeatable, required)")
	cmd.Flags().StringVar(&comment, "comment", "", "Note for the verifier")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
