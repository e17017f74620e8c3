package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"popcorn/internal/catalog"
	"popcorn/internal/engine"
	"popcorn/internal/fields"
)

func newProposeCommand(ctx *commandContext) *cobra.Command {
	var (
		user    string
		adds    []string
		updates []string
		deletes []int64
		sources []string
		comment string
	)

	cmd := &cobra.Command{
		Use:   "propose <record-id> <field>",
		Short: "Propose changes to one field of a record",
		Long: `Propose stages a diff against one field of a record. Values are JSON
objects, for example:

  popcorn propose 1 genre --user alice --add '{"genre":"drama"}' \
      --source https://example.com/imdb

  popcorn propose 1 release_date --user alice \
      --update '12={"date":"1982-06-25","country":"US"}' \
      --delete 13 --source https://example.com/afi

The changes stay invisible until a verifier accepts the contribution.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			field, err := parseField(args[1])
			if err != nil {
				return err
			}

			proposal := engine.Proposal{
				AuthorID: user,
				RecordID: recordID,
				Field:    field,
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
				contribution, err := eng.Propose(cmd.Context(), proposal)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Staged contribution %d on record %d (%s): %d add(s), %d update(s), %d delete(s)\n",
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

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var (
		user    string
		accept  bool
		reject  bool
		comment string
	)

	cmd := &cobra.Command{
		Use:   "verify <contribution-id>",
		Short: "Accept or reject a waiting contribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contribution id")
			if err != nil {
				return err
			}
			if accept == reject {
				return fmt.Errorf("specify exactly one of --accept or --reject")
			}

			return ctx.withEngine(func(eng *engine.Engine, _ *catalog.Store) error {
				contribution, err := eng.Verify(cmd.Context(), engine.Verdict{
					ContributionID: id,
					VerifierID:     user,
					Accept:         accept,
					Comment:        comment,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Contribution %d %s\n", contribution.ID, contribution.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Verifying user ID")
	cmd.Flags().BoolVar(&accept, "accept", false, "Accept the contribution")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the contribution")
	cmd.Flags().StringVar(&comment, "comment", "", "Verification comment")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
