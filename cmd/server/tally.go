package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"property-governance-backend/config"
	"property-governance-backend/governance"
	"property-governance-backend/models"
)

// operator is the actor used for tallies started from the command line.
var operator = &governance.User{ID: 0, Roles: []string{models.RoleAdmin}}

func tallyCommand(load func() *config.Config) *cobra.Command {
	var proposalID uint64
	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Tally a closed proposal and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if proposalID == 0 {
				return fmt.Errorf("--proposal is required")
			}
			cfg := load()
			log := newLogger(cfg)
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.service.Tally(cmd.Context(), proposalID, operator)
			if err != nil {
				return fmt.Errorf("tally proposal %d: %w (%s)", proposalID, err, governance.CodeOf(err))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().Uint64Var(&proposalID, "proposal", 0, "id of the proposal to tally")
	return cmd
}
