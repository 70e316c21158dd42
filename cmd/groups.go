package cmd

import (
	"github.com/spf13/cobra"

	"github.com/goldyfruit/kube-inventory/internal/exit"
	"github.com/goldyfruit/kube-inventory/internal/output"
)

func newGroupsCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show inventory groups and their members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := output.ParseMode(outputMode, output.ModeTable)
			if err != nil {
				return exit.New(exit.CodeUsage, err)
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			inv, _, err := a.orch.Inventory(cmd.Context(), refreshCache)
			if err != nil {
				return classify(err)
			}
			a.log.V(1).Info("rendering groups", "groups", len(inv.Groups))
			return output.RenderGroups(cmd.OutOrStdout(), inv, mode)
		},
	}

	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "output format: table|json|yaml")
	return cmd
}

func newHostsCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Show inventory hosts and the nodes they resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := output.ParseMode(outputMode, output.ModeTable)
			if err != nil {
				return exit.New(exit.CodeUsage, err)
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			inv, index, err := a.orch.Inventory(cmd.Context(), refreshCache)
			if err != nil {
				return classify(err)
			}
			return output.RenderHosts(cmd.OutOrStdout(), inv, index, mode)
		},
	}

	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "output format: table|json|yaml")
	return cmd
}
