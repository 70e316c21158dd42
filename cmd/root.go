package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goldyfruit/kube-inventory/internal/exit"
	"github.com/goldyfruit/kube-inventory/internal/output"
)

var (
	settingsPath   string
	kubeconfigPath string
	kubeContext    string
	sourceName     string
	selectorRaw    string
	refreshCache   bool
	verbose        bool
)

func NewRootCmd() *cobra.Command {
	var (
		host       string
		outputMode string
	)

	cmd := &cobra.Command{
		Use:           "kube-inventory",
		Short:         "Ansible dynamic inventory for Kubernetes nodes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := output.ParseMode(outputMode, output.ModeJSON)
			if err != nil {
				return exit.New(exit.CodeUsage, err)
			}
			if mode == output.ModeTable {
				return exit.New(exit.CodeUsage, fmt.Errorf("table output is only available for the groups and hosts commands"))
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if cmd.Flags().Changed("host") {
				result, err := a.orch.Host(ctx, host, refreshCache)
				if err != nil {
					return classify(err)
				}
				if !result.Found {
					return output.Emit(cmd.OutOrStdout(), map[string]any{}, mode)
				}
				return output.Emit(cmd.OutOrStdout(), result.Vars, mode)
			}

			text, err := a.orch.List(ctx, refreshCache)
			if err != nil {
				return classify(err)
			}
			return output.EmitText(cmd.OutOrStdout(), text, mode)
		},
	}

	cmd.Flags().Bool("list", true, "list all groups and hosts (default)")
	cmd.Flags().StringVar(&host, "host", "", "print the variables of a single host")
	cmd.Flags().StringVarP(&outputMode, "output", "o", "json", "output format: json|yaml")

	cmd.PersistentFlags().StringVar(&settingsPath, "config", "", "path to settings file (default: kube.ini next to the binary or in the config directory)")
	cmd.PersistentFlags().StringVar(&kubeconfigPath, "kubeconfig", "", "path to kubeconfig file")
	cmd.PersistentFlags().StringVar(&kubeContext, "context", "", "kubeconfig context to use")
	cmd.PersistentFlags().StringVar(&sourceName, "source", "", "node source: api|kubectl (overrides settings)")
	cmd.PersistentFlags().StringVar(&selectorRaw, "selector", "", "label selector restricting inventoried nodes (overrides settings)")
	cmd.PersistentFlags().BoolVar(&refreshCache, "refresh-cache", false, "force a refresh of the cache from the cluster")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(newGroupsCmd())
	cmd.AddCommand(newHostsCmd())

	return cmd
}
