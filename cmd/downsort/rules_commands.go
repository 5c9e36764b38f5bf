package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"downsort/internal/rules"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage routing rules",
	}

	rulesCmd.AddCommand(newRulesListCommand(ctx))
	rulesCmd.AddCommand(newRulesAddCommand(ctx))
	rulesCmd.AddCommand(newRulesRemoveCommand(ctx))
	rulesCmd.AddCommand(newRulesSetEnabledCommand(ctx, "enable", true))
	rulesCmd.AddCommand(newRulesSetEnabledCommand(ctx, "disable", false))
	rulesCmd.AddCommand(newRulesChoicesCommand(ctx))
	rulesCmd.AddCommand(newRulesForgetCommand(ctx))

	return rulesCmd
}

func newRulesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List routing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *rules.Store) error {
				list, err := store.List(cmd.Context(), enabledOnly)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string][]rules.Rule{"rules": list})
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rules configured")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, rule := range list {
					rows = append(rows, []string{
						strconv.FormatInt(rule.ID, 10),
						rule.Name,
						rule.Destination,
						rule.Keywords,
						yesNo(rule.Enabled),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Destination", "Keywords", "Enabled"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Show enabled rules only")
	return cmd
}

func newRulesAddCommand(ctx *commandContext) *cobra.Command {
	var destination string
	var keywords string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a routing rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *rules.Store) error {
				rule := &rules.Rule{
					Name:        strings.TrimSpace(args[0]),
					Destination: strings.TrimSpace(destination),
					Keywords:    strings.TrimSpace(keywords),
					Enabled:     !disabled,
				}
				if err := store.Create(cmd.Context(), rule); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created rule %q (id %d) -> %s\n", rule.Name, rule.ID, rule.Destination)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&destination, "dest", "d", "", "Destination folder for matched downloads")
	cmd.Flags().StringVarP(&keywords, "keywords", "k", "", "Comma-separated match keywords")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	_ = cmd.MarkFlagRequired("dest")
	_ = cmd.MarkFlagRequired("keywords")
	return cmd
}

func newRulesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id|name>",
		Short: "Remove a routing rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *rules.Store) error {
				rule, err := resolveRule(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(cmd.Context(), rule.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed rule %q (id %d)\n", rule.Name, rule.ID)
				return nil
			})
		},
	}
}

func newRulesSetEnabledCommand(ctx *commandContext, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id|name>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a routing rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *rules.Store) error {
				rule, err := resolveRule(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if err := store.SetEnabled(cmd.Context(), rule.ID, enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %q is now %sd\n", rule.Name, verb)
				return nil
			})
		},
	}
}

func newRulesChoicesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "choices",
		Short: "List remembered per-site choices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *rules.Store) error {
				choices, err := store.RememberedChoices(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string][]rules.RememberedChoice{"choices": choices})
				}
				if len(choices) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No remembered choices")
					return nil
				}
				rows := make([][]string, 0, len(choices))
				for _, choice := range choices {
					rows = append(rows, []string{choice.Host, choice.RuleName})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Host", "Rule"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newRulesForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <host>",
		Short: "Forget the remembered choice for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *rules.Store) error {
				host := strings.ToLower(strings.TrimSpace(args[0]))
				if err := store.ForgetChoice(cmd.Context(), host); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot remembered choice for %s\n", host)
				return nil
			})
		},
	}
}

// resolveRule accepts either a numeric rule id or a rule name.
func resolveRule(ctx context.Context, store *rules.Store, ref string) (rules.Rule, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return store.Get(ctx, id)
	}
	return store.GetByName(ctx, ref)
}
