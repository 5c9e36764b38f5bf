package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"downsort/internal/daemon"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon operations",
	}
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg := ctx.configValue()

			status, err := fetchStatus(ctx)
			if err != nil {
				if jsonOut {
					return writeJSON(cmd, map[string]any{"running": false, "error": err.Error()})
				}
				colorize := shouldColorize(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "not reachable", colorize))
				fmt.Fprintln(stdout, renderStatusLine("API", statusInfo, ctx.apiBase(), colorize))
				if cfg != nil {
					fmt.Fprintln(stdout, renderStatusLine("Rules DB", statusInfo, cfg.RulesDBPath(), colorize))
				}
				return nil
			}

			if jsonOut {
				return writeJSON(cmd, status)
			}

			colorize := shouldColorize(stdout)
			runningKind := statusError
			runningText := "stopped"
			if status.Running {
				runningKind = statusOK
				runningText = "running"
			}
			oracleKind := statusInfo
			oracleText := "disabled"
			if status.OracleEnabled {
				oracleKind = statusOK
				oracleText = "enabled"
			}

			fmt.Fprintln(stdout, renderStatusLine("Daemon", runningKind, runningText, colorize))
			fmt.Fprintln(stdout, renderStatusLine("API", statusInfo, status.Bind, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Rules DB", statusInfo, status.RulesDBPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Tracked tabs", statusInfo, strconv.Itoa(status.TrackedTabs), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Pending prompts", statusInfo, strconv.Itoa(status.PendingPrompts), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Pending moves", statusInfo, strconv.Itoa(status.PendingMoves), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Oracle", oracleKind, oracleText, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func fetchStatus(ctx *commandContext) (*daemon.Status, error) {
	req, err := ctx.newAPIRequest(http.MethodGet, "/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := ctx.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon status request failed with HTTP %d", resp.StatusCode)
	}
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}
