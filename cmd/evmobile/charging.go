package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"evmobile/internal/scan"
	"evmobile/internal/service"
)

type scanResult struct {
	Accepted     bool   `json:"accepted"`
	PendingValue string `json:"pending_value"`
	PendingCount int    `json:"pending_count"`
}

func printScan(cmd *cobra.Command, res scanResult) {
	switch {
	case res.Accepted:
		cmd.Println("code accepted, starting session")
	case res.PendingCount > 0:
		cmd.Printf("holding %q (%d read), scan again to confirm\n", res.PendingValue, res.PendingCount)
	default:
		cmd.Println("no code pending")
	}
}

func NewScanCommand() *cobra.Command {
	var box []float64

	cmd := &cobra.Command{
		Use:     "scan [code]",
		Short:   "Feed a decoded charger code to the daemon",
		GroupID: gCharging,
		Long: `Feed a decoded charger code to the daemon.

A code is accepted after two consistent reads, so run the command twice to start a
session. --box sets the detection bounds as x,y,width,height in preview pixels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"value": args[0]}
			if len(box) > 0 {
				if len(box) != 4 {
					return fmt.Errorf("box needs 4 values, got %d", len(box))
				}
				body["box"] = scan.Rect{X: box[0], Y: box[1], Width: box[2], Height: box[3]}
			}
			var res scanResult
			if err := newDaemonClient(daemonAddr).Post(cmd.Context(), "/scan", body, &res); err != nil {
				return fmt.Errorf("failed to send scan: %w", err)
			}
			printScan(cmd, res)
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&box, "box", nil, "detection bounds x,y,width,height")
	return cmd
}

func NewRescanCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rescan",
		Short:   "Reset the scanner so a new code can be accepted",
		GroupID: gCharging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var res scanResult
			if err := newDaemonClient(daemonAddr).Post(cmd.Context(), "/rescan", nil, &res); err != nil {
				return fmt.Errorf("failed to reset scanner: %w", err)
			}
			printScan(cmd, res)
			return nil
		},
	}
}

func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "stop",
		Short:   "Stop the active charging session",
		GroupID: gCharging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := newDaemonClient(daemonAddr).Post(cmd.Context(), "/stop", nil, nil); err != nil {
				return fmt.Errorf("failed to stop charging: %w", err)
			}
			cmd.Println("charging stopped")
			return nil
		},
	}
}

func NewDismissCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "dismiss",
		Short:   "Leave the charging result and forget the finished session",
		GroupID: gCharging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := newDaemonClient(daemonAddr).Post(cmd.Context(), "/dismiss", nil, nil); err != nil {
				return fmt.Errorf("failed to dismiss session: %w", err)
			}
			cmd.Println("session dismissed")
			return nil
		},
	}
}

type sessionResult struct {
	MinutesRemaining *int64 `json:"minutes_remaining"`
	ChargingMinutes  *int64 `json:"charging_minutes"`
	LastEvent        string `json:"last_event"`
}

func NewStateCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:     "state",
		Short:   "Show the daemon state",
		GroupID: gCharging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newDaemonClient(daemonAddr)
			var state service.AppState
			if err := c.Get(cmd.Context(), "/state", &state); err != nil {
				return fmt.Errorf("failed to read state: %w", err)
			}
			if raw {
				data, err := json.MarshalIndent(state, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Printf("signed in: %t\n", state.Authenticated)
			if state.Route != "" {
				cmd.Printf("view: %s\n", state.Route)
			}
			if state.Wallet != nil {
				cmd.Printf("balance: %.2f %s\n", state.Wallet.Amount, state.Wallet.Currency)
			}
			if state.Snapshot == nil {
				cmd.Println("no active session")
				return nil
			}
			s := state.Snapshot
			cmd.Printf("session %s: %s\n", state.SessionID, s.Status)
			if s.EnergyKWh.Valid {
				cmd.Printf("  energy: %.2f kWh\n", s.EnergyKWh.Float64)
			}
			if s.SOCPercent.Valid {
				cmd.Printf("  battery: %d%%\n", s.SOCPercent.Int64)
			}
			if s.PriceAccrued.Valid {
				cmd.Printf("  cost: %.2f\n", s.PriceAccrued.Float64)
			}

			var session sessionResult
			if err := c.Get(cmd.Context(), "/session", &session); err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			if session.ChargingMinutes != nil {
				cmd.Printf("  charging: %d min\n", *session.ChargingMinutes)
			}
			if session.MinutesRemaining != nil {
				cmd.Printf("  remaining: %d min\n", *session.MinutesRemaining)
			}
			if session.LastEvent != "" {
				cmd.Printf("  last event: %s\n", session.LastEvent)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON state")
	return cmd
}
