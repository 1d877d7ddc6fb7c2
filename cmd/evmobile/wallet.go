package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmobile/internal/app"
	"evmobile/internal/service"
)

func NewTopupCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:     "topup [amount]",
		Short:   "Top up the wallet",
		GroupID: gAccount,
		Long: `Top up the wallet.

Without an amount, lists the preset amounts. With an amount, starts the payment,
prints the payment link and waits until the payment is confirmed or verification
times out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, logger *zap.Logger) error {
				if len(args) == 0 {
					amounts, err := a.Lookup.TopupAmounts(cmd.Context())
					if err != nil {
						return fmt.Errorf("failed to load top-up amounts: %w", err)
					}
					for _, amount := range amounts {
						cmd.Printf("%.2f\n", amount)
					}
					return nil
				}

				amount, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid amount: %v", err)
				}
				resp, err := a.Payments.Topup(cmd.Context(), amount)
				if err != nil {
					return fmt.Errorf("failed to start top-up: %w", err)
				}
				cmd.Printf("transaction %s\n", resp.TransactionID)
				if resp.PaymentURL != "" {
					cmd.Printf("pay at %s\n", resp.PaymentURL)
				}
				if !wait {
					return nil
				}
				return waitTopup(cmd, a)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the payment to be confirmed")
	return cmd
}

func waitTopup(cmd *cobra.Command, a *app.App) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return context.Cause(cmd.Context())
		case <-ticker.C:
		}
		if a.Store.Route() == service.RoutePaymentSuccess {
			balance, _ := a.Store.Wallet()
			cmd.Printf("payment confirmed, balance %.2f %s\n", balance.Amount, balance.Currency)
			return nil
		}
		if !a.TopupPending() {
			cmd.Println("payment not confirmed yet, check the wallet history later")
			return nil
		}
	}
}

func NewHistoryCommand() *cobra.Command {
	var (
		page     int
		size     int
		charging bool
		search   string
	)

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List wallet transactions or past charging sessions",
		GroupID: gAccount,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App, logger *zap.Logger) error {
				if charging {
					result, err := a.Charging.History(cmd.Context(), page, size, search)
					if err != nil {
						return fmt.Errorf("failed to load charging history: %w", err)
					}
					for _, item := range result.Items {
						cmd.Printf("%s\t%s\t%s\t%.2f kWh\t%.2f\n",
							item.SessionID, item.LocationName, item.Status, item.EnergyKWh.Float64, item.Price.Float64)
					}
					return nil
				}

				result, err := a.Wallet.Transactions(cmd.Context(), page, size)
				if err != nil {
					return fmt.Errorf("failed to load wallet history: %w", err)
				}
				for _, tx := range result.Items {
					created := ""
					if tx.CreatedAt.Valid {
						created = tx.CreatedAt.Time.Format(time.RFC3339)
					}
					cmd.Printf("%s\t%s\t%s\t%.2f\t%s\n", tx.ID, tx.Type, tx.Status, tx.Amount, created)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&page, "page", 1, "page number")
	f.IntVar(&size, "size", service.DefaultHistoryPageSize, "page size")
	f.BoolVar(&charging, "charging", false, "list charging sessions instead of wallet transactions")
	f.StringVar(&search, "search", "", "filter charging sessions by location")
	return cmd
}

func NewStationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "stations",
		Short:   "List charging locations",
		GroupID: gCharging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App, logger *zap.Logger) error {
				locations, err := a.Locations.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load stations: %w", err)
				}
				for _, loc := range locations {
					cmd.Printf("%s\t%s\t%s\n", loc.ID, loc.Name, loc.Address)
					for _, c := range loc.Connectors {
						cmd.Printf("  %s\t%s\t%s\t%.0f kW\n", c.ID, c.Type, c.Status, c.PowerKW)
					}
				}
				return nil
			})
		},
	}
}
