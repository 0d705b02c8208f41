package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xdao.co/graphwire/notary"
)

func (a *app) notaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notary",
		Short: "Notary operations",
	}
	cmd.AddCommand(a.notaryShowCmd(), a.notaryRevokeCmd())
	return cmd
}

func (a *app) notaryClient() (*notary.Client, error) {
	if a.cfg.Notary.Address == "" {
		return nil, usagef("notary.address is not configured")
	}
	return notary.Dial(a.cfg.Notary.Address, a.cfg.Notary.Timeout)
}

func (a *app) notaryShowCmd() *cobra.Command {
	var sender, id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a deposit without its key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sender == "" || id == "" {
				return usagef("--sender and --id are required")
			}
			client, err := a.notaryClient()
			if err != nil {
				return err
			}
			defer client.Close()
			d, err := client.Fetch(cmd.Context(), sender, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "sender: %s\nidentifier: %s\nhash: %s\n", d.Sender, d.Identifier, d.Hash)
			if !d.ExpiresAt.IsZero() {
				fmt.Fprintf(a.out, "expires: %s\n", d.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "Depositing identity")
	cmd.Flags().StringVar(&id, "id", "", "Reference identifier")
	return cmd
}

func (a *app) notaryRevokeCmd() *cobra.Command {
	var sender, id string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Withdraw a deposited key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sender == "" || id == "" {
				return usagef("--sender and --id are required")
			}
			client, err := a.notaryClient()
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Revoke(cmd.Context(), sender, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Revoked %s from %s\n", id, sender)
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "Depositing identity")
	cmd.Flags().StringVar(&id, "id", "", "Reference identifier")
	return cmd
}
