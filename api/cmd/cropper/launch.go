package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"photo-crop/api/internal/bridge"
	"photo-crop/api/internal/client"
)

func newLaunchCmd() *cobra.Command {
	var apiURL, orderID string

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Print a base64 launch payload for an order",
		Long: `Launch fetches the order photos from the API and prints them as the base64 launch
payload accepted by "review --launch". Photo URLs in the payload are absolute.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" || orderID == "" {
				return errors.New("--api-url and --order-id are required")
			}
			order, err := client.New(apiURL).FetchOrder(cmd.Context(), orderID)
			if err != nil {
				return fmt.Errorf("fetch order %s: %w", orderID, err)
			}
			payload, err := bridge.EncodeLaunch(order.ID, order.Photos)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), payload)
			return err
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base, e.g. http://localhost:8080/api")
	cmd.Flags().StringVar(&orderID, "order-id", "", "order id")
	return cmd
}
