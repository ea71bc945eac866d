package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <transaction-id>",
	Short: "Look up a payment by transaction id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serviceURL() + "/payments/" + args[0])
		if err != nil {
			fmt.Printf("Error connecting to payment service: %v\n", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			fmt.Println("Payment not found.")
			return
		}
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("Lookup failed with status %s\n", resp.Status)
			return
		}

		var result struct {
			Status        string  `json:"status"`
			TransactionID string  `json:"transaction_id"`
			Amount        float64 `json:"amount"`
			Currency      string  `json:"currency"`
			CreatedAt     string  `json:"created_at"`
		}
		json.NewDecoder(resp.Body).Decode(&result)

		fmt.Printf("Transaction: %s\n", result.TransactionID)
		fmt.Printf("Status:      %s\n", result.Status)
		fmt.Printf("Amount:      %.2f %s\n", result.Amount, result.Currency)
		fmt.Printf("Created:     %s\n", result.CreatedAt)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
