package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Process a payment for a reservation",
	Run: func(cmd *cobra.Command, args []string) {
		reservationID, _ := cmd.Flags().GetString("reservation")
		userID, _ := cmd.Flags().GetString("user")
		tenantID, _ := cmd.Flags().GetString("tenant")
		amount, _ := cmd.Flags().GetFloat64("amount")
		currency, _ := cmd.Flags().GetString("currency")

		body, _ := json.Marshal(map[string]any{
			"reservation_id": reservationID,
			"user_id":        userID,
			"tenant_id":      tenantID,
			"amount":         amount,
			"currency":       currency,
		})

		req, _ := http.NewRequest(http.MethodPost, serviceURL()+"/payments", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		if token := viper.GetString("token"); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Error connecting to payment service: %v\n", err)
			return
		}
		defer resp.Body.Close()

		var result struct {
			Success       bool   `json:"success"`
			TransactionID string `json:"transaction_id"`
			Message       string `json:"message"`
			Code          string `json:"error_code"`
		}
		json.NewDecoder(resp.Body).Decode(&result)

		if !result.Success {
			fmt.Printf("Payment failed (%s): %s\n", result.Code, result.Message)
			if result.TransactionID != "" {
				fmt.Printf("Transaction ID: %s\n", result.TransactionID)
			}
			return
		}
		fmt.Println("Payment processed successfully!")
		fmt.Printf("Transaction ID: %s\n", result.TransactionID)
	},
}

func init() {
	payCmd.Flags().String("reservation", "", "reservation id (required)")
	payCmd.Flags().String("user", "", "user id (required)")
	payCmd.Flags().String("tenant", "", "tenant id (required)")
	payCmd.Flags().Float64("amount", 0, "payment amount (required)")
	payCmd.Flags().String("currency", "EUR", "3-letter currency code")
	payCmd.MarkFlagRequired("reservation")
	payCmd.MarkFlagRequired("user")
	payCmd.MarkFlagRequired("tenant")
	payCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(payCmd)
}
