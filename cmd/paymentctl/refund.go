package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var refundCmd = &cobra.Command{
	Use:   "refund <transaction-id>",
	Short: "Refund a completed payment",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tenantID, _ := cmd.Flags().GetString("tenant")
		amount, _ := cmd.Flags().GetFloat64("amount")
		reason, _ := cmd.Flags().GetString("reason")

		body, _ := json.Marshal(map[string]any{
			"amount":    amount,
			"reason":    reason,
			"tenant_id": tenantID,
		})

		url := serviceURL() + "/payments/" + args[0] + "/refund"
		req, _ := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
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
			Success  bool   `json:"success"`
			RefundID string `json:"refund_id"`
			Message  string `json:"message"`
			Code     string `json:"error_code"`
		}
		json.NewDecoder(resp.Body).Decode(&result)

		if !result.Success {
			fmt.Printf("Refund failed (%s): %s\n", result.Code, result.Message)
			if result.RefundID != "" {
				fmt.Printf("Existing refund: %s\n", result.RefundID)
			}
			return
		}
		fmt.Println("Refund processed successfully!")
		fmt.Printf("Refund ID: %s\n", result.RefundID)
	},
}

func init() {
	refundCmd.Flags().String("tenant", "", "tenant id (required)")
	refundCmd.Flags().Float64("amount", 0, "refund amount (0 for full refund)")
	refundCmd.Flags().String("reason", "", "refund reason")
	refundCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(refundCmd)
}
