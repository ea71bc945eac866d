package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "paymentctl",
	Short: "Payment service CLI",
	Long:  `A CLI tool to process, inspect, and refund reservation payments.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.paymentctl.yaml)")
	rootCmd.PersistentFlags().String("service-url", "", "payment service base URL")
	viper.BindPFlag("service_url", rootCmd.PersistentFlags().Lookup("service-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".paymentctl")
	}

	viper.SetDefault("service_url", "http://localhost:8082")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func serviceURL() string {
	return viper.GetString("service_url")
}

func main() {
	Execute()
}
