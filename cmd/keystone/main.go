package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var Version = "dev"

// @title Keystone API
// @version 1.0
// @description Membership, booking, donation and billing API for the Keystone gym site.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey SessionCookie
// @in header
// @name keystone-access-token
func main() {
	rootCmd := &cobra.Command{
		Use:           "keystone",
		Short:         "Keystone gym site backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
