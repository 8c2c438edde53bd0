package cmd

import (
	"fmt"
	"github.com/ValentinKolb/aesdlog/cmd/client"
	"github.com/ValentinKolb/aesdlog/cmd/serve"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "aesdlog",
		Short: "bounded command log server",
		Long: fmt.Sprintf(`aesdlog (v%s)

A TCP server that appends every newline terminated request to a bounded,
oldest-first evicting log of records and answers with the complete log.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of aesdlog",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aesdlog v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.SendCmd)
	RootCmd.AddCommand(client.SeekToCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
