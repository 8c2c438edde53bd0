package client

import (
	"fmt"
	"github.com/ValentinKolb/aesdlog/cmd/util"
	"github.com/ValentinKolb/aesdlog/service/client"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/spf13/cobra"
	"os"
	"strconv"
	"strings"
)

var (
	logClient *client.LogClient

	// SendCmd appends one record and prints the server's log
	SendCmd = &cobra.Command{
		Use:               "send [text...]",
		Short:             "Append a record and print the complete log",
		Long:              `Append the arguments, joined by spaces, as one newline terminated record and print the complete log the server answers with.`,
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: setupClient,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logClient.Close()

			content, err := logClient.Send([]byte(strings.Join(args, " ")))
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(content)
			return err
		},
	}

	// SeekToCmd sends the SEEKTO control command
	SeekToCmd = &cobra.Command{
		Use:               "seekto [record] [offset]",
		Short:             "Move the read position of the server's log",
		Long:              `Send AESDCHAR_IOCSEEKTO:<record>,<offset>. The server answers with an empty response, an out of range position is only logged by the server.`,
		Args:              cobra.ExactArgs(2),
		PersistentPreRunE: setupClient,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logClient.Close()

			record, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("record must be a number: %w", err)
			}
			offset, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("offset must be a number: %w", err)
			}

			if err := logClient.SeekTo(record, offset); err != nil {
				return err
			}
			fmt.Println("seekto sent successfully")
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add connection flags
	util.SetupClientFlags(SendCmd)
	util.SetupClientFlags(SeekToCmd)
}

// setupClient creates the log client from flags and environment
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	if err := common.InitLoggers("warn"); err != nil {
		return err
	}

	t, err := util.GetClientTransport(config)
	if err != nil {
		return err
	}

	logClient, err = client.NewLogClient(*config, t)
	return err
}
