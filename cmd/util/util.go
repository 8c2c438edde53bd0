package util

import (
	"fmt"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/transport"
	"github.com/ValentinKolb/aesdlog/service/transport/tcp"
	"github.com/ValentinKolb/aesdlog/service/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. AESD_ENDPOINT)
	EnvPrefix = "aesd"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read matching environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupClientFlags adds the connection flags shared by all client commands
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "localhost:9000", WrapString("The address of the aesdlog server (host:port for tcp, socket path for unix)"))

	key = "transport"
	cmd.PersistentFlags().String(key, string(common.TransportTypeTCP), WrapString("The transport to use (tcp, unix)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of one request (0 = no timeout)"))
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		Transport:     common.TransportType(viper.GetString("transport")),
		TimeoutSecond: viper.GetInt("timeout"),
	}
}

// GetClientTransport creates the client transport named in config
func GetClientTransport(config *common.ClientConfig) (transport.IClientTransport, error) {
	switch config.Transport {
	case common.TransportTypeTCP:
		return tcp.NewTCPClientTransport(), nil
	case common.TransportTypeUnix:
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", config.Transport)
	}
}

// GetServerTransport creates the server transport named in config
func GetServerTransport(config *common.ServerConfig) (transport.IServerTransport, error) {
	switch config.Transport {
	case common.TransportTypeTCP:
		return tcp.NewTCPServerTransport(), nil
	case common.TransportTypeUnix:
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", config.Transport)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
