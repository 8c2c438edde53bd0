package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/aesdlog/cmd/util"
	"github.com/ValentinKolb/aesdlog/lib/device"
	"github.com/ValentinKolb/aesdlog/lib/device/file"
	"github.com/ValentinKolb/aesdlog/lib/device/mem"
	"github.com/ValentinKolb/aesdlog/service/common"
	"github.com/ValentinKolb/aesdlog/service/server"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
	"net"
)

var Logger = logger.GetLogger("cmd")

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the aesdlog server",
		Long: `Start the aesdlog server with the specified configuration. Every newline terminated request is appended to a bounded log of records and answered with the complete log; AESDCHAR_IOCSEEKTO:<record>,<offset> moves the read position instead.
The configuration can be set via command line flags or environment variables. The format of the environment variables is AESD_<flag> (e.g. AESD_CAPACITY=20)`,
		PreRunE:      processConfig,
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:9000, /tmp/aesdlog.sock)"))

	key = "transport"
	ServeCmd.PersistentFlags().String(key, string(defaults.Transport), cmdUtil.WrapString("The transport to use (tcp, unix)"))

	key = "device"
	ServeCmd.PersistentFlags().String(key, string(defaults.Device), cmdUtil.WrapString("The backing store of the log (file, memory)"))

	key = "data-file"
	ServeCmd.PersistentFlags().String(key, defaults.DataFile, cmdUtil.WrapString("(file device) The file mirroring the retained records. It is truncated on start"))

	key = "keep-data-file"
	ServeCmd.PersistentFlags().Bool(key, defaults.KeepDataFile, cmdUtil.WrapString("(file device) Do not remove the data file on shutdown"))

	key = "capacity"
	ServeCmd.PersistentFlags().Int(key, defaults.Capacity, cmdUtil.WrapString("The maximum number of retained records. The oldest record is evicted when the log is full"))

	key = "max-record-bytes"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxRecordBytes, cmdUtil.WrapString("Requests exceeding this size are discarded up to the next newline, the connection stays open (0 = unlimited)"))

	key = "keep-alive"
	ServeCmd.PersistentFlags().Bool(key, defaults.KeepAlive, cmdUtil.WrapString("Keep the connection open after a data command and serve further requests"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.ReadBufferSize, cmdUtil.WrapString("The size of the per connection read buffer in bytes"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.TCPNoDelay, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections (only for tcp)"))

	key = "daemon"
	ServeCmd.PersistentFlags().BoolP(key, "d", defaults.Daemon, cmdUtil.WrapString("Run detached once the listening socket is bound"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.MetricsEndpoint, cmdUtil.WrapString("Serve Prometheus metrics and device info over http on this address (e.g. localhost:9100, empty = disabled)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = common.TransportType(viper.GetString("transport"))
	serveCmdConfig.Device = common.DeviceType(viper.GetString("device"))
	serveCmdConfig.DataFile = viper.GetString("data-file")
	serveCmdConfig.KeepDataFile = viper.GetBool("keep-data-file")
	serveCmdConfig.Capacity = viper.GetInt("capacity")
	serveCmdConfig.MaxRecordBytes = viper.GetInt("max-record-bytes")
	serveCmdConfig.KeepAlive = viper.GetBool("keep-alive")
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer")
	serveCmdConfig.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.Daemon = viper.GetBool("daemon")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run binds the listening socket, opens the device and serves until shutdown.
// In daemon mode the parent process stops after a successful bind and a
// successful test open of the device; a detached child takes over the socket.
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport(serveCmdConfig)
	if err != nil {
		return err
	}

	var listener net.Listener
	if isDaemonChild() {
		unix.Umask(0o022)
		if listener, err = inheritedListener(); err != nil {
			return err
		}
	} else if listener, err = t.Bind(*serveCmdConfig); err != nil {
		return err
	}

	factory, err := deviceFactory(serveCmdConfig)
	if err != nil {
		_ = listener.Close()
		return err
	}

	dev, err := factory(device.Config{
		Capacity:       serveCmdConfig.Capacity,
		MaxRecordBytes: serveCmdConfig.MaxRecordBytes,
	})
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to open %s device: %w", serveCmdConfig.Device, err)
	}

	if serveCmdConfig.Daemon && !isDaemonChild() {
		// the child opens its own device
		if err := dev.Close(); err != nil {
			Logger.Warningf("Failed to close device: %v", err)
		}
		return detach(listener)
	}

	s := server.NewLogServer(*serveCmdConfig, t, dev)
	return s.Serve(listener)
}

// deviceFactory returns the factory of the configured backing store
func deviceFactory(config *common.ServerConfig) (device.Factory, error) {
	switch config.Device {
	case common.DeviceTypeMemory:
		return mem.Open, nil
	case common.DeviceTypeFile:
		return file.Factory(config.DataFile, !config.KeepDataFile), nil
	default:
		return nil, fmt.Errorf("invalid device %s", config.Device)
	}
}
