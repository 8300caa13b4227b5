package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of the
// server components. It is built once at startup and passed explicitly to
// everything that needs it.
type Config struct {
	// Hostname or IP address on which the servers will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Name of the table advertised in discovery offers.
	ServerName string `mapstructure:"server_name"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`

	Logging struct {
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"logging"`

	Discovery struct {
		// Destination address for offer datagrams.
		BroadcastAddress string `mapstructure:"broadcast_address"`
		// Well-known UDP port clients listen on for offers.
		Port int `mapstructure:"port"`
		// Time between offer broadcasts.
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"discovery"`

	Table struct {
		// TCP port for the session acceptor. 0 lets the OS choose one; the
		// bound port is what gets advertised in offers either way.
		Port int `mapstructure:"port"`
		// Stack granted to players joining for the first time.
		StartingChips int `mapstructure:"starting_chips"`
		// Multiplier applied to the bet for a natural blackjack win.
		BlackjackPayout float64 `mapstructure:"blackjack_payout"`
		// How long a session may sit waiting for client input before being
		// dropped. Zero means wait indefinitely.
		IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"table"`

	Database struct {
		// Database engine: sqlite or postgres.
		Engine string `mapstructure:"engine"`
		// Path of the sqlite database file (sqlite engine only).
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log decoded frames to stdout.
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "CROUPIER"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("error reading config file: %v", err)
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v", err)
		os.Exit(1)
	}
	return config
}

func setDefaults() {
	viper.SetDefault("server_name", "croupier")
	viper.SetDefault("logging.log_level", "info")
	viper.SetDefault("discovery.broadcast_address", "255.255.255.255")
	viper.SetDefault("discovery.port", 13122)
	viper.SetDefault("discovery.interval", time.Second)
	viper.SetDefault("table.starting_chips", 1000)
	viper.SetDefault("table.blackjack_payout", 1.5)
	viper.SetDefault("database.engine", "sqlite")
	viper.SetDefault("database.filename", "croupier.db")
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a Postgres database URL generated from the provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}
