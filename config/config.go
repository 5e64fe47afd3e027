// Package config defines the core's configuration surface, parsed from
// command-line arguments with jessevdk/go-flags; no configuration file is
// read.
package config

import (
	"time"

	"github.com/jessevdk/go-flags"
)

// Network selects which network's address prefixes and defaults apply.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

// Config is the core's full configuration surface (spec 5): backoff and
// polling timings, storage backend selection, and counterparty endpoints.
type Config struct {
	Network Network `long:"network" description:"Bitcoin/Ark network to operate on" choice:"mainnet" choice:"testnet" choice:"regtest" default:"testnet"`

	LogLevel string `long:"loglevel" description:"Logging level for all subsystems" default:"info"`
	LogDir   string `long:"logdir" description:"Directory to store log rotation files, empty disables file logging"`

	// Storage selects the Swap Repository backend.
	Storage StorageConfig `group:"Storage" namespace:"storage"`

	// Counterparty is the Boltz-style counterparty client configuration.
	Counterparty CounterpartyConfig `group:"Counterparty" namespace:"counterparty"`

	// Manager configures the Swap Manager's reconnect/backoff/polling
	// behaviour.
	Manager ManagerConfig `group:"Manager" namespace:"manager"`

	// ChainClaimFeeRateSatPerVByte is the fee rate for the BTC-side claim
	// transaction of chain swaps (spec 4.5.3), matching
	// operations.Service.ChainClaimFeeRateSatPerVByte. The feeSatPerVByte
	// argument of Service.ArkToBtc and Service.BtcToArk is not used, so
	// there is no per-call override.
	ChainClaimFeeRateSatPerVByte uint32 `long:"chain-claim-feerate" description:"Default sat/vByte fee rate for BTC-side chain-swap claims" default:"1"`
}

// StorageConfig selects and configures the Swap Repository backend.
type StorageConfig struct {
	Backend string `long:"backend" description:"memory, bolt, sqlite or postgres" choice:"memory" choice:"bolt" choice:"sqlite" choice:"postgres" default:"memory"`
	Path    string `long:"path" description:"Filesystem path for bolt/sqlite backends"`
	DSN     string `long:"dsn" description:"Connection string for the postgres backend"`
}

// CounterpartyConfig configures the REST/WebSocket counterparty client.
type CounterpartyConfig struct {
	BaseURL          string        `long:"base-url" description:"Counterparty REST base URL" required:"true"`
	WebSocketURL     string        `long:"ws-url" description:"Counterparty WebSocket URL" required:"true"`
	PollInterval     time.Duration `long:"poll-interval" description:"Polling fallback interval" default:"5s"`
	RetryBaseDelay   time.Duration `long:"retry-base-delay" description:"Initial backoff delay for transport retries" default:"1s"`
	RetryMaxDelay    time.Duration `long:"retry-max-delay" description:"Maximum backoff delay for transport retries" default:"60s"`
	SettlementDelay  time.Duration `long:"settlement-delay" description:"Delay between settlement polling attempts" default:"2s"`
	SettlementMaxAttempts int      `long:"settlement-max-attempts" description:"Maximum settlement polling attempts" default:"5"`
}

// ManagerConfig holds the Swap Manager's reconnect and polling settings.
// No package reads it, and the Manager does not use the swapmgr.Config
// fields of the same names: the counterparty subscription falls back to
// polling after three consecutive WebSocket failures regardless.
type ManagerConfig struct {
	MaxReconnectDelay              time.Duration `long:"max-reconnect-delay" description:"Ceiling on WebSocket reconnect backoff" default:"60s"`
	MaxConsecutiveWebSocketFailures int          `long:"max-ws-failures" description:"Consecutive WebSocket failures before falling back to polling" default:"3"`
	PollInterval                   time.Duration `long:"poll-interval" description:"Fallback polling interval once WebSocket is abandoned" default:"5s"`
}

// Default returns a Config populated with every field's documented
// default, equivalent to parsing go-flags against an empty argument list.
func Default() *Config {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	// IgnoreUnknown lets callers embed this in a larger CLI's own flag
	// set without failing on unrelated flags.
	parser.Options |= flags.IgnoreUnknown
	_, _ = parser.ParseArgs([]string{})
	return cfg
}

// Parse parses args (typically os.Args[1:]) into a Config.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
