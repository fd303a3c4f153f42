package params

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Platform holds the market economics and the two privileged identities.
type Platform struct {
	Admin    common.Address
	Oracle   common.Address
	FeeBps   uint64 // platform fee in basis points (200 = 2%)
	MinStake uint64 // smallest accepted position stake
}

// Node holds service-level settings.
type Node struct {
	ListenAddr string // REST/WebSocket bind address
	DBPath     string // pebble database directory, "" disables persistence
	LogFile    string // log file path, "" logs to console only
}

type Config struct {
	Platform Platform
	Node     Node
}

func Default() Config {
	return Config{
		Platform: Platform{
			// Devnet identities; any real deployment overrides these.
			Admin:    common.HexToAddress("0x0000000000000000000000000000000000000001"),
			Oracle:   common.HexToAddress("0x0000000000000000000000000000000000000002"),
			FeeBps:   200,     // 2%
			MinStake: 1000000, // 1.0 in the six-decimal stake unit
		},
		Node: Node{
			ListenAddr: ":8080",
			DBPath:     "data/updown.db",
			LogFile:    "data/updown.log",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("ADMIN_ADDRESS"); v != "" {
		cfg.Platform.Admin = common.HexToAddress(v)
	}
	if v := os.Getenv("ORACLE_ADDRESS"); v != "" {
		cfg.Platform.Oracle = common.HexToAddress(v)
	}
	if v := os.Getenv("PLATFORM_FEE_BPS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Platform.FeeBps = n
		}
	}
	if v := os.Getenv("MIN_STAKE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Platform.MinStake = n
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Node.ListenAddr = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Node.DBPath = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}

	return cfg
}
