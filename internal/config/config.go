package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/spf13/viper"
)

type Policy struct {
	ForcedCodec string `mapstructure:"forced_codec"`
	MinBitrate  uint64 `mapstructure:"min_bitrate"`
	MaxBitrate  uint64 `mapstructure:"max_bitrate"`
}

type Config struct {
	Mode        string `mapstructure:"mode"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	StaticPath  string `mapstructure:"static_path"`
	Secret      string `mapstructure:"secret"`
	AllowOrigin string `mapstructure:"allow_origin"`
	LogLevel    string `mapstructure:"log_level"`

	ICEServers      []string       `mapstructure:"ice_servers"`
	IncludeLoopback bool           `mapstructure:"include_loopback"`
	VideoCodecs     []domain.Codec `mapstructure:"video_codecs"`
	EngineLogLevel  string         `mapstructure:"engine_log_level"`

	Policy Policy `mapstructure:"policy"`

	GatherTimeout   time.Duration `mapstructure:"gather_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CloseGrace      time.Duration `mapstructure:"close_grace"`
	RelayBuffer     int           `mapstructure:"relay_buffer"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	REMBInterval    time.Duration `mapstructure:"remb_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	// OfferLimit offers per OfferWindow are accepted from one client.
	OfferLimit  int           `mapstructure:"offer_limit"`
	OfferWindow time.Duration `mapstructure:"offer_window"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "relay-dev-secret")
	v.SetDefault("allow_origin", "*")
	v.SetDefault("log_level", "info")

	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("include_loopback", false)
	v.SetDefault("engine_log_level", "warn")

	v.SetDefault("policy.forced_codec", "video/H264")
	v.SetDefault("policy.min_bitrate", 2_000_000)
	v.SetDefault("policy.max_bitrate", 2_000_000)

	v.SetDefault("gather_timeout", "10s")
	v.SetDefault("idle_timeout", "30s")
	v.SetDefault("close_grace", "2s")
	v.SetDefault("relay_buffer", 256)
	v.SetDefault("send_timeout", "200ms")
	v.SetDefault("remb_interval", "1s")
	v.SetDefault("shutdown_timeout", "5s")

	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("offer_limit", 5)
	v.SetDefault("offer_window", "10s")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) over the defaults.
// RELAY_* environment variables override both, e.g. RELAY_POLICY_MAX_BITRATE.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Addr: %s | Codec: %s | Bitrate: %d-%d\n",
		cfg.Mode, cfg.Addr(), cfg.Policy.ForcedCodec, cfg.Policy.MinBitrate, cfg.Policy.MaxBitrate)
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Policy.MinBitrate > c.Policy.MaxBitrate {
		return fmt.Errorf("%w: min_bitrate %d > max_bitrate %d",
			domain.ErrInvalidPolicy, c.Policy.MinBitrate, c.Policy.MaxBitrate)
	}
	if c.RelayBuffer <= 0 {
		return fmt.Errorf("relay_buffer must be positive, got %d", c.RelayBuffer)
	}
	return nil
}
