package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. QRGEN_PORT
const EnvPrefix = "QRGEN"

type Config struct {
	Port           int    `mapstructure:"port"`
	DatabaseURL    string `mapstructure:"database_url"`
	ServiceBase    string `mapstructure:"service_base"`
	AllowedSizes   Sizes  `mapstructure:"-"`
	CacheSize      int    `mapstructure:"cache_size"`
	LogLevel       string `mapstructure:"log_level"`
	StubService    bool   `mapstructure:"stub_service"`
	DownloadPrefix string `mapstructure:"download_prefix"`
	DownloadDir    string `mapstructure:"download_dir"`
	PublicURL      string `mapstructure:"public_url"`
}

// LoadConfig reads defaults, then an optional qrgen.yaml (current directory
// or the file named by QRGEN_CONFIG), then QRGEN_* environment variables.
func LoadConfig() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("qrgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	sizes, err := parseSizes(v.Get("allowed_sizes"))
	if err != nil {
		return Config{}, err
	}
	cfg.AllowedSizes = sizes

	// An explicit service base always wins over the stub default
	if cfg.ServiceBase == "" {
		cfg.ServiceBase = constant.DefaultServiceBase
		if cfg.StubService {
			cfg.ServiceBase = strings.TrimRight(cfg.PublicURL, "/") + constant.RouteStubService
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database_url", "qrgen.db")
	v.SetDefault("service_base", "")
	v.SetDefault("allowed_sizes", "200,300,400")
	v.SetDefault("cache_size", 16)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("stub_service", false)
	v.SetDefault("download_prefix", constant.DefaultDownloadPrefix)
	v.SetDefault("download_dir", ".")
	v.SetDefault("public_url", "http://localhost:8080")
}

// parseSizes accepts "200,300,400" from the environment or a YAML list
func parseSizes(raw interface{}) (Sizes, error) {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []interface{}:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	case []int:
		return val, nil
	default:
		return nil, fmt.Errorf("allowed_sizes: unsupported value %v", raw)
	}

	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("allowed_sizes: %q is not a positive integer", p)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, errors.New("allowed_sizes: at least one size is required")
	}
	return sizes, nil
}

// Sizes is the ordered list of image sizes a user may choose from
type Sizes []int

// Default is the preselected size, the middle of the choices
func (s Sizes) Default() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)/2]
}

// Allowed reports whether size is one of the choices
func (s Sizes) Allowed(size int) bool {
	for _, v := range s {
		if v == size {
			return true
		}
	}
	return false
}
