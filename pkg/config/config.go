package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file from path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies COACHCHAT_* environment overrides onto cfg and
// reports whether any were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("COACHCHAT_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("COACHCHAT_DB_PATH"); v != "" {
		envUsed = true
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("COACHCHAT_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COACHCHAT_CACHE_ENTRIES"); v != "" {
		envUsed = true
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Entries = n
		}
	}
	if v := os.Getenv("COACHCHAT_ARCHIVER_ENABLED"); v != "" {
		envUsed = true
		cfg.Archiver.Enabled = isTruthy(v)
	}
	if v := os.Getenv("COACHCHAT_ARCHIVER_CRON"); v != "" {
		envUsed = true
		cfg.Archiver.Cron = v
	}
	if v := os.Getenv("COACHCHAT_RATE_LIMIT_RPS"); v != "" {
		envUsed = true
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("COACHCHAT_RATE_LIMIT_BURST"); v != "" {
		envUsed = true
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = n
		}
	}
	return envUsed
}

// LoadEffective loads the config file (when present) and applies env
// overrides on top. A missing file is not an error; env and defaults still
// apply.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			cfg = &Config{}
		} else {
			return nil, false, err
		}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}

// ResolveConfigPath picks the config path: explicit flag wins, then env,
// then the flag default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if v := os.Getenv("COACHCHAT_CONFIG"); v != "" {
		return v
	}
	return flagPath
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
