package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role selects which service a configuration is loaded for.
type Role string

const (
	RoleCatalog   Role = "catalog"
	RoleRatings   Role = "ratings"
	RoleMovieInfo Role = "movieinfo"
)

// Failure policies for the catalog fan-out.
const (
	PolicyFailFast = "fail-fast"
	PolicyPartial  = "partial"
)

// Default logical names of the upstream services.
const (
	DefaultRatingsService   = "goodmovies-ratings-service"
	DefaultMovieInfoService = "goodmovies-info-service"
)

// Config captures all runtime configuration derived from an optional YAML file and environment variables.
type Config struct {
	Role              Role
	ServiceName       string
	Greeting          string
	Port              string
	AuthToken         string
	LogLevel          string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	RateLimitRPS      int
	RateLimitBurst    int
	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int

	RatingsService      string
	MovieInfoService    string
	ServiceAddrs        map[string]string
	ConsulAddr          string
	AdvertiseAddr       string
	UpstreamTimeoutSecs int
	FetchConcurrency    int
	FailurePolicy       string
}

// fileConfig is the YAML layout read from CONFIG_FILE.
type fileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
	Upstream struct {
		Ratings     string            `yaml:"ratings"`
		MovieInfo   string            `yaml:"movieInfo"`
		Addresses   map[string]string `yaml:"addresses"`
		TimeoutSecs int               `yaml:"timeoutSecs"`
		Concurrency int               `yaml:"concurrency"`
		Policy      string            `yaml:"policy"`
	} `yaml:"upstream"`
	Consul struct {
		Addr string `yaml:"addr"`
	} `yaml:"consul"`
}

// Load reads configuration for role, applying defaults, the optional CONFIG_FILE and validation.
// Environment variables take precedence over values from the file.
func Load(role Role) (Config, error) {
	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(payload, &file); err != nil {
			return Config{}, fmt.Errorf("parse CONFIG_FILE: %w", err)
		}
	}

	addrs := file.Upstream.Addresses
	if raw := os.Getenv("SERVICE_ADDRS"); raw != "" {
		parsed, err := ParseServiceAddrs(raw)
		if err != nil {
			return Config{}, err
		}
		addrs = parsed
	}

	cfg := Config{
		Role:                role,
		ServiceName:         getEnv("SERVICE_NAME", defaultServiceName(role)),
		Greeting:            getEnv("GREETING", defaultGreeting(role)),
		Port:                getEnv("PORT", firstNonEmpty(file.Port, defaultPort(role))),
		AuthToken:           os.Getenv("AUTH_TOKEN"),
		LogLevel:            getEnv("LOG_LEVEL", firstNonEmpty(file.LogLevel, "info")),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		RateLimitRPS:        getEnvInt("RATE_LIMIT_RPS", 100),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 100),
		DBURL:               os.Getenv("DB_URL"),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:          getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:       getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:       getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:   getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:    getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		RatingsService:      getEnv("RATINGS_SERVICE", firstNonEmpty(file.Upstream.Ratings, DefaultRatingsService)),
		MovieInfoService:    getEnv("MOVIE_INFO_SERVICE", firstNonEmpty(file.Upstream.MovieInfo, DefaultMovieInfoService)),
		ServiceAddrs:        addrs,
		ConsulAddr:          getEnv("CONSUL_ADDR", file.Consul.Addr),
		AdvertiseAddr:       os.Getenv("ADVERTISE_ADDR"),
		UpstreamTimeoutSecs: getEnvInt("UPSTREAM_TIMEOUT_SECS", firstPositive(file.Upstream.TimeoutSecs, 5)),
		FetchConcurrency:    getEnvInt("FETCH_CONCURRENCY", firstPositive(file.Upstream.Concurrency, 8)),
		FailurePolicy:       getEnv("FAILURE_POLICY", firstNonEmpty(file.Upstream.Policy, PolicyFailFast)),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.Role {
	case RoleCatalog:
		if strings.TrimSpace(cfg.RatingsService) == "" {
			return fmt.Errorf("RATINGS_SERVICE is required")
		}
		if strings.TrimSpace(cfg.MovieInfoService) == "" {
			return fmt.Errorf("MOVIE_INFO_SERVICE is required")
		}
		if cfg.UpstreamTimeoutSecs <= 0 {
			return fmt.Errorf("UPSTREAM_TIMEOUT_SECS must be positive")
		}
		if cfg.FetchConcurrency <= 0 {
			return fmt.Errorf("FETCH_CONCURRENCY must be positive")
		}
		if cfg.FailurePolicy != PolicyFailFast && cfg.FailurePolicy != PolicyPartial {
			return fmt.Errorf("FAILURE_POLICY must be %q or %q", PolicyFailFast, PolicyPartial)
		}
		if cfg.ConsulAddr == "" && len(cfg.ServiceAddrs) == 0 {
			return fmt.Errorf("SERVICE_ADDRS or CONSUL_ADDR is required")
		}
	case RoleRatings, RoleMovieInfo:
		if cfg.DBURL == "" {
			return fmt.Errorf("DB_URL is required")
		}
		if cfg.DBMaxConns <= 0 {
			return fmt.Errorf("DB_MAX_CONNS must be positive")
		}
		if cfg.DBMinConns < 0 {
			return fmt.Errorf("DB_MIN_CONNS must be non-negative")
		}
		if cfg.DBMinConns > cfg.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
		}
		if cfg.DBStatementCache < 0 {
			return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
		}
	default:
		return fmt.Errorf("unknown role %q", cfg.Role)
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set")
	}
	return nil
}

// ParseServiceAddrs parses "name=host:port,name2=http://host:port" into a map.
func ParseServiceAddrs(raw string) (map[string]string, error) {
	addrs := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, addr, ok := strings.Cut(pair, "=")
		name, addr = strings.TrimSpace(name), strings.TrimSpace(addr)
		if !ok || name == "" || addr == "" {
			return nil, fmt.Errorf("SERVICE_ADDRS: invalid entry %q", pair)
		}
		addrs[name] = addr
	}
	return addrs, nil
}

func defaultServiceName(role Role) string {
	switch role {
	case RoleRatings:
		return DefaultRatingsService
	case RoleMovieInfo:
		return DefaultMovieInfoService
	default:
		return "goodmovies-catalog-service"
	}
}

// defaultGreeting is the text served on GET /, independent of the discovery name.
func defaultGreeting(role Role) string {
	switch role {
	case RoleRatings:
		return "goodmovies-ratings-data-service"
	case RoleMovieInfo:
		return "movie-info-service"
	default:
		return "movie-catalog-service"
	}
}

func defaultPort(role Role) string {
	switch role {
	case RoleMovieInfo:
		return "8082"
	case RoleRatings:
		return "8083"
	default:
		return "8081"
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
