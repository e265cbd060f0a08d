package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/opendota-monitor/internal/platform/logging"
)

// Config stores runtime configuration for the monitor.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	PlayerIDs      []string
	HoursThreshold int
	CheckInterval  time.Duration
	FailureBackoff time.Duration
	DataDir        string
	ProcessedFile  string

	OpenDotaBaseURL               string
	OpenDotaAPIKey                string
	OpenDotaTimeout               time.Duration
	OpenDotaMaxRetries            int
	OpenDotaCircuitEnabled        bool
	OpenDotaCircuitFailureCount   int
	OpenDotaCircuitOpenTimeout    time.Duration
	OpenDotaCircuitHalfOpenMaxReq int

	UptraceEnabled bool
	UptraceDSN     string

	PprofEnabled bool
	PprofAddr    string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// RecencyWindow converts the hours threshold into a duration for the
// match recency filter.
func (c Config) RecencyWindow() time.Duration {
	return time.Duration(c.HoursThreshold) * time.Hour
}

type playerIDsPayload struct {
	PlayerIDs []string `validate:"required,min=1,unique,dive,required"`
}

var validate = validator.New()

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	playerIDs := splitCSV(getEnv("PLAYER_IDS", ""))
	if err := validate.Struct(playerIDsPayload{PlayerIDs: playerIDs}); err != nil {
		return Config{}, fmt.Errorf("validate PLAYER_IDS: %w", err)
	}
	for _, id := range playerIDs {
		if !isAllDigits(id) {
			return Config{}, fmt.Errorf("invalid player id %q: must be all digits", id)
		}
	}

	hoursThreshold, err := getEnvAsInt("HOURS_THRESHOLD", 24)
	if err != nil {
		return Config{}, fmt.Errorf("parse HOURS_THRESHOLD: %w", err)
	}
	if hoursThreshold <= 0 {
		return Config{}, fmt.Errorf("HOURS_THRESHOLD must be > 0")
	}

	// Canonical default is 1800s; the old worker disagreed with itself
	// (1200 in one place, 1800 in another) and 1800 won.
	checkIntervalSec, err := getEnvAsInt("CHECK_INTERVAL", 1800)
	if err != nil {
		return Config{}, fmt.Errorf("parse CHECK_INTERVAL: %w", err)
	}
	if checkIntervalSec <= 0 {
		return Config{}, fmt.Errorf("CHECK_INTERVAL must be > 0")
	}

	openDotaTimeout, err := time.ParseDuration(getEnv("OPENDOTA_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse OPENDOTA_TIMEOUT: %w", err)
	}
	if openDotaTimeout <= 0 {
		return Config{}, fmt.Errorf("OPENDOTA_TIMEOUT must be > 0")
	}
	openDotaMaxRetries, err := getEnvAsInt("OPENDOTA_MAX_RETRIES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse OPENDOTA_MAX_RETRIES: %w", err)
	}
	if openDotaMaxRetries < 0 {
		return Config{}, fmt.Errorf("OPENDOTA_MAX_RETRIES must be >= 0")
	}
	openDotaCircuitEnabled, err := strconv.ParseBool(getEnv("OPENDOTA_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse OPENDOTA_CIRCUIT_ENABLED: %w", err)
	}
	openDotaCircuitFailureCount, err := getEnvAsInt("OPENDOTA_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse OPENDOTA_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if openDotaCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("OPENDOTA_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	openDotaCircuitOpenTimeout, err := time.ParseDuration(getEnv("OPENDOTA_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse OPENDOTA_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if openDotaCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("OPENDOTA_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	openDotaCircuitHalfOpenMaxReq, err := getEnvAsInt("OPENDOTA_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse OPENDOTA_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if openDotaCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("OPENDOTA_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                        appEnv,
		ServiceName:                   getEnv("APP_SERVICE_NAME", "opendota-monitor"),
		ServiceVersion:                getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:                      parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		PlayerIDs:                     playerIDs,
		HoursThreshold:                hoursThreshold,
		CheckInterval:                 time.Duration(checkIntervalSec) * time.Second,
		FailureBackoff:                time.Minute,
		DataDir:                       getEnv("DATA_DIR", "./data"),
		ProcessedFile:                 getEnv("PROCESSED_FILE", "processed_matches.json"),
		OpenDotaBaseURL:               strings.TrimSpace(getEnv("OPENDOTA_BASE_URL", "https://api.opendota.com/api")),
		OpenDotaAPIKey:                strings.TrimSpace(getEnv("OPENDOTA_API_KEY", "")),
		OpenDotaTimeout:               openDotaTimeout,
		OpenDotaMaxRetries:            openDotaMaxRetries,
		OpenDotaCircuitEnabled:        openDotaCircuitEnabled,
		OpenDotaCircuitFailureCount:   openDotaCircuitFailureCount,
		OpenDotaCircuitOpenTimeout:    openDotaCircuitOpenTimeout,
		OpenDotaCircuitHalfOpenMaxReq: openDotaCircuitHalfOpenMaxReq,
		UptraceEnabled:                uptraceEnabled,
		UptraceDSN:                    uptraceDSN,
		PprofEnabled:                  pprofEnabled,
		PprofAddr:                     pprofAddr,
		PyroscopeEnabled:              pyroscopeEnabled,
		PyroscopeServerAddress:        pyroscopeServerAddress,
		PyroscopeAuthToken:            strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:        strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:    strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:           pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func isAllDigits(v string) bool {
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(v) > 0
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
