package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Orchestrator OrchestratorConfig
	Telemetry    TelemetryConfig
	Subjects     SubjectConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string // empty disables the audit log
}

type OrchestratorConfig struct {
	SessionKey           string
	ProfileName          string
	ProfileDir           string
	IntentsFile          string
	StatusQueueDepth     int
	CommandTimeout       time.Duration
	RetryBudget          int
	RetryBaseDelay       time.Duration
	IdempotencyTTL       time.Duration
	MinIntentConfidence  float64
	PersistTimeout       time.Duration
	PerceptionStaleAfter time.Duration
}

type TelemetryConfig struct {
	Interval         time.Duration
	StaleAfterMisses int
	TrendWindow      int
	ThermalAlarmRate float64 // degrees C per minute
	LogEvery         int
	BatteryPath      string
}

type SubjectConfig struct {
	Stream        string
	Detections    string
	Captions      string
	Frames        string
	VoiceIntents  string
	IntentDurable string
	RPCPrefix     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/orchestrator.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/status_stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Orchestrator: OrchestratorConfig{
			SessionKey:           getEnv("SESSION_KEY", "helmet:session"),
			ProfileName:          getEnv("HELMET_PROFILE", "dev"),
			ProfileDir:           getEnv("PROFILE_DIR", "configs/profiles"),
			IntentsFile:          getEnv("INTENTS_FILE", "configs/intents.yaml"),
			StatusQueueDepth:     getEnvAsInt("STATUS_QUEUE_DEPTH", 4),
			CommandTimeout:       getEnvAsDuration("COMMAND_TIMEOUT", 2*time.Second),
			RetryBudget:          getEnvAsInt("COMMAND_RETRY_BUDGET", 3),
			RetryBaseDelay:       getEnvAsDuration("COMMAND_RETRY_BASE_DELAY", 100*time.Millisecond),
			IdempotencyTTL:       getEnvAsDuration("IDEMPOTENCY_TTL", time.Hour),
			MinIntentConfidence:  getEnvAsFloat("MIN_INTENT_CONFIDENCE", 0.5),
			PersistTimeout:       getEnvAsDuration("PERSIST_TIMEOUT", 500*time.Millisecond),
			PerceptionStaleAfter: getEnvAsDuration("PERCEPTION_STALE_AFTER", 5*time.Second),
		},
		Telemetry: TelemetryConfig{
			Interval:         getEnvAsDuration("TELEMETRY_INTERVAL", time.Second),
			StaleAfterMisses: getEnvAsInt("TELEMETRY_STALE_AFTER", 3),
			TrendWindow:      getEnvAsInt("TELEMETRY_TREND_WINDOW", 30),
			ThermalAlarmRate: getEnvAsFloat("THERMAL_ALARM_RATE", 5.0),
			LogEvery:         getEnvAsInt("TELEMETRY_LOG_EVERY", 10),
			BatteryPath:      getEnv("BATTERY_PATH", "/sys/class/power_supply/BAT0/capacity"),
		},
		Subjects: SubjectConfig{
			Stream:        getEnv("NATS_STREAM", "HELMET"),
			Detections:    getEnv("SUBJECT_DETECTIONS", "perception.detections"),
			Captions:      getEnv("SUBJECT_CAPTIONS", "perception.captions"),
			Frames:        getEnv("SUBJECT_FRAMES", "video.frames"),
			VoiceIntents:  getEnv("SUBJECT_VOICE_INTENTS", "events.voice.intent"),
			IntentDurable: getEnv("INTENT_DURABLE", "orchestrator-intents"),
			RPCPrefix:     getEnv("RPC_PREFIX", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
