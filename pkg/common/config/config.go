package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerHost        string
	VotingServicePort string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	KafkaAuditTopic string

	// SMS gateway
	SMSGatewayURL    string
	SMSGatewayKey    string
	SMSSenderID      string
	SMSTimeout       time.Duration
	SMSRetryAttempts int

	// OTP
	OTPCodeLength     int
	OTPTTL            time.Duration
	OTPSendLimit      int
	OTPSendWindow     time.Duration
	OTPMaxFailures    int
	OTPLockCooldown   time.Duration
	OTPReaperInterval time.Duration
	OTPRetentionGrace time.Duration

	// Voting sessions
	SessionTTL time.Duration

	// Registry
	RegistryCatalogPath string
}

func Load() *Config {
	return &Config{
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		VotingServicePort: getEnv("VOTING_SERVICE_PORT", "8085"),
		ReadTimeout:       getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "campuspulse"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "campuspulse123"),
		PostgresDB:       getEnv("POSTGRES_DB", "campuspulse"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "campuspulse-voting"),
		KafkaAuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "campuspulse.voting.audit"),

		SMSGatewayURL:    getEnv("SMS_GATEWAY_URL", "http://localhost:9090/v1/messages"),
		SMSGatewayKey:    getEnv("SMS_GATEWAY_KEY", ""),
		SMSSenderID:      getEnv("SMS_SENDER_ID", "CAMPUSPULSE"),
		SMSTimeout:       getDuration("SMS_TIMEOUT", 10*time.Second),
		SMSRetryAttempts: getIntEnv("SMS_RETRY_ATTEMPTS", 3),

		OTPCodeLength:     getIntEnv("OTP_CODE_LENGTH", 6),
		OTPTTL:            getDuration("OTP_TTL", 5*time.Minute),
		OTPSendLimit:      getIntEnv("OTP_SEND_LIMIT", 3),
		OTPSendWindow:     getDuration("OTP_SEND_WINDOW", 10*time.Minute),
		OTPMaxFailures:    getIntEnv("OTP_MAX_FAILURES", 3),
		OTPLockCooldown:   getDuration("OTP_LOCK_COOLDOWN", 15*time.Minute),
		OTPReaperInterval: getDuration("OTP_REAPER_INTERVAL", 15*time.Minute),
		OTPRetentionGrace: getDuration("OTP_RETENTION_GRACE", 24*time.Hour),

		SessionTTL: getDuration("SESSION_TTL", 10*time.Minute),

		RegistryCatalogPath: getEnv("REGISTRY_CATALOG_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
