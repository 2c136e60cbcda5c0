package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultMySQLDSN = "root:@tcp(127.0.0.1:3306)/travel_app?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"

type Env struct {
	AppAddr string
	GinMode string

	DBDriver string
	DBDSN    string

	JWTSecret   string
	CORSOrigins []string

	LogFile  string
	LogLevel string

	RequestTimeout time.Duration

	LedgerWorkers        int
	LedgerQueueSize      int
	LedgerMaxAttempts    int
	LedgerRepairInterval time.Duration
}

func LoadEnv() Env {
	// .env is optional; real env vars always win.
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on environment")
	}

	env := Env{
		AppAddr:              getEnv("APP_ADDR", ":8080"),
		GinMode:              getEnv("GIN_MODE", ""),
		DBDriver:             strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBDSN:                getEnv("DB_DSN", ""),
		JWTSecret:            getEnv("JWT_SECRET", "supersecret"),
		LogFile:              getEnv("LOG_FILE", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		RequestTimeout:       getDuration("REQUEST_TIMEOUT", 15*time.Second),
		LedgerWorkers:        getInt("LEDGER_WORKERS", 2),
		LedgerQueueSize:      getInt("LEDGER_QUEUE_SIZE", 256),
		LedgerMaxAttempts:    getInt("LEDGER_MAX_ATTEMPTS", 5),
		LedgerRepairInterval: getDuration("LEDGER_REPAIR_INTERVAL", 10*time.Minute),
	}
	if env.DBDSN == "" && env.DBDriver == "mysql" {
		env.DBDSN = defaultMySQLDSN
	}
	if raw := getEnv("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				env.CORSOrigins = append(env.CORSOrigins, o)
			}
		}
	}
	return env
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}
