package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server       ServerConfig
		Database     DatabaseConfig
		Redis        RedisConfig
		Kafka        KafkaConfig
		Notification NotificationConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration
		AllowOrigins    []string
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine         string // mongodb, postgres, memory
		URI            string // mongodb only
		Name           string
		Host           string
		Port           int
		User           string
		Password       string
		DisableTLS     bool
		ConnectTimeout time.Duration
	}

	RedisConfig struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}

	KafkaConfig struct {
		Enabled bool
		Brokers []string
		Topic   string
	}

	NotificationConfig struct {
		ExpiryDaysBefore int
	}
)

func (sc ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
}

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the current env, eg. DEV_DATABASE_ENGINE=memory.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "TutorDesk")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "mongodb")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "tutordesk")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tutordesk")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.connectTimeout", 10*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "tutordesk.students")

	v.SetDefault("notification.expiryDaysBefore", 7)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          workDir,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: parseAddress(v.GetString("appName"), v.GetString("defaultFromEmail")),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			AllowOrigins:    v.GetStringSlice("server.allowOrigins"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:         strings.ToLower(v.GetString("database.engine")),
			URI:            v.GetString("database.uri"),
			Name:           v.GetString("database.name"),
			Host:           v.GetString("database.host"),
			Port:           v.GetInt("database.port"),
			User:           v.GetString("database.user"),
			Password:       v.GetString("database.password"),
			DisableTLS:     v.GetBool("database.disableTLS"),
			ConnectTimeout: v.GetDuration("database.connectTimeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Notification: NotificationConfig{
			ExpiryDaysBefore: v.GetInt("notification.expiryDaysBefore"),
		},
	}
}

func parseAddress(name, addr string) mail.Address {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		log.Fatal(fmt.Errorf("config.defaultFromEmail(%s): %v", addr, err))
	}
	if parsed.Name == "" {
		parsed.Name = name
	}
	return *parsed
}
