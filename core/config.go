package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Address                   string
		DebugAddress              string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	xenditConfig struct {
		APIURL        string
		APIKey        string
		CallbackToken string
		Currency      string
	}

	paymentConfig struct {
		TaxRate        float64
		PendingTTL     time.Duration
		ExpiryCron     string
		IdempotencyTTL time.Duration
	}

	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server   serverConfig
		Database databaseConfig
		Redis    redisConfig
		Xendit   xenditConfig
		Payment  paymentConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (dc databaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "qw7!xe_#2m0^lk$z4vj9&h@t1p8r=cd6yb3%+u5on(*a)sgfi")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.address", "0.0.0.0:8000")
	v.SetDefault("server.debugAddress", "0.0.0.0:4000")
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "darasa")
	v.SetDefault("database.user", "darasa")
	v.SetDefault("database.password", "darasa")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("xendit.apiURL", "https://api.xendit.co")
	v.SetDefault("xendit.apiKey", "")
	v.SetDefault("xendit.callbackToken", "")
	v.SetDefault("xendit.currency", "USD")

	v.SetDefault("payment.taxRate", 0.1)
	v.SetDefault("payment.pendingTTL", 24*time.Hour)
	v.SetDefault("payment.expiryCron", "@every 1h")
	v.SetDefault("payment.idempotencyTTL", 72*time.Hour)
}

// NewConfig loads the app configuration from the environment.
// Variables are prefixed with the uppercase ENV name, e.g. PROD_DATABASE_HOST,
// and an optional `config/.env.<env>` file is loaded first.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	loadDotEnv(env)
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: serverConfig{
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: redisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Xendit: xenditConfig{
			APIURL:        strings.TrimSuffix(v.GetString("xendit.apiURL"), "/"),
			APIKey:        v.GetString("xendit.apiKey"),
			CallbackToken: v.GetString("xendit.callbackToken"),
			Currency:      v.GetString("xendit.currency"),
		},
		Payment: paymentConfig{
			TaxRate:        v.GetFloat64("payment.taxRate"),
			PendingTTL:     v.GetDuration("payment.pendingTTL"),
			ExpiryCron:     v.GetString("payment.expiryCron"),
			IdempotencyTTL: v.GetDuration("payment.idempotencyTTL"),
		},
	}
}

// loadDotEnv loads `config/.env.<env>` if it exists (ignored if it does not).
// CONFIG_DIR overrides the lookup directory.
func loadDotEnv(env string) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	dotEnvPath := filepath.Join(dir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}
