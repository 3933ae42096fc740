package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/salespipe/crmgate/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8080"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction

	defaultAuthServiceURL         = "http://localhost:8081"
	defaultLeadServiceURL         = "http://localhost:8082"
	defaultNotificationServiceURL = "http://localhost:8083"

	// Paths reachable without an access token. Everything needed to obtain
	// a session must be listed here, or nobody could ever log in
	defaultPublicRoutes = "/auth/login,/auth/register,/auth/refresh,/health"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the gateway will be run
	ListenAddr string

	// Secret key
	// Shared with the identity service: both sign and verify tokens with it
	SecretKey string

	// Origin allowed to make credentialed cross-origin requests.
	// Empty reflects any requesting origin (development only)
	AllowedOrigin string

	// Comma-separated path prefixes exempt from authentication
	PublicRoutes string

	// Upstream services
	AuthServiceURL         string
	LeadServiceURL         string
	NotificationServiceURL string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:               defaultLoggingLevel,
		ListenAddr:             defaultListenAddr,
		PublicRoutes:           defaultPublicRoutes,
		AuthServiceURL:         defaultAuthServiceURL,
		LeadServiceURL:         defaultLeadServiceURL,
		NotificationServiceURL: defaultNotificationServiceURL,
		Environment:            defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":              setString(&c.ListenAddr),
		"SECRET_KEY":               setString(&c.SecretKey),
		"ALLOWED_ORIGIN":           setString(&c.AllowedOrigin),
		"PUBLIC_ROUTES":            setString(&c.PublicRoutes),
		"AUTH_SERVICE_URL":         setString(&c.AuthServiceURL),
		"LEAD_SERVICE_URL":         setString(&c.LeadServiceURL),
		"NOTIFICATION_SERVICE_URL": setString(&c.NotificationServiceURL),
		"LOG_LEVEL":                setString(&c.LogLevel),
		"ENVIRONMENT":              setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Gateway listen address")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.AllowedOrigin, "origin", "o", c.AllowedOrigin, "Allowed CORS origin (empty reflects any)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.PublicRoutes, "public-routes", c.PublicRoutes, "Comma-separated public path prefixes")
	fs.StringVar(&c.AuthServiceURL, "auth-service", c.AuthServiceURL, "Identity service URL")
	fs.StringVar(&c.LeadServiceURL, "lead-service", c.LeadServiceURL, "Lead service URL")
	fs.StringVar(&c.NotificationServiceURL, "notification-service", c.NotificationServiceURL, "Notification service URL")

	return fs.Parse(args)
}
