package config // config loads application configuration from environment variables

import (
    "log"
    "os"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable: strings for identifiers and
// secrets, URLs for peer services.
type Config struct {
    Env        string // application environment (e.g. "dev", "prod")
    Port       string // HTTP port to listen on
    DBUser     string // database username
    DBPass     string // database password (optional)
    DBHost     string // database host address
    DBPort     string // database port number
    DBName     string // database name
    JWTSecret  string // secret used to verify JWTs issued by the auth service
    CatalogURL string // base URL of the catalog service
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:        must("APP_ENV"),
        Port:       must("APP_PORT"),
        DBUser:     must("DB_USER"),
        DBPass:     os.Getenv("DB_PASS"), // empty allowed
        DBHost:     must("DB_HOST"),
        DBPort:     must("DB_PORT"),
        DBName:     must("DB_NAME"),
        JWTSecret:  must("JWT_SECRET"),
        CatalogURL: must("CATALOG_SERVICE_URL"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
