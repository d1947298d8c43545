package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/gatherly/auth-service/internal/logger"
)

const (
	defaultListenAddr     = "localhost:8080"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultTokenTable     = "auth-tokens"
	defaultUserTable      = "auth-users"
	defaultAllowedOrigins = "http://localhost:3000"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the auth service will be run
	ListenAddr string

	// PEM encoded RS256 key pair the tokens are signed and verified with
	PrivateKeyPEM string
	PublicKeyPEM  string

	// DynamoDB table names
	TokenTable string
	UserTable  string

	// AWS region; SDK default resolution chain is used when empty
	AWSRegion string

	// DynamoDB endpoint override, for dynamodb-local in development
	DynamoEndpoint string

	// Comma separated list of origins allowed to call the service
	AllowedOrigins string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		Environment:    defaultEnvironment,
		TokenTable:     defaultTokenTable,
		UserTable:      defaultUserTable,
		AllowedOrigins: defaultAllowedOrigins,
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
		"RUN_ADDRESS":       setString(&c.ListenAddr),
		"TOKEN_PRIVATE_KEY": setString(&c.PrivateKeyPEM),
		"TOKEN_PUBLIC_KEY":  setString(&c.PublicKeyPEM),
		"TOKEN_TABLE_NAME":  setString(&c.TokenTable),
		"USER_TABLE_NAME":   setString(&c.UserTable),
		"AWS_REGION":        setString(&c.AWSRegion),
		"DYNAMO_ENDPOINT":   setString(&c.DynamoEndpoint),
		"ALLOWED_ORIGINS":   setString(&c.AllowedOrigins),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"ENVIRONMENT":       setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authservice", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVar(&c.PrivateKeyPEM, "private-key", c.PrivateKeyPEM, "PEM encoded RSA private key for token signing")
	fs.StringVar(&c.PublicKeyPEM, "public-key", c.PublicKeyPEM, "PEM encoded RSA public key for token verification")
	fs.StringVar(&c.TokenTable, "token-table", c.TokenTable, "DynamoDB table for token records")
	fs.StringVar(&c.UserTable, "user-table", c.UserTable, "DynamoDB table for users")
	fs.StringVar(&c.AWSRegion, "region", c.AWSRegion, "AWS region")
	fs.StringVar(&c.DynamoEndpoint, "dynamo-endpoint", c.DynamoEndpoint, "DynamoDB endpoint override (dynamodb-local)")
	fs.StringVar(&c.AllowedOrigins, "allowed-origins", c.AllowedOrigins, "Comma separated CORS origins")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate fails fast on config the service can't run without
func (c *Config) Validate() error {
	if c.PrivateKeyPEM == "" || c.PublicKeyPEM == "" {
		return errors.New("token key pair must be configured: set TOKEN_PRIVATE_KEY and TOKEN_PUBLIC_KEY")
	}
	if c.TokenTable == "" || c.UserTable == "" {
		return errors.New("table names must not be empty")
	}
	return nil
}

// Origins splits the allowed origins option into a list
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
