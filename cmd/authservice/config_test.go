package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("set default option", func(t *testing.T) {
		c := NewConfig()

		require.Equal(t, "localhost:8080", c.ListenAddr, "default listen address not set")
		require.Equal(t, "info", c.LogLevel, "default log level not set")
		require.Equal(t, "prod", c.Environment, "default environment not set")
		require.Equal(t, "auth-tokens", c.TokenTable, "default token table not set")
		require.Equal(t, "auth-users", c.UserTable, "default user table not set")
		require.Equal(t, "", c.PrivateKeyPEM, "private key should be empty by default")
		require.Equal(t, "", c.PublicKeyPEM, "public key should be empty by default")
		require.Equal(t, "", c.DynamoEndpoint, "dynamo endpoint should be empty by default")
	})

	t.Run("load env", func(t *testing.T) {
		c := NewConfig()
		env := map[string]string{
			"RUN_ADDRESS":       "localhost:9000",
			"LOG_LEVEL":         "debug",
			"TOKEN_PRIVATE_KEY": "private-pem",
			"TOKEN_PUBLIC_KEY":  "public-pem",
			"TOKEN_TABLE_NAME":  "tokens",
			"USER_TABLE_NAME":   "users",
			"AWS_REGION":        "eu-west-1",
			"DYNAMO_ENDPOINT":   "http://localhost:8000",
			"ALLOWED_ORIGINS":   "https://app.example.com",
			"ENVIRONMENT":       "dev",
		}

		c.LoadEnv(func(key string) string { return env[key] })

		require.Equal(t, "localhost:9000", c.ListenAddr)
		require.Equal(t, "debug", c.LogLevel)
		require.Equal(t, "private-pem", c.PrivateKeyPEM)
		require.Equal(t, "public-pem", c.PublicKeyPEM)
		require.Equal(t, "tokens", c.TokenTable)
		require.Equal(t, "users", c.UserTable)
		require.Equal(t, "eu-west-1", c.AWSRegion)
		require.Equal(t, "http://localhost:8000", c.DynamoEndpoint)
		require.Equal(t, "https://app.example.com", c.AllowedOrigins)
		require.Equal(t, "dev", c.Environment)
	})

	t.Run("parse flags", func(t *testing.T) {
		t.Run("valid flags", func(t *testing.T) {
			c := NewConfig()

			err := c.ParseFlags([]string{
				"-a", "localhost:9000",
				"-l", "debug",
				"--private-key", "private-pem",
				"--public-key", "public-pem",
				"--token-table", "tokens",
				"--user-table", "users",
				"--region", "eu-west-1",
				"--dynamo-endpoint", "http://localhost:8000",
				"-e", "dev",
			})

			require.NoError(t, err, "correct flags must parsed without error")
			require.Equal(t, "localhost:9000", c.ListenAddr)
			require.Equal(t, "debug", c.LogLevel)
			require.Equal(t, "private-pem", c.PrivateKeyPEM)
			require.Equal(t, "public-pem", c.PublicKeyPEM)
			require.Equal(t, "tokens", c.TokenTable)
			require.Equal(t, "users", c.UserTable)
			require.Equal(t, "eu-west-1", c.AWSRegion)
			require.Equal(t, "http://localhost:8000", c.DynamoEndpoint)
			require.Equal(t, "dev", c.Environment)
		})

		t.Run("invalid flags", func(t *testing.T) {
			c := NewConfig()

			err := c.ParseFlags([]string{
				"--invalid-flag", "value",
			})

			require.Error(t, err, "invalid flag should return an error")
		})
	})

	t.Run("validate", func(t *testing.T) {
		t.Run("fail without key material", func(t *testing.T) {
			c := NewConfig()

			require.Error(t, c.Validate(), "missing key pair must not pass validation")
		})

		t.Run("ok with key material", func(t *testing.T) {
			c := NewConfig()
			c.PrivateKeyPEM = "private-pem"
			c.PublicKeyPEM = "public-pem"

			require.NoError(t, c.Validate())
		})
	})

	t.Run("origins split and trimmed", func(t *testing.T) {
		c := NewConfig()
		c.AllowedOrigins = "https://a.example.com, https://b.example.com ,"

		require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, c.Origins())
	})
}
