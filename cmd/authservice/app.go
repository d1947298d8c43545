package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/gatherly/auth-service/internal/handlers"
	"github.com/gatherly/auth-service/internal/logger"
	"github.com/gatherly/auth-service/internal/repository/dynamo"
	"github.com/gatherly/auth-service/internal/service/auth"
	"github.com/gatherly/auth-service/internal/service/session"
	"github.com/gatherly/auth-service/internal/token"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger := logger.New(c.Environment, c.LogLevel)

	// Token codec from the configured key pair
	codec, err := token.New(c.PrivateKeyPEM, c.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("error while loading token keys. Err: %w", err)
	}

	// DynamoDB client and repositories
	client, err := dynamo.NewClient(ctx, dynamo.ClientConfig{
		Region:   c.AWSRegion,
		Endpoint: c.DynamoEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating dynamodb client. Err: %w", err)
	}
	storage := dynamo.NewStorage(client, c.TokenTable, c.UserTable)

	// Initialize services
	sessions, err := session.NewManager(session.Config{Logger: logger}, codec, storage.Tokens())
	if err != nil {
		return nil, fmt.Errorf("error while creating session manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{Logger: logger}, sessions, storage.Users())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, sessions, logger)

	// Browser clients send the refresh cookie, so credentials must be allowed
	// and origins listed explicitly
	handler := cors.New(cors.Options{
		AllowedOrigins:   c.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handler,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
