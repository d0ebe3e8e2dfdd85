package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/NikolayKlyatishev/vector-view/pkg/auth"
	"github.com/NikolayKlyatishev/vector-view/pkg/auth/apikey"
	"github.com/NikolayKlyatishev/vector-view/pkg/auth/jwt"
	"github.com/NikolayKlyatishev/vector-view/pkg/auth/noop"
	"github.com/NikolayKlyatishev/vector-view/pkg/config"
	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/mcpserver"
	"github.com/NikolayKlyatishev/vector-view/pkg/query"
	"github.com/NikolayKlyatishev/vector-view/pkg/session"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
	transporthttp "github.com/NikolayKlyatishev/vector-view/pkg/transport/http"
)

type serveOptions struct {
	addr string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web viewer and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root.configPath, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address, overrides server.host and server.port")
	return cmd
}

func runServe(ctx context.Context, configPath string, opts *serveOptions) error {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	a.manager.Bootstrap(ctx, session.BootstrapConfig{
		DBPath:         cfg.Database.Path,
		CollectionName: cfg.Database.Collection,
		EmbeddingModel: cfg.Database.EmbeddingModel,
	})

	holder := config.NewHolder(cfg, a.configPath)
	holder.OnChange(func(_, next *config.Config) {
		initLogging(next)
		debug.Log("config", "settings changed", "db_path", next.Database.Path,
			"collection", next.Database.Collection, "model", next.Database.EmbeddingModel)
	})
	go func() {
		if err := holder.Watch(ctx); err != nil {
			a.logger.Warn("config watch stopped", "error", err)
		}
	}()

	queries := query.New(a.manager, a.opener)

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.MaxBodySize = cfg.Server.MaxBodySize
	if cfg.Observability.Metrics.Enabled {
		adapterCfg.MetricsPath = cfg.Observability.Metrics.Path
		adapterCfg.MetricsHandler = promhttp.Handler()
	}
	if cfg.MCP.Enabled {
		adapterCfg.MCPPath = cfg.MCP.Path
		adapterCfg.MCPHandler = mcpserver.Handler(mcpserver.New(a.manager, queries, version))
		a.logger.Info("mcp endpoint enabled", "path", cfg.MCP.Path)
	}

	authMW, err := newAuthMiddleware(cfg)
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	}

	srv := transporthttp.NewServer(transporthttp.Services{
		Connections: a.manager,
		Queries:     queries,
		Settings:    holder,
		Preferences: a.prefs,
	}, adapterCfg,
		transporthttp.WithAddr(addr),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithAuth(authMW),
		transporthttp.WithLogger(a.logger),
	)
	return srv.Run(ctx)
}

// newAuthMiddleware builds the authentication chain selected by
// auth.type. Health and metrics endpoints are always reachable.
func newAuthMiddleware(cfg *config.Config) (transport.Middleware, error) {
	chain := &auth.Chain{DefaultDecision: auth.No}

	switch cfg.Auth.Type {
	case "", "none":
		chain.Authenticators = []auth.Authenticator{noop.Authenticator{}}
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			keys = append(keys, apikey.Key{Key: k.Key, Subject: k.Subject, ServiceTier: k.ServiceTier, Scopes: k.Scopes})
		}
		a := apikey.New(keys)
		if a.Len() == 0 {
			return nil, fmt.Errorf("auth.type apikey: no usable keys")
		}
		chain.Authenticators = []auth.Authenticator{a}
	case "jwt":
		chain.Authenticators = []auth.Authenticator{jwt.New(jwt.Config{
			Issuer:      cfg.Auth.JWT.Issuer,
			Audience:    cfg.Auth.JWT.Audience,
			JWKSURL:     cfg.Auth.JWT.JWKSURL,
			UserClaim:   cfg.Auth.JWT.UserClaim,
			ScopesClaim: cfg.Auth.JWT.ScopesClaim,
		})}
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	var limiter auth.RateLimiter
	if rpm := cfg.Auth.RateLimit.RequestsPerMinute; rpm > 0 {
		limiter = auth.NewInProcessLimiter(rpm, nil)
	}

	bypass := append([]string(nil), auth.DefaultBypassEndpoints...)
	if cfg.Observability.Metrics.Path != "" {
		bypass = append(bypass, cfg.Observability.Metrics.Path)
	}
	return auth.Middleware(chain, limiter, bypass), nil
}
