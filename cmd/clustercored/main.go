// Command clustercored is the illustrative HTTP front end for the
// cluster dispatch core. The dispatch/routing logic it calls into
// (internal/core and everything it wires together) is the actual
// subject of this module; this command exists only to give that logic
// a runnable entry point — request authentication, presentation
// formatting, and the production wire protocol a real deployment would
// use in front of it are explicitly out of scope.
//
// Startup order follows the teacher's own main: load configuration,
// initialize the global logger, construct every collaborator in
// dependency order, wire them into one internal/core.Core, start the
// collective listener and the HTTP server, and shut both down cleanly
// on SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clusterhub/clustercore/internal/collective"
	"github.com/clusterhub/clustercore/internal/config"
	"github.com/clusterhub/clustercore/internal/configmanager"
	"github.com/clusterhub/clustercore/internal/core"
	"github.com/clusterhub/clustercore/internal/discovery"
	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/executor"
	"github.com/clusterhub/clustercore/internal/logger"
	"github.com/clusterhub/clustercore/internal/plugin"
	"github.com/clusterhub/clustercore/internal/resolver"
	"github.com/clusterhub/clustercore/internal/schema"
)

func main() {
	configPath := flag.String("config", os.Getenv("CLUSTERCORE_CONFIG"), "path to clustercore.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger.Initialize(cfg.Logging.Level, cfg.Logging.Pretty)
	log := logger.HTTP()

	if cfg.Member.Name == "" {
		log.Fatal().Msg("CLUSTERCORE_MEMBER_NAME (member.name) is required")
	}

	mgr := buildManager(cfg)
	users := configmanager.NewUserStore()
	plugin.Register("attributes", func() plugin.Handler { return configmanager.NewAttributesHandler(mgr) })
	plugin.Register("group_attributes", func() plugin.Handler { return configmanager.NewGroupAttributesHandler(mgr) })

	disco := buildDiscovery(cfg)

	var localCert tls.Certificate
	collectiveEnabled := cfg.Collective.CertFile != "" && cfg.Collective.KeyFile != ""
	if collectiveEnabled {
		localCert, err = tls.LoadX509KeyPair(cfg.Collective.CertFile, cfg.Collective.KeyFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load collective TLS certificate")
		}
	}

	var dispatcher executor.PeerDispatcher
	if collectiveEnabled {
		dispatcher = collective.NewDispatcher(localCert, cfg.Member.Name)
	}
	exec := executor.New(mgr, dispatcher)
	dispatchCore := core.New(exec, mgr, users, disco)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if collectiveEnabled {
		server := collective.NewServer(localCert, mgr, exec)
		go func() {
			if err := server.Listen(ctx, cfg.Collective.ListenAddr); err != nil {
				log.Error().Err(err).Msg("collective listener stopped")
			}
		}()
	} else {
		log.Warn().Msg("collective TLS cert/key not configured; peer forwarding disabled")
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: buildRouter(dispatchCore),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("clustercored listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during HTTP shutdown")
	}
	if closer, ok := mgr.(io.Closer); ok {
		closer.Close()
	}
}

func buildManager(cfg *config.Config) configmanager.Manager {
	var mgr configmanager.Manager

	if cfg.Postgres.Enabled {
		pg, err := configmanager.NewPostgresManager(configmanager.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		}, cfg.Member.Name)
		if err != nil {
			logger.ConfigManager().Fatal().Err(err).Msg("failed to connect to postgres attribute store")
		}
		mgr = pg
	} else {
		mgr = configmanager.NewInMemoryManager(cfg.Member.Name)
	}

	return configmanager.NewCachedManager(mgr, configmanager.CacheConfig{
		Enabled:  cfg.Cache.Enabled,
		Host:     cfg.Cache.Host,
		Port:     strconv.Itoa(cfg.Cache.Port),
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.TTL,
	})
}

func buildDiscovery(cfg *config.Config) discovery.Handler {
	if cfg.Discovery.URL == "" {
		return discovery.NewInMemoryDiscovery()
	}
	d, err := discovery.NewNATSDiscovery(discovery.Config{
		URL:      cfg.Discovery.URL,
		User:     cfg.Discovery.User,
		Password: cfg.Discovery.Password,
	})
	if err != nil {
		logger.Discovery().Warn().Err(err).Msg("failed to connect discovery broker, falling back to in-memory")
		return discovery.NewInMemoryDiscovery()
	}
	return d
}

// buildRouter maps every HTTP verb clustercored accepts onto one of the
// four dispatch operations and forwards path+body to core.Core.Dispatch.
func buildRouter(c *core.Core) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(apperr.Recovery(), apperr.ErrorHandler())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Any("/*path", func(ctx *gin.Context) {
		path := ctx.Param("path")

		if node, ok := consoleUpgrade(path); ok {
			handleConsoleUpgrade(ctx, node)
			return
		}

		op, ok := operationFor(ctx.Request.Method)
		if !ok {
			apperr.AbortWithError(ctx, apperr.InvalidArgument("unsupported HTTP method"))
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			apperr.AbortWithError(ctx, apperr.InvalidArgument("failed to read request body"))
			return
		}

		result, err := c.Dispatch(ctx.Request.Context(), path, op, body)
		if err != nil {
			var appErr *apperr.AppError
			if errors.As(err, &appErr) {
				apperr.AbortWithError(ctx, appErr)
				return
			}
			apperr.AbortWithError(ctx, apperr.InternalServer(err.Error()))
			return
		}
		ctx.JSON(http.StatusOK, result)
	})

	return r
}

func operationFor(method string) (plugin.Operation, bool) {
	switch method {
	case http.MethodGet:
		return plugin.Retrieve, true
	case http.MethodPost:
		return plugin.Create, true
	case http.MethodPut, http.MethodPatch:
		return plugin.Update, true
	case http.MethodDelete:
		return plugin.Delete, true
	default:
		return "", false
	}
}

// consoleUpgrade reports whether path resolves to the Opaque
// nodes/<n>/console/session leaf and, if so, the node it names —
// core.Core.Dispatch refuses these outright since an Opaque route needs
// the raw connection, not a request/response call.
func consoleUpgrade(path string) (string, bool) {
	segments := core.ParsePath(path)
	if len(segments) < 4 || segments[0] != "nodes" || segments[2] != "console" || segments[3] != "session" {
		return "", false
	}
	out := resolver.Resolve(schema.NodeSchema, segments[2:])
	if out.Kind != resolver.CustomInterface {
		return "", false
	}
	return segments[1], true
}

func handleConsoleUpgrade(ctx *gin.Context, node string) {
	if err := plugin.ServeConsole(ctx.Writer, ctx.Request, node); err != nil {
		logger.HTTP().Warn().Err(err).Str("node", node).Msg("console session upgrade failed")
	}
}
