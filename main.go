package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PPCommunity/global/config"
	"PPCommunity/logger"
	mid "PPCommunity/middleware"
	midsec "PPCommunity/middleware/security"
	"PPCommunity/module/notify"
	"PPCommunity/module/user"
	"PPCommunity/service/chat"
	"PPCommunity/service/chat/handlers"
	"PPCommunity/service/storage"
	"PPCommunity/service/storage/redis"
	"PPCommunity/tools/ids"
	"PPCommunity/tools/safe"
	"PPCommunity/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Errorf("[Gateway] exit: %+v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// newRouter mounts every HTTP route. AccessLog wraps the whole chain, so it is
// an engine middleware; the managed filters only abort.
func newRouter(cfg *config.AppConfig, g *chat.Server, verifier *security.JWTVerifier, cluster notify.ClusterPresence) *gin.Engine {
	mgr := mid.Manager()
	mgr.Add(mid.Origin(cfg.Origins()))
	mgr.SetAuth(midsec.Middleware(midsec.DefaultOptions(verifier)))
	mgr.SetInternal(midsec.ServiceToken(cfg.InternalToken))

	r := gin.New()
	r.Use(gin.Recovery(), mid.AccessLog(logger.Log.Named("http")), mgr.Use())
	r.GET(cfg.WSPath, g.HandleWS) // e.g. ws://localhost:8080/ws?token=...
	user.Register(r, verifier, cfg.DevLogin)
	notify.NewHandler(notify.NewNotifier(g), g, cluster, logger.Log.Named("notify")).Register(r)
	return r
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Log.Named("gateway")

	// snowflake node for connection IDs
	ids.SetNodeID(cfg.NodeID)

	verifier := security.NewJWTVerifier(cfg.JWTOptions())

	var (
		presence chat.Presence
		cluster  notify.ClusterPresence
	)
	if cfg.PresenceEnabled() {
		if err := redis.InitRedis(redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}); err != nil {
			return errors.Wrap(err, "redis")
		}
		defer redis.CloseRedis()
		p, err := storage.NewRedisPresence(redis.GetRedis(), storage.PresenceConfig{NodeID: cfg.GatewayID, TTL: cfg.PresenceTTL})
		if err != nil {
			return err
		}
		presence, cluster = p, p
		log.Info("[Gateway] presence mirror enabled", zap.String("redis", cfg.RedisAddr))
	}

	g, err := chat.NewServer(verifier, chat.Options{
		GatewayID:      cfg.GatewayID,
		SendQueueSize:  cfg.SendQueueSize,
		WriteWait:      cfg.WriteWait,
		MaxMessageSize: cfg.MaxMessageSize,
		CheckOrigin:    mid.CheckOrigin(cfg.Origins()),
		Presence:       presence,
		Logger:         logger.Log.Named("chat"),
	})
	if err != nil {
		return err
	}
	handlers.RegisterDefaults(g)

	if !cfg.InternalEnabled() {
		log.Warn("[Gateway] INTERNAL_TOKEN unset, collaborator routes refuse every request")
	}
	gin.SetMode(gin.ReleaseMode)
	r := newRouter(cfg, g, verifier, cluster)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "grpc listen %s", cfg.GRPCAddr)
	}
	gs := grpc.NewServer()
	// Register health check service
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("gateway.Realtime", healthpb.HealthCheckResponse_SERVING)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	safe.Go(log, "grpc", func() {
		log.Info("[gRPC] Listening", zap.String("addr", cfg.GRPCAddr))
		if err := gs.Serve(lis); err != nil {
			errCh <- errors.Wrap(err, "grpc serve")
		}
	})
	safe.Go(log, "http", func() {
		log.Info("[HTTP] Listening", zap.String("addr", cfg.HTTPAddr), zap.String("ws", cfg.WSPath))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http serve")
		}
	})

	select {
	case <-ctx.Done():
		log.Info("[Gateway] shutting down")
	case err = <-errCh:
	}

	healthServer.Shutdown()
	g.Close()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpSrv.Shutdown(sctx); serr != nil {
		log.Warn("[HTTP] shutdown", zap.Error(serr))
	}
	gs.GracefulStop()
	return err
}
