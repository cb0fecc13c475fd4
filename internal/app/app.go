package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tabletop/internal/cache"
	"tabletop/internal/config"
	"tabletop/internal/game"
	"tabletop/internal/repository"
	"tabletop/internal/service"
	"tabletop/internal/transport/rest"
	"tabletop/internal/transport/ws"
)

// App holds the wired process dependencies
type App struct {
	Config      *config.Config
	Store       *game.Store
	Hub         *ws.Hub
	GameService *service.GameService
	Router      http.Handler

	closers []func(context.Context)
}

// New connects external collaborators and wires the services. Mongo and
// Redis are optional; an empty URI leaves the matching feature off.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var roomCache cache.RoomCache
	if cfg.RedisURI != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := rdb.Ping(pingCtx).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		log.Info().Str("addr", cfg.RedisURI).Msg("connected to Redis")
		roomCache = cache.NewRoomCache(rdb, cfg.CacheTTL)
		a.closers = append(a.closers, func(context.Context) { rdb.Close() })
	} else {
		log.Warn().Msg("REDIS_URI not set, room cache disabled")
	}

	var matchRepo repository.MatchRepo
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) { client.Disconnect(ctx) })

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		log.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")

		matchRepo = repository.NewMatchRepo(client.Database(cfg.MongoDB))
		if err := matchRepo.EnsureIndexes(pingCtx); err != nil {
			log.Warn().Err(err).Msg("failed to create match indexes")
		}
	} else {
		log.Warn().Msg("MONGO_URI not set, match archive disabled")
	}

	a.Store = game.NewStore(game.WithPairingPrefix(cfg.PairingPrefix))
	a.Hub = ws.NewHub()

	authSvc := service.NewAuthService(cfg.OperatorUsername, cfg.OperatorPassword, cfg.JWTSecret)
	a.GameService = service.NewGameService(a.Store, roomCache, matchRepo)
	scanSvc := service.NewScanService()

	// Inject broadcaster (Hub implements service.Broadcaster)
	a.GameService.SetBroadcaster(a.Hub)
	scanSvc.SetBroadcaster(a.Hub)

	a.Router = rest.NewRouter(&rest.Container{
		AuthService: authSvc,
		GameService: a.GameService,
		WSHandler:   ws.NewHandler(a.Hub, a.GameService, scanSvc, cfg.WSRatePerSec, cfg.WSRateBurst),
		CORSOrigins: cfg.CORSOrigins,
	})
	return a, nil
}

// Close flushes pending writes and releases external clients
func (a *App) Close(ctx context.Context) {
	if a.GameService != nil {
		a.GameService.Wait()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}
