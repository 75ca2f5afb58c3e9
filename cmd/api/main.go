package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Jaguar1-alt/Gigconnect/internal/config"
	"github.com/Jaguar1-alt/Gigconnect/internal/db"
	"github.com/Jaguar1-alt/Gigconnect/internal/middleware"
	"github.com/Jaguar1-alt/Gigconnect/internal/realtime"
	"github.com/Jaguar1-alt/Gigconnect/internal/server"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/account"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/admin"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/chat"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/media"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/proposal"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/review"
	"github.com/Jaguar1-alt/Gigconnect/internal/store"
	"github.com/Jaguar1-alt/Gigconnect/internal/store/memstore"
	"github.com/Jaguar1-alt/Gigconnect/internal/telemetry"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
	"github.com/Jaguar1-alt/Gigconnect/internal/workers"
)

// dataStore is everything the services and the reconciler need from storage.
type dataStore interface {
	identity.Store
	account.Store
	gig.Store
	proposal.Store
	review.Store
	chat.Store
	admin.PayoutStore
	workers.ProposalReconciler
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.WithError(err).Warn("sentry disabled")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "gigconnect", cfg.Environment, cfg.TraceEndpoint)
	if err != nil {
		log.WithError(err).Fatal("tracing setup failed")
	}

	var st dataStore
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		st = memstore.New()
	default:
		gdb, err := db.Connect(cfg.Database, log)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		if err := db.Migrate(gdb); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		st = store.New(gdb)
	}

	var rdb *redis.Client
	var limiterStorage fiber.Storage
	if cfg.Redis.Enabled() {
		rdb = realtime.NewRedis(cfg.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("redis unreachable")
		}
		limiterStorage = middleware.NewRedisStorage(rdb)
		log.WithField("addr", cfg.Redis.Addr).Info("redis connected")
	}

	var listings gig.ListingCache
	if cfg.MemcachedAddr != "" {
		listings = store.NewListingCache(store.NewMemcache(cfg.MemcachedAddr), time.Duration(cfg.ListingTTL)*time.Second)
	}

	hub := realtime.NewHub(log)
	if rdb != nil && cfg.Redis.Backplane {
		bp := realtime.NewRedisBackplane(rdb, log)
		hub.UseBackplane(bp)
		go func() {
			if err := bp.Run(ctx, hub.Deliver); err != nil {
				log.WithError(err).Error("chat backplane stopped")
			}
		}()
	}
	go hub.Run(ctx)

	var uploader media.Uploader = &media.LocalUploader{Dir: cfg.UploadDir, BaseURL: cfg.AppBaseURL}
	if cfg.Cloudinary.Enabled() {
		cld, err := media.NewCloudinaryUploader(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			log.WithError(err).Fatal("cloudinary setup failed")
		}
		uploader = cld
	}

	directory := account.NewDirectory(st)
	gigs := gig.NewManager(st, listings)
	deps := server.Deps{
		Config: cfg,
		Log:    log,
		Bridge: identity.NewBridge(st, identity.NewFirebaseVerifier(cfg.FirebaseProjectID), identity.Options{
			Secret:     cfg.JWTSecret,
			SessionTTL: cfg.SessionTTL(),
			IsAdmin:    cfg.IsAdminExternalID,
		}),
		Directory: directory,
		Gigs:      gigs,
		Proposals: proposal.NewLedger(st, proposal.Options{
			RejectSiblingsOnAccept: cfg.ProposalsAutoReject,
			OnGigChange:            gigs.InvalidateListings,
		}),
		Reviews:        review.NewRegistry(st),
		Relay:          chat.NewRelay(st),
		Console:        admin.NewConsole(directory, gigs, st),
		Uploader:       uploader,
		Hub:            hub,
		LimiterStorage: limiterStorage,
	}
	app := server.New(deps)

	if cfg.ReconcileEverySec > 0 {
		reconciler := workers.NewReconciler(st, time.Duration(cfg.ReconcileEverySec)*time.Second, log)
		reconciler.OnRepair = gigs.InvalidateListings
		go reconciler.Start(ctx)
	}

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()
	log.WithField("port", cfg.AppPort).Info("gigconnect api listening")

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracing shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
