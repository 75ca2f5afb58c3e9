// Package server assembles the HTTP and WebSocket surface.
package server

import (
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/Jaguar1-alt/Gigconnect/internal/config"
	"github.com/Jaguar1-alt/Gigconnect/internal/handlers"
	"github.com/Jaguar1-alt/Gigconnect/internal/middleware"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/realtime"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/account"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/admin"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/chat"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/media"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/proposal"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/review"
)

type Deps struct {
	Config    config.Config
	Log       *logrus.Logger
	Bridge    *identity.Bridge
	Directory *account.Directory
	Gigs      *gig.Manager
	Proposals *proposal.Ledger
	Reviews   *review.Registry
	Relay     *chat.Relay
	Console   *admin.Console
	Uploader  media.Uploader
	Hub       *realtime.Hub
	// LimiterStorage backs the rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		AppName:      "gigconnect",
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    media.MaxImageSize + 1<<20,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			sentry.CurrentHub().Recover(e)
			d.Log.WithFields(logrus.Fields{
				"panic": e,
				"path":  c.Path(),
				"stack": string(debug.Stack()),
			}).Error("panic recovered")
		},
	}))
	app.Use(requestid.New())
	app.Use(middleware.AccessLog(d.Log))
	app.Use(middleware.Tracing())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, x-auth-token",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Static("/uploads", cfg.UploadDir)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})

	secure := cfg.Environment == "production"
	limit := middleware.RateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow(), d.LimiterStorage)
	authn := []fiber.Handler{middleware.JWTFromRequest(cfg.JWTSecret), middleware.AttachJWTLocals()}
	protected := func(hs ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, authn...), hs...)
	}
	only := func(role models.Role, hs ...fiber.Handler) []fiber.Handler {
		return protected(append([]fiber.Handler{middleware.RequireRoles(role)}, hs...)...)
	}

	authH := &handlers.AuthHandler{Bridge: d.Bridge, SecureCookie: secure}
	googleH := &handlers.GoogleOAuthHandler{
		Bridge:          d.Bridge,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
		SecureCookie:    secure,
	}
	profileH := &handlers.ProfileHandler{Directory: d.Directory, Uploader: d.Uploader}
	gigH := &handlers.GigHandler{Gigs: d.Gigs, Proposals: d.Proposals, Reviews: d.Reviews}
	msgH := &handlers.MessageHandler{Relay: d.Relay}
	adminH := &handlers.AdminHandler{Console: d.Console}
	chatH := &handlers.ChatSocketHandler{Relay: d.Relay, Hub: d.Hub, JWTSecret: cfg.JWTSecret, Log: d.Log}

	api := app.Group("/api")

	// identity and accounts
	api.Post("/register", limit, authH.Register)
	api.Post("/login", limit, authH.Login)
	api.Post("/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/profile", protected(profileH.Me)...)
	api.Put("/profile", protected(profileH.Update)...)
	api.Get("/dashboard", protected(profileH.Me)...)
	api.Get("/profile/:id", profileH.Public)
	api.Post("/upload/profile-picture", protected(limit, profileH.UploadPicture)...)

	// gigs; static segments are registered before /:id
	gigs := api.Group("/gigs")
	gigs.Get("/all", gigH.Browse)
	gigs.Get("/mygigs", only(models.RoleClient, gigH.Mine)...)
	gigs.Get("/hired-freelancers", only(models.RoleClient, gigH.Hired)...)
	gigs.Get("/client/stats", only(models.RoleClient, gigH.ClientStats)...)
	gigs.Get("/applied", only(models.RoleFreelancer, gigH.Applied)...)
	gigs.Get("/freelancer/stats", only(models.RoleFreelancer, gigH.FreelancerStats)...)
	gigs.Get("/proposals/check/:gigId", protected(gigH.CheckApplied)...)
	gigs.Get("/freelancer/:id/reviews", gigH.FreelancerReviews)
	gigs.Post("/", protected(gigH.Create)...)
	gigs.Get("/:id", gigH.Get)
	gigs.Get("/:id/reviews", gigH.GigReviews)
	gigs.Get("/:id/checkout-details", protected(gigH.Checkout)...)
	gigs.Post("/:id/proposals", protected(limit, gigH.SubmitProposal)...)
	gigs.Get("/:id/proposals", protected(gigH.PendingProposals)...)
	gigs.Put("/:gigId/proposals/:proposalId/accept", protected(gigH.AcceptProposal)...)
	gigs.Put("/:gigId/proposals/:proposalId/reject", protected(gigH.RejectProposal)...)
	gigs.Put("/:id/complete", protected(gigH.Complete)...)
	gigs.Put("/:id/paid", protected(gigH.MarkPaid)...)
	gigs.Post("/:id/review", protected(limit, gigH.Review)...)

	api.Get("/messages/:gigId", protected(msgH.History)...)

	adm := api.Group("/admin", protected(middleware.RequireRoles(models.RoleAdmin))...)
	adm.Get("/stats", adminH.Stats)
	adm.Get("/users", adminH.Users)
	adm.Get("/gigs", adminH.Gigs)
	adm.Get("/payouts", adminH.Payouts)
	adm.Put("/payouts/:id", adminH.ProcessPayout)
	adm.Delete("/users/:id", adminH.DeleteUser)
	adm.Delete("/gigs/:id", adminH.DeleteGig)

	app.Get("/ws/chat", chatH.Upgrade, websocket.New(chatH.Serve))

	return app
}
