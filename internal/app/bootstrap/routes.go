// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wastehub/wastehub/internal/app/assignment"
	"github.com/wastehub/wastehub/internal/app/directory"
	assignmentsfeature "github.com/wastehub/wastehub/internal/app/features/assignments"
	healthfeature "github.com/wastehub/wastehub/internal/app/features/health"
	loginfeature "github.com/wastehub/wastehub/internal/app/features/login"
	logoutfeature "github.com/wastehub/wastehub/internal/app/features/logout"
	organizationsfeature "github.com/wastehub/wastehub/internal/app/features/organizations"
	reportsfeature "github.com/wastehub/wastehub/internal/app/features/reports"
	signupfeature "github.com/wastehub/wastehub/internal/app/features/signup"
	workersfeature "github.com/wastehub/wastehub/internal/app/features/workers"
	auditstore "github.com/wastehub/wastehub/internal/app/store/audit"
	credentialstore "github.com/wastehub/wastehub/internal/app/store/credentials"
	orgstore "github.com/wastehub/wastehub/internal/app/store/organizations"
	reportstore "github.com/wastehub/wastehub/internal/app/store/reports"
	userstore "github.com/wastehub/wastehub/internal/app/store/users"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/metrics"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The stores, identity provider, worker
// directory and assignment engine are built once here and shared by the
// feature routers mounted under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	sessionKey, err := resolveSessionKey(coreCfg, appCfg, logger)
	if err != nil {
		return nil, err
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	tokens := identity.NewTokens(appCfg.JWTSecret, appCfg.TokenTTL)
	sessionMgr, err := auth.NewSessionManager(sessionKey, appCfg.SessionName, appCfg.SessionDomain, tokens, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.TrustOrigins(appCfg.CORSAllowedOrigins)

	var m *metrics.Metrics
	if appCfg.MetricsEnabled {
		m = metrics.New()
	}

	provider := identity.NewProvider(credentialstore.New(db))
	users := userstore.New(db)
	orgs := orgstore.New(db)
	reports := reportstore.New(db, logger, m)
	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	dir := directory.New(provider, users, directory.Options{
		Watcher:      directory.MongoWatcher{Users: users.Collection()},
		Logger:       logger,
		Metrics:      m,
		PollInterval: appCfg.RosterPollInterval,
	})
	engine := assignment.New(reports, users, orgs, logger, m)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(respond.Middleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", respond.HeaderRequestID},
		ExposedHeaders:   []string{respond.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Loads the caller from the bearer token or session cookie, if any.
	r.Use(sessionMgr.LoadUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Authentication
		loginHandler := loginfeature.NewHandler(db, sessionMgr, provider, audit, logger)
		api.Mount("/auth/login", loginfeature.Routes(loginHandler, appCfg.LoginRateLimit))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
		api.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))

		signupHandler := signupfeature.NewHandler(db, sessionMgr, provider, audit, appCfg.OrgAutoApprove, logger)
		api.Mount("/auth", signupfeature.Routes(signupHandler))

		// Organization profile
		orgHandler := organizationsfeature.NewHandler(db, audit, logger)
		api.Mount("/organizations", organizationsfeature.Routes(orgHandler))

		// Reports and their lifecycle moves
		reportsHandler := reportsfeature.NewHandler(reports, audit, logger)
		assignmentsHandler := assignmentsfeature.NewHandler(engine, audit, logger)
		reportsRouter := reportsfeature.Routes(reportsHandler)
		assignmentsfeature.StatusRoutes(reportsRouter, assignmentsHandler)
		api.Mount("/reports", reportsRouter)
		api.Mount("/assignments", assignmentsfeature.Routes(assignmentsHandler))
		api.Get("/stats", reportsHandler.ServePlatformStats)

		// Field workers
		workersHandler := workersfeature.NewHandler(dir, reports, audit, logger)
		api.Mount("/workers", workersfeature.Routes(workersHandler))
	})

	return r, nil
}
