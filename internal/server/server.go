package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcampos/despensa/internal/backup"
	"github.com/jmcampos/despensa/internal/handler"
	"github.com/jmcampos/despensa/internal/middleware"
	"github.com/jmcampos/despensa/internal/store"
	ws "github.com/jmcampos/despensa/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	productH      *handler.ProductHandler
	priceH        *handler.PriceHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	productStore := store.NewProductStore(db)
	priceStore := store.NewPriceStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(backupCfg, db, backupStore, settingsStore, func(s backup.Status) {
		hub.BroadcastAll(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		productH:      handler.NewProductHandler(productStore, hub, logger.With("component", "product")),
		priceH:        handler.NewPriceHandler(priceStore, hub, logger.With("component", "price")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, settingsStore, logger.With("component", "backup")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	// No method on the catch-all: "GET /" would conflict with the
	// "/api/" prefix registration below.
	outerMux.Handle("/", http.FileServer(http.Dir("web/static")))

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/session", s.authH.Session)

	// Pantry products
	mux.HandleFunc("POST /api/products", s.productH.Create)
	mux.HandleFunc("GET /api/products", s.productH.List)
	mux.HandleFunc("GET /api/products/{id}", s.productH.Get)
	mux.HandleFunc("PUT /api/products/{id}", s.productH.Update)
	mux.HandleFunc("DELETE /api/products/{id}", s.productH.Delete)

	// Shopping list
	mux.HandleFunc("POST /api/products/{id}/shopping", s.productH.ToggleShopping)
	mux.HandleFunc("POST /api/products/{id}/purchase", s.productH.Purchase)
	mux.HandleFunc("GET /api/shopping-list", s.productH.ListShopping)
	mux.HandleFunc("POST /api/shopping-list/clear", s.productH.ClearShopping)

	// Price history
	mux.HandleFunc("POST /api/prices", s.priceH.Create)
	mux.HandleFunc("GET /api/prices", s.priceH.List)
	mux.HandleFunc("GET /api/prices/stats", s.priceH.Stats)
	mux.HandleFunc("GET /api/prices/best", s.priceH.Best)
	mux.HandleFunc("GET /api/prices/{id}", s.priceH.Get)
	mux.HandleFunc("PUT /api/prices/{id}", s.priceH.Update)
	mux.HandleFunc("DELETE /api/prices/{id}", s.priceH.Delete)
	mux.HandleFunc("POST /api/prices/bulk-delete", s.priceH.BulkDelete)
	mux.HandleFunc("GET /api/supermarkets", s.priceH.Supermarkets)

	// Backups
	mux.HandleFunc("GET /api/backup/settings", s.backupH.GetSettings)
	mux.HandleFunc("PUT /api/backup/settings", s.backupH.UpdateSettings)
	mux.HandleFunc("PUT /api/backup/passphrase", s.backupH.SetPassphrase)
	mux.HandleFunc("POST /api/backup/run", s.backupH.RunNow)
	mux.HandleFunc("GET /api/backup/history", s.backupH.History)
	mux.HandleFunc("POST /api/backup/restore/{id}", s.backupH.Restore)
	mux.HandleFunc("GET /api/backup/download/{id}", s.backupH.Download)
}
