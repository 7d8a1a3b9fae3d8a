package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/melanieperez26/unitrack/internal/alarm"
	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/config"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/editor"
	"github.com/melanieperez26/unitrack/internal/handler"
	"github.com/melanieperez26/unitrack/internal/middleware"
	"github.com/melanieperez26/unitrack/internal/notify"
	"github.com/melanieperez26/unitrack/internal/prefs"
	"github.com/melanieperez26/unitrack/internal/push"
	"github.com/melanieperez26/unitrack/internal/reminder"
	"github.com/melanieperez26/unitrack/internal/store"
	ws "github.com/melanieperez26/unitrack/internal/websocket"
)

const cleanupInterval = time.Hour

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	profileH      *handler.ProfileHandler
	uploadH       *handler.UploadHandler
	taskH         *handler.TaskHandler
	examH         *handler.ExamHandler
	settingsH     *handler.SettingsHandler
	notificationH *handler.NotificationHandler
	pushH         *handler.PushHandler
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	clientIP      func(*http.Request) string
	alarms        *alarm.Manager
	deliverer     *push.Deliverer
	origins       []string
	logger        *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	proxies, err := cfg.HTTP.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.Session.TTL)
	profileStore := store.NewProfileStore(db)
	pushStore := store.NewPushStore(db)

	accounts := backend.NewLocalAuth(userStore, sessionStore, profileStore)
	docs := backend.NewLocalDocuments(profileStore, store.NewTaskStore(db), store.NewExamStore(db))

	blobs := BlobStore(cfg.S3)

	prefStore := prefs.NewStore(store.NewPreferenceStore(db), hub, logger.With("component", "prefs"))
	session := prefs.NewSession(prefStore)

	// Reminders land in the tray and, when configured, on push subscriptions.
	tray := notify.NewTray(store.NewNotificationStore(db), hub)
	var facility notify.Facility = tray
	var pushSvc *push.Service
	var deliverer *push.Deliverer
	if cfg.Push.Enabled() {
		pushSvc = push.NewService(push.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber:      cfg.Push.Subscriber,
			TTL:             cfg.Push.TTL,
			Urgency:         cfg.Push.Urgency,
		})
		deliverer = push.NewDeliverer(pushSvc, pushStore, cfg.Push.QueueSize, logger.With("component", "push"))
		facility = notify.Fanout{tray, deliverer}
	}

	reminderLogger := logger.With("component", "reminder")
	receiver := reminder.NewReceiver(notify.NewPublisher(facility, logger.With("component", "notify")), reminderLogger)
	alarmStore := store.NewAlarmStore(db)
	alarms := alarm.NewManager(alarmStore, receiver.Receive, alarm.Config{
		ExactAllowed:  cfg.Alarms.ExactAllowed,
		TickInterval:  cfg.Alarms.TickInterval,
		InexactWindow: cfg.Alarms.InexactWindow,
	}, logger.With("component", "alarm"))
	scheduler := reminder.NewScheduler(alarms, reminder.NewSequenceIDs(store.NewSequenceStore(db), alarmStore), loc, reminderLogger)
	ed := editor.New(docs, scheduler, loc, logger.With("component", "editor"))

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(accounts, docs, session, hub, cfg.HTTP.SecureCookies, logger.With("component", "auth")),
		profileH:      handler.NewProfileHandler(docs, blobs, session, hub, logger.With("component", "profile")),
		uploadH:       handler.NewUploadHandler(blobs, logger.With("component", "uploads")),
		taskH:         handler.NewTaskHandler(docs, ed, hub, logger.With("component", "task")),
		examH:         handler.NewExamHandler(docs, ed, hub, logger.With("component", "exam")),
		settingsH:     handler.NewSettingsHandler(prefs.NewTheme(prefStore), logger.With("component", "settings")),
		notificationH: handler.NewNotificationHandler(tray, alarms, logger.With("component", "notifications")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(10, time.Minute),
		clientIP:      middleware.ClientIP(proxies),
		alarms:        alarms,
		deliverer:     deliverer,
		origins:       cfg.HTTP.AllowedOrigins,
		logger:        logger,
	}, nil
}

// BlobStore returns the S3 blob store described by cfg, or one that
// rejects uploads when no bucket is configured.
func BlobStore(cfg config.S3Config) backend.BlobStore {
	if !cfg.Enabled() {
		return backend.DisabledBlobs{}
	}
	return backend.NewS3Blobs(backend.S3Config{
		Endpoint:      cfg.Endpoint,
		Bucket:        cfg.Bucket,
		Region:        cfg.Region,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		PublicBaseURL: cfg.PublicBaseURL,
	})
}

// Start runs the alarm dispatcher, the push worker and periodic cleanup
// until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	if s.deliverer != nil {
		s.deliverer.Start(ctx)
	}
	s.alarms.Start(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.rateLimiter.RunCleanup(ctx, cleanupInterval)
	}()
	go func() {
		defer s.wg.Done()
		s.cleanupSessions(ctx)
	}()
}

// Stop halts background work started by Start.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.alarms.Stop()
	if s.deliverer != nil {
		s.deliverer.Stop()
	}
	s.wg.Wait()
}

func (s *Server) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessionStore.DeleteExpired()
			if err != nil {
				s.logger.Error("delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("deleted expired sessions", "count", n)
			}
		}
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/signup", s.rateLimitedHandler(s.authH.SignUp))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(middleware.LogUser(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	} else if v, err := database.Version(s.db); err == nil {
		status["schema_version"] = v
	}
	status["ws_clients"] = s.hub.ClientCount()
	if n, err := s.alarms.PendingCount(); err == nil {
		status["pending_alarms"] = n
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, s.clientIP)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("PUT /api/auth/password", s.authH.ChangePassword)
	mux.HandleFunc("DELETE /api/account", s.authH.DeleteAccount)

	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile", s.profileH.Update)
	mux.HandleFunc("POST /api/profile/photo", s.profileH.UploadPhoto)
	mux.HandleFunc("POST /api/uploads", s.uploadH.Upload)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	mux.HandleFunc("GET /api/exams", s.examH.List)
	mux.HandleFunc("POST /api/exams", s.examH.Create)
	mux.HandleFunc("GET /api/exams/{id}", s.examH.Get)
	mux.HandleFunc("PUT /api/exams/{id}", s.examH.Update)
	mux.HandleFunc("DELETE /api/exams/{id}", s.examH.Delete)

	mux.HandleFunc("GET /api/settings/theme", s.settingsH.GetTheme)
	mux.HandleFunc("PUT /api/settings/theme", s.settingsH.UpdateTheme)
	mux.HandleFunc("GET /api/settings/theme/stream", s.settingsH.StreamTheme)

	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.notificationH.Dismiss)
	mux.HandleFunc("GET /api/reminders/pending", s.notificationH.Pending)

	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins, s.logger.With("component", "websocket")))
}
