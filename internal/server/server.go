// Package server wires the HTTP API together: connections, repositories,
// services, guards and routes.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/db"
	"github.com/taskboard/apiserver/internal/handlers"
	appmiddleware "github.com/taskboard/apiserver/internal/middleware"
	"github.com/taskboard/apiserver/internal/mq"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/storage"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// Server wraps the HTTP server, router and shared connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	bus        *mq.Bus
}

// New constructs a fully wired Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	projectRepo := store.NewProjectRepository(dbConn)
	memberRepo := store.NewMemberRepository(dbConn)
	columnRepo := store.NewColumnRepository(dbConn)
	taskRepo := store.NewTaskRepository(dbConn)
	labelRepo := store.NewLabelRepository(dbConn)
	commentRepo := store.NewCommentRepository(dbConn)
	timeEntryRepo := store.NewTimeEntryRepository(dbConn)
	notificationRepo := store.NewNotificationRepository(dbConn)
	attachmentRepo := store.NewAttachmentRepository(dbConn)

	var publisher services.EventPublisher = services.NopPublisher{}
	var bus *mq.Bus
	backend, err := mq.New(ctx, cfg.MQ)
	switch {
	case err == nil:
		bus = mq.NewBus(backend, cfg.MQ.Stream)
		publisher = bus
		logrus.WithField("provider", cfg.MQ.Provider).Info("event bus connected")
	case errors.Is(err, mq.ErrDisabled):
		logrus.Info("event bus disabled, notifications will not be delivered")
	default:
		_ = dbConn.Close()
		return nil, err
	}

	userService := services.NewUserService(userRepo)
	projectService := services.NewProjectService(projectRepo, memberRepo, userRepo, publisher)
	columnService := services.NewColumnService(columnRepo)
	taskService := services.NewTaskService(taskRepo, columnRepo, publisher)
	commentService := services.NewCommentService(commentRepo, taskRepo, publisher)
	labelService := services.NewLabelService(labelRepo, taskRepo)
	timeEntryService := services.NewTimeEntryService(timeEntryRepo, taskRepo)
	notificationService := services.NewNotificationService(notificationRepo)

	var attachmentService *services.AttachmentService
	objects, err := storage.New(ctx, cfg.Storage)
	switch {
	case err == nil:
		attachmentService = services.NewAttachmentService(attachmentRepo, taskRepo, objects)
		logrus.WithField("provider", cfg.Storage.Provider).Info("attachment storage connected")
	case errors.Is(err, storage.ErrDisabled):
		logrus.Info("attachment storage disabled, attachment routes not mounted")
	default:
		_ = dbConn.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	guard := handlers.NewProjectGuard(projectService, memberRepo)
	authMiddleware := handlers.RequireAuth(jwtSecret)

	projectHandler := handlers.NewProjectHandler(projectService, guard)
	columnHandler := handlers.NewColumnHandler(columnService)
	taskHandler := handlers.NewTaskHandler(taskService)
	commentHandler := handlers.NewCommentHandler(commentService)
	labelHandler := handlers.NewLabelHandler(labelService)
	timeEntryHandler := handlers.NewTimeEntryHandler(timeEntryService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := appmiddleware.NewRateLimiter(redisClient, cfg.RateLimit)
		router.Use(limiter.Handler)
	}

	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret, cfg.JWT.TokenTTL)
	})
	router.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware, handlers.RequireRoles(types.RoleAdmin))
		r.Mount("/", handlers.UserRouter(userService))
	})
	router.Route("/notifications", func(r chi.Router) {
		r.Use(authMiddleware)
		notificationHandler.Register(r)
	})

	taskNested := []func(chi.Router){
		func(r chi.Router) {
			r.Route("/comments", func(r chi.Router) {
				commentHandler.Register(r)
			})
		},
		func(r chi.Router) {
			r.Route("/labels", func(r chi.Router) {
				labelHandler.RegisterTask(r)
			})
		},
		func(r chi.Router) {
			r.Route("/time-entries", func(r chi.Router) {
				timeEntryHandler.Register(r)
			})
		},
	}
	if attachmentService != nil {
		attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
		taskNested = append(taskNested, func(r chi.Router) {
			r.Route("/attachments", func(r chi.Router) {
				attachmentHandler.Register(r)
			})
		})
	}

	router.Route("/projects", func(r chi.Router) {
		r.Use(authMiddleware)
		projectHandler.Register(r,
			func(r chi.Router) {
				r.Route("/columns", func(r chi.Router) {
					r.Use(guard.RequireMember)
					columnHandler.Register(r)
				})
			},
			func(r chi.Router) {
				r.Route("/labels", func(r chi.Router) {
					r.Use(guard.RequireMember)
					labelHandler.RegisterProject(r)
				})
			},
			func(r chi.Router) {
				r.Route("/tasks", func(r chi.Router) {
					r.Use(guard.RequireMember)
					taskHandler.Register(r, taskNested...)
				})
			},
		)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		redis:      redisClient,
		bus:        bus,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	logrus.WithField("addr", s.httpServer.Addr).Info("http server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then closes shared connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
