package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/buildcore-ai/be-ops-approvals/internal/client"
	"github.com/buildcore-ai/be-ops-approvals/internal/config"
	"github.com/buildcore-ai/be-ops-approvals/internal/database"
	"github.com/buildcore-ai/be-ops-approvals/internal/handler"
	"github.com/buildcore-ai/be-ops-approvals/internal/logger"
	"github.com/buildcore-ai/be-ops-approvals/internal/middleware"
	"github.com/buildcore-ai/be-ops-approvals/internal/repository"
	"github.com/buildcore-ai/be-ops-approvals/internal/service"
	"github.com/buildcore-ai/be-ops-approvals/internal/store"
	"github.com/buildcore-ai/be-ops-approvals/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
	})

	log.Info().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Msg("Starting Ops Approvals Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize stores
	var (
		items service.WorkItemStore
		defs  service.DefinitionStore
		audit service.AuditStore
	)
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("Running with in-memory stores; all data is lost on restart")
		items = store.NewMemoryWorkItems()
		defs = store.NewMemoryDefinitions()
		audit = store.NewMemoryAudit()
	} else {
		db, err := database.New(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			Database:    cfg.Database.Database,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    cfg.Database.MaxConns,
			MinConns:    cfg.Database.MinConns,
			MaxConnTime: cfg.Database.MaxConnTime,
			MaxIdleTime: cfg.Database.MaxIdleTime,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("Database connection established")

		items = repository.NewWorkItemRepository(db)
		defs = repository.NewWorkflowDefinitionRepository(db)
		audit = repository.NewAuditRepository(db)
	}

	// NATS is optional; without it notification publishing is disabled.
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL,
			nats.Name(cfg.ServiceName),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()
		log.Info().Str("url", cfg.NATSURL).Msg("NATS connection established")
	} else {
		log.Warn().Msg("NATS_URL not set; notification publishing disabled")
	}
	publisher := client.NewNotificationPublisher(nc, log)

	// Initialize services
	engine := workflow.NewEngine(nil, nil)
	workItemService := service.NewWorkItemService(items, audit, engine, log)
	approvalService := service.NewApprovalService(items, defs, audit, engine, publisher, cfg.PurchaseEscalationThreshold, log)
	studioService := service.NewStudioService(defs, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(workItemService, approvalService, studioService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Work item routes
	mux.HandleFunc("/api/v1/work-items", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListWorkItems(w, r)
		case http.MethodPost:
			httpHandler.CreateWorkItem(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/work-items/get", httpHandler.GetWorkItem)
	mux.HandleFunc("/api/v1/work-items/submit", httpHandler.SubmitWorkItem)
	mux.HandleFunc("/api/v1/work-items/decide", httpHandler.DecideWorkItem)
	mux.HandleFunc("/api/v1/work-items/cancel", httpHandler.CancelWorkItem)
	mux.HandleFunc("/api/v1/work-items/order", httpHandler.OrderWorkItem)
	mux.HandleFunc("/api/v1/work-items/deliver", httpHandler.DeliverWorkItem)
	mux.HandleFunc("/api/v1/work-items/invoice", httpHandler.InvoiceWorkItem)
	mux.HandleFunc("/api/v1/work-items/payment", httpHandler.PayWorkItem)

	// Approval routes
	mux.HandleFunc("/api/v1/approvals/pending", httpHandler.PendingApprovals)
	mux.HandleFunc("/api/v1/approvals/history", httpHandler.ApprovalHistory)

	// Workflow studio routes
	mux.HandleFunc("/api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListWorkflows(w, r)
		case http.MethodPost:
			httpHandler.SaveWorkflow(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/workflows/get", httpHandler.GetWorkflow)
	mux.HandleFunc("/api/v1/workflows/activate", httpHandler.ActivateWorkflow)
	mux.HandleFunc("/api/v1/workflows/delete-step", httpHandler.DeleteWorkflowStep)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log)(h)
	h = middleware.Recovery(&log)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.Timeout(cfg.RequestTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
