package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"bitbucket.org/mmdatafocus/orders_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("orders-engine")

func main() {
	logger := config.GetLogger()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	router.GET("/healthz", func(c *gin.Context) {
		status := "ok"
		if config.GetDB() == nil {
			status = "starting"
		}
		resp := gin.H{"status": status}
		if tick, ok := workflow.LastRecurrenceTick(); ok {
			resp["last_recurrence_tick"] = tick
		}
		c.JSON(http.StatusOK, resp)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Cloud Run: listen first, wire dependencies after.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			config.LogError(logger, "server.go", "main", "ListenAndServe", nil, err)
			os.Exit(1)
		}
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := config.GetDB()

	go workflow.NewOutboxDispatcher(db, logger).Run(ctx)

	if config.OutboxDirectProcessing() {
		go NewOutboxDirectProcessor(db, logger).Run(ctx)
	}

	if err := RunOrderWorkflow(); err != nil {
		// Pub/Sub missing is survivable: the direct processor keeps draining
		// the outbox. Anything else here is still worth a loud log.
		config.LogError(logger, "server.go", "main", "RunOrderWorkflow", nil, err)
	}

	if !config.DisableRecurrenceScheduler() {
		scheduler, err := workflow.StartRecurrenceScheduler(db, logger)
		if err != nil {
			config.LogError(logger, "server.go", "main", "StartRecurrenceScheduler", nil, err)
		} else {
			defer scheduler.Stop()
		}
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
