package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fitts-go/internal/config"
	logger "fitts-go/internal/logging"
	"fitts-go/internal/models"
	"fitts-go/internal/plan"
	"fitts-go/internal/router"
	"fitts-go/internal/services"
	"fitts-go/internal/utils"

	"go.uber.org/zap"
)

func main() {
	projectRoot := flag.String("root", ".", "directory containing config/")
	flag.Parse()

	// Bootstrap configuration so the logger can be built from it.
	bootstrap, _, err := config.Load(*projectRoot)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize Logger
	log, err := logger.Init(bootstrap.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := config.Init(*projectRoot, log); err != nil {
		log.Fatal("Failed to initialize configuration", zap.Error(err))
	}
	exp := config.Get().Experiment

	// Load the design catalogue at startup
	var catalogue *models.Catalogue
	if exp.DesignsFile != "" {
		path := exp.DesignsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(*projectRoot, path)
		}
		catalogue, err = models.LoadCatalogue(path)
		if err != nil {
			log.Fatal("Failed to load design catalogue", zap.Error(err))
		}
		for _, d := range catalogue.Designs {
			if err := plan.Validate(d); err != nil {
				log.Fatal("Invalid design in catalogue", zap.String("design", d.Name), zap.Error(err))
			}
		}
	}
	if err := plan.Validate(exp.Design); err != nil {
		log.Fatal("Invalid default design", zap.Error(err))
	}

	ids, err := utils.NewIDGenerator(exp.ParticipantIDs)
	if err != nil {
		log.Fatal("Failed to create participant id generator", zap.Error(err))
	}

	runner := services.NewRunner(log, func() config.ExperimentConfig { return config.Get().Experiment }, catalogue, ids)
	if _, err := runner.ResolveDesign(""); err != nil {
		log.Fatal("Default design not found", zap.Error(err))
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	runner.StartJanitor(janitorCtx, time.Minute, router.SessionMaxAge)

	// Setup router, passing the logger to it
	r, err := router.Setup(log, runner)
	if err != nil {
		log.Fatal("Failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + config.Get().Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Server listening on http://localhost" + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shut down", zap.Error(err))
	}
}
