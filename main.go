package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "fleetcore/internal/config"
	router "fleetcore/internal/http"
	"fleetcore/internal/http/handlers"
	"fleetcore/internal/repositories"
	"fleetcore/internal/services"
	"fleetcore/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	env := intconfig.LoadEnv()
	utils.SetupLogger(env.LogFile, env.LogLevel)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		logrus.WithError(err).Fatal("gagal konek database")
	}
	defer intconfig.CloseDB()

	ledger := services.LedgerService{
		DB:           db,
		Ledger:       repositories.LedgerRepo{DB: db},
		Reservations: repositories.ReservationRepo{DB: db},
		Maintenance:  repositories.MaintenanceRepo{DB: db},
		Parcels:      repositories.ParcelRepo{DB: db},
		Trips:        repositories.TripRepo{DB: db},
		Query:        repositories.QueryRepo{DB: db},
	}

	dispatcher := services.NewLedgerDispatcher(ledger, env.LedgerWorkers, env.LedgerQueueSize, env.LedgerMaxAttempts)
	dispatcher.Start()
	handlers.SetLedgerPublisher(dispatcher)

	repairer := services.NewLedgerRepairer(repositories.ReservationRepo{DB: db}, ledger, env.LedgerRepairInterval)
	repairer.Start()
	handlers.SetLedgerRepairer(repairer)

	r := router.NewRouter(env)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.Infof("Server berjalan di http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Gagal menjalankan server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrus.Info("Mematikan server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Shutdown server gagal")
	}
	repairer.Stop()
	dispatcher.Stop()

	logrus.Info("Server berhenti dengan aman.")
}
