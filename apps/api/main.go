package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/libkiosk/apps/api/echo"
	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/promotion"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/live"
	logsvc "github.com/trezcool/libkiosk/services/logger"
	"github.com/trezcool/libkiosk/services/transfer"
	"github.com/trezcool/libkiosk/storage/database"
	"github.com/trezcool/libkiosk/storage/database/boltdb"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.New(os.Stdout, "API : "), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	dbLogger := logsvc.NewRollbarLogger(logsvc.New(os.Stdout, "DB : "), conf)

	// set up DB
	db, err := database.Setup(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	studentRepo := boltdb.NewStudentRepository(db)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := live.NewHub(logger)
	go hub.Run(ctx)

	studentSvc := student.NewService(studentRepo, validate)
	attendanceSvc := attendance.NewService(
		boltdb.NewAttendanceRepository(db),
		studentRepo,
		validate,
		conf.Location(),
		hub,
	)
	metrics := echoapi.NewMetrics()

	job := promotion.NewJob(studentRepo, boltdb.NewSettingsRepository(db), logger, conf)
	job.OnRun(metrics.ObservePromotion)
	scheduler, err := promotion.NewScheduler(job, conf.Promotion.Schedule, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up promotion scheduler: %v", err), err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("station").Set(conf.Kiosk.StationID)
	expvar.Publish("liveClients", expvar.Func(func() interface{} { return hub.Clients() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		StudentSvc:    studentSvc,
		AttendanceSvc: attendanceSvc,
		TransferSvc:   transfer.NewService(studentSvc, attendanceSvc, logger),
		PromotionJob:  job,
		Hub:           hub,
		Metrics:       metrics,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
