package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutordesk/apps/api/echo"
	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
	appfs "github.com/trezcool/tutordesk/fs"
	"github.com/trezcool/tutordesk/services/email"
	"github.com/trezcool/tutordesk/services/events"
	"github.com/trezcool/tutordesk/services/logger"
	"github.com/trezcool/tutordesk/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	store, err := storage.Open(ctx, conf, dbLogger, true /* migrate */)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = store.Close(context.Background()); err != nil {
			dbLogger.Error(fmt.Sprintf("failed to close storage: %v", err), err)
		}
	}()

	// set up services
	renderer := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, renderer, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, renderer, logger)
	}
	defer mailSvc.Wait()

	var publisher core.EventPublisher
	if conf.Kafka.Enabled {
		publisher = eventsvc.NewKafkaPublisher(conf)
	} else {
		publisher = eventsvc.NewConsolePublisher(log.New(os.Stdout, "EVENTS : ", log.LstdFlags))
	}
	defer func() {
		if err = publisher.Close(); err != nil {
			logger.Error(fmt.Sprintf("failed to close event publisher: %v", err), err)
		}
	}()

	stdSvc := student.NewService(store.StudentRepo, mailSvc, publisher, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("db_engine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			StudentSvc: stdSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
