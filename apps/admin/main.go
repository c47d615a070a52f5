package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
	appfs "github.com/trezcool/tutordesk/fs"
	"github.com/trezcool/tutordesk/services/email"
	"github.com/trezcool/tutordesk/services/events"
	"github.com/trezcool/tutordesk/services/logger"
	"github.com/trezcool/tutordesk/storage"
	"github.com/trezcool/tutordesk/storage/database/mongo"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	ctx := context.Background()

	// set up storage
	store, err := storage.Open(ctx, conf, logger, false /* migrate */)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up storage: %v", err), err)
		return 1
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.Error(fmt.Sprintf("failed to close storage: %v", err), err)
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
	// the process exits right after the command
	defer mailSvc.Wait()

	var publisher core.EventPublisher
	if conf.Kafka.Enabled {
		publisher = eventsvc.NewKafkaPublisher(conf)
	} else {
		publisher = eventsvc.NewConsolePublisher(log.New(os.Stdout, "EVENTS : ", log.LstdFlags))
	}
	defer publisher.Close()

	// start CLI
	cli := commandLine{
		stdSvc:            student.NewService(store.StudentRepo, mailSvc, publisher, logger),
		defaultExpiryDays: conf.Notification.ExpiryDaysBefore,
		in:                os.Stdin,
		out:               os.Stdout,
	}
	if store.SQL != nil {
		cli.migrateFunc = newMigrateFunc(store.SQL.DB)
	}
	if store.Mongo != nil {
		cli.ensureIndexesFunc = func(ctx context.Context) ([]string, error) {
			return mongodb.EnsureIndexes(ctx, store.Mongo)
		}
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		return 1
	}
	return 0
}
