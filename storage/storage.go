// Package storage opens the student repository of the configured database engine.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
	"github.com/trezcool/tutordesk/storage/cache/redis"
	"github.com/trezcool/tutordesk/storage/database"
	"github.com/trezcool/tutordesk/storage/database/dummy"
	mongodb "github.com/trezcool/tutordesk/storage/database/mongo"
	sqlxrepos "github.com/trezcool/tutordesk/storage/database/sqlx"
)

const (
	EngineMongo    = "mongodb"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// Store holds an opened student repository and the connections it runs on.
type Store struct {
	StudentRepo student.Repository
	SQL         *sqlx.DB        // postgres engine only
	Mongo       *mongo.Database // mongodb engine only
	closers     []func(context.Context) error
}

// Close releases the connections in reverse opening order.
func (st *Store) Close(ctx context.Context) error {
	var firstErr error
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open connects to conf.Database.Engine, migrating postgres when `migrate` is set,
// and puts the redis cache in front of the repository when enabled.
func Open(ctx context.Context, conf *core.Config, logger core.Logger, migrate bool) (*Store, error) {
	st := new(Store)

	switch conf.Database.Engine {
	case EngineMongo:
		db, err := mongodb.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening mongodb")
		}
		st.closers = append(st.closers, func(ctx context.Context) error { return mongodb.Close(ctx, db) })
		if migrate {
			if _, err = mongodb.EnsureIndexes(ctx, db); err != nil {
				_ = st.Close(ctx)
				return nil, errors.Wrap(err, "ensuring mongodb indexes")
			}
		}
		st.Mongo = db
		st.StudentRepo = mongodb.NewStudentRepository(db)

	case EnginePostgres:
		if migrate {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, errors.Wrap(err, "creating postgres database")
			}
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening postgres")
		}
		st.closers = append(st.closers, func(context.Context) error { return db.Close() })
		if migrate {
			if err = database.Migrate(db.DB); err != nil {
				_ = st.Close(ctx)
				return nil, errors.Wrap(err, "migrating postgres")
			}
		}
		st.SQL = db
		st.StudentRepo = sqlxrepos.NewStudentRepository(db)

	case EngineMemory:
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		st.StudentRepo = dummydb.NewStudentRepository(db)

	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	if conf.Redis.Enabled {
		client, err := rediscache.Open(ctx, conf)
		if err != nil {
			_ = st.Close(ctx)
			return nil, errors.Wrap(err, "opening redis")
		}
		st.closers = append(st.closers, func(context.Context) error { return client.Close() })
		st.StudentRepo = rediscache.NewStudentRepository(st.StudentRepo, client, conf.Redis.TTL, logger)
	}
	return st, nil
}
