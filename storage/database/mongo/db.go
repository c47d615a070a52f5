package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/tutordesk/core"
)

const studentsCollection = "students"

// Open connects to the configured MongoDB server and returns the app database.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(conf.Database.URI).
		SetConnectTimeout(conf.Database.ConnectTimeout).
		SetAppName(conf.AppName)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client.Database(conf.Database.Name), nil
}

func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// ping waits for the server to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = client.Ping(ctx, readpref.Primary())
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// EnsureIndexes creates the students indexes if they do not exist yet.
func EnsureIndexes(ctx context.Context, db *mongo.Database) ([]string, error) {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status")},
		{Keys: bson.D{{Key: "course", Value: 1}}, Options: options.Index().SetName("course")},
		{Keys: bson.D{{Key: "subscription_expiry", Value: 1}}, Options: options.Index().SetName("subscription_expiry")},
		{Keys: bson.D{{Key: "payment_day", Value: 1}}, Options: options.Index().SetName("payment_day")},
		{Keys: bson.D{{Key: "start_date", Value: 1}}, Options: options.Index().SetName("start_date")},
		{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetName("created_at")},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "subscription_expiry", Value: 1}},
			Options: options.Index().SetName("status_subscription_expiry"),
		},
	}
	names, err := db.Collection(studentsCollection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return nil, errors.Wrap(err, "creating students indexes")
	}
	return names, nil
}
