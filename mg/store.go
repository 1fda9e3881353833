package mg

import (
	"context"
	"fmt"
	"time"

	"github.com/amansk/librelink-mcp-server/defs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const ReadingsCollection = "readings"

type ReadingStore interface {
	WriteReading(ctx context.Context, r *defs.Reading) (bool, error)
	ReadReadings(ctx context.Context, start, end time.Time) ([]defs.Reading, error)
}

type MongoStore struct {
	Client *mongo.Client
	Logger *zap.Logger

	DBName string
}

func New(ctx context.Context, cfg defs.MongoConfig, dbName string, logger *zap.Logger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		opts = opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	mongoClient, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	return &MongoStore{
		Client: mongoClient,
		Logger: logger,
		DBName: dbName,
	}, nil
}

// WriteReading archives a reading keyed by its timestamp. Returns true when
// a reading with the same timestamp was already archived.
func (ms *MongoStore) WriteReading(ctx context.Context, r *defs.Reading) (bool, error) {
	ms.Logger.Debug("archiving reading",
		zap.Time("time", r.Time),
		zap.Float64("value", r.Value),
	)

	res, err := ms.Client.
		Database(ms.DBName).
		Collection(ReadingsCollection).
		UpdateOne(ctx,
			bson.M{"time": r.Time},
			bson.M{"$setOnInsert": r},
			options.Update().SetUpsert(true),
		)
	if err != nil {
		return false, fmt.Errorf("unable to archive reading: %w", err)
	}

	return res.MatchedCount > 0, nil
}

func (ms *MongoStore) ReadReadings(ctx context.Context, start, end time.Time) ([]defs.Reading, error) {
	ms.Logger.Debug("reading archive",
		zap.Time("start", start),
		zap.Time("end", end),
	)

	findOptions := options.Find()
	findOptions.SetSort(bson.D{primitive.E{Key: "time", Value: 1}})

	cur, err := ms.Client.
		Database(ms.DBName).
		Collection(ReadingsCollection).
		Find(ctx, bson.M{
			"time": bson.M{
				"$gte": primitive.NewDateTimeFromTime(start),
				"$lte": primitive.NewDateTimeFromTime(end),
			},
		}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive: %w", err)
	}

	readings := []defs.Reading{}
	if err := cur.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("unable to decode readings: %w", err)
	}

	return readings, nil
}
