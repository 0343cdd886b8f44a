package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/ports"
)

const dateLayout = "2006-01-02"

// MongoCatalog persists abstract records into a MongoDB collection with a
// unique sparse index on doi and an ascending index on date.
type MongoCatalog struct {
	db         *mongo.Database
	collection string
	epoch      time.Time
	logger     *slog.Logger
}

var _ ports.Catalog = (*MongoCatalog)(nil)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoCatalog wires a connected client to a database/collection pair.
// epoch is the watermark returned while the catalog is empty.
func NewMongoCatalog(client *mongo.Client, database, collection string, epoch time.Time, logger *slog.Logger) *MongoCatalog {
	return &MongoCatalog{
		db:         client.Database(database),
		collection: collection,
		epoch:      epoch,
		logger:     logger,
	}
}

func (c *MongoCatalog) col() *mongo.Collection {
	return c.db.Collection(c.collection)
}

// EnsureIndexes creates the date index and the unique sparse doi index.
// Sparse keeps records without a doi out of the uniqueness constraint.
func (c *MongoCatalog) EnsureIndexes(ctx context.Context) error {
	_, err := c.col().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{
			Keys:    bson.D{{Key: "doi", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Ready reports whether the abstracts collection has been created yet.
func (c *MongoCatalog) Ready(ctx context.Context) (bool, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.M{"name": c.collection})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	return len(names) > 0, nil
}

// InsertIfAbsent probes for an existing doi before inserting. A concurrent
// writer losing the race surfaces as a duplicate-key error, which is
// reported as AlreadyExists rather than failing the caller.
func (c *MongoCatalog) InsertIfAbsent(ctx context.Context, rec domain.AbstractRecord) (domain.InsertOutcome, error) {
	if rec.HasDOI() {
		n, err := c.col().CountDocuments(ctx, bson.M{"doi": *rec.DOI}, options.Count().SetLimit(1))
		if err != nil {
			return domain.AlreadyExists, fmt.Errorf("probe doi %s: %w", *rec.DOI, err)
		}
		if n > 0 {
			return domain.AlreadyExists, nil
		}
	}
	return c.Insert(ctx, rec)
}

// Insert writes the record relying on the unique index alone.
func (c *MongoCatalog) Insert(ctx context.Context, rec domain.AbstractRecord) (domain.InsertOutcome, error) {
	_, err := c.col().InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return domain.AlreadyExists, nil
	}
	if err != nil {
		return domain.AlreadyExists, fmt.Errorf("insert record: %w", err)
	}
	return domain.Inserted, nil
}

// FindByDOI returns the record with the given natural key.
func (c *MongoCatalog) FindByDOI(ctx context.Context, doi string) (*domain.AbstractRecord, error) {
	return c.findOne(ctx, bson.M{"doi": doi}, nil)
}

// FindByIndex returns the record with the given source-provided ordinal.
func (c *MongoCatalog) FindByIndex(ctx context.Context, index int) (*domain.AbstractRecord, error) {
	return c.findOne(ctx, bson.M{"index": index}, nil)
}

func (c *MongoCatalog) findOne(ctx context.Context, filter any, opts *options.FindOneOptions) (*domain.AbstractRecord, error) {
	var rec domain.AbstractRecord
	var err error
	if opts != nil {
		err = c.col().FindOne(ctx, filter, opts).Decode(&rec)
	} else {
		err = c.col().FindOne(ctx, filter).Decode(&rec)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return &rec, nil
}

// Abstracts returns the corpus ordered by date ascending.
func (c *MongoCatalog) Abstracts(ctx context.Context) ([]domain.AbstractRecord, error) {
	cursor, err := c.col().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	var records []domain.AbstractRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return records, nil
}

// LatestDate resolves the ingestion watermark. An empty or missing
// collection yields the configured epoch so harvesting can bootstrap.
func (c *MongoCatalog) LatestDate(ctx context.Context) (time.Time, error) {
	n, err := c.Count(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		return c.epoch, nil
	}

	rec, err := c.findOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve watermark: %w", err)
	}
	parsed, err := time.Parse(dateLayout, rec.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse watermark date %q: %w", rec.Date, err)
	}
	return parsed, nil
}

// Count returns the number of stored records.
func (c *MongoCatalog) Count(ctx context.Context) (int64, error) {
	n, err := c.col().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Drop wipes the collection. Only the reset path calls this.
func (c *MongoCatalog) Drop(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Warn("dropping catalog collection", "collection", c.collection)
	}
	if err := c.col().Drop(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}
