// Package mongostore reads groups and records from MongoDB.
//
// Groups live in one collection with their settings under `config`; records
// live in another and reference their group by the hex form of its _id.
package mongostore

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
)

// Config holds connection settings.
type Config struct {
	URI               string
	Database          string
	GroupsCollection  string
	RecordsCollection string
	Timeout           time.Duration
}

// Store is a content.Store backed by MongoDB.
type Store struct {
	client  *mongo.Client
	groups  *mongo.Collection
	records *mongo.Collection
	timeout time.Duration
}

var _ content.Store = (*Store)(nil)

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryContent, "connect to content store").
			WithContext("database", cfg.Database).Retryable().Build()
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.WrapError(err, errors.CategoryContent, "ping content store").Retryable().Build()
	}
	db := client.Database(cfg.Database)
	slog.Debug("Connected to content store", logfields.Backend("mongo"), slog.String("database", cfg.Database))
	return &Store{
		client:  client,
		groups:  db.Collection(cfg.GroupsCollection),
		records: db.Collection(cfg.RecordsCollection),
		timeout: cfg.Timeout,
	}, nil
}

type groupDoc struct {
	ID     any    `bson:"_id"`
	Name   string `bson:"name"`
	Config struct {
		HeaderURL       string   `bson:"header-url"`
		Hierarchy       []string `bson:"hierarchy"`
		FixedNavEntries *bool    `bson:"fixed_nav_entries"`
		Status          int      `bson:"status"`
		Salt            string   `bson:"salt"`
	} `bson:"config"`
}

func (d groupDoc) group() content.Group {
	g := content.NewGroup(idString(d.ID), d.Name)
	g.HeaderURL = d.Config.HeaderURL
	g.Hierarchy = d.Config.Hierarchy
	g.Status = d.Config.Status
	g.Salt = d.Config.Salt
	if d.Config.FixedNavEntries != nil {
		g.FixedNavEntries = *d.Config.FixedNavEntries
	}
	return g
}

type recordDoc struct {
	ID      any    `bson:"_id"`
	Series  string `bson:"series"`
	UUID    string `bson:"uuid"`
	Meta    bson.M `bson:"meta"`
	Content string `bson:"content"`
}

func (d recordDoc) record() content.Record {
	meta, _ := plain(d.Meta).(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	return content.Record{
		ID:      idString(d.ID),
		GroupID: d.Series,
		UUID:    d.UUID,
		Meta:    content.Meta(meta),
		Body:    d.Content,
	}
}

// Groups implements content.Store.
func (s *Store) Groups(ctx context.Context, f content.Filter) ([]content.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cur, err := s.groups.Find(ctx, groupQuery(f))
	if err != nil {
		return nil, queryError(err, "groups")
	}
	var docs []groupDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, queryError(err, "groups")
	}
	out := make([]content.Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.group())
	}
	return out, nil
}

// Identities implements content.Store with a projection that skips bodies.
func (s *Store) Identities(ctx context.Context, groupIDs []string, f content.Filter) ([]content.Identity, error) {
	proj := options.Find().SetProjection(bson.M{
		"series":       1,
		"uuid":         1,
		"meta.deleted": 1,
		"meta.status":  1,
	})
	docs, err := s.findRecords(ctx, recordQuery(groupIDs, f), proj)
	if err != nil {
		return nil, err
	}
	out := make([]content.Identity, 0, len(docs))
	for _, d := range docs {
		if r := d.record(); content.Eligible(r, f) {
			out = append(out, content.Identity{GroupID: r.GroupID, UUID: r.UUID})
		}
	}
	return out, nil
}

// Records implements content.Store.
func (s *Store) Records(ctx context.Context, groupIDs []string, f content.Filter) ([]content.Record, error) {
	docs, err := s.findRecords(ctx, recordQuery(groupIDs, f))
	if err != nil {
		return nil, err
	}
	out := make([]content.Record, 0, len(docs))
	for _, d := range docs {
		if r := d.record(); content.Eligible(r, f) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Record implements content.Store. Hex ids are tried as ObjectIDs first.
func (s *Store) Record(ctx context.Context, id string) (content.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var d recordDoc
	err := s.records.FindOne(ctx, recordByID(id)).Decode(&d)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return content.Record{}, errors.NotFoundError("page not found").WithContext("id", id).Build()
	}
	if err != nil {
		return content.Record{}, queryError(err, "record")
	}
	r := d.record()
	if r.Meta.Deleted() {
		return content.Record{}, errors.NotFoundError("page not found").WithContext("id", id).Build()
	}
	return r, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) findRecords(ctx context.Context, q bson.M, opts ...*options.FindOptions) ([]recordDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cur, err := s.records.Find(ctx, q, opts...)
	if err != nil {
		return nil, queryError(err, "records")
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, queryError(err, "records")
	}
	return docs, nil
}

func groupQuery(f content.Filter) bson.M {
	q := bson.M{}
	if len(f.Names) > 0 {
		q["name"] = bson.M{"$in": f.Names}
	}
	if f.MinStatus != nil {
		q["config.status"] = bson.M{"$gte": *f.MinStatus}
	}
	return q
}

func recordQuery(groupIDs []string, f content.Filter) bson.M {
	q := bson.M{
		"series":       bson.M{"$in": groupIDs},
		"meta.deleted": bson.M{"$ne": true},
	}
	if f.MinStatus != nil {
		q["meta.status"] = bson.M{"$gte": *f.MinStatus}
	}
	return q
}

func recordByID(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// plain converts driver document types into plain Go maps and slices so
// metadata can be inspected without importing bson.
func plain(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().Unix()
	default:
		return v
	}
}

func queryError(err error, what string) error {
	return errors.WrapError(err, errors.CategoryContent, "query "+what).Retryable().Build()
}
