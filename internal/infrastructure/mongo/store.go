package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
)

// Store is the MongoDB DocumentStore. Documents keep their fields at the top
// level; the ObjectID lives in _id and is exposed as its hex string in "id".
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

var _ repository.DocumentStore = (*Store)(nil)

func (s *Store) ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func (s *Store) EnsureIndexes(ctx context.Context, collection string, unique []string) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: entity.FieldCreatedAt, Value: -1}}},
	}
	for _, f := range unique {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(f + "_1"),
		})
	}
	_, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models)
	return err
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc entity.Record) (entity.Record, error) {
	body := doc.Clone()
	delete(body, entity.FieldID)
	res, err := s.db.Collection(collection).InsertOne(ctx, bson.M(body))
	if err != nil {
		return nil, translate(err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("mongo: unexpected inserted id type")
	}
	body[entity.FieldID] = oid.Hex()
	return body, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter repository.Filter, opts repository.FindOptions) ([]entity.Record, error) {
	q, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}
	fo := options.Find()
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if opts.SortField != "" {
		dir := 1
		if opts.SortDesc {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortField, Value: dir}, {Key: "_id", Value: dir}})
	}
	cur, err := s.db.Collection(collection).Find(ctx, q, fo)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]entity.Record, 0, len(raw))
	for _, m := range raw {
		out = append(out, toRecord(m))
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter repository.Filter) (int64, error) {
	q, err := buildFilter(filter)
	if err != nil {
		return 0, err
	}
	return s.db.Collection(collection).CountDocuments(ctx, q)
}

func (s *Store) FindOne(ctx context.Context, collection, id string) (entity.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNoDocument
	}
	var m bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		return nil, translate(err)
	}
	return toRecord(m), nil
}

// FindOneAndUpdate asks for the pre-image and derives the stored document by
// applying set to it, so both come from one server-side write.
func (s *Store) FindOneAndUpdate(ctx context.Context, collection, id string, set map[string]any) (entity.Record, entity.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, repository.ErrNoDocument
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var m bson.M
	err = s.db.Collection(collection).
		FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M(set)}, opts).
		Decode(&m)
	if err != nil {
		return nil, nil, translate(err)
	}
	before := toRecord(m)
	after := before.Clone()
	repository.ApplySet(after, set)
	return before, after, nil
}

func (s *Store) FindOneAndDelete(ctx context.Context, collection, id string) (entity.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNoDocument
	}
	var m bson.M
	if err := s.db.Collection(collection).FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		return nil, translate(err)
	}
	return toRecord(m), nil
}

func buildFilter(f repository.Filter) (bson.M, error) {
	q := bson.M{}
	for k, v := range f.Equals {
		q[k] = v
	}
	if f.ExcludeID != "" {
		oid, err := primitive.ObjectIDFromHex(f.ExcludeID)
		if err != nil {
			return nil, err
		}
		q["_id"] = bson.M{"$ne": oid}
	}
	if f.Search != "" && len(f.SearchFields) > 0 {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		or := make(bson.A, 0, len(f.SearchFields))
		for _, field := range f.SearchFields {
			or = append(or, bson.M{field: pattern})
		}
		q["$or"] = or
	}
	return q, nil
}

var dupIndexPattern = regexp.MustCompile(`index: ([A-Za-z0-9_.]+?)_1 dup key`)

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNoDocument
	}
	if mongo.IsDuplicateKeyError(err) {
		var fields []string
		for _, m := range dupIndexPattern.FindAllStringSubmatch(err.Error(), -1) {
			fields = append(fields, m[1])
		}
		return &repository.DuplicateKeyError{Fields: fields, Err: err}
	}
	return err
}

// toRecord turns a decoded BSON document into plain Go values.
func toRecord(m bson.M) entity.Record {
	out := make(entity.Record, len(m))
	for k, v := range m {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				out[entity.FieldID] = oid.Hex()
			}
			continue
		}
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case bson.M:
		return map[string]any(toRecord(x))
	case bson.D:
		return map[string]any(toRecord(x.Map()))
	case bson.A:
		res := make([]any, len(x))
		for i, it := range x {
			res[i] = plain(it)
		}
		return res
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}
