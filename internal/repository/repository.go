// Package repository implements the generic CRUD operations shared by every
// resource on top of MongoDB collections.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned by FindOne when nothing matches.
var ErrNotFound = errors.New("document not found")

const populateConcurrency = 8

// Entity constrains P to be the pointer type of T implementing models.Document.
type Entity[T any] interface {
	*T
	models.Document
}

// Populator resolves a reference relation into the virtual fields of doc.
type Populator[T any] func(ctx context.Context, doc *T) error

// Hook runs after a successful write with the written (or deleted)
// document. prev is the stored state an update replaced, nil otherwise.
type Hook[T any] func(ctx context.Context, prev, doc *T) error

// Config describes a collection's behaviour.
type Config[T any] struct {
	// Scope is the default read predicate, e.g. {active: {$ne: false}}.
	Scope bson.M
	// Hidden fields are never read unless WithHidden names them.
	Hidden []string
	// Repeatable query parameters become $in matches.
	Repeatable      []string
	Populators      map[string]Populator[T]
	DefaultPopulate []string
	AfterWrite      Hook[T]
	Now             func() time.Time
}

// PagedResult is one page of GetAll.
type PagedResult[T any] struct {
	Results int
	Data    []*T
}

type Repository[T any, P Entity[T]] struct {
	coll *mongo.Collection
	cfg  Config[T]
}

func New[T any, P Entity[T]](coll *mongo.Collection, cfg Config[T]) *Repository[T, P] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Populators == nil {
		cfg.Populators = map[string]Populator[T]{}
	}
	return &Repository[T, P]{coll: coll, cfg: cfg}
}

// Collection exposes the underlying collection for aggregations.
func (r *Repository[T, P]) Collection() *mongo.Collection { return r.coll }

// GetAll runs the query pipeline over the collection. scope pre-filters the
// collection for nested routes such as /tours/:tourId/reviews.
func (r *Repository[T, P]) GetAll(ctx context.Context, params url.Values, scope bson.M, opts ...ReadOption) (PagedResult[T], error) {
	ro := collectRead(opts)
	q := query.Apply(params,
		query.WithRepeatable(r.cfg.Repeatable...),
		query.WithHidden(r.hiddenFields(ro)...),
	)
	filter := q.Within(r.baseFilter(ro, scope))

	cur, err := r.coll.Find(ctx, filter, q.FindOptions())
	if err != nil {
		return PagedResult[T]{}, translate(err)
	}
	docs := make([]*T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return PagedResult[T]{}, translate(err)
	}
	if err := r.finish(ctx, ro, docs...); err != nil {
		return PagedResult[T]{}, err
	}
	return PagedResult[T]{Results: len(docs), Data: docs}, nil
}

// GetOne loads a document by its hex id.
func (r *Repository[T, P]) GetOne(ctx context.Context, id string, opts ...ReadOption) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := r.FindOne(ctx, bson.M{"_id": oid}, opts...)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("No document found with that ID")
	}
	return doc, err
}

// FindOne returns the first document matching filter, or ErrNotFound.
func (r *Repository[T, P]) FindOne(ctx context.Context, filter bson.M, opts ...ReadOption) (*T, error) {
	ro := collectRead(opts)
	findOpts := options.FindOne()
	if proj := r.hiddenProjection(ro); len(proj) > 0 {
		findOpts.SetProjection(proj)
	}

	doc := new(T)
	err := r.coll.FindOne(ctx, query.Query{Filter: filter}.Within(r.baseFilter(ro, nil)), findOpts).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	if err := r.finish(ctx, ro, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateOne assigns an id, runs the entity's save steps and inserts.
func (r *Repository[T, P]) CreateOne(ctx context.Context, doc *T) (*T, error) {
	p := P(doc)
	p.SetID(primitive.NewObjectID())
	if err := p.BeforeSave(models.SaveOp{IsNew: true, Now: r.cfg.Now()}); err != nil {
		return nil, err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, translate(err)
	}
	if err := r.afterWrite(ctx, nil, doc); err != nil {
		return nil, err
	}
	afterLoad(doc)
	return doc, nil
}

// UpdateOne applies a JSON merge of patch onto the stored document,
// re-validates it and returns the fresh copy.
func (r *Repository[T, P]) UpdateOne(ctx context.Context, id string, patch []byte) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := r.FindOne(ctx, bson.M{"_id": oid}, WithHidden(r.cfg.Hidden...), withoutPopulate())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("No document found with that ID")
	}
	if err != nil {
		return nil, err
	}

	prev := *doc
	if err := json.Unmarshal(patch, doc); err != nil {
		return nil, apperr.BadRequest("Invalid request body: " + err.Error())
	}
	p := P(doc)
	p.SetID(oid)
	if err := p.BeforeSave(models.SaveOp{Now: r.cfg.Now()}); err != nil {
		return nil, err
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return nil, translate(err)
	}
	if res.MatchedCount == 0 {
		return nil, apperr.NotFound("No document found with that ID")
	}
	if err := r.afterWrite(ctx, &prev, doc); err != nil {
		return nil, err
	}
	return r.GetOne(ctx, id, Unscoped())
}

// DeleteOne removes a document by id.
func (r *Repository[T, P]) DeleteOne(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	doc := new(T)
	filter := query.Query{Filter: bson.M{"_id": oid}}.Within(r.cfg.Scope)
	err = r.coll.FindOneAndDelete(ctx, filter).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("No document found with that ID")
	}
	if err != nil {
		return translate(err)
	}
	return r.afterWrite(ctx, nil, doc)
}

// Save inserts a document without an id or replaces the stored one.
func (r *Repository[T, P]) Save(ctx context.Context, doc *T, opts ...SaveOption) error {
	so := &saveOptions{}
	for _, opt := range opts {
		opt(so)
	}
	p := P(doc)
	isNew := p.GetID().IsZero()
	if isNew {
		p.SetID(primitive.NewObjectID())
	}
	op := models.SaveOp{IsNew: isNew, Now: r.cfg.Now(), SkipValidation: so.skipValidation}
	if err := p.BeforeSave(op); err != nil {
		return err
	}

	var err error
	if isNew {
		_, err = r.coll.InsertOne(ctx, doc)
	} else {
		var res *mongo.UpdateResult
		res, err = r.coll.ReplaceOne(ctx, bson.M{"_id": p.GetID()}, doc)
		if err == nil && res.MatchedCount == 0 {
			return apperr.NotFound("No document found with that ID")
		}
	}
	if err != nil {
		return translate(err)
	}
	return r.afterWrite(ctx, nil, doc)
}

// ParseID converts a hex id, reporting malformed ids as bad requests.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest(fmt.Sprintf("Invalid _id: %s.", id))
	}
	return oid, nil
}

func (r *Repository[T, P]) baseFilter(ro *readOptions, scope bson.M) bson.M {
	if ro.unscoped {
		if scope == nil {
			return bson.M{}
		}
		return scope
	}
	return query.Query{Filter: scope}.Within(r.cfg.Scope)
}

func (r *Repository[T, P]) hiddenFields(ro *readOptions) []string {
	var out []string
	for _, f := range r.cfg.Hidden {
		if !ro.withHidden[f] {
			out = append(out, f)
		}
	}
	return out
}

func (r *Repository[T, P]) hiddenProjection(ro *readOptions) bson.D {
	proj := bson.D{}
	for _, f := range r.hiddenFields(ro) {
		proj = append(proj, bson.E{Key: f, Value: 0})
	}
	return proj
}

// withoutPopulate skips relation loading for documents about to be replaced.
func withoutPopulate() ReadOption {
	return func(o *readOptions) { o.populate = append(o.populate, skipPopulate) }
}

const skipPopulate = "\x00skip"

// finish computes virtual fields and resolves relations for loaded docs.
func (r *Repository[T, P]) finish(ctx context.Context, ro *readOptions, docs ...*T) error {
	for _, doc := range docs {
		afterLoad(doc)
	}

	var names []string
	seen := map[string]bool{}
	for _, name := range append(append([]string{}, r.cfg.DefaultPopulate...), ro.populate...) {
		if name == skipPopulate {
			return nil
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 || len(docs) == 0 {
		return nil
	}

	for _, name := range names {
		if _, ok := r.cfg.Populators[name]; !ok {
			return apperr.Internal(fmt.Sprintf("unknown relation %q", name), nil)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(populateConcurrency)
	for _, name := range names {
		populate := r.cfg.Populators[name]
		for _, doc := range docs {
			doc := doc
			g.Go(func() error { return populate(ctx, doc) })
		}
	}
	if err := g.Wait(); err != nil {
		return translate(err)
	}
	return nil
}

func (r *Repository[T, P]) afterWrite(ctx context.Context, prev, doc *T) error {
	if r.cfg.AfterWrite == nil {
		return nil
	}
	return r.cfg.AfterWrite(ctx, prev, doc)
}

func afterLoad(doc any) {
	if l, ok := doc.(models.AfterLoader); ok {
		l.AfterLoad()
	}
}

var quoted = regexp.MustCompile(`(["'])(\\?.)*?["']`)

// translate maps driver errors onto operational errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		value := quoted.FindString(err.Error())
		return apperr.BadRequest(fmt.Sprintf("Duplicate field value: %s. Please use another value!", value))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Internal("The database did not answer in time", err)
	}
	return err
}
