// Package query turns an HTTP query string into a MongoDB filter plus find
// options. Stages are applied in order: Filter, Sort, LimitFields, Paginate.
package query

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

var (
	reserved   = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}
	comparison = map[string]string{"gte": "$gte", "gt": "$gt", "lte": "$lte", "lt": "$lt"}
	bracketKey = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]+)\]$`)
)

// Query is the refined, not yet executed query.
type Query struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.D
	Skip       int64
	Limit      int64
}

// FindOptions converts the query into driver options.
func (q Query) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if len(q.Projection) > 0 {
		opts.SetProjection(q.Projection)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

// Within combines the parsed filter with a base filter. Both must hold.
func (q Query) Within(base bson.M) bson.M {
	switch {
	case len(base) == 0:
		return q.Filter
	case len(q.Filter) == 0:
		return base
	}
	for k := range q.Filter {
		if _, clash := base[k]; clash {
			return bson.M{"$and": bson.A{base, q.Filter}}
		}
	}
	merged := make(bson.M, len(base)+len(q.Filter))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range q.Filter {
		merged[k] = v
	}
	return merged
}

// Option customizes a Features pipeline.
type Option func(*Features)

// WithRepeatable lists parameters that may appear several times; repeated
// values become an $in match. Other repeated parameters keep the last value.
func WithRepeatable(fields ...string) Option {
	return func(f *Features) {
		for _, name := range fields {
			f.repeatable[name] = true
		}
	}
}

// WithHidden lists fields that a projection can never include.
func WithHidden(fields ...string) Option {
	return func(f *Features) {
		f.hidden = append(f.hidden, fields...)
	}
}

// Features accumulates the query stages.
type Features struct {
	params     url.Values
	repeatable map[string]bool
	hidden     []string
	q          Query
}

func New(params url.Values, opts ...Option) *Features {
	f := &Features{params: params, repeatable: map[string]bool{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Apply runs all four stages.
func Apply(params url.Values, opts ...Option) Query {
	return New(params, opts...).Filter().Sort().LimitFields().Paginate().Query()
}

func (f *Features) Query() Query { return f.q }

// Filter builds the match document from every non-reserved parameter.
func (f *Features) Filter() *Features {
	filter := bson.M{}
	for key, values := range f.params {
		if len(values) == 0 || reserved[key] {
			continue
		}
		field, op := key, ""
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			field, op = m[1], m[2]
		}
		if field == "" || strings.HasPrefix(field, "$") || strings.ContainsAny(op, "$.") {
			continue
		}

		if op == "" {
			var value any
			if f.repeatable[field] && len(values) > 1 {
				in := make(bson.A, 0, len(values))
				for _, v := range values {
					in = append(in, coerce(v))
				}
				value = bson.M{"$in": in}
			} else {
				value = coerce(last(values))
			}
			merge(filter, field, "", value)
			continue
		}

		mongoOp, known := comparison[op]
		if !known {
			// unknown operators are kept as a literal sub-document match
			mongoOp = op
		}
		merge(filter, field, mongoOp, coerce(last(values)))
	}
	f.q.Filter = filter
	return f
}

// Sort orders by the comma separated sort parameter, "-" meaning
// descending, or by newest first. _id breaks ties so pages are stable.
func (f *Features) Sort() *Features {
	sort := bson.D{}
	seen := map[string]bool{}
	for _, token := range splitList(f.params.Get("sort")) {
		dir := 1
		if strings.HasPrefix(token, "-") {
			dir, token = -1, token[1:]
		}
		if token == "" || strings.HasPrefix(token, "$") || seen[token] {
			continue
		}
		seen[token] = true
		sort = append(sort, bson.E{Key: token, Value: dir})
	}
	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
		seen["createdAt"] = true
	}
	if !seen["_id"] {
		sort = append(sort, bson.E{Key: "_id", Value: 1})
	}
	f.q.Sort = sort
	return f
}

// LimitFields restricts the projection to the requested fields, or hides
// the version field by default.
func (f *Features) LimitFields() *Features {
	var include, exclude []string
	for _, token := range splitList(f.params.Get("fields")) {
		if strings.HasPrefix(token, "$") {
			continue
		}
		if name, ok := strings.CutPrefix(token, "-"); ok {
			if name != "" {
				exclude = append(exclude, name)
			}
			continue
		}
		if !f.isHidden(token) {
			include = append(include, token)
		}
	}

	proj := bson.D{}
	switch {
	case len(include) > 0:
		for _, name := range include {
			proj = append(proj, bson.E{Key: name, Value: 1})
		}
	case len(exclude) > 0:
		for _, name := range exclude {
			proj = append(proj, bson.E{Key: name, Value: 0})
		}
		proj = f.excludeHidden(proj)
	default:
		proj = f.excludeHidden(bson.D{{Key: "__v", Value: 0}})
	}
	f.q.Projection = proj
	return f
}

// Paginate applies skip and limit. Pages past the end yield empty results.
func (f *Features) Paginate() *Features {
	page := positiveInt(f.params.Get("page"), DefaultPage)
	limit := positiveInt(f.params.Get("limit"), DefaultLimit)
	if page-1 > math.MaxInt64/limit {
		f.q.Skip = math.MaxInt64
	} else {
		f.q.Skip = (page - 1) * limit
	}
	f.q.Limit = limit
	return f
}

// merge adds one condition on field. An equality next to operators on the
// same field becomes $eq, so the result never depends on parameter order.
func merge(filter bson.M, field, op string, value any) {
	existing, present := filter[field]
	if !present {
		if op == "" {
			filter[field] = value
		} else {
			filter[field] = bson.M{op: value}
		}
		return
	}

	cond, isCond := existing.(bson.M)
	if !isCond {
		cond = bson.M{"$eq": existing}
		filter[field] = cond
	}
	if op != "" {
		cond[op] = value
		return
	}
	if in, ok := value.(bson.M); ok {
		for k, v := range in {
			cond[k] = v
		}
		return
	}
	cond["$eq"] = value
}

func (f *Features) isHidden(name string) bool {
	for _, h := range f.hidden {
		if h == name {
			return true
		}
	}
	return false
}

func (f *Features) excludeHidden(proj bson.D) bson.D {
	for _, h := range f.hidden {
		found := false
		for _, e := range proj {
			if e.Key == h {
				found = true
				break
			}
		}
		if !found {
			proj = append(proj, bson.E{Key: h, Value: 0})
		}
	}
	return proj
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func last(values []string) string {
	return values[len(values)-1]
}

func positiveInt(s string, def int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func coerce(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
