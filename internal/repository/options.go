package repository

type readOptions struct {
	unscoped   bool
	withHidden map[string]bool
	populate   []string
}

// ReadOption adjusts a single read.
type ReadOption func(*readOptions)

// Unscoped drops the collection's default predicate, e.g. to reach
// deactivated users or secret tours.
func Unscoped() ReadOption {
	return func(o *readOptions) { o.unscoped = true }
}

// WithHidden selects fields that are normally projected away.
func WithHidden(fields ...string) ReadOption {
	return func(o *readOptions) {
		for _, f := range fields {
			o.withHidden[f] = true
		}
	}
}

// WithPopulate resolves the named relations in addition to the defaults.
func WithPopulate(names ...string) ReadOption {
	return func(o *readOptions) { o.populate = append(o.populate, names...) }
}

func collectRead(opts []ReadOption) *readOptions {
	o := &readOptions{withHidden: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type saveOptions struct {
	skipValidation bool
}

type SaveOption func(*saveOptions)

// SkipValidation persists bookkeeping changes without running the
// entity's validators. Normalization and hashing still run.
func SkipValidation() SaveOption {
	return func(o *saveOptions) { o.skipValidation = true }
}
