package docdb

import (
	"fmt"
	"log/slog"
	"time"
)

// IdentifierField is the record field that carries the record identifier.
type IdentifierField string

const (
	FieldID  IdentifierField = "_id"
	FieldKey IdentifierField = "_key"
)

// ParseIdentifierField validates s. Unlike WithIdentifierField it rejects
// unknown values, which makes it suitable for user supplied configuration.
func ParseIdentifierField(s string) (IdentifierField, error) {
	switch IdentifierField(s) {
	case FieldID, FieldKey:
		return IdentifierField(s), nil
	case "":
		return FieldID, nil
	default:
		return "", fmt.Errorf("%w: identifier field must be %q or %q, got %q", ErrInvalidArgument, FieldID, FieldKey, s)
	}
}

func (f IdentifierField) normalize() IdentifierField {
	if f == FieldKey {
		return FieldKey
	}
	return FieldID
}

// IdentifierMethod selects how identifiers are generated.
// Only one strategy exists; unknown values fall back to it.
type IdentifierMethod string

const MethodCryptoUUID IdentifierMethod = "crypto uuid"

// Record timestamp fields.
const (
	CreatedAtField = "_createdAt"
	UpdatedAtField = "_updatedAt"
)

// DefaultPollInterval is used by OnLive when no positive interval is given.
const DefaultPollInterval = time.Second

// options holds the configuration shared by a collection and its children.
type options struct {
	field  IdentifierField
	method IdentifierMethod
	logger *slog.Logger
	now    func() time.Time
	newID  func() (string, error)
}

// Option defines a functional option for configuring a Collection.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		field:  FieldID,
		method: MethodCryptoUUID,
		logger: slog.Default(),
		now:    time.Now,
		newID:  newIdentifier,
	}
}

// WithIdentifierField sets the identifier field name. Values other than
// "_id" and "_key" silently fall back to "_id".
func WithIdentifierField(f IdentifierField) Option {
	return func(o *options) {
		o.field = f.normalize()
	}
}

func (m IdentifierMethod) normalize() IdentifierMethod {
	return MethodCryptoUUID
}

// WithIdentifierMethod records the identifier generation method.
func WithIdentifierMethod(m IdentifierMethod) Option {
	return func(o *options) {
		o.method = m.normalize()
	}
}

// WithLogger sets the logger used for backing store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}
