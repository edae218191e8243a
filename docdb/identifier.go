package docdb

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// newIdentifier returns a 36 character hyphenated hex string drawn from
// crypto/rand. Uniqueness is probabilistic and never checked.
func newIdentifier() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// identifierKey converts a caller supplied identifier value to the sub-tree
// key it is stored under. Empty, zero and false values report ok=false so a
// fresh identifier is generated instead. Numbers of any kind are keyed by
// their shortest decimal form.
func identifierKey(v any) (key string, ok bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case bool:
		return "true", id
	case json.Number:
		f, err := id.Float64()
		if err != nil {
			return id.String(), id != ""
		}
		return id.String(), f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), f != 0
	default:
		return "", false
	}
}
