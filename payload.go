package devicetrust

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// canonicalize turns a payload into the exact bytes that get encrypted.
// Strings and byte slices are used verbatim, json.RawMessage must be valid
// JSON, and maps, structs and slices are JSON encoded (map keys sorted).
// Nil values and bare scalars are rejected.
func canonicalize(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidPayload)
	case string:
		return []byte(v), nil
	case []byte:
		return append([]byte{}, v...), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: raw message is not valid JSON", ErrInvalidPayload)
		}
		return append([]byte{}, v...), nil
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrInvalidPayload, rv.Type())
		}
	case reflect.Func, reflect.Chan, reflect.UnsafePointer,
		reflect.Complex64, reflect.Complex128,
		reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidPayload, rv.Type())
	case reflect.String:
		return []byte(rv.String()), nil
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}
