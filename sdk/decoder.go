package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/gjson"
)

// DateStrategy selects how time.Time values are read from a response.
type DateStrategy int

const (
	// DateISO8601 reads RFC 3339 strings (encoding/json's native time format)
	DateISO8601 DateStrategy = iota
	// DateMillis reads integer milliseconds since the Unix epoch
	DateMillis
)

// String returns the string representation of the date strategy
func (s DateStrategy) String() string {
	if s == DateMillis {
		return "millis"
	}
	return "iso8601"
}

// Decoder is the decoding configuration of a request. It is an immutable value:
// every request gets its own copy, so nothing is shared between calls.
//
// PayloadKey names the field of the body that holds the payload. It accepts a
// gjson path, so nested payloads such as "data.list" work too. An empty key
// decodes the whole body.
type Decoder struct {
	PayloadKey   string
	DateStrategy DateStrategy
}

// NewDecoder creates a decoder for the given payload key and date strategy.
func NewDecoder(payloadKey string, dates DateStrategy) Decoder {
	return Decoder{PayloadKey: payloadKey, DateStrategy: dates}
}

// WithPayloadKey returns a copy of the decoder reading the payload from key.
func (d Decoder) WithPayloadKey(key string) Decoder {
	d.PayloadKey = key
	return d
}

// WithDateStrategy returns a copy of the decoder using the given date strategy.
func (d Decoder) WithDateStrategy(s DateStrategy) Decoder {
	d.DateStrategy = s
	return d
}

// Decode decodes the whole of data into dest.
func (d Decoder) Decode(data []byte, dest any) error {
	if d.DateStrategy != DateMillis {
		return json.Unmarshal(data, dest)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		// millis first, so time.Time never reaches its own UnmarshalJSON
		DecodeHook: mapstructure.ComposeDecodeHookFunc(millisToTimeHook, jsonUnmarshalerHook),
		Squash:     true,
		TagName:    "json",
		Result:     dest,
	})
	if err != nil {
		return err
	}
	return md.Decode(raw)
}

// DecodeKeyed extracts the payload named by PayloadKey and decodes it into dest.
func (d Decoder) DecodeKeyed(data []byte, dest any) error {
	if d.PayloadKey == "" {
		return d.Decode(data, dest)
	}
	payload := gjson.GetBytes(data, d.PayloadKey)
	if !payload.Exists() {
		return fmt.Errorf("payload key %q not found", d.PayloadKey)
	}
	return d.Decode([]byte(payload.Raw), dest)
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	jsonUnmarshalType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

// jsonUnmarshalerHook hands values whose type implements json.Unmarshaler
// (json.RawMessage included) back to encoding/json. Pointer targets reach the
// hook again with their element type.
func jsonUnmarshalerHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil || to.Kind() == reflect.Pointer || to.Kind() == reflect.Interface {
		return data, nil
	}
	if reflect.TypeOf(data) == to || !reflect.PointerTo(to).Implements(jsonUnmarshalType) {
		return data, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := reflect.New(to)
	if err := out.Interface().(json.Unmarshaler).UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return out.Elem().Interface(), nil
}

// millisToTimeHook converts epoch milliseconds into time.Time during decoding.
func millisToTimeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid millisecond timestamp %q: %w", v.String(), err)
		}
		return millisFloat(f), nil
	case float64:
		return millisFloat(v), nil
	case int64:
		return time.UnixMilli(v), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", v, err)
		}
		return t, nil
	}
	return data, nil
}

func millisFloat(f float64) time.Time {
	sec, frac := math.Modf(f / 1000)
	return time.Unix(int64(sec), int64(frac*1e9))
}
