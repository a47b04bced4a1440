package timeutil

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// TimestampKind tags which representation a Timestamp carries.
type TimestampKind int

const (
	KindAbsent TimestampKind = iota
	KindNative
	KindStore
	KindRaw
)

func (k TimestampKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindStore:
		return "store"
	case KindRaw:
		return "raw"
	default:
		return "absent"
	}
}

// Timestamp is an instant as it was found in a stored document. Legacy documents
// hold native instants, store wrapper objects ({seconds, nanos}), strings or unix
// numbers; Resolve is the only place that turns any of them into a time.Time.
type Timestamp struct {
	kind   TimestampKind
	native time.Time
	store  *timestamppb.Timestamp
	raw    any
}

func Native(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{kind: KindNative, native: t}
}

func Store(ts *timestamppb.Timestamp) Timestamp {
	if ts == nil {
		return Timestamp{}
	}
	return Timestamp{kind: KindStore, store: ts}
}

func Raw(v any) Timestamp {
	if v == nil {
		return Timestamp{}
	}
	return Timestamp{kind: KindRaw, raw: v}
}

// FromValue classifies an arbitrary decoded value.
func FromValue(v any) Timestamp {
	switch x := v.(type) {
	case nil:
		return Timestamp{}
	case Timestamp:
		return x
	case time.Time:
		return Native(x)
	case *time.Time:
		if x == nil {
			return Timestamp{}
		}
		return Native(*x)
	case *timestamppb.Timestamp:
		return Store(x)
	case map[string]any:
		if ts, ok := storeWrapper(x); ok {
			return Store(ts)
		}
		return Raw(x)
	default:
		return Raw(x)
	}
}

func (ts Timestamp) Kind() TimestampKind { return ts.kind }

func (ts Timestamp) IsAbsent() bool { return ts.kind == KindAbsent }

// Time converts the timestamp; ok is false when it is absent or unparseable.
func (ts Timestamp) Time() (time.Time, bool) {
	switch ts.kind {
	case KindNative:
		return ts.native, !ts.native.IsZero()
	case KindStore:
		if err := ts.store.CheckValid(); err != nil {
			return time.Time{}, false
		}
		return ts.store.AsTime(), true
	case KindRaw:
		return parseRaw(ts.raw)
	default:
		return time.Time{}, false
	}
}

// Resolve returns the instant, or fallback when it is absent or invalid.
func (ts Timestamp) Resolve(fallback time.Time) time.Time {
	t, ok := ts.Time()
	if !ok {
		return fallback
	}
	return t
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	switch ts.kind {
	case KindNative:
		return json.Marshal(ts.native)
	case KindStore:
		return json.Marshal(map[string]int64{
			"seconds": ts.store.GetSeconds(),
			"nanos":   int64(ts.store.GetNanos()),
		})
	case KindRaw:
		return json.Marshal(ts.raw)
	default:
		return []byte("null"), nil
	}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*ts = Native(t)
			return nil
		}
	}
	*ts = FromValue(v)
	return nil
}

func storeWrapper(m map[string]any) (*timestamppb.Timestamp, bool) {
	for _, keys := range [][2]string{
		{"seconds", "nanos"},
		{"seconds", "nanoseconds"},
		{"_seconds", "_nanoseconds"},
	} {
		secV, ok := m[keys[0]]
		if !ok {
			continue
		}
		sec, ok := toFloat(secV)
		if !ok {
			return nil, false
		}
		nanos := 0.0
		if nv, ok := m[keys[1]]; ok {
			nanos, _ = toFloat(nv)
		}
		return &timestamppb.Timestamp{Seconds: int64(sec), Nanos: int32(nanos)}, true
	}
	return nil, false
}

var rawLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// Numbers below this are read as unix seconds, above as unix milliseconds.
const unixSecondsCutoff = 1e11

func parseRaw(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range rawLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, true
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromUnixNumber(f)
	}
	if f, ok := toFloat(v); ok {
		return fromUnixNumber(f)
	}
	return time.Time{}, false
}

func fromUnixNumber(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	if f < unixSecondsCutoff {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)), true
	}
	return time.UnixMilli(int64(f)), true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}
