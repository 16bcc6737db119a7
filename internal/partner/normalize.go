package partner

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidResponseShape = errors.New("partner response is not a list")

// maxEnvelopeDepth covers both {data: [...]} and {data: {data: [...]}}.
const maxEnvelopeDepth = 2

type item map[string]any

// unwrapList resolves the partner envelope once and returns the listed items.
func unwrapList(raw json.RawMessage) ([]item, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, errors.Wrap(ErrInvalidResponseShape, err.Error())
	}

	for depth := 0; ; depth++ {
		switch v := value.(type) {
		case []any:
			items := make([]item, 0, len(v))
			for _, el := range v {
				if obj, ok := el.(map[string]any); ok {
					items = append(items, obj)
				}
			}
			return items, nil
		case map[string]any:
			data, ok := v["data"]
			if !ok || depth >= maxEnvelopeDepth {
				return nil, ErrInvalidResponseShape
			}
			value = data
		default:
			return nil, ErrInvalidResponseShape
		}
	}
}

// coerceID turns numeric ids into their integer form ("12", 12, 12.0 all
// become "12"). Anything else is kept verbatim.
func coerceID(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := v.Float64(); err == nil {
			if i, ok := wholeInt(f); ok {
				return strconv.FormatInt(i, 10)
			}
		}
		return v.String()
	case float64:
		if i, ok := wholeInt(v); ok {
			return strconv.FormatInt(i, 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if i, ok := wholeInt(f); ok {
				return strconv.FormatInt(i, 10)
			}
		}
		return s
	default:
		return ""
	}
}

// wholeInt converts f when it is a whole number inside the int64 range.
func wholeInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (it item) id(keys ...string) string {
	for _, key := range keys {
		if id := coerceID(it[key]); id != "" {
			return id
		}
	}
	return ""
}

func (it item) str(keys ...string) string {
	for _, key := range keys {
		if s, ok := it[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
