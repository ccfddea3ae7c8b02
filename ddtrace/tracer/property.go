package tracer

import (
	"strconv"
	"time"
)

// Property is an ordered (key, value) string pair attached to a span or
// event. Duplicate keys are permitted; order of insertion is preserved.
type Property struct {
	Key   string
	Value string
}

// Tag renders to a Property at the point it is appended to a span — a
// typed-properties surface where call sites pass a concrete value instead
// of pre-formatting it to a string themselves.
type Tag interface {
	Render() Property
}

type stringTag Property

func (t stringTag) Render() Property { return Property(t) }

// StringTag builds a Tag from an already-string value.
func StringTag(key, value string) Tag { return stringTag{Key: key, Value: value} }

type intTag struct {
	key   string
	value int64
}

func (t intTag) Render() Property {
	return Property{Key: t.key, Value: strconv.FormatInt(t.value, 10)}
}

// IntTag builds a Tag from an integer value.
func IntTag(key string, value int64) Tag { return intTag{key: key, value: value} }

type durationTag struct {
	key   string
	value time.Duration
}

func (t durationTag) Render() Property {
	return Property{Key: t.key, Value: t.value.String()}
}

// DurationTag builds a Tag from a time.Duration, rendered with its natural
// Go string representation (e.g. "1.5ms").
func DurationTag(key string, value time.Duration) Tag { return durationTag{key: key, value: value} }

type errorTag struct {
	key string
	err error
}

func (t errorTag) Render() Property {
	if t.err == nil {
		return Property{Key: t.key, Value: ""}
	}
	return Property{Key: t.key, Value: t.err.Error()}
}

// ErrorTag builds a Tag from an error value.
func ErrorTag(key string, err error) Tag { return errorTag{key: key, err: err} }

// RenderAll renders a slice of Tags to Properties in order.
func RenderAll(tags []Tag) []Property {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Property, len(tags))
	for i, t := range tags {
		out[i] = t.Render()
	}
	return out
}
