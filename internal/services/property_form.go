package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arzan03/urbanscope/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fields is raw listing input as it arrives from a multipart form or a JSON body.
// Values are strings, numbers, booleans, lists or nil.
type Fields map[string]any

// present reports whether key was supplied with a non-null, non-empty value.
func (f Fields) present(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func (f Fields) supplied(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

func (f Fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func parseFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case []string:
		if len(n) > 0 {
			return parseFloat(n[0])
		}
	}
	return 0, false
}

func parseInt(v any) (int, bool) {
	if s, ok := v.(string); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	f, ok := parseFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func parseBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	case []string:
		return len(b) > 0 && parseBool(b[0])
	}
	return false
}

var errNotAList = errors.New("value is not a list of strings")

// parseStringList accepts a native list or a JSON-encoded array string.
func parseStringList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return append([]string{}, l...), nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, errNotAList
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		if err := json.Unmarshal([]byte(l), &out); err != nil {
			return nil, fmt.Errorf("%w: %v", errNotAList, err)
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	return nil, errNotAList
}

// parseAmenities normalizes either amenity encoding into a slice. Vocabulary
// checks happen later, during struct validation.
func parseAmenities(v any) ([]models.Amenity, error) {
	raw, err := parseStringList(v)
	if err != nil {
		return nil, err
	}
	out := make([]models.Amenity, 0, len(raw))
	for _, s := range raw {
		out = append(out, models.Amenity(strings.TrimSpace(s)))
	}
	return out, nil
}

// ParseID converts a path parameter into an ObjectID.
func ParseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, newError(ErrValidation, fmt.Sprintf("Invalid %s ID format", what))
	}
	return id, nil
}
