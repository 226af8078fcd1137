// Package templating resolves magic attribute tokens such as `@title@`,
// `@user->email@` and `@fullName()@` inside action parameters.
package templating

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
)

var ErrResolution = errors.New("template resolution failed")

var (
	segmentPattern = regexp.MustCompile(`\S+`)
	tokenPattern   = regexp.MustCompile(`@([^@\s]+?)@`)
)

const dateFormat = "2006-01-02 15:04:05"

type span struct {
	start, end int
	value      string
}

// Resolve replaces every token found in the whitespace separated segments of raw.
// Tokens are located in the original string and substituted left to right, so a
// resolved value that itself looks like a token is never resolved again.
func Resolve(src core.AttributeSource, raw string) (string, error) {
	var spans []span
	for _, seg := range segmentPattern.FindAllStringIndex(raw, -1) {
		segment := raw[seg[0]:seg[1]]
		for _, m := range tokenPattern.FindAllStringSubmatchIndex(segment, -1) {
			expr := segment[m[2]:m[3]]
			value, err := core.Resolve(src, expr)
			if err != nil {
				return "", errors.WithMessagef(ErrResolution, "token %s: %v", segment[m[0]:m[1]], err)
			}
			spans = append(spans, span{start: seg[0] + m[0], end: seg[0] + m[1], value: Stringify(value)})
		}
	}
	if len(spans) == 0 {
		return raw, nil
	}

	var sb strings.Builder
	last := 0
	for _, s := range spans {
		sb.WriteString(raw[last:s.start])
		sb.WriteString(s.value)
		last = s.end
	}
	sb.WriteString(raw[last:])
	return sb.String(), nil
}

// ResolveData returns a copy of data where the listed magic fields are resolved.
// Strings are resolved directly, slices and maps one level deep; every other value,
// and every field not listed, is passed through unchanged.
func ResolveData(fields []string, src core.AttributeSource, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if !slices.Contains(fields, key) {
			out[key] = value
			continue
		}
		resolved, err := resolveValue(src, value)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", key)
		}
		out[key] = resolved
	}
	return out, nil
}

func resolveValue(src core.AttributeSource, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return Resolve(src, v)
	case []string:
		items := make([]string, len(v))
		for i, item := range v {
			r, err := Resolve(src, item)
			if err != nil {
				return nil, err
			}
			items[i] = r
		}
		return items, nil
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				items[i] = item
				continue
			}
			r, err := Resolve(src, s)
			if err != nil {
				return nil, err
			}
			items[i] = r
		}
		return items, nil
	case map[string]string:
		items := make(map[string]string, len(v))
		for k, item := range v {
			r, err := Resolve(src, item)
			if err != nil {
				return nil, err
			}
			items[k] = r
		}
		return items, nil
	case map[string]any:
		items := make(map[string]any, len(v))
		for k, item := range v {
			s, ok := item.(string)
			if !ok {
				items[k] = item
				continue
			}
			r, err := Resolve(src, s)
			if err != nil {
				return nil, err
			}
			items[k] = r
		}
		return items, nil
	}
	return value, nil
}

// Stringify renders a resolved value for textual substitution.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(dateFormat)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(dateFormat)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}
