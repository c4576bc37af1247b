package descriptor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-procdesc/pkg/errors"

	"github.com/mattn/go-shellwords"
)

func fieldPath(parent, key string) string {
	return parent + "." + key
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch m := value.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// asInt accepts any integral number, including float64 values decoded from JSON
func asInt(value interface{}) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requireString(entry map[string]interface{}, path, key string) (string, error) {
	value, ok := entry[key]
	if !ok || value == nil {
		return "", errors.NewFieldError(fieldPath(path, key), key+" is required")
	}
	s, ok := value.(string)
	if !ok {
		return "", errors.NewFieldError(fieldPath(path, key), fmt.Sprintf("%s must be a string, got %T", key, value))
	}
	if strings.TrimSpace(s) == "" {
		return "", errors.NewFieldError(fieldPath(path, key), key+" cannot be empty")
	}
	return s, nil
}

func optionalString(entry map[string]interface{}, path, key string) (string, bool, error) {
	value, ok := entry[key]
	if !ok || value == nil {
		return "", false, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", false, errors.NewFieldError(fieldPath(path, key), fmt.Sprintf("%s must be a string, got %T", key, value))
	}
	return s, true, nil
}

func optionalBool(entry map[string]interface{}, path, key string, def bool) (bool, error) {
	value, ok := entry[key]
	if !ok || value == nil {
		return def, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, errors.NewFieldError(fieldPath(path, key), fmt.Sprintf("%s must be a boolean, got %T", key, value))
	}
	return b, nil
}

func parseInstances(value interface{}, path string) (int, error) {
	n, ok := asInt(value)
	if !ok {
		return 0, errors.NewFieldError(path, fmt.Sprintf("instances must be an integer, got %v", value))
	}
	if n < 1 || n > math.MaxInt32 {
		return 0, errors.NewFieldError(path, fmt.Sprintf("instances must be a positive integer, got %d", n))
	}
	return int(n), nil
}

// parseArgs accepts either a list of string tokens or a single string split with shell-word rules
func parseArgs(value interface{}, path string) ([]string, error) {
	switch v := value.(type) {
	case string:
		// the parser stops at the first unquoted ; & | < > and reports where
		p := shellwords.NewParser()
		args, err := p.Parse(v)
		if err != nil {
			return nil, errors.NewFieldError(path, "cannot split args string: "+err.Error())
		}
		if p.Position != -1 {
			return nil, errors.NewFieldError(path, fmt.Sprintf("shell operators are not allowed in args: %q", v))
		}
		return args, nil
	case []interface{}:
		args := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.NewFieldError(fmt.Sprintf("%s[%d]", path, i), fmt.Sprintf("argument must be a string, got %T", item))
			}
			args = append(args, s)
		}
		return args, nil
	case []string:
		return append([]string(nil), v...), nil
	default:
		return nil, errors.NewFieldError(path, fmt.Sprintf("args must be a string or a list of strings, got %T", value))
	}
}

// parseEnvironment accepts a mapping of scalar values; numbers and booleans are rendered as strings
func parseEnvironment(value interface{}, path string) (Environment, error) {
	m, ok := asMap(value)
	if !ok {
		return nil, errors.NewFieldError(path, fmt.Sprintf("environment must be a mapping, got %T", value))
	}

	env := make(Environment, len(m))
	for _, key := range sortedKeys(m) {
		if key == "" || strings.Contains(key, "=") {
			return nil, errors.NewFieldError(path, fmt.Sprintf("invalid environment variable name %q", key))
		}
		s, ok := scalarString(m[key])
		if !ok {
			return nil, errors.NewFieldError(fieldPath(path, key), fmt.Sprintf("environment value must be a string, got %T", m[key]))
		}
		env[key] = s
	}
	return env, nil
}

func scalarString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	}
	if n, ok := asInt(value); ok {
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

func parseMemoryField(value interface{}, path string) (int64, error) {
	if s, ok := value.(string); ok {
		bytes, err := ParseMemorySize(s)
		if err != nil {
			field := errors.NewFieldError(path, "unparseable memory size")
			field.Cause = err
			return 0, field
		}
		return bytes, nil
	}
	if n, ok := asInt(value); ok {
		if n <= 0 {
			return 0, errors.NewFieldError(path, fmt.Sprintf("memory size must be positive, got %d", n))
		}
		return n, nil
	}
	return 0, errors.NewFieldError(path, fmt.Sprintf("memory size must be a size string or a byte count, got %T", value))
}
