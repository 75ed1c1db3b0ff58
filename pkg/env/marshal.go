package env

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// MarshalEnv renders the env-tagged fields of a struct pointer as .env lines.
// Zero fields are written with their envDefault value when one exists and
// skipped otherwise. Fields tagged `secret:"true"` become an empty,
// commented-out placeholder and their value is never written.
func MarshalEnv(c any) (string, error) {
	return marshal(c, false)
}

// MarshalEnvWithSecrets is MarshalEnv but writes non-empty secret values.
// Use it only for files the user asked to hold credentials.
func MarshalEnvWithSecrets(c any) (string, error) {
	return marshal(c, true)
}

func marshal(c any, revealSecrets bool) (string, error) {
	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return "", fmt.Errorf("marshal env: want pointer to struct, got %T", c)
	}
	v = v.Elem()
	t := v.Type()

	var lines []string
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("env")
		if tag == "" || !field.IsExported() {
			continue
		}

		key := strings.Split(tag, ",")[0]
		if key == "" {
			continue
		}

		val := v.Field(i)
		if field.Tag.Get("secret") == "true" {
			if revealSecrets && !isZeroValue(val) {
				lines = append(lines, fmt.Sprintf("%s=%s", key, formatValue(val)))
			} else {
				lines = append(lines, fmt.Sprintf("# %s=", key))
			}
			continue
		}

		var strVal string
		if isZeroValue(val) {
			def, ok := field.Tag.Lookup("envDefault")
			if !ok {
				continue
			}
			strVal = def
		} else {
			strVal = formatValue(val)
		}

		lines = append(lines, fmt.Sprintf("%s=%s", key, strVal))
	}

	result := strings.Join(lines, "\n")
	if result != "" {
		result += "\n"
	}
	return result, nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
