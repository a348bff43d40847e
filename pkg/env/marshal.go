package env

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// MarshalEnv renders a struct as .env content, one KEY=value line per
// field carrying an `env` tag. Zero-valued fields are skipped. c must be a
// pointer to a struct; field order fixes line order.
func MarshalEnv(c any) string {
	var lines []string
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("env")
		if tag == "" || !field.IsExported() {
			continue
		}

		// The tag may carry options: "KEY,required" etc.
		key, _, _ := strings.Cut(tag, ",")
		if key == "" {
			continue
		}

		val := v.Field(i)
		if val.IsZero() {
			continue
		}

		lines = append(lines, fmt.Sprintf("%s=%s", key, formatValue(val)))
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
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
