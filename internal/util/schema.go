package util

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError reports one parameter that failed schema validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives a JSON schema from a struct via reflection. Property
// names come from json tags, descriptions from description tags, enumerations
// from comma-separated enum tags. A field is required unless it is a pointer
// or its json tag carries omitempty.
func CreateSchema(structType any) map[string]any {
	properties := map[string]any{}
	var required []string

	t := reflect.TypeOf(structType)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": properties}
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		name, omitempty, skip := parseJSONTag(field)
		if skip {
			continue
		}

		properties[name] = propertySchema(field)

		if !omitempty && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// parseJSONTag resolves a field's property name and omitempty marker. Skip is
// set for unexported fields and json:"-".
func parseJSONTag(field reflect.StructField) (name string, omitempty, skip bool) {
	if !field.IsExported() {
		return "", false, true
	}

	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "omitempty" {
			omitempty = true
		}
	}

	return name, omitempty, false
}

// propertySchema builds the schema object for one struct field.
func propertySchema(field reflect.StructField) map[string]any {
	p := map[string]any{"type": jsonType(field.Type)}

	if p["type"] == "array" {
		p["items"] = map[string]any{"type": jsonType(field.Type.Elem())}
	}
	if desc := field.Tag.Get("description"); desc != "" {
		p["description"] = desc
	}
	if enum := field.Tag.Get("enum"); enum != "" {
		var values []any
		for _, v := range strings.Split(enum, ",") {
			values = append(values, strings.TrimSpace(v))
		}
		p["enum"] = values
	}

	return p
}

// ValidateParameters checks params against a JSON schema: every required
// field present, every known property type-compatible. Properties absent from
// the schema pass through unchecked.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range requiredFields(schema) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range params {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}

		want, _ := prop["type"].(string)
		if !typeCompatible(value, want) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", want, value),
			}
		}
	}

	return nil
}

// requiredFields reads the schema's required list, accepting both the
// []string shape CreateSchema produces and the []any shape JSON decoding
// produces.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

// jsonType maps a Go type onto its JSON schema type name.
func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return jsonType(t.Elem())
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	if isIntegerKind(t.Kind()) {
		return "integer"
	}
	return "string"
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// typeCompatible reports whether a decoded JSON value satisfies the expected
// schema type. Nil passes for every type; unknown type names pass everything.
func typeCompatible(value any, want string) bool {
	if value == nil {
		return true
	}

	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		return isIntegerValue(value)
	case "number":
		return isNumberValue(value)
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

// isIntegerValue accepts Go integers and whole float64 values, since JSON
// decoding renders every number as float64.
func isIntegerValue(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	default:
		return false
	}
}

func isNumberValue(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
