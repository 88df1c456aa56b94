package resource

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// schema maps JSON names of declared fields to struct field indices
type schema map[string][]int

var schemas sync.Map // reflect.Type -> schema

func schemaOf(t reflect.Type) schema {
	if cached, ok := schemas.Load(t); ok {
		return cached.(schema)
	}

	result := schema{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, result)
	}

	actual, _ := schemas.LoadOrStore(t, result)
	return actual.(schema)
}

func collectFields(t reflect.Type, prefix []int, result schema) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		tag, hasTag := field.Tag.Lookup("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}

		if field.Anonymous && !hasTag && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, result)
			continue
		}

		if !field.IsExported() {
			continue
		}

		if name == "" {
			name = field.Name
		}
		result[name] = index
	}
}

// Declared lists JSON names of the fields declared by schema type T
func Declared[T any]() []string {
	s := schemaOf(reflect.TypeOf((*T)(nil)).Elem())
	result := make([]string, 0, len(s))
	for name := range s {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// split distributes payload keys between declared fields of T and extra fields.
// Declared keys whose values do not fit the declared type are kept as extra and reported.
func split[T any](payload map[string]any) (fields T, extra map[string]any, mismatched []string) {
	extra = map[string]any{}

	s := schemaOf(reflect.TypeOf((*T)(nil)).Elem())
	target := reflect.ValueOf(&fields).Elem()
	for key, value := range payload {
		index, ok := s[key]
		if !ok {
			extra[key] = value
			continue
		}

		data, err := json.Marshal(value)
		if err == nil {
			err = json.Unmarshal(data, target.FieldByIndex(index).Addr().Interface())
		}
		if err != nil {
			extra[key] = value
			mismatched = append(mismatched, key)
		}
	}

	return fields, extra, mismatched
}

func (s schema) value(fields any, name string) (any, bool) {
	index, ok := s[name]
	if !ok {
		return nil, false
	}

	v := reflect.ValueOf(fields)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	return v.FieldByIndex(index).Interface(), true
}
