package metrics

import (
	"fmt"
	"path"
	"reflect"
)

// metricAdder allocates a measure for a tagged field. It returns nil when the field type is not supported.
type metricAdder func(field interface{}, metric, group string, tags map[string]string) interface{}

// struct tags, with the key they are decoded to
var knownTags = []struct{ tag, key string }{
	{"metric", "metric"},
	{"unit", "unit"},
	{"group", "group"},
	{"description", "description"},
	{"extraviews", "views"},
	{"tags", "groupings"},
}

func equalType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// scanStruct allocates all measures declared in a metrics tree
func scanStruct(parent string, adder metricAdder, m interface{}) {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("metrics must be registered with a pointer to a struct, got: %T", m))
	}
	scanTags(parent, adder, m)
}

func scanTags(parent string, adder metricAdder, m interface{}) {
	container := reflect.ValueOf(m)
	if !container.IsValid() || !isStruct(container) {
		return
	}

	receiver, structType := pointerTo(container)
	pointed := reflect.Indirect(receiver)
	changed := false

	for i := 0; i < structType.NumField(); i++ {
		field := pointed.Field(i)
		if !field.CanInterface() {
			continue
		}

		var child interface{}
		if field.Kind() == reflect.Ptr {
			child = field.Interface()
		} else {
			child = field.Addr().Interface()
		}

		tags := fieldTags(structType.Field(i))
		group := path.Join(parent, tags["group"])
		metric := tags["metric"]
		if metric == "" {
			// nested tree
			scanTags(group, adder, child)
			continue
		}
		if field.Kind() != reflect.Ptr || !field.CanSet() {
			continue
		}

		if allocated := adder(child, metric, group, tags); allocated != nil {
			field.Set(reflect.ValueOf(allocated))
			changed = true
		}
	}

	if !changed {
		return
	}
	switch {
	case container.CanSet():
		container.Set(receiver)
	case container.CanAddr() && container.Addr().CanSet():
		container.Addr().Set(receiver)
	}
}

// pointerTo returns a pointer to the struct held by container, allocating a new one when needed
func pointerTo(container reflect.Value) (reflect.Value, reflect.Type) {
	structType := container.Type()
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
		if !container.IsNil() {
			return container, structType
		}
	}
	return reflect.New(structType), structType
}

// fieldTags decodes the tags of a field in a metrics tree:
//   - metric: the name of the measure
//   - group: appends a segment to the path of the measure
//   - description: describes the measure and its views
//   - unit: determines the default view of the measure
//   - extraviews: comma-separated list of additional aggregations (count, sum, lastvalue)
//   - tags: comma-separated list of tag keys captured by views
func fieldTags(field reflect.StructField) map[string]string {
	tags := make(map[string]string, len(knownTags))
	for _, known := range knownTags {
		if value, ok := field.Tag.Lookup(known.tag); ok {
			tags[known.key] = value
		}
	}
	return tags
}

func isStruct(v reflect.Value) bool {
	t := v.Type()
	return t.Kind() == reflect.Struct || (t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct)
}
