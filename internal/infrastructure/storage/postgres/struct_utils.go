package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T in field order, descending into
// embedded structs. Columns named in skip are left out, which is how
// read-side join fields are kept out of INSERT column lists.
//
//	cols := ExtractDBColumns[material.Material]()
//	// ["id", "name", "category", ...]
func ExtractDBColumns[T any](skip ...string) []string {
	var zero T
	cols := columnsOf(reflect.TypeOf(zero))
	if len(skip) == 0 {
		return cols
	}
	return slices.DeleteFunc(cols, func(c string) bool { return slices.Contains(skip, c) })
}

func columnsOf(t reflect.Type) []string {
	meta := metadataFor(t)
	cols := make([]string, 0, len(meta.fields))
	for _, fi := range meta.fields {
		if fi.embedded {
			cols = append(cols, columnsOf(t.Field(fi.index).Type)...)
			continue
		}
		cols = append(cols, fi.column)
	}
	return cols
}

type fieldInfo struct {
	index    int
	column   string
	embedded bool
}

type typeMetadata struct {
	fields []fieldInfo
}

// typeCache maps reflect.Type to *typeMetadata.
var typeCache sync.Map

func metadataFor(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				meta.fields = append(meta.fields, fieldInfo{index: i, embedded: true})
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, column: tag})
		}
	}

	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

// StructToMap converts a struct to a column map using "db" tags, for
// squirrel's SetMap. Columns named in skip are omitted.
func StructToMap(v any, skip ...string) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	fillMap(rv, res)
	for _, c := range skip {
		delete(res, c)
	}
	return res
}

func fillMap(rv reflect.Value, res map[string]any) {
	for _, fi := range metadataFor(rv.Type()).fields {
		if fi.embedded {
			fillMap(rv.Field(fi.index), res)
			continue
		}
		res[fi.column] = rv.Field(fi.index).Interface()
	}
}
