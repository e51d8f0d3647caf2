package route

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// DefaultField is the container key tried when a warehouse payload is a
// JSON object instead of a bare array.
const DefaultField = "storeHouse"

// DecodeWarehouses parses a warehouse listing fetched from a remote
// endpoint or read from a local file. The payload is either a bare JSON
// array of warehouse objects or an object holding one under field.
// Field names are tolerated in both spellings seen in the wild:
// name/sourceName for display names and url/sourceUrl for addresses.
func DecodeWarehouses(data []byte, field string) ([]Warehouse, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if root.IsObject() {
		if field == "" {
			field = DefaultField
		}
		root = root.Get(field)
		if !root.Exists() {
			return nil, errors.Errorf("JSON object does not have a value for path: %s", field)
		}
	}

	if !root.IsArray() {
		return nil, errors.New("expected a JSON array of warehouse objects")
	}

	var warehouses []Warehouse
	for _, elem := range root.Array() {
		w := Warehouse{Name: firstString(elem, "name", "sourceName")}
		for _, e := range elem.Get("urls").Array() {
			w.URLs = append(w.URLs, Entry{
				Name: firstString(e, "name", "sourceName"),
				URL:  firstString(e, "url", "sourceUrl"),
			})
		}
		warehouses = append(warehouses, w)
	}

	return warehouses, nil
}

func firstString(v gjson.Result, paths ...string) string {
	for _, path := range paths {
		if s := v.Get(path).String(); s != "" {
			return s
		}
	}
	return ""
}
