// Package record models schema-less catalog documents. Stores return rows
// with arbitrary columns; only a handful of logical fields are interpreted and
// each logical field may live under several column names.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Unknown is rendered for logical fields a record does not carry.
const Unknown = "N/A"

// CodeFields are the columns compared against a catalog code, in priority order.
var CodeFields = []string{"number", "code", "serial", "id"}

// Logical field aliases in priority order
var (
	titleFields  = []string{"title", "name"}
	dateFields   = []string{"date", "release_date"}
	postedFields = []string{"post_time"}
	threadFields = []string{"tid"}
	linkFields   = []string{"magnet", "link", "url"}
	imageFields  = []string{"img", "cover"}
)

// Record is a single document as returned by the store.
type Record map[string]any

// Hit pairs a record with the collection it was found in.
type Hit struct {
	Collection string `json:"collection"`
	Record     Record `json:"record"`
}

// Code returns the first non-empty code alias, or "" when none is present.
func (r Record) Code() string { return r.first(CodeFields) }

// Title returns the record title, or "".
func (r Record) Title() string { return r.first(titleFields) }

// Date returns the release date, or "".
func (r Record) Date() string { return r.first(dateFields) }

// PostTime returns the posting time of the source thread, or "".
func (r Record) PostTime() string { return r.first(postedFields) }

// ThreadID returns the source thread id, or "".
func (r Record) ThreadID() string { return r.first(threadFields) }

// Link returns the magnet or resource link, or "".
func (r Record) Link() string { return r.first(linkFields) }

// Image returns the embedded image reference. List values yield their first
// non-empty element.
func (r Record) Image() string {
	for _, key := range imageFields {
		switch v := r[key].(type) {
		case []any:
			for _, item := range v {
				if s := stringify(item); s != "" {
					return s
				}
			}
		case []string:
			for _, s := range v {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		default:
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Or returns value or Unknown when value is empty.
func Or(value string) string {
	if value == "" {
		return Unknown
	}
	return value
}

func (r Record) first(keys []string) string {
	for _, key := range keys {
		if s := stringify(r[key]); s != "" {
			return s
		}
	}
	return ""
}

// stringify converts weakly typed column values to display strings.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []byte:
		return strings.TrimSpace(string(val))
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(time.DateOnly)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	case float64:
		// JSON and some drivers decode integers as float64
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
