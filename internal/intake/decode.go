// Package intake decodes and encodes the two payload formats of the pengajuan
// endpoint: JSON whose nested fields may be stringified, and multipart form data
// with bracketed keys.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/models"
)

// ErrMalformed wraps every payload decoding failure
var ErrMalformed = errors.New("malformed pengajuan payload")

// nestedFields may arrive as JSON text inside a string value
var nestedFields = map[string]bool{
	"contentItems":            true,
	"dokumenPendukung":        true,
	"uploadedBuktiMengetahui": true,
	"suratPermohonan":         true,
	"proposalKegiatan":        true,
}

// serverOwned fields are set by reviewers or derived; form input for them is ignored
var serverOwned = map[string]bool{
	"id":                    true,
	"workflowStage":         true,
	"isConfirmed":           true,
	"tanggalKonfirmasi":     true,
	"isOutputValidated":     true,
	"tanggalReview":         true,
	"tanggalValidasiOutput": true,
	"createdAt":             true,
	"updatedAt":             true,
}

var serverOwnedItem = map[string]bool{
	"isConfirmed": true,
	"isTayang":    true,
}

// ignored reports whether a form path names a server-owned field
func ignored(path []string) bool {
	if len(path) == 1 {
		return serverOwned[path[0]]
	}
	return path[0] == "contentItems" && len(path) == 3 && serverOwnedItem[path[2]]
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// unstringify returns the embedded document of a string holding JSON text. An empty
// or "null" string is JSON null.
func unstringify(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage("null")
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		if json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}
	return raw
}

// DecodeJSON reads a JSON pengajuan. Nested fields are accepted either as JSON values
// or as strings holding JSON text.
func DecodeJSON(r io.Reader) (*models.Submission, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}
	for key := range nestedFields {
		if raw, ok := doc[key]; ok {
			doc[key] = unstringify(raw)
		}
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, malformed("%v", err)
	}
	var sub models.Submission
	if err := json.Unmarshal(normalized, &sub); err != nil {
		return nil, malformed("%v", err)
	}
	return &sub, nil
}

// keyPattern matches one bracket segment: [0], [nama] or []
var keyPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)

// splitKey turns contentItems[0][mediaPemerintah][] into
// [contentItems 0 mediaPemerintah ""]
func splitKey(key string) ([]string, error) {
	i := strings.IndexByte(key, '[')
	if i < 0 {
		return []string{key}, nil
	}
	segments := []string{key[:i]}
	rest := key[i:]
	for _, m := range keyPattern.FindAllStringSubmatchIndex(rest, -1) {
		segments = append(segments, rest[m[2]:m[3]])
	}
	if strings.Join(bracketed(segments[1:]), "") != rest || segments[0] == "" {
		return nil, malformed("invalid field name %q", key)
	}
	return segments, nil
}

func bracketed(segs []string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = "[" + s + "]"
	}
	return out
}

// node is an intermediate document built from form keys. Objects whose keys are all
// indexes become arrays when the document is finalized.
type node map[string]interface{}

func (n node) set(path []string, value interface{}) error {
	key := path[0]
	if len(path) == 1 {
		if key == "" {
			return malformed("empty field name")
		}
		n[key] = value
		return nil
	}
	next := path[1]
	if next == "" {
		// key[] appends
		if len(path) != 2 {
			return malformed("[] must be the last segment")
		}
		list, _ := n[key].([]interface{})
		n[key] = append(list, value)
		return nil
	}
	child, ok := n[key].(node)
	if !ok {
		if _, exists := n[key]; exists {
			return malformed("field %q is both a value and a group", key)
		}
		child = node{}
		n[key] = child
	}
	return child.set(path[1:], value)
}

func finalize(v interface{}) interface{} {
	switch val := v.(type) {
	case node:
		indexes := make([]int, 0, len(val))
		for k := range val {
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 {
				indexes = nil
				break
			}
			indexes = append(indexes, i)
		}
		if indexes != nil && len(indexes) == len(val) {
			sort.Ints(indexes)
			list := make([]interface{}, 0, len(indexes))
			for _, i := range indexes {
				list = append(list, finalize(val[strconv.Itoa(i)]))
			}
			return list
		}
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = finalize(child)
		}
		return out
	case []interface{}:
		for i := range val {
			val[i] = finalize(val[i])
		}
		return val
	default:
		return v
	}
}

// MultipartOptions bounds uploaded files and turns them into stored attachments
type MultipartOptions struct {
	MaxFileSize  int64
	Materializer *attachment.Materializer
}

// DecodeMultipart reads a multipart pengajuan with bracketed keys such as
// contentItems[0][nama] and dokumenPendukung[]. A file part and a text part may share
// a slot name; a text part is a link.
func DecodeMultipart(form *multipart.Form, opts MultipartOptions) (*models.Submission, error) {
	if form == nil {
		return nil, malformed("empty form")
	}
	m := opts.Materializer
	if m == nil {
		m = &attachment.Materializer{Thumbnails: attachment.DefaultThumbnailOptions}
	}

	doc := node{}
	for _, key := range sortedKeys(form.Value) {
		path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		if ignored(path) {
			continue
		}
		for _, v := range form.Value[key] {
			var value interface{} = v
			if len(path) == 1 && nestedFields[path[0]] {
				value = unstringify(mustQuote(v))
			}
			if err := doc.set(path, value); err != nil {
				return nil, err
			}
		}
	}

	for _, key := range sortedKeys(form.File) {
		path, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		for _, fh := range form.File[key] {
			raw, err := attachment.FromUpload(fh, opts.MaxFileSize)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			stored, err := m.Persist(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			if err := doc.set(path, stored); err != nil {
				return nil, err
			}
		}
	}

	data, err := json.Marshal(finalize(doc))
	if err != nil {
		return nil, malformed("%v", err)
	}
	var sub models.Submission
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&sub); err != nil {
		return nil, malformed("%v", err)
	}
	return &sub, nil
}

func mustQuote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
