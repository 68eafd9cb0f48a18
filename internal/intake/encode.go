package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/models"
)

// EncodeJSON writes the submission the way the single-page form posts it: nested fields
// are stringified JSON text. Null fields stay null.
func EncodeJSON(w io.Writer, sub *models.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for key := range nestedFields {
		raw, ok := doc[key]
		if !ok || len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
			continue
		}
		quoted, err := json.Marshal(string(raw))
		if err != nil {
			return err
		}
		doc[key] = quoted
	}
	return json.NewEncoder(w).Encode(doc)
}

// topLevelFiles are the attachment slots of a submission
func topLevelFiles(sub *models.Submission) map[string]*models.Attachment {
	return map[string]*models.Attachment{
		"uploadedBuktiMengetahui": sub.UploadedBuktiMengetahui,
		"suratPermohonan":         sub.SuratPermohonan,
		"proposalKegiatan":        sub.ProposalKegiatan,
	}
}

// itemFiles are the attachment slots of a content item, keyed by their field names
func itemFiles(it *models.ContentItem) map[string]*models.Attachment {
	return map[string]*models.Attachment{
		"narasiFile":                 it.NarasiFile,
		"suratFile":                  it.SuratFile,
		"audioDubbingFile":           it.AudioDubbingFile,
		"audioDubbingLainLainFile":   it.AudioDubbingLainLainFile,
		"audioBacksoundFile":         it.AudioBacksoundFile,
		"audioBacksoundLainLainFile": it.AudioBacksoundLainLainFile,
		"pendukungVideoFile":         it.PendukungVideoFile,
		"pendukungFotoFile":          it.PendukungFotoFile,
		"pendukungLainLainFile":      it.PendukungLainLainFile,
		"hasilProdukFile":            it.HasilProdukFile,
		"hasilProdukValidasiFile":    it.HasilProdukValidasiFile,
	}
}

// EncodeMultipart writes the submission as form data with bracketed keys. Files become
// file parts and links become text parts under the same slot name. Server-owned fields
// are not written.
func EncodeMultipart(mw *multipart.Writer, sub *models.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	for key := range topLevelFiles(sub) {
		delete(doc, key)
	}
	delete(doc, "dokumenPendukung")
	if items, ok := doc["contentItems"].([]interface{}); ok {
		for i, raw := range items {
			obj, ok := raw.(map[string]interface{})
			if !ok || i >= len(sub.ContentItems) || sub.ContentItems[i] == nil {
				continue
			}
			for key := range itemFiles(sub.ContentItems[i]) {
				delete(obj, key)
			}
		}
	}

	fields := make(map[string][]string)
	flatten(fields, nil, doc)
	for _, key := range sortedKeys(fields) {
		for _, v := range fields[key] {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}

	files := topLevelFiles(sub)
	for _, key := range sortedKeys(files) {
		if err := writeAttachment(mw, key, files[key]); err != nil {
			return err
		}
	}
	for _, a := range sub.DokumenPendukung {
		if err := writeAttachment(mw, "dokumenPendukung[]", a); err != nil {
			return err
		}
	}
	for i, it := range sub.ContentItems {
		if it == nil {
			continue
		}
		files := itemFiles(it)
		for _, name := range sortedKeys(files) {
			key := fmt.Sprintf("contentItems[%d][%s]", i, name)
			if err := writeAttachment(mw, key, files[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

func flatten(out map[string][]string, path []string, v interface{}) {
	switch val := v.(type) {
	case nil:
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			next := append(append([]string(nil), path...), k)
			if ignored(next) {
				continue
			}
			flatten(out, next, val[k])
		}
	case []interface{}:
		for i, elem := range val {
			switch elem.(type) {
			case map[string]interface{}, []interface{}:
				flatten(out, append(append([]string(nil), path...), strconv.Itoa(i)), elem)
			default:
				key := joinKey(path) + "[]"
				out[key] = append(out[key], scalar(elem))
			}
		}
	default:
		key := joinKey(path)
		out[key] = append(out[key], scalar(val))
	}
}

func joinKey(path []string) string {
	if len(path) == 0 {
		return ""
	}
	key := path[0]
	for _, p := range path[1:] {
		key += "[" + p + "]"
	}
	return key
}

func scalar(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func writeAttachment(mw *multipart.Writer, key string, a *models.Attachment) error {
	if a.IsEmpty() {
		return nil
	}
	var content []byte
	switch a.Kind {
	case models.AttachmentLink:
		return mw.WriteField(key, a.Link)
	case models.AttachmentRaw:
		content = a.Raw.Content
	default:
		src := a.Meta.Base64
		if src == "" {
			src = a.Meta.URL
		}
		if src == "" {
			return fmt.Errorf("%s: attachment %s has no content", key, a.Meta.Name)
		}
		var err error
		if content, err = attachment.DecodeDataURL(src); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, key, a.Name()))
	contentType := a.MIMEType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(content)
	return err
}
