package cache

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Hash fields of a shared-tier entry under httpcache:data:<url>.
const (
	fieldStatus       = "status"
	fieldHeaders      = "headers"
	fieldContentType  = "content-type"
	fieldBody         = "body"
	fieldBodyEncoding = "body-encoding"
	fieldTTL          = "ttl"
	fieldSavedAt      = "saved-at"
)

// BodyEncoding tags how the body field of a shared-tier hash is represented.
type BodyEncoding string

const (
	// BodyEncodingBase64 is written for every entry we store.
	BodyEncodingBase64 BodyEncoding = "base64"

	// BodyEncodingRaw means the field holds the body bytes unchanged.
	// Entries without a body-encoding field are read as raw.
	BodyEncodingRaw BodyEncoding = "raw"
)

// encodeFields converts an entry to the string-valued fields stored in the
// shared tier. Both tiers share the Entry representation; this is the only
// place where bodies and headers are wrapped for transport.
func encodeFields(entry *Entry) (map[string]interface{}, error) {
	headers, err := json.Marshal(entry.Header)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}

	return map[string]interface{}{
		fieldStatus:       strconv.Itoa(entry.StatusCode),
		fieldHeaders:      string(headers),
		fieldContentType:  entry.ContentType,
		fieldBody:         base64.StdEncoding.EncodeToString(entry.Body),
		fieldBodyEncoding: string(BodyEncodingBase64),
		fieldTTL:          strconv.FormatInt(int64(entry.TTL/time.Second), 10),
		fieldSavedAt:      strconv.FormatInt(entry.SavedAt.UnixMilli(), 10),
	}, nil
}

// decodeFields rebuilds an entry from a shared-tier hash.
// ttl and saved-at are optional; status is not.
func decodeFields(fields map[string]string) (*Entry, error) {
	statusStr, ok := fields[fieldStatus]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s field", ErrInvalidEntry, fieldStatus)
	}
	status, err := strconv.Atoi(statusStr)
	if err != nil {
		return nil, fmt.Errorf("%w: status %q: %v", ErrInvalidEntry, statusStr, err)
	}

	header, err := decodeHeaders(fields[fieldHeaders])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	body, err := decodeBody(fields[fieldBody], BodyEncoding(fields[fieldBodyEncoding]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	entry := &Entry{
		StatusCode:  status,
		Header:      header,
		ContentType: fields[fieldContentType],
		Body:        body,
	}

	if ttlStr := fields[fieldTTL]; ttlStr != "" {
		if secs, err := strconv.ParseInt(ttlStr, 10, 64); err == nil {
			entry.TTL = time.Duration(secs) * time.Second
		}
	}
	if savedStr := fields[fieldSavedAt]; savedStr != "" {
		if ms, err := strconv.ParseInt(savedStr, 10, 64); err == nil {
			entry.SavedAt = time.UnixMilli(ms)
		}
	}

	return entry, nil
}

// decodeHeaders accepts both the multi-value form we write and the flat
// string map written by older writers sharing the same Redis.
func decodeHeaders(raw string) (http.Header, error) {
	if raw == "" {
		return http.Header{}, nil
	}

	var header http.Header
	if err := json.Unmarshal([]byte(raw), &header); err == nil {
		return header, nil
	}

	var flat map[string]string
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	header = make(http.Header, len(flat))
	for k, v := range flat {
		header.Add(k, v)
	}
	return header, nil
}

func decodeBody(raw string, encoding BodyEncoding) ([]byte, error) {
	switch encoding {
	case BodyEncodingBase64:
		body, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		return body, nil
	case BodyEncodingRaw, "":
		return []byte(raw), nil
	default:
		return nil, fmt.Errorf("unknown body encoding %q", encoding)
	}
}
