package effective

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/blackcoderx/hopp/pkg/storage"
)

// AppendParams adds params to the query string of rawURL, keeping any query
// already present. If rawURL does not parse, it is returned unchanged along
// with false.
func AppendParams(rawURL string, params []storage.KeyValue) (string, bool) {
	if len(params) == 0 {
		return rawURL, true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, false
	}
	q := u.Query()
	for _, p := range params {
		q.Add(p.Key, p.Value)
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

// WireURL is FinalURL with FinalParams appended.
func (r *Request) WireURL() (string, bool) {
	return AppendParams(r.FinalURL, r.FinalParams)
}

// Encode serializes the body. The returned content type carries the
// multipart boundary when one is needed and is empty when there is no body.
func (b Body) Encode() (io.Reader, string, error) {
	switch {
	case b.ContentType == "":
		return nil, "", nil
	case b.IsMultipart():
		return encodeMultipart(b.Parts)
	case b.Binary != nil:
		return bytes.NewReader(b.Binary.Data), b.ContentType, nil
	default:
		return strings.NewReader(b.Text), b.ContentType, nil
	}
}

func encodeMultipart(parts []Part) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		if p.File == nil && p.ContentType == "" {
			if err := w.WriteField(p.Key, p.Value); err != nil {
				return nil, "", fmt.Errorf("failed to write form field %q: %w", p.Key, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(p.Key))
		if p.File != nil {
			disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(p.File.Name))
		}
		h.Set("Content-Disposition", disposition)
		ct := p.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form part %q: %w", p.Key, err)
		}
		data := []byte(p.Value)
		if p.File != nil {
			data = p.File.Data
		}
		if _, err := pw.Write(data); err != nil {
			return nil, "", fmt.Errorf("failed to write form part %q: %w", p.Key, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
