package dispatch

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"path"
	"path/filepath"
	"strings"
)

const base64LineLen = 76

var crlf = strings.NewReplacer("\r\n", "\r\n", "\r", "\r\n", "\n", "\r\n")

// Build renders msg as a multipart/mixed RFC 5322 message with the attachment
// bytes base64-encoded. When withHTML is set the body is sent as a
// multipart/alternative pair of text/plain and escaped text/html.
func Build(msg Message, attachment []byte, withHTML bool) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if withHTML {
		if err := writeAlternative(mixed, msg.Body); err != nil {
			return nil, err
		}
	} else {
		if err := writeTextPart(mixed, "text/plain", msg.Body); err != nil {
			return nil, err
		}
	}

	name := attachmentName(msg.Attachment)
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType(contentType(name), map[string]string{"name": name}))
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	header.Set("Content-Transfer-Encoding", "base64")
	part, err := mixed.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if err := writeBase64(part, attachment); err != nil {
		return nil, err
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode returns raw as the base64url string the mail API expects.
func Encode(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

// HTMLBody escapes a plain-text letter and maps blank lines to paragraphs and
// single newlines to line breaks.
func HTMLBody(body string) string {
	escaped := html.EscapeString(body)
	escaped = strings.ReplaceAll(escaped, "\n\n", "</p><p>")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<html><body><p>" + escaped + "</p></body></html>"
}

func writeAlternative(mixed *multipart.Writer, body string) error {
	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if err := writeTextPart(altWriter, "text/plain", body); err != nil {
		return err
	}
	if err := writeTextPart(altWriter, "text/html", HTMLBody(body)); err != nil {
		return err
	}
	if err := altWriter.Close(); err != nil {
		return err
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": altWriter.Boundary()}))
	part, err := mixed.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(alt.Bytes())
	return err
}

func writeTextPart(w *multipart.Writer, mediaType, body string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType(mediaType, map[string]string{"charset": "utf-8"}))
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(crlf.Replace(body))); err != nil {
		return err
	}
	return qp.Close()
}

func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > base64LineLen {
		if _, err := io.WriteString(w, encoded[:base64LineLen]+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[base64LineLen:]
	}
	_, err := io.WriteString(w, encoded)
	return err
}

func attachmentName(a Attachment) string {
	if name := strings.TrimSpace(a.FileName); name != "" {
		return name
	}
	return path.Base(filepath.ToSlash(a.Path))
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}
