// Package envelope frames a main document and its side-channel parts as a
// MIME multipart/related message (RFC 2387).
//
// The main document always has the part id Main. Other ids are reference
// identifiers. A message with no side parts is written as the bare main
// document.
package envelope

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"xdao.co/graphwire/rdf"
)

// MainID is the reserved id of the main document.
const MainID = "Main"

var (
	ErrNoMain      = errors.New("envelope: no main part")
	ErrDuplicateID = errors.New("envelope: duplicate part id")
)

// Part is one framed document.
type Part struct {
	ID          string
	ContentType string
	Body        string
}

type Envelope struct {
	main     *Part
	parts    []Part
	ids      map[string]bool
	boundary string
}

func New() *Envelope {
	return &Envelope{ids: make(map[string]bool)}
}

// SetBoundary fixes the multipart boundary instead of drawing a random one.
func (e *Envelope) SetBoundary(b string) { e.boundary = b }

// AddMain sets the main document, replacing any earlier one.
func (e *Envelope) AddMain(text, contentType string) {
	e.main = &Part{ID: MainID, ContentType: contentType, Body: text}
}

// Add appends a side part.
func (e *Envelope) Add(id, text, contentType string) error {
	switch {
	case id == "":
		return rdf.NewError(rdf.KindRender, "GW-ENV-001", "empty part id")
	case id == MainID:
		return rdf.NewError(rdf.KindRender, "GW-ENV-002", "part id Main is reserved")
	case e.ids[id]:
		return rdf.WrapError(rdf.KindRender, "GW-ENV-003", "duplicate part id", ErrDuplicateID).About(id)
	}
	e.ids[id] = true
	e.parts = append(e.parts, Part{ID: id, ContentType: contentType, Body: text})
	return nil
}

// Parts returns the side parts in insertion order.
func (e *Envelope) Parts() []Part { return append([]Part(nil), e.parts...) }

// Encode returns the message body and the content type to send it with.
func (e *Envelope) Encode() (body, contentType string, err error) {
	if e.main == nil {
		return "", "", rdf.WrapError(rdf.KindRender, "GW-ENV-004", "envelope has no main part", ErrNoMain)
	}
	if len(e.parts) == 0 {
		return e.main.Body, e.main.ContentType, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if e.boundary != "" {
		if err := w.SetBoundary(e.boundary); err != nil {
			return "", "", rdf.WrapError(rdf.KindRender, "GW-ENV-005", "invalid boundary", err)
		}
	}
	for _, p := range append([]Part{*e.main}, e.parts...) {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", p.ContentType)
		h.Set("Content-ID", "<"+p.ID+">")
		h.Set("Content-Transfer-Encoding", "8bit")
		pw, err := w.CreatePart(h)
		if err != nil {
			return "", "", rdf.WrapError(rdf.KindRender, "GW-ENV-006", "cannot write part", err).About(p.ID)
		}
		if _, err := io.WriteString(pw, p.Body); err != nil {
			return "", "", rdf.WrapError(rdf.KindRender, "GW-ENV-006", "cannot write part", err).About(p.ID)
		}
	}
	if err := w.Close(); err != nil {
		return "", "", rdf.WrapError(rdf.KindRender, "GW-ENV-006", "cannot close message", err)
	}
	mainType, _, err := mime.ParseMediaType(e.main.ContentType)
	if err != nil {
		mainType = e.main.ContentType
	}
	contentType = mime.FormatMediaType("multipart/related", map[string]string{
		"boundary": w.Boundary(),
		"type":     mainType,
		"start":    "<" + MainID + ">",
	})
	return buf.String(), contentType, nil
}

// Message returns the encoded body preceded by its Content-Type header, the
// form Parse accepts with an empty content type.
func (e *Envelope) Message() (string, error) {
	body, ct, err := e.Encode()
	if err != nil {
		return "", err
	}
	return "Content-Type: " + ct + "\r\n\r\n" + body, nil
}

// Parse splits a message into its main document and side parts keyed by id.
// An empty contentType means body starts with its own MIME headers. Bodies
// with a non-multipart type are a single main document.
func Parse(body, contentType string) (Part, map[string]string, error) {
	if contentType == "" {
		tp := textproto.NewReader(bufio.NewReader(strings.NewReader(body)))
		h, err := tp.ReadMIMEHeader()
		if err != nil && !errors.Is(err, io.EOF) {
			return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-010", "cannot read message headers", err)
		}
		contentType = h.Get("Content-Type")
		rest, err := io.ReadAll(tp.R)
		if err != nil {
			return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-010", "cannot read message body", err)
		}
		body = string(rest)
	}
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-011", "invalid content type", err).About(contentType)
	}
	if !strings.HasPrefix(mt, "multipart/") {
		return Part{ID: MainID, ContentType: contentType, Body: body}, map[string]string{}, nil
	}
	boundary := params["boundary"]
	if boundary == "" {
		return Part{}, nil, rdf.NewError(rdf.KindParse, "GW-ENV-012", "multipart content type has no boundary")
	}
	start := trimID(params["start"])
	if start == "" {
		start = MainID
	}

	var (
		main  *Part
		first *Part
		parts = make(map[string]string)
	)
	r := multipart.NewReader(strings.NewReader(body), boundary)
	for {
		p, err := r.NextRawPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-013", "malformed multipart body", err)
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-013", "malformed multipart body", err)
		}
		part := Part{
			ID:          trimID(p.Header.Get("Content-ID")),
			ContentType: p.Header.Get("Content-Type"),
			Body:        string(data),
		}
		if first == nil {
			cp := part
			first = &cp
		}
		switch {
		case part.ID == start && main == nil:
			main = &part
		case part.ID == "":
			return Part{}, nil, rdf.NewError(rdf.KindParse, "GW-ENV-014", "part without Content-ID")
		default:
			if _, dup := parts[part.ID]; dup {
				return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-015", "duplicate part id", ErrDuplicateID).About(part.ID)
			}
			parts[part.ID] = part.Body
		}
	}
	if main == nil {
		// RFC 2387: without a start parameter the first part is the root.
		if first == nil || params["start"] != "" {
			return Part{}, nil, rdf.WrapError(rdf.KindParse, "GW-ENV-016", "message has no main part", ErrNoMain)
		}
		main = first
		delete(parts, first.ID)
	}
	main.ID = MainID
	return *main, parts, nil
}

func trimID(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "<"), ">")
}
