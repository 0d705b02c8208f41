package marshal

import (
	"context"

	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/envelope"
	"xdao.co/graphwire/reference"
)

// EncodeMessage serializes obj and frames it with its reference payloads.
// A graph without references comes back as the bare document.
func (e *Engine) EncodeMessage(ctx context.Context, obj Object) (body, contentType string, err error) {
	text, parts, err := e.Serialize(ctx, obj)
	if err != nil {
		return "", "", err
	}
	ct := codec.ContentType(e.format)
	env := envelope.New()
	env.AddMain(text, ct)
	for _, p := range parts.Remaining() {
		if err := env.Add(p.ID, p.Payload, ct); err != nil {
			return "", "", err
		}
	}
	return env.Encode()
}

// DecodeMessage splits body and parses the main part with the others as
// its side channel. The main part's content type selects the format; the
// engine format is used when it names none.
func (e *Engine) DecodeMessage(ctx context.Context, body, contentType string) (Object, *Report, error) {
	main, parts, err := envelope.Parse(body, contentType)
	if err != nil {
		return nil, nil, err
	}
	format := e.format
	if f, ok := codec.FormatFor(main.ContentType); ok {
		format = f
	}
	return e.ParseAs(ctx, main.Body, format, reference.PartsFrom(parts))
}
