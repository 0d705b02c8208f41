package marshal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/compliance"
	"xdao.co/graphwire/config"
	"xdao.co/graphwire/lists"
	"xdao.co/graphwire/metrics"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/storage"
)

// Engine converts object graphs to and from text. It is immutable once built
// and safe for concurrent use; every call works on its own graph, identity
// cache and part table.
type Engine struct {
	registry      *Registry
	format        codec.Format
	listEncoding  lists.Encoding
	preserveLists bool
	hashAlg       cidutil.Algorithm
	refPrefix     string
	mode          compliance.ComplianceMode
	notary        reference.Notary
	archive       storage.CAS
	logger        *zap.Logger
	metrics       *metrics.Collector
	newID         func() string
}

// Option configures an Engine.
type Option func(*Engine) error

// New builds an engine. Without options it writes Turtle, encodes lists as
// indexed, hashes with sha2-256 and parses permissively.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		registry:     NewRegistry(),
		format:       codec.FormatTurtle,
		listEncoding: lists.Indexed,
		hashAlg:      cidutil.SHA2_256,
		refPrefix:    "urn:uuid:",
		mode:         compliance.Permissive,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.newID == nil {
		prefix := e.refPrefix
		e.newID = func() string { return prefix + uuid.NewString() }
	}
	return e, nil
}

func WithRegistry(r *Registry) Option {
	return func(e *Engine) error {
		if r == nil {
			return fmt.Errorf("marshal: nil registry")
		}
		e.registry = r
		return nil
	}
}

func WithFormat(f codec.Format) Option {
	return func(e *Engine) error {
		if _, ok := codec.GetFormatInfo(f); !ok {
			return fmt.Errorf("marshal: unknown format %q", f)
		}
		e.format = f
		return nil
	}
}

// WithListEncoding sets the encoding used for lists that do not carry one.
func WithListEncoding(enc lists.Encoding) Option {
	return func(e *Engine) error {
		if enc == lists.Default {
			enc = lists.Indexed
		}
		e.listEncoding = enc
		return nil
	}
}

// WithPreserveListEncoding makes parsed lists re-serialize in the encoding
// they were read in.
func WithPreserveListEncoding(on bool) Option {
	return func(e *Engine) error {
		e.preserveLists = on
		return nil
	}
}

func WithHashAlgorithm(alg cidutil.Algorithm) Option {
	return func(e *Engine) error {
		if _, err := alg.Code(); err != nil {
			return err
		}
		e.hashAlg = alg
		return nil
	}
}

// WithReferencePrefix sets the prefix of generated reference identifiers.
func WithReferencePrefix(prefix string) Option {
	return func(e *Engine) error {
		if prefix == "" {
			return fmt.Errorf("marshal: empty reference prefix")
		}
		e.refPrefix = prefix
		return nil
	}
}

// WithIDGenerator replaces the identifier generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) error {
		e.newID = fn
		return nil
	}
}

func WithCompliance(m compliance.ComplianceMode) Option {
	return func(e *Engine) error {
		e.mode = m
		return nil
	}
}

// WithNotary sets the collaborator notarized references deposit with and
// fetch from.
func WithNotary(n reference.Notary) Option {
	return func(e *Engine) error {
		e.notary = n
		return nil
	}
}

// WithArchive copies every reference payload into cas on serialize, and
// consults it on parse when a part is absent.
func WithArchive(cas storage.CAS) Option {
	return func(e *Engine) error {
		e.archive = cas
		return nil
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) error {
		if l == nil {
			l = zap.NewNop()
		}
		e.logger = l
		return nil
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) error {
		e.metrics = c
		return nil
	}
}

// WithConfig applies the engine section of a configuration file.
func WithConfig(c config.Engine) Option {
	return func(e *Engine) error {
		if err := c.Validate(); err != nil {
			return err
		}
		f, _ := codec.Lookup(c.Format)
		enc, _ := lists.ParseEncoding(c.ListEncoding)
		alg, _ := cidutil.ParseAlgorithm(c.HashAlgorithm)
		mode, _ := compliance.Parse(c.Compliance)
		for _, opt := range []Option{
			WithFormat(f),
			WithListEncoding(enc),
			WithPreserveListEncoding(c.PreserveListEncoding),
			WithHashAlgorithm(alg),
			WithCompliance(mode),
		} {
			if err := opt(e); err != nil {
				return err
			}
		}
		if c.ReferencePrefix != "" {
			e.refPrefix = c.ReferencePrefix
		}
		return nil
	}
}

// Registry returns the class registry in use.
func (e *Engine) Registry() *Registry { return e.registry }

// Format returns the default text format.
func (e *Engine) Format() codec.Format { return e.format }

func (e *Engine) now() time.Time { return time.Now().UTC() }
