package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/compliance"
	"xdao.co/graphwire/envelope"
	"xdao.co/graphwire/keys"
	"xdao.co/graphwire/marshal"
	"xdao.co/graphwire/notary"
	"xdao.co/graphwire/storage/archive"
	"xdao.co/graphwire/storage/grpccas"
	"xdao.co/graphwire/variant"
)

// engine builds a marshal engine from the loaded config. The returned func
// releases collaborator connections.
func (a *app) engine(extra ...marshal.Option) (*marshal.Engine, func(), error) {
	var closers []func() error
	release := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	opts := []marshal.Option{marshal.WithConfig(a.cfg.Engine), marshal.WithLogger(a.logger)}

	cas, closeArchive, err := archive.Open(a.cfg.Archive, grpccas.DialOptions{Timeout: a.cfg.Notary.Timeout})
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeArchive)
	if cas != nil {
		opts = append(opts, marshal.WithArchive(cas))
	}
	if a.cfg.Notary.Address != "" {
		nc, err := notary.Dial(a.cfg.Notary.Address, a.cfg.Notary.Timeout)
		if err != nil {
			release()
			return nil, nil, err
		}
		closers = append(closers, nc.Close)
		opts = append(opts, marshal.WithNotary(nc))
	}

	e, err := marshal.New(append(opts, extra...)...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return e, release, nil
}

func parseFormat(flag, name string) (codec.Format, error) {
	f, ok := codec.Lookup(name)
	if !ok {
		names := make([]string, 0, len(codec.Formats()))
		for _, f := range codec.Formats() {
			names = append(names, string(f))
		}
		return "", usagef("--%s: unknown format %q (want one of %s)", flag, name, strings.Join(names, ", "))
	}
	return f, nil
}

// decode parses text as a bare document, or as a MIME message carrying its
// own headers when message is set.
func decode(ctx context.Context, e *marshal.Engine, text string, format codec.Format, message bool) (marshal.Object, *marshal.Report, error) {
	if message {
		return e.DecodeMessage(ctx, text, "")
	}
	return e.ParseAs(ctx, text, format, nil)
}

func (a *app) convertCmd() *cobra.Command {
	var from, to string
	var message bool
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Re-serialize a document in another format",
		Long: `Parses a document and writes it in the --to format. Reference payloads
are re-emitted; when there are any the output is a multipart message.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseFormat("from", from)
			if err != nil {
				return err
			}
			dst, err := parseFormat("to", to)
			if err != nil {
				return err
			}
			text, err := a.readInput(args)
			if err != nil {
				return err
			}
			e, release, err := a.engine()
			if err != nil {
				return err
			}
			defer release()

			ctx := cmd.Context()
			obj, report, err := decode(ctx, e, text, src, message)
			if err != nil {
				return err
			}
			if obj == nil {
				return fmt.Errorf("nothing to convert: %v", report.Err())
			}
			out, parts, err := e.SerializeAs(ctx, obj, dst)
			if err != nil {
				return err
			}
			if parts.Len() == 0 {
				_, err = fmt.Fprint(a.out, out)
				return err
			}
			env := envelope.New()
			env.AddMain(out, codec.ContentType(dst))
			for _, p := range parts.Remaining() {
				if err := env.Add(p.ID, p.Payload, codec.ContentType(dst)); err != nil {
					return err
				}
			}
			msg, err := env.Message()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, msg)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", string(codec.FormatTurtle), "Input format")
	cmd.Flags().StringVar(&to, "to", string(codec.FormatNTriples), "Output format")
	cmd.Flags().BoolVar(&message, "message", false, "Input is a MIME message with headers")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	var format, as string
	var message, strict bool
	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Parse a document and report what was found",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat("format", format)
			if err != nil {
				return err
			}
			text, err := a.readInput(args)
			if err != nil {
				return err
			}
			var extra []marshal.Option
			if strict {
				extra = append(extra, marshal.WithCompliance(compliance.Strict))
			}
			e, release, err := a.engine(extra...)
			if err != nil {
				return err
			}
			defer release()

			obj, report, perr := decode(cmd.Context(), e, text, f, message)
			if report == nil {
				return perr
			}
			a.printReport(obj, report)
			if as != "" && obj != nil {
				if err := checkName("as", as); err != nil {
					return err
				}
				id, err := a.identity(as)
				if err != nil {
					return fmt.Errorf("open identity %s: %w", as, err)
				}
				a.decryptAll(cmd.Context(), obj, id)
			}
			return perr
		},
	}
	cmd.Flags().StringVar(&format, "format", string(codec.FormatTurtle), "Input format")
	cmd.Flags().BoolVar(&message, "message", false, "Input is a MIME message with headers")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on the first diagnostic")
	cmd.Flags().StringVar(&as, "as", "", "Open encrypted references with this stored identity")
	return cmd
}

// decryptAll opens every encrypted reference reachable from obj with the
// keys id issues for it.
func (a *app) decryptAll(ctx context.Context, obj marshal.Object, id *keys.Identity) {
	for _, ref := range encryptedRefs(obj) {
		mat, err := id.Issue(ref.KeyType, ref.ID)
		if err != nil {
			fmt.Fprintf(a.out, "undecryptable: %s: %v\n", ref.ID, err)
			continue
		}
		k := marshal.Keys{Encryption: mat.Encryption}
		if ref.SessionKey == "" {
			k.Symmetric = mat.SessionKey
		}
		target, err := ref.Decrypt(ctx, k)
		if err != nil {
			fmt.Fprintf(a.out, "undecryptable: %s: %v\n", ref.ID, err)
			continue
		}
		fmt.Fprintf(a.out, "decrypted: %s %s\n", ref.ID, strings.Join(target.Base().Types, " "))
	}
}

func encryptedRefs(root marshal.Object) []*marshal.Ref {
	var out []*marshal.Ref
	seen := make(map[marshal.Object]bool)
	var visit func(o marshal.Object)
	var visitValue func(v variant.Variant)
	visit = func(o marshal.Object) {
		if o == nil || seen[o] {
			return
		}
		seen[o] = true
		if ref, ok := o.(*marshal.Ref); ok && ref.State() == marshal.RefEncrypted {
			out = append(out, ref)
			return
		}
		b := o.Base()
		for _, p := range b.Predicates() {
			for _, v := range b.Properties[p] {
				visitValue(v)
			}
		}
	}
	visitValue = func(v variant.Variant) {
		if x, ok := v.Object(); ok {
			if o, ok := x.(marshal.Object); ok {
				visit(o)
			}
		}
		if in, ok := v.Nested(); ok {
			visitValue(in)
		}
		if m, ok := v.Map(); ok {
			for _, k := range v.Keys() {
				visitValue(m[k])
			}
		}
		if l, ok := v.List(); ok {
			for _, it := range l.Items {
				visitValue(it)
			}
		}
	}
	visit(root)
	return out
}

func (a *app) printReport(obj marshal.Object, r *marshal.Report) {
	if obj != nil {
		b := obj.Base()
		fmt.Fprintf(a.out, "subject: %s\n", orAnon(b.ID))
		if len(b.Types) > 0 {
			fmt.Fprintf(a.out, "types: %s\n", strings.Join(b.Types, " "))
		}
		if ref, ok := obj.(*marshal.Ref); ok {
			fmt.Fprintf(a.out, "reference: %s (%s)\n", ref.State(), ref.KeyType)
		}
	}
	list := func(label string, ids []string) {
		if len(ids) > 0 {
			fmt.Fprintf(a.out, "%s: %s\n", label, strings.Join(ids, " "))
		}
	}
	list("missing", r.Missing)
	list("encrypted", r.Encrypted)
	list("failed", r.Failed)
	list("unconsumed", r.Unconsumed)
	for _, d := range r.Diagnostics {
		fmt.Fprintf(a.out, "diagnostic: %s %s: %s\n", d.RuleID, d.Kind, d.Error())
	}
	if r.Clean() {
		fmt.Fprintln(a.out, "clean")
	}
}

func orAnon(id string) string {
	if id == "" {
		return "(anonymous)"
	}
	return id
}
