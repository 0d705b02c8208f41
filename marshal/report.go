package marshal

import "xdao.co/graphwire/rdf"

// Report collects what a parse could not do cleanly. Ids are reference
// identifiers in the order they were met.
type Report struct {
	Diagnostics rdf.Diagnostics
	// Missing lists references with no part and no archived copy.
	Missing []string
	// Unconsumed lists parts no placeholder asked for.
	Unconsumed []string
	// Encrypted lists references waiting for Ref.Decrypt.
	Encrypted []string
	// Failed lists references whose payload could not be verified or opened.
	Failed []string
}

// Clean reports whether the parse met no problem at all.
func (r *Report) Clean() bool {
	return r == nil || (len(r.Diagnostics) == 0 && len(r.Missing) == 0 && len(r.Failed) == 0)
}

// Err returns the diagnostics as one error, or nil.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	return r.Diagnostics.Err()
}
