package reference

import (
	"errors"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/rdf"
)

// Hash returns the content identifier of a transported payload.
func Hash(payload string, alg cidutil.Algorithm) (string, error) {
	c, err := cidutil.CIDv1Raw([]byte(payload), alg)
	if err != nil {
		return "", rdf.WrapError(rdf.KindCrypto, "GW-REF-200", "cannot hash payload", err)
	}
	return c.String(), nil
}

// VerifyHash checks payload against the hash recorded on the placeholder.
// An empty hash is accepted.
func VerifyHash(want, payload string) error {
	if want == "" {
		return nil
	}
	if err := cidutil.Verify(want, []byte(payload)); err != nil {
		if errors.Is(err, cidutil.ErrMismatch) {
			return rdf.WrapError(rdf.KindCrypto, "GW-REF-201", "payload does not match its hash", err)
		}
		return rdf.WrapError(rdf.KindCrypto, "GW-REF-202", "invalid payload hash", err)
	}
	return nil
}
