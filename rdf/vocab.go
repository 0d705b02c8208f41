package rdf

import "strings"

const (
	NSRDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS     = "http://www.w3.org/2000/01/rdf-schema#"
	NSXSD      = "http://www.w3.org/2001/XMLSchema#"
	NSOWL      = "http://www.w3.org/2002/07/owl#"
	NSSmartAPI = "http://smart-api.io/ontology/1.0/smartapi#"
)

// Core RDF vocabulary.
const (
	RDFType     = NSRDF + "type"
	RDFFirst    = NSRDF + "first"
	RDFRest     = NSRDF + "rest"
	RDFNil      = NSRDF + "nil"
	RDFValue    = NSRDF + "value"
	RDFSLabel   = NSRDFS + "label"
	RDFSComment = NSRDFS + "comment"
	OWLSameAs   = NSOWL + "sameAs"
)

// XML Schema datatypes used for scalar literals.
const (
	XSDString   = NSXSD + "string"
	XSDInteger  = NSXSD + "integer"
	XSDInt      = NSXSD + "int"
	XSDLong     = NSXSD + "long"
	XSDShort    = NSXSD + "short"
	XSDDecimal  = NSXSD + "decimal"
	XSDDouble   = NSXSD + "double"
	XSDFloat    = NSXSD + "float"
	XSDBoolean  = NSXSD + "boolean"
	XSDDate     = NSXSD + "date"
	XSDTime     = NSXSD + "time"
	XSDDateTime = NSXSD + "dateTime"
	XSDDuration = NSXSD + "duration"
	XSDAnyURI   = NSXSD + "anyURI"
)

// SmartAPI vocabulary for lists, maps and references.
const (
	SmartSize         = NSSmartAPI + "size"
	SmartArray        = NSSmartAPI + "array"
	SmartIndexedArray = NSSmartAPI + "indexedArray"
	SmartRawArray     = NSSmartAPI + "rawArray"
	SmartEntry        = NSSmartAPI + "entry"
	SmartIndex        = NSSmartAPI + "index"
	SmartKey          = NSSmartAPI + "key"
	SmartMap          = NSSmartAPI + "Map"
	SmartVariant      = NSSmartAPI + "Variant"
	SmartNull         = NSSmartAPI + "null"

	SmartGeneratedAt       = NSSmartAPI + "generatedAt"
	SmartGeneratedBy       = NSSmartAPI + "generatedBy"
	SmartHashCode          = NSSmartAPI + "hashCode"
	SmartSignature         = NSSmartAPI + "signature"
	SmartSessionKey        = NSSmartAPI + "sessionKey"
	SmartEncryptionKeyType = NSSmartAPI + "encryptionKeyType"
	SmartNotary            = NSSmartAPI + "notary"

	SmartReference          = NSSmartAPI + "Reference"
	SmartEncryptedReference = NSSmartAPI + "EncryptedReference"
	SmartMultipartReference = NSSmartAPI + "MultipartReference"

	SmartSymmetricKey        = NSSmartAPI + "SymmetricKey"
	SmartPublicKey           = NSSmartAPI + "PublicKey"
	SmartNotarizedSessionKey = NSSmartAPI + "NotarizedSessionKey"
)

// Prefixes is an ordered prefix table.
type Prefixes struct {
	names []string
	ns    map[string]string
}

// DefaultPrefixes returns the prefixes every writer declares.
func DefaultPrefixes() *Prefixes {
	p := &Prefixes{}
	p.Set("rdf", NSRDF)
	p.Set("rdfs", NSRDFS)
	p.Set("xsd", NSXSD)
	p.Set("owl", NSOWL)
	p.Set("smartapi", NSSmartAPI)
	return p
}

// Set binds prefix to namespace, replacing any previous binding.
func (p *Prefixes) Set(prefix, namespace string) {
	if p.ns == nil {
		p.ns = make(map[string]string)
	}
	if _, ok := p.ns[prefix]; !ok {
		p.names = append(p.names, prefix)
	}
	p.ns[prefix] = namespace
}

// Namespace returns the namespace bound to prefix.
func (p *Prefixes) Namespace(prefix string) (string, bool) {
	if p == nil {
		return "", false
	}
	ns, ok := p.ns[prefix]
	return ns, ok
}

// Names returns the bound prefixes in declaration order.
func (p *Prefixes) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Compact returns prefix:local for iri when a declared namespace covers it
// and the local part is a safe prefixed-name local.
func (p *Prefixes) Compact(iri string) (string, bool) {
	if p == nil {
		return "", false
	}
	best, bestNS := "", ""
	for _, name := range p.names {
		ns := p.ns[name]
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			best, bestNS = name, ns
		}
	}
	if bestNS == "" {
		return "", false
	}
	local := iri[len(bestNS):]
	if !IsSafeLocal(local) {
		return "", false
	}
	return best + ":" + local, true
}

// Expand resolves a prefix:local name.
func (p *Prefixes) Expand(pname string) (string, bool) {
	prefix, local, ok := strings.Cut(pname, ":")
	if !ok {
		return "", false
	}
	ns, ok := p.Namespace(prefix)
	if !ok {
		return "", false
	}
	return ns + local, true
}

// IsSafeLocal reports whether local can be written unescaped after a prefix.
func IsSafeLocal(local string) bool {
	if local == "" {
		return true
	}
	for i, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '-':
			if i == 0 && r == '-' {
				return false
			}
		case r == '.':
			if i == 0 || i == len(local)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// SplitIRI splits an IRI into a namespace and a local name at the last '#',
// '/' or ':' such that the local name is a valid XML NCName start.
func SplitIRI(iri string) (ns, local string) {
	i := strings.LastIndexAny(iri, "#/:")
	if i < 0 || i == len(iri)-1 {
		return iri, ""
	}
	ns, local = iri[:i+1], iri[i+1:]
	for i, r := range local {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i > 0 {
			ok = ok || r == '-' || r == '.' || (r >= '0' && r <= '9')
		}
		if !ok {
			return iri, ""
		}
	}
	return ns, local
}
