// Package marshal converts graphs of domain objects to and from text.
//
// Domain types embed Obj and are registered by rdf:type tag in a Registry.
// An Engine serializes a root object and everything reachable from it,
// writing each object exactly once, and parses text back into registered
// types. Types add fields by implementing FieldSerializer and
// StatementParser; anything they leave is kept in Obj.Properties.
//
// Objects flagged with AsReference, Sign, Encrypt, EncryptFor or
// EncryptAndNotarize travel out of band: the document holds a placeholder
// and the payload goes into a reference.Parts table keyed by identifier.
// On parse each placeholder becomes a *Ref. Readable payloads are resolved
// in place; encrypted ones wait for Ref.Decrypt.
package marshal
