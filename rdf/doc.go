// Package rdf holds the in-memory triple store shared by the codecs and the
// marshalling engine: terms, a call-scoped Graph, Resource trees that flatten
// into it, typed Statement views and the structured error taxonomy.
package rdf
