// Package instanceio reads and writes OCED instances as flat-table
// documents.
//
// A document has four tables: time (instant names, earliest first),
// objects, events and observes. Every record carries an explicit id;
// observes reference objects and events by id. Instants are written by
// name. Attribute values are encoded by their declared kind: integers as
// numbers, strings as strings, timestamps as instant names.
//
// Documents are JSON or YAML, chosen by file extension. Both are checked
// against an embedded JSON Schema before conversion, so structural problems
// surface as *FormatError and references to undeclared names as
// *model.SchemaError.
//
// Conversion is lossless: ToInstance(FromInstance(in)) has the same
// canonical form as in.
package instanceio
