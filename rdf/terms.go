package rdf

// Well-known IRIs used across the module.
const (
	// RDFNamespace is the RDF syntax namespace.
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// XSDNamespace is the XML Schema datatype namespace.
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	// TypeIRI is rdf:type.
	TypeIRI = RDFNamespace + "type"

	XSDString  = XSDNamespace + "string"
	XSDBoolean = XSDNamespace + "boolean"
	XSDInteger = XSDNamespace + "integer"
	XSDDecimal = XSDNamespace + "decimal"
	XSDDouble  = XSDNamespace + "double"
	XSDAnyURI  = XSDNamespace + "anyURI"
)

// Type is rdf:type as a node.
var Type = NamedNode(TypeIRI)
