// Package nuget provides the package-catalog vocabulary used by the default
// semgraph configuration: schema IRIs for packages, dependency groups and
// dependencies, the serialization type marker emitted by the flattener, and
// the runtime type names that map onto the schema classes.
//
// Import this package to auto-register predicates with the semstreams
// vocabulary registry:
//
//	import _ "github.com/c360studio/semgraph/vocabulary/nuget"
package nuget
