package nuget

import "github.com/c360studio/semstreams/vocabulary"

// Package predicates in semstreams dotted notation.
const (
	// PackageID is the package identifier, the first half of the root key.
	PackageID = "nuget.package.id"

	// PackageVersion is the package version, the second half of the root key.
	PackageVersion = "nuget.package.version"

	PackageTitle       = "nuget.package.title"
	PackageDescription = "nuget.package.description"
	PackageSummary     = "nuget.package.summary"

	// PackageRequiresLicenseAcceptance is a boolean flag.
	PackageRequiresLicenseAcceptance = "nuget.package.requires_license_acceptance"

	// PackageLicenseURI is the license location (an IRI, not a literal).
	PackageLicenseURI = "nuget.package.license_uri"
)

// Dependency predicates.
const (
	// PackageDependencyGroups links a package to its dependency groups.
	// Domain: ClassPackage, Range: ClassDependencyGroup
	PackageDependencyGroups = "nuget.package.dependency_groups"

	// GroupTargetFramework is the framework moniker a group applies to.
	GroupTargetFramework = "nuget.group.target_framework"

	// GroupDependencies links a dependency group to its dependencies.
	// Domain: ClassDependencyGroup, Range: ClassDependency
	GroupDependencies = "nuget.group.dependencies"

	DependencyID    = "nuget.dependency.id"
	DependencyRange = "nuget.dependency.range"
)

// Serialization predicates.
const (
	// SerializationType is the runtime type marker attached to every record.
	SerializationType = "nuget.serialization.type"
)

// PredicateIRIMap maps dotted predicates to schema IRIs.
var PredicateIRIMap = map[string]string{
	PackageID:                        PropID,
	PackageVersion:                   PropVersion,
	PackageTitle:                     PropTitle,
	PackageDescription:               PropDescription,
	PackageSummary:                   PropSummary,
	PackageRequiresLicenseAcceptance: PropRequiresLicenseAcceptance,
	PackageLicenseURI:                PropLicenseURI,
	PackageDependencyGroups:          PropDependencyGroups,
	GroupTargetFramework:             PropTargetFramework,
	GroupDependencies:                PropDependencies,
	DependencyRange:                  PropRange,
	SerializationType:                PropSerializationType,
}

// DependencyID shares its IRI with PackageID, so the reverse map prefers the
// package predicate.
var iriPredicateMap = func() map[string]string {
	m := make(map[string]string, len(PredicateIRIMap))
	for pred, iri := range PredicateIRIMap {
		m[iri] = pred
	}
	return m
}()

// GetPredicateIRI returns the schema IRI for a dotted predicate, falling back
// to the schema namespace for unmapped predicates.
func GetPredicateIRI(predicate string) string {
	if iri, ok := PredicateIRIMap[predicate]; ok {
		return iri
	}
	if predicate == DependencyID {
		return PropID
	}
	return Namespace + predicate
}

// PredicateForIRI returns the dotted predicate registered for an IRI.
func PredicateForIRI(iri string) (string, bool) {
	pred, ok := iriPredicateMap[iri]
	return pred, ok
}

func init() {
	vocabulary.Register(PackageID,
		vocabulary.WithDescription("Package identifier"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropID))

	vocabulary.Register(PackageVersion,
		vocabulary.WithDescription("Package version"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropVersion))

	vocabulary.Register(PackageTitle,
		vocabulary.WithDescription("Human readable package title"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropTitle))

	vocabulary.Register(PackageDescription,
		vocabulary.WithDescription("Long package description"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropDescription))

	vocabulary.Register(PackageSummary,
		vocabulary.WithDescription("Short package summary"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropSummary))

	vocabulary.Register(PackageRequiresLicenseAcceptance,
		vocabulary.WithDescription("Whether installing requires accepting the license"),
		vocabulary.WithDataType("bool"),
		vocabulary.WithIRI(PropRequiresLicenseAcceptance))

	vocabulary.Register(PackageLicenseURI,
		vocabulary.WithDescription("License location"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropLicenseURI))

	vocabulary.Register(PackageDependencyGroups,
		vocabulary.WithDescription("Dependency groups declared by the package"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropDependencyGroups))

	vocabulary.Register(GroupTargetFramework,
		vocabulary.WithDescription("Target framework moniker of a dependency group"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropTargetFramework))

	vocabulary.Register(GroupDependencies,
		vocabulary.WithDescription("Dependencies in a dependency group"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropDependencies))

	vocabulary.Register(DependencyID,
		vocabulary.WithDescription("Identifier of the depended-on package"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropID))

	vocabulary.Register(DependencyRange,
		vocabulary.WithDescription("Accepted version range of a dependency"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropRange))

	vocabulary.Register(SerializationType,
		vocabulary.WithDescription("Runtime type name the record was serialized from"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropSerializationType))
}
