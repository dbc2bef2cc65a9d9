package nuget

// Namespace is the base IRI prefix for package schema terms.
const Namespace = "http://nuget.org/schema#"

// DefaultBaseAddress is the base address canonical package IRIs are minted under.
const DefaultBaseAddress = "http://tempuri.org/package"

// Class IRIs.
const (
	// ClassPackage is a published package version.
	ClassPackage = Namespace + "Package"

	// ClassDependencyGroup is a set of dependencies for one target framework.
	ClassDependencyGroup = Namespace + "DependencyGroup"

	// ClassDependency is a single dependency with a version range.
	ClassDependency = Namespace + "Dependency"
)

// Property IRIs.
const (
	PropID                        = Namespace + "id"
	PropVersion                   = Namespace + "version"
	PropTitle                     = Namespace + "title"
	PropDescription               = Namespace + "description"
	PropSummary                   = Namespace + "summary"
	PropRequiresLicenseAcceptance = Namespace + "requiresLicenseAcceptance"
	PropLicenseURI                = Namespace + "licenseUri"
	PropDependencyGroups          = Namespace + "dependencyGroups"
	PropTargetFramework           = Namespace + "targetFramework"
	PropDependencies              = Namespace + "dependencies"
	PropRange                     = Namespace + "range"

	// PropSerializationType marks a record with the runtime type name it was
	// serialized from.
	PropSerializationType = Namespace + "$type"
)

// Runtime type names written by the object serializer.
const (
	TypeNamePackage         = "Transformation.Package, Transformation"
	TypeNameDependencyGroup = "Transformation.DependencyGroup, Transformation"
	TypeNameDependency      = "Transformation.Dependency, Transformation"
)

// ClassForTypeName maps serializer type names to schema classes.
var ClassForTypeName = map[string]string{
	TypeNamePackage:         ClassPackage,
	TypeNameDependencyGroup: ClassDependencyGroup,
	TypeNameDependency:      ClassDependency,
}
