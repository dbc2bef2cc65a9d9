package export

import "github.com/c360studio/semgraph/vocabulary/nuget"

// Profile determines which triples are included in the export.
type Profile string

const (
	// ProfileFull exports every triple.
	ProfileFull Profile = "full"

	// ProfileMinimal drops serializer bookkeeping such as runtime type markers.
	ProfileMinimal Profile = "minimal"
)

// ProfileConfig contains configuration for an export profile.
type ProfileConfig struct {
	// Name is the profile identifier.
	Name Profile

	// Description describes the profile.
	Description string

	// OmitPredicates lists predicate IRIs whose triples are not exported.
	OmitPredicates []string
}

// Profiles contains the configuration for all available export profiles.
var Profiles = map[Profile]ProfileConfig{
	ProfileFull: {
		Name:        ProfileFull,
		Description: "Every triple in the graph",
	},
	ProfileMinimal: {
		Name:           ProfileMinimal,
		Description:    "Graph without serializer type markers",
		OmitPredicates: []string{nuget.PropSerializationType},
	},
}

// GetProfileConfig returns the configuration for a profile, falling back to
// ProfileFull.
func GetProfileConfig(profile Profile) ProfileConfig {
	if config, ok := Profiles[profile]; ok {
		return config
	}
	return Profiles[ProfileFull]
}
