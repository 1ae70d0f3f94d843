// Package entities defines the typed records ttsync extracts from the
// upstream catalog and reconciles into the store. Every non-key attribute
// is an optional value so the non-regression merge can tell an unobserved
// field from an observed empty one.
package entities

import "github.com/racketdata/ttsync/pkg/optional"

// Club is an organization. The club code is the natural key; the province
// is derivable from a prefix of the code and, once known, is never cleared
// by a later merge that supplies no province.
type Club struct {
	Code     string                 `json:"code"`
	Name     optional.Value[string] `json:"name"`
	Province optional.Value[string] `json:"province"`

	FullName  optional.Value[string] `json:"full_name"`
	Email     optional.Value[string] `json:"email"`
	Phone     optional.Value[string] `json:"phone"`
	Status    optional.Value[string] `json:"status"`
	Website   optional.Value[string] `json:"website"`
	HasShower optional.Value[bool]   `json:"has_shower"`

	VenueName    optional.Value[string] `json:"venue_name"`
	VenueAddress optional.Value[string] `json:"venue_address"`
	VenuePhone   optional.Value[string] `json:"venue_phone"`
	VenuePMR     optional.Value[bool]   `json:"venue_pmr"`
	VenueRemarks optional.Value[string] `json:"venue_remarks"`

	TeamsMen      optional.Value[int] `json:"teams_men"`
	TeamsWomen    optional.Value[int] `json:"teams_women"`
	TeamsYouth    optional.Value[int] `json:"teams_youth"`
	TeamsVeterans optional.Value[int] `json:"teams_veterans"`

	Label   optional.Value[string] `json:"label"`
	Palette optional.Value[string] `json:"palette"`
}
