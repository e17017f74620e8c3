package fields

import (
	"strings"
)

// Type names one independently editable collection on a record.
type Type string

const (
	TypeOtherTitle  Type = "other_title"
	TypeReleaseDate Type = "release_date"
	TypeBoxOffice   Type = "box_office"
	TypeSite        Type = "site"
	TypeCountry     Type = "country"
	TypeGenre       Type = "genre"
	TypeLanguage    Type = "language"
	TypeOutline     Type = "outline"
	TypeSummary     Type = "summary"
	TypeSynopsis    Type = "synopsis"
	TypeReview      Type = "review"
)

var allTypes = []Type{
	TypeOtherTitle,
	TypeReleaseDate,
	TypeBoxOffice,
	TypeSite,
	TypeCountry,
	TypeGenre,
	TypeLanguage,
	TypeOutline,
	TypeSummary,
	TypeSynopsis,
	TypeReview,
}

var typeSet = func() map[Type]struct{} {
	set := make(map[Type]struct{}, len(allTypes))
	for _, t := range allTypes {
		set[t] = struct{}{}
	}
	return set
}()

// AllTypes returns the ordered list of known field types.
func AllTypes() []Type {
	cp := make([]Type, len(allTypes))
	copy(cp, allTypes)
	return cp
}

// ParseType converts a string into a known Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := typeSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// Valid reports whether the type is one of the known field types.
func (t Type) Valid() bool {
	_, ok := typeSet[t]
	return ok
}

func (t Type) String() string {
	return string(t)
}
