package fields

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"popcorn/internal/faults"
)

// PermissionAll grants the holder every field permission.
const PermissionAll = "all"

// Policy is the per-field capability object: the permission a contributor
// must hold, the uniqueness rule applied to accepted items, and the shape
// check run on every proposed value.
type Policy struct {
	// Permission is the field-specific permission name. PermissionAll
	// always satisfies it.
	Permission string
	// UniquenessKey reduces a value to the comparable key used for the
	// field's uniqueness rule. ok is false when the field has no
	// uniqueness rule (free-text fields).
	UniquenessKey func(Value) (key string, ok bool)
	// Validate rejects malformed payloads before anything is staged.
	Validate func(Value) error
}

var policies = map[Type]Policy{
	TypeOtherTitle: {
		Permission: string(TypeOtherTitle),
		UniquenessKey: func(v Value) (string, bool) {
			return strings.ToLower(v.Text) + "|" + v.Country, true
		},
		Validate: func(v Value) error {
			if strings.TrimSpace(v.Text) == "" {
				return invalid("other_title", "title must not be empty")
			}
			if err := checkRegion(v.Country); err != nil {
				return err
			}
			return checkTitleAttribute(v.Attribute)
		},
	},
	TypeReleaseDate: {
		Permission: string(TypeReleaseDate),
		UniquenessKey: func(v Value) (string, bool) {
			return v.Date + "|" + v.Country, true
		},
		Validate: func(v Value) error {
			if !validDate(v.Date) {
				return invalid("release_date", "date must be YYYY-MM-DD")
			}
			return checkRegion(v.Country)
		},
	},
	TypeBoxOffice: {
		Permission: string(TypeBoxOffice),
		UniquenessKey: func(v Value) (string, bool) {
			// One box-office figure per country.
			return v.Country, true
		},
		Validate: func(v Value) error {
			if v.Amount <= 0 {
				return invalid("box_office", "amount must be positive")
			}
			return checkRegion(v.Country)
		},
	},
	TypeSite: {
		Permission: string(TypeSite),
		UniquenessKey: func(v Value) (string, bool) {
			return strings.ToLower(v.Text) + "|" + officialKey(v.Official), true
		},
		Validate: func(v Value) error {
			url := strings.TrimSpace(v.Text)
			if url == "" {
				return invalid("site", "url must not be empty")
			}
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return invalid("site", "url must start with http:// or https://")
			}
			return nil
		},
	},
	TypeCountry: {
		Permission: string(TypeCountry),
		UniquenessKey: func(v Value) (string, bool) {
			return v.Country, true
		},
		Validate: func(v Value) error {
			return checkRegion(v.Country)
		},
	},
	TypeGenre: {
		Permission: string(TypeGenre),
		UniquenessKey: func(v Value) (string, bool) {
			return strings.ToLower(v.Genre), true
		},
		Validate: func(v Value) error {
			if _, ok := genreSet[strings.ToLower(strings.TrimSpace(v.Genre))]; !ok {
				return invalid("genre", fmt.Sprintf("unknown genre %q", v.Genre))
			}
			return nil
		},
	},
	TypeLanguage: {
		Permission: string(TypeLanguage),
		UniquenessKey: func(v Value) (string, bool) {
			return strings.ToLower(v.Language), true
		},
		Validate: func(v Value) error {
			return checkLanguage(v.Language)
		},
	},
	TypeOutline: {
		Permission:    string(TypeOutline),
		UniquenessKey: noUniqueness,
		Validate:      requireText("outline", 0),
	},
	TypeSummary: {
		Permission:    string(TypeSummary),
		UniquenessKey: noUniqueness,
		Validate:      requireText("summary", 0),
	},
	TypeSynopsis: {
		Permission:    string(TypeSynopsis),
		UniquenessKey: noUniqueness,
		Validate:      requireText("synopsis", 0),
	},
	TypeReview: {
		Permission:    string(TypeReview),
		UniquenessKey: noUniqueness,
		Validate: func(v Value) error {
			if strings.TrimSpace(v.Title) == "" {
				return invalid("review", "title must not be empty")
			}
			if strings.TrimSpace(v.Text) == "" {
				return invalid("review", "review body must not be empty")
			}
			return nil
		},
	},
}

// PolicyFor returns the capability object for a field type.
func PolicyFor(t Type) (Policy, bool) {
	policy, ok := policies[t]
	return policy, ok
}

// titleAttributes qualifies how an other-title relates to the primary title.
var titleAttributes = map[string]struct{}{
	"":                  {},
	"original_title":    {},
	"working_title":     {},
	"alternative_title": {},
}

var genreSet = map[string]struct{}{
	"action": {}, "adventure": {}, "animation": {}, "biography": {},
	"comedy": {}, "crime": {}, "documentary": {}, "drama": {},
	"family": {}, "fantasy": {}, "history": {}, "horror": {},
	"music": {}, "mystery": {}, "romance": {}, "sci_fi": {},
	"sport": {}, "thriller": {}, "war": {}, "western": {},
}

func noUniqueness(Value) (string, bool) { return "", false }

func officialKey(official bool) string {
	if official {
		return "official"
	}
	return "unofficial"
}

func requireText(field string, _ int) func(Value) error {
	return func(v Value) error {
		if strings.TrimSpace(v.Text) == "" {
			return invalid(field, "text must not be empty")
		}
		return nil
	}
}

func checkRegion(code string) error {
	if strings.TrimSpace(code) == "" {
		return invalid("country", "country code is required")
	}
	if _, err := language.ParseRegion(code); err != nil {
		return faults.Wrap(faults.ErrInvalidArgument, "fields", "country", fmt.Sprintf("unknown country code %q", code), err)
	}
	return nil
}

func checkLanguage(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return invalid("language", "language tag is required")
	}
	if _, err := language.Parse(tag); err != nil {
		return faults.Wrap(faults.ErrInvalidArgument, "fields", "language", fmt.Sprintf("unknown language tag %q", tag), err)
	}
	return nil
}

func checkTitleAttribute(attribute string) error {
	if _, ok := titleAttributes[strings.ToLower(strings.TrimSpace(attribute))]; !ok {
		return invalid("other_title", fmt.Sprintf("unknown title attribute %q", attribute))
	}
	return nil
}

func invalid(field, message string) error {
	return faults.Wrap(faults.ErrInvalidArgument, "fields", field, message, nil)
}
