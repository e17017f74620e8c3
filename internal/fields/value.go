package fields

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dateLayout is the wire format for release dates.
const dateLayout = "2006-01-02"

// Value is the payload of one field item. It is a tagged union: the owning
// item's field type decides which members are meaningful, everything else
// stays zero and is omitted from the encoded form.
type Value struct {
	// Text carries the primary string payload: an other-title, a site URL,
	// or the body of an outline/summary/synopsis/review.
	Text string `json:"text,omitempty"`
	// Title is the review headline.
	Title string `json:"title,omitempty"`
	// Country is an ISO 3166-1 alpha-2 region code.
	Country string `json:"country,omitempty"`
	// Language is a BCP 47 language tag.
	Language string `json:"language,omitempty"`
	// Attribute qualifies an other-title (original, working, ...).
	Attribute string `json:"attribute,omitempty"`
	// Date is a release date in YYYY-MM-DD form.
	Date string `json:"date,omitempty"`
	// Amount is a monetary value in minor units (box office).
	Amount int64 `json:"amount,omitempty"`
	// Genre names one genre.
	Genre string `json:"genre,omitempty"`
	// Official marks a site as the official one.
	Official bool `json:"official,omitempty"`
	// Spoiler marks a review as containing spoilers.
	Spoiler bool `json:"spoiler,omitempty"`
}

// Encode serializes the value for storage.
func (v Value) Encode() (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(raw), nil
}

// DecodeValue parses a stored value payload.
func DecodeValue(raw string) (Value, error) {
	var v Value
	if strings.TrimSpace(raw) == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Value{}, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// Display returns a short human-readable rendering used by CLI tables.
func (v Value) Display(t Type) string {
	switch t {
	case TypeOtherTitle:
		parts := []string{v.Text}
		if v.Country != "" {
			parts = append(parts, v.Country)
		}
		if v.Attribute != "" {
			parts = append(parts, v.Attribute)
		}
		return strings.Join(parts, " / ")
	case TypeReleaseDate:
		if v.Country == "" {
			return v.Date
		}
		return v.Date + " / " + v.Country
	case TypeBoxOffice:
		return fmt.Sprintf("%d / %s", v.Amount, v.Country)
	case TypeSite:
		if v.Official {
			return v.Text + " (official)"
		}
		return v.Text
	case TypeCountry:
		return v.Country
	case TypeGenre:
		return v.Genre
	case TypeLanguage:
		return v.Language
	case TypeReview:
		if v.Title != "" {
			return v.Title
		}
		return truncate(v.Text, 60)
	default:
		return truncate(v.Text, 60)
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func validDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}
