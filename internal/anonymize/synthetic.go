package anonymize

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Hint is the semantic kind of value the synthetic strategy should produce.
type Hint int

const (
	HintNone Hint = iota
	HintEmail
	HintPhone
	HintFirstName
	HintLastName
	HintFullName
	HintStreet
	HintCity
	HintState
	HintZip
	HintCountry
	HintBirthDate
	HintText
	HintInteger
	HintDate
)

var hintNames = map[Hint]string{
	HintNone:      "none",
	HintEmail:     "email",
	HintPhone:     "phone",
	HintFirstName: "first_name",
	HintLastName:  "last_name",
	HintFullName:  "full_name",
	HintStreet:    "street",
	HintCity:      "city",
	HintState:     "state",
	HintZip:       "zip",
	HintCountry:   "country",
	HintBirthDate: "birth_date",
	HintText:      "text",
	HintInteger:   "integer",
	HintDate:      "date",
}

func (h Hint) String() string {
	if s, ok := hintNames[h]; ok {
		return s
	}
	return "none"
}

// ParseHint maps a hint name back to a Hint.
func ParseHint(s string) (Hint, bool) {
	for h, name := range hintNames {
		if name == s {
			return h, true
		}
	}
	return HintNone, false
}

type keywordHint struct {
	hint  Hint
	anyOf []string // matches if the name contains any of these
	allOf []string // matches if the name contains all of these
}

func (k keywordHint) matches(s string) bool {
	if len(k.allOf) > 0 {
		for _, kw := range k.allOf {
			if !strings.Contains(s, kw) {
				return false
			}
		}
		return true
	}
	for _, kw := range k.anyOf {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// NameHints is checked against the lower-cased column name, in order.
var NameHints = []keywordHint{
	{hint: HintEmail, anyOf: []string{"email", "mail"}},
	{hint: HintPhone, anyOf: []string{"phone", "tel"}},
	{hint: HintFirstName, allOf: []string{"first", "name"}},
	{hint: HintLastName, allOf: []string{"last", "name"}},
	{hint: HintFullName, anyOf: []string{"name"}},
	{hint: HintStreet, anyOf: []string{"address", "street"}},
	{hint: HintCity, anyOf: []string{"city"}},
	{hint: HintState, anyOf: []string{"state"}},
	{hint: HintZip, anyOf: []string{"zip", "postal"}},
	{hint: HintCountry, anyOf: []string{"country"}},
	{hint: HintBirthDate, anyOf: []string{"birth", "dob"}},
}

// TypeHints is the fallback, checked against the lower-cased declared type
// when no name hint matched.
var TypeHints = []keywordHint{
	{hint: HintText, anyOf: []string{"char", "text"}},
	{hint: HintInteger, anyOf: []string{"int"}},
	{hint: HintDate, anyOf: []string{"date"}},
}

// DetectHint picks the hint for a column: name keywords first, then the
// declared type. HintNone means the value should pass through unchanged.
func DetectHint(columnName, dataType string) Hint {
	name := strings.ToLower(columnName)
	for _, k := range NameHints {
		if k.matches(name) {
			return k.hint
		}
	}

	typ := strings.ToLower(dataType)
	for _, k := range TypeHints {
		if k.matches(typ) {
			return k.hint
		}
	}
	return HintNone
}

// Generator produces a fresh value for a hint. ok is false when the generator
// has nothing for h.
type Generator interface {
	Generate(h Hint) (value any, ok bool)
}

// FakerGenerator produces realistic values with gofakeit. It is not safe for
// concurrent use; give each worker its own.
type FakerGenerator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

func NewFakerGenerator(seed uint64) *FakerGenerator {
	return &FakerGenerator{faker: gofakeit.New(seed), now: time.Now}
}

func (g *FakerGenerator) Generate(h Hint) (any, bool) {
	f := g.faker
	now := g.now()

	switch h {
	case HintEmail:
		return f.Email(), true
	case HintPhone:
		return f.Phone(), true
	case HintFirstName:
		return f.FirstName(), true
	case HintLastName:
		return f.LastName(), true
	case HintFullName:
		return f.Name(), true
	case HintStreet:
		return f.Street(), true
	case HintCity:
		return f.City(), true
	case HintState:
		return f.State(), true
	case HintZip:
		return f.Zip(), true
	case HintCountry:
		return f.Country(), true
	case HintBirthDate:
		// adults between 18 and 80
		return f.DateRange(now.AddDate(-80, 0, 0), now.AddDate(-18, 0, 0)), true
	case HintText:
		words := []string{f.LoremIpsumWord(), f.LoremIpsumWord(), f.LoremIpsumWord()}
		return strings.Join(words, " "), true
	case HintInteger:
		return f.IntRange(1, 100000), true
	case HintDate:
		return f.DateRange(now.AddDate(-1, 0, 0), now), true
	default:
		return nil, false
	}
}
