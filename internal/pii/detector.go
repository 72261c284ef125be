package pii

import (
	"fmt"
	"regexp"
	"strings"

	"dbmask/internal/schema"

	"github.com/samber/lo"
)

// Rule pairs a PII type with the column-name patterns that identify it.
type Rule struct {
	Type     Type
	Patterns []*regexp.Regexp
}

func patterns(exprs ...string) []*regexp.Regexp {
	return lo.Map(exprs, func(e string, _ int) *regexp.Regexp {
		return regexp.MustCompile("(?i)" + e)
	})
}

// DefaultRules are evaluated in order and the first matching type wins, so the
// order resolves names that more than one type could claim.
var DefaultRules = []Rule{
	{Email, patterns(`^email$`, `^e_?mail$`, `^user_?email$`, `^contact_?email$`, `_email$`)},
	{Phone, patterns(`^phone$`, `^telephone$`, `^mobile$`, `^cell$`, `^tel$`, `_phone$`, `_tel$`)},
	{Name, patterns(`^name$`, `^full_?name$`, `^first_?name$`, `^last_?name$`, `^given_?name$`, `^surname$`, `^family_?name$`)},
	{Address, patterns(`^address$`, `^street$`, `^city$`, `^state$`, `^zip$`, `^postal_?code$`, `^country$`, `_address$`)},
	{SSN, patterns(`^ssn$`, `^social_?security$`, `^tax_?id$`, `^national_?id$`, `^dni$`, `^cuit$`, `^cuil$`)},
	{CreditCard, patterns(`^card_?number$`, `^credit_?card$`, `^cc_?number$`, `^payment_?card$`)},
	{DateOfBirth, patterns(`^dob$`, `^birth_?date$`, `^date_?of_?birth$`, `^birthday$`)},
	{IPAddress, patterns(`^ip$`, `^ip_?address$`, `^ipv4$`, `^ipv6$`)},
}

// Detector classifies columns from their name and declared type. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	rules []Rule
}

// NewDetector returns a Detector over rules, or DefaultRules when rules is nil.
func NewDetector(rules []Rule) *Detector {
	if rules == nil {
		rules = DefaultRules
	}
	return &Detector{rules: rules}
}

// Detect returns one Result per column, in input order.
func (d *Detector) Detect(columns []schema.ColumnInfo) []Result {
	return lo.Map(columns, func(c schema.ColumnInfo, _ int) Result {
		return d.DetectColumn(c)
	})
}

// DetectColumn runs the name-pattern stage, then the declared-type heuristics.
func (d *Detector) DetectColumn(column schema.ColumnInfo) Result {
	for _, rule := range d.rules {
		for _, p := range rule.Patterns {
			if p.MatchString(column.Name) {
				return result(column.Name, rule.Type, High, fmt.Sprintf("Column name matches %s pattern", rule.Type))
			}
		}
	}

	if r, ok := detectByDataType(column); ok {
		return r
	}

	return result(column.Name, None, High, "No PII patterns detected")
}

func detectByDataType(column schema.ColumnInfo) (Result, bool) {
	typ := strings.ToLower(column.Type)
	name := strings.ToLower(column.Name)

	if isCharacterType(typ) && column.MaxLength != nil && *column.MaxLength >= 50 && strings.Contains(name, "mail") {
		return result(column.Name, Email, Medium, "Text field with email-like name"), true
	}

	if strings.Contains(typ, "date") && strings.Contains(name, "birth") {
		return result(column.Name, DateOfBirth, High, "Date field with birth-related name"), true
	}

	return Result{}, false
}

// isCharacterType matches varchar, char, "character varying", text and friends.
func isCharacterType(typ string) bool {
	return strings.Contains(typ, "char") || strings.Contains(typ, "text")
}

func result(column string, t Type, c Confidence, reason string) Result {
	return Result{
		ColumnName:     column,
		DetectedType:   t,
		Classification: Classify(t),
		Confidence:     c,
		Reason:         reason,
	}
}
