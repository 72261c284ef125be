package pii

// Type is the kind of personal data a column holds.
type Type string

const (
	Email       Type = "email"
	Phone       Type = "phone"
	Name        Type = "name"
	Address     Type = "address"
	SSN         Type = "ssn"
	CreditCard  Type = "credit_card"
	DateOfBirth Type = "date_of_birth"
	IPAddress   Type = "ip_address"
	None        Type = "none"
)

// Classification is the sensitivity class of a PII type.
type Classification string

const (
	DirectIdentifier   Classification = "direct_identifier"
	IndirectIdentifier Classification = "indirect_identifier"
	SensitiveData      Classification = "sensitive_data"
	NonSensitive       Classification = "non_sensitive"
)

type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// classifications is fixed. SensitiveData is part of the enumeration but no
// type maps to it.
var classifications = map[Type]Classification{
	Email:       DirectIdentifier,
	Phone:       DirectIdentifier,
	Name:        DirectIdentifier,
	SSN:         DirectIdentifier,
	CreditCard:  DirectIdentifier,
	DateOfBirth: IndirectIdentifier,
	Address:     IndirectIdentifier,
	IPAddress:   IndirectIdentifier,
	None:        NonSensitive,
}

// Classify returns the sensitivity class of t. Unknown types are non-sensitive.
func Classify(t Type) Classification {
	if c, ok := classifications[t]; ok {
		return c
	}
	return NonSensitive
}

// Result is the detection outcome for a single column.
type Result struct {
	ColumnName     string         `json:"columnName"`
	DetectedType   Type           `json:"detectedType"`
	Classification Classification `json:"classification"`
	Confidence     Confidence     `json:"confidence"`
	Reason         string         `json:"reason"`
}
