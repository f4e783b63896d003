package features

// Feature names a single signal in a feature vector
type Feature string

// The closed set of features, in declaration order. Declaration order is used
// to break ties wherever features are ranked.
const (
	HasIPAddress         Feature = "hasIPAddress"
	URLLength            Feature = "urlLength"
	HasAtSymbol          Feature = "hasAtSymbol"
	HasManySubdomains    Feature = "hasManySubdomains"
	HasSuspiciousTLD     Feature = "hasSuspiciousTLD"
	HasHyphens           Feature = "hasHyphens"
	HasPasswordField     Feature = "hasPasswordField"
	HasSensitiveKeywords Feature = "hasSensitiveKeywords"
	MismatchedFormAction Feature = "mismatchedFormAction"
	IsNotHTTPS           Feature = "isNotHttps"
	HasCertificateIssues Feature = "hasCertificateIssues"
)

// Version identifies the feature set emitted by Extractor
const Version = "v1"

var declared = []Feature{
	HasIPAddress,
	URLLength,
	HasAtSymbol,
	HasManySubdomains,
	HasSuspiciousTLD,
	HasHyphens,
	HasPasswordField,
	HasSensitiveKeywords,
	MismatchedFormAction,
	IsNotHTTPS,
	HasCertificateIssues,
}

var declaredIndex = func() map[Feature]int {
	idx := make(map[Feature]int, len(declared))
	for i, f := range declared {
		idx[f] = i
	}
	return idx
}()

// All returns every feature in declaration order
func All() []Feature {
	out := make([]Feature, len(declared))
	copy(out, declared)
	return out
}

// Order returns the declaration index of a feature, or -1 if it is unknown
func Order(f Feature) int {
	if i, ok := declaredIndex[f]; ok {
		return i
	}
	return -1
}

// Known reports whether f belongs to the declared feature set
func Known(f Feature) bool {
	_, ok := declaredIndex[f]
	return ok
}

// Vector maps every declared feature to a value in [0,1]
type Vector map[Feature]float64

// NewVector returns a vector with every declared feature set to zero
func NewVector() Vector {
	v := make(Vector, len(declared))
	for _, f := range declared {
		v[f] = 0
	}
	return v
}

// Get returns the value of a feature, zero when absent
func (v Vector) Get(f Feature) float64 {
	return v[f]
}

// ContentSignals are the page-level signals gathered for an address.
// A nil *ContentSignals means no content could be retrieved.
type ContentSignals struct {
	HasPasswordField     bool   `json:"hasPasswordField"`
	HasSensitiveKeywords bool   `json:"hasSensitiveKeywords"`
	FormActionAddress    string `json:"formActionAddress,omitempty"`
	IsSecureScheme       bool   `json:"isSecureScheme"`
	HasCertificateIssues bool   `json:"hasCertificateIssues"`
}
