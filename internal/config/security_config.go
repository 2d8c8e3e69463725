package config

type SecurityConfig interface {
	GetFAPICompatibility() bool
	GetPARRateLimit() float64
	GetPARRateBurst() int
	GetTrustedSubjectHeader() string
}

type Security struct {
	FAPICompatibility bool    `env:"FAPI_COMPATIBILITY" envDefault:"false"`
	PARRateLimit      float64 `env:"PAR_RATE_LIMIT" envDefault:"10"`
	PARRateBurst      int     `env:"PAR_RATE_BURST" envDefault:"20"`

	TrustedSubjectHeader string `env:"TRUSTED_SUBJECT_HEADER"`
}

var _ SecurityConfig = Security{}

// GetFAPICompatibility hides error reasons from clients and drops a state that is not signed
func (s Security) GetFAPICompatibility() bool {
	return s.FAPICompatibility
}

// GetPARRateLimit is the sustained number of pushes per second allowed for one client
func (s Security) GetPARRateLimit() float64 {
	return s.PARRateLimit
}

func (s Security) GetPARRateBurst() int {
	return s.PARRateBurst
}

// GetTrustedSubjectHeader names the header an authenticating proxy sets to the end user's
// subject. The proxy must strip the header from incoming requests. Blank disables it, and
// every authorization request is then answered with login_required.
func (s Security) GetTrustedSubjectHeader() string {
	return s.TrustedSubjectHeader
}
