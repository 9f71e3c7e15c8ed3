package recommend

import (
	"errors"
	"fmt"

	"github.com/Skufu/fisioplan/internal/validation"
)

var ErrInvalidProfile = errors.New("invalid patient profile")

// InputPolicy decides what happens to profiles outside the documented domain.
type InputPolicy string

const (
	// PolicyReject returns an error wrapping ErrInvalidProfile.
	PolicyReject InputPolicy = "reject"
	// PolicyClamp coerces numbers into range and unknown enums to defaults.
	PolicyClamp InputPolicy = "clamp"
)

const maxAge = 130

// ParseInputPolicy accepts "reject", "clamp" or an empty string (reject).
func ParseInputPolicy(s string) (InputPolicy, error) {
	switch InputPolicy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyClamp:
		return PolicyClamp, nil
	}
	return "", fmt.Errorf("unknown input policy %q", s)
}

// Admit applies the engine's input policy and returns the profile plans are
// generated from: unchanged under PolicyReject, coerced under PolicyClamp.
func (e *Engine) Admit(p PatientProfile) (PatientProfile, error) {
	if e.policy == PolicyClamp {
		return clampProfile(p), nil
	}
	if err := validation.Struct(&p); err != nil {
		return PatientProfile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return p, nil
}

func clampProfile(p PatientProfile) PatientProfile {
	p.Age = clamp(p.Age, 0, maxAge)
	p.PainLevel = clamp(p.PainLevel, 0, 10)
	if !p.Severity.Valid() {
		p.Severity = SeverityModerate
	}
	if !p.Lifestyle.Valid() {
		p.Lifestyle = LifestyleActive
	}
	if !p.Gender.Valid() {
		p.Gender = ""
	}
	if !p.MobilityLevel.Valid() {
		p.MobilityLevel = ""
	}
	return p
}
