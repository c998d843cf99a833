package ardentid

import (
	"encoding/json"
	"strings"
)

// OTPPurpose scopes a one-time code. The set is closed; values outside it are
// rejected before any side effect.
type OTPPurpose int

const (
	PurposeEmailConfirmation OTPPurpose = iota
	PurposePasswordReset
)

const (
	TemplateAccountActivation = "AccountActivation"
	TemplatePasswordReset     = "PasswordReset"
)

func (p OTPPurpose) String() string {
	switch p {
	case PurposeEmailConfirmation:
		return "EmailConfirmation"
	case PurposePasswordReset:
		return "PasswordReset"
	default:
		return "Unknown"
	}
}

// Valid reports whether p is a member of the closed set.
func (p OTPPurpose) Valid() bool {
	_, err := p.TemplateKey()
	return err == nil
}

// TemplateKey maps p to the mail template announcing its code.
func (p OTPPurpose) TemplateKey() (string, error) {
	switch p {
	case PurposeEmailConfirmation:
		return TemplateAccountActivation, nil
	case PurposePasswordReset:
		return TemplatePasswordReset, nil
	default:
		return "", ErrUnknownPurpose
	}
}

// ParsePurpose accepts the purpose name, case-insensitively.
func ParsePurpose(s string) (OTPPurpose, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "emailconfirmation":
		return PurposeEmailConfirmation, nil
	case "passwordreset":
		return PurposePasswordReset, nil
	default:
		return 0, ErrUnknownPurpose
	}
}

// MarshalJSON encodes the purpose by name.
func (p OTPPurpose) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, ErrUnknownPurpose
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts either the name or the ordinal. Out-of-range ordinals
// decode without error and are rejected by the engine.
func (p *OTPPurpose) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParsePurpose(name)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}

	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return ErrUnknownPurpose
	}
	*p = OTPPurpose(ordinal)
	return nil
}
