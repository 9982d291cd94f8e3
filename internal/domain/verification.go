package domain

// IdentityRecord carries the applicant's verification inputs. It is owned
// transiently by a verification call; the engine never persists it beyond
// the provider-issued verification id.
type IdentityRecord struct {
	FullName       string
	DateOfBirth    string
	Country        string
	DocumentType   string
	DocumentNumber string
	Email          string
	Phone          string
	BiometricRef   string
	TaxID          string
}

// VerificationResult is the normalized outcome of a gateway verification
// attempt. It is immutable once produced.
type VerificationResult struct {
	Success           bool     `json:"success"`
	TierAchieved      Tier     `json:"tier_achieved"`
	VerificationID    string   `json:"verification_id,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	ProviderCompliant bool     `json:"provider_compliant"`
	Errors            []string `json:"errors,omitempty"`
}
