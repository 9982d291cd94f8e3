// Package httpjson implements a verification provider speaking the
// common HTTPS+JSON vendor shape. Vendor specifics (endpoint, API key,
// tier vocabulary) come from configuration.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tickex/internal/domain"
	"tickex/internal/verify"

	"github.com/shopspring/decimal"
)

type Provider struct {
	name      string
	url       string
	apiKey    string
	certified bool
	client    *http.Client
}

// New builds a provider. The http.Client carries no timeout of its own;
// the gateway's per-call context deadline governs every request.
func New(name, url, apiKey string, certified bool) *Provider {
	return &Provider{
		name:      name,
		url:       url,
		apiKey:    apiKey,
		certified: certified,
		client:    &http.Client{},
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) RegulatorCertified() bool { return p.certified }

type submitRequest struct {
	FullName       string `json:"full_name"`
	DateOfBirth    string `json:"date_of_birth"`
	Country        string `json:"country"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	BiometricRef   string `json:"biometric_ref,omitempty"`
	TaxID          string `json:"tax_id,omitempty"`
	Amount         string `json:"amount"`
}

type submitResponse struct {
	Approved       bool   `json:"approved"`
	Tier           string `json:"tier"`
	VerificationID string `json:"verification_id"`
	Detail         string `json:"detail"`
}

func (p *Provider) Submit(ctx context.Context, identity domain.IdentityRecord, amount decimal.Decimal) (*verify.ProviderResult, error) {
	payload := submitRequest{
		FullName:       identity.FullName,
		DateOfBirth:    identity.DateOfBirth,
		Country:        identity.Country,
		DocumentType:   identity.DocumentType,
		DocumentNumber: identity.DocumentNumber,
		Email:          identity.Email,
		Phone:          identity.Phone,
		BiometricRef:   identity.BiometricRef,
		TaxID:          identity.TaxID,
		Amount:         amount.String(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &verify.ProviderResult{Approved: false, Detail: out.Detail}, nil
	}

	return &verify.ProviderResult{
		Approved:       out.Approved,
		Tier:           out.Tier,
		VerificationID: out.VerificationID,
		Detail:         out.Detail,
	}, nil
}
