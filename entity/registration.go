package entity

import (
	"fmt"
	"strings"
	"time"

	"sortec/lib/validate"
)

// Status is the review state of a registration.
// Pending is the only state with outgoing transitions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusDenied:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// Participant holds the mutable, participant-provided part of a registration.
// It is also the submission payload.
type Participant struct {
	DocumentNumber   string `json:"document_number" bson:"document_number" validate:"required,len=8,numeric"`
	GivenNames       string `json:"given_names" bson:"given_names" validate:"required,max=64,alphaspace"`
	FamilyNames      string `json:"family_names" bson:"family_names" validate:"required,max=64,alphaspace"`
	Address          string `json:"address" bson:"address" validate:"required,max=128"`
	Country          string `json:"country" bson:"country" validate:"required,max=64,country"`
	Region           string `json:"region" bson:"region" validate:"required,max=64,alphaspace"`
	District         string `json:"district" bson:"district" validate:"required,max=64,alphaspace"`
	Email            string `json:"email" bson:"email" validate:"required,email,max=128"`
	Phone            string `json:"phone" bson:"phone" validate:"required,len=9,numeric"`
	VoucherUrl       string `json:"voucher_url" bson:"voucher_url" validate:"required,url,max=512"`
	PaymentReference string `json:"payment_reference" bson:"payment_reference" validate:"required,max=64"`
}

// Validate trims every field and checks all rules, reporting all violations at once.
func (p *Participant) Validate() error {
	p.trim()
	return validate.Struct(p)
}

func (p *Participant) trim() {
	p.DocumentNumber = strings.TrimSpace(p.DocumentNumber)
	p.GivenNames = strings.TrimSpace(p.GivenNames)
	p.FamilyNames = strings.TrimSpace(p.FamilyNames)
	p.Address = strings.TrimSpace(p.Address)
	p.Country = strings.TrimSpace(p.Country)
	p.Region = strings.TrimSpace(p.Region)
	p.District = strings.TrimSpace(p.District)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.VoucherUrl = strings.TrimSpace(p.VoucherUrl)
	p.PaymentReference = strings.TrimSpace(p.PaymentReference)
}

func (p *Participant) FullName() string {
	return strings.TrimSpace(p.GivenNames + " " + p.FamilyNames)
}

// Registration is a participant's contest entry. Id, ContestCode, Status and
// CreatedAt are owned by the workflow and never taken from client input.
type Registration struct {
	Id          string `json:"id" bson:"_id"`
	Participant `bson:",inline"`
	ContestCode *string    `json:"contest_code" bson:"contest_code"`
	Status      Status     `json:"status" bson:"status"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
}

// Code returns the contest code or an empty string if none was allocated.
func (r *Registration) Code() string {
	if r.ContestCode == nil {
		return ""
	}
	return *r.ContestCode
}

// Clone returns a deep copy, safe to hand out from in-memory stores.
func (r *Registration) Clone() *Registration {
	c := *r
	if r.ContestCode != nil {
		code := *r.ContestCode
		c.ContestCode = &code
	}
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// ParticipantUpdate carries field-level overwrites; nil fields are left unchanged.
type ParticipantUpdate struct {
	DocumentNumber   *string `json:"document_number" validate:"omitempty,len=8,numeric"`
	GivenNames       *string `json:"given_names" validate:"omitempty,max=64,alphaspace"`
	FamilyNames      *string `json:"family_names" validate:"omitempty,max=64,alphaspace"`
	Address          *string `json:"address" validate:"omitempty,max=128"`
	Country          *string `json:"country" validate:"omitempty,max=64,country"`
	Region           *string `json:"region" validate:"omitempty,max=64,alphaspace"`
	District         *string `json:"district" validate:"omitempty,max=64,alphaspace"`
	Email            *string `json:"email" validate:"omitempty,email,max=128"`
	Phone            *string `json:"phone" validate:"omitempty,len=9,numeric"`
	VoucherUrl       *string `json:"voucher_url" validate:"omitempty,url,max=512"`
	PaymentReference *string `json:"payment_reference" validate:"omitempty,max=64"`
}

// Validate checks the provided fields. An explicitly empty value for a field
// that is required on submission is rejected as well.
func (u *ParticipantUpdate) Validate() error {
	result := &validate.Error{}
	for _, f := range u.fields() {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			result.Fields = append(result.Fields, validate.FieldError{Field: f.name, Rule: "required"})
		}
	}
	if len(result.Fields) > 0 {
		return result
	}
	return validate.Struct(u)
}

type namedField struct {
	name  string
	value *string
}

func (u *ParticipantUpdate) fields() []namedField {
	return []namedField{
		{"document_number", u.DocumentNumber},
		{"given_names", u.GivenNames},
		{"family_names", u.FamilyNames},
		{"address", u.Address},
		{"country", u.Country},
		{"region", u.Region},
		{"district", u.District},
		{"email", u.Email},
		{"phone", u.Phone},
		{"voucher_url", u.VoucherUrl},
		{"payment_reference", u.PaymentReference},
	}
}

// IsEmpty reports whether the update carries no fields.
func (u *ParticipantUpdate) IsEmpty() bool {
	for _, f := range u.fields() {
		if f.value != nil {
			return false
		}
	}
	return true
}

// Apply overwrites the participant fields present in the update.
func (u *ParticipantUpdate) Apply(p *Participant) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.DocumentNumber, u.DocumentNumber)
	set(&p.GivenNames, u.GivenNames)
	set(&p.FamilyNames, u.FamilyNames)
	set(&p.Address, u.Address)
	set(&p.Country, u.Country)
	set(&p.Region, u.Region)
	set(&p.District, u.District)
	set(&p.Email, u.Email)
	set(&p.Phone, u.Phone)
	set(&p.VoucherUrl, u.VoucherUrl)
	set(&p.PaymentReference, u.PaymentReference)
}
