package models

import (
	"time"
)

// Identity is a resolved crew member, keyed by a GCMID that is stable once
// assigned and never reused. Attributes are enriched as higher-confidence
// source data arrives; identities are never deleted.
type Identity struct {
	GCMID      int64      `json:"gcmid" db:"gcmid"`
	LastName   string     `json:"last_name" db:"last_name" validate:"required"`
	FirstName  string     `json:"first_name" db:"first_name" validate:"required"`
	Nickname   string     `json:"nickname,omitempty" db:"nickname"`
	Title      string     `json:"title,omitempty" db:"title"`
	Department string     `json:"department,omitempty" db:"department"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	PromotedAt *time.Time `json:"promoted_at,omitempty" db:"promoted_at"`

	// NameVariants holds every full-name spelling ever observed for this
	// identity. The token index is regenerated from these.
	NameVariants []string `json:"name_variants,omitempty" db:"-"`
	Emails       []string `json:"emails,omitempty" db:"-"`
	Phones       []string `json:"phones,omitempty" db:"-"`
}

// DisplayName returns the canonical "Last First" rendering used in review
// queues and event payloads.
func (i *Identity) DisplayName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	return i.LastName + " " + i.FirstName
}

// NameToken is a derived fact linking an identity to one normalized token of
// one of its name variants.
type NameToken struct {
	GCMID int64  `json:"gcmid" db:"gcmid"`
	Token string `json:"token" db:"token"`
}

// ContactKind discriminates the two contact channels stored for an identity.
type ContactKind string

const (
	ContactKindEmail ContactKind = "email"
	ContactKindPhone ContactKind = "phone"
)

// Contact is a canonicalized email or phone associated with an identity.
type Contact struct {
	GCMID     int64       `json:"gcmid" db:"gcmid"`
	Kind      ContactKind `json:"kind" db:"kind"`
	Value     string      `json:"value" db:"value"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// NameVariant is one observed full-name spelling for an identity.
type NameVariant struct {
	GCMID     int64     `json:"gcmid" db:"gcmid"`
	Name      string    `json:"name" db:"name"`
	Origin    string    `json:"origin,omitempty" db:"origin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateIdentityRequest enrolls a crew member into the trusted directory.
type CreateIdentityRequest struct {
	LastName   string   `json:"last_name" validate:"required"`
	FirstName  string   `json:"first_name" validate:"required"`
	Nickname   string   `json:"nickname,omitempty"`
	Title      string   `json:"title,omitempty"`
	Department string   `json:"department,omitempty"`
	Emails     []string `json:"emails,omitempty" validate:"dive,email"`
	Phones     []string `json:"phones,omitempty"`
}

// UpdateIdentityRequest enriches an existing identity. Fields are additive;
// existing attributes are only replaced when a non-empty value is supplied.
type UpdateIdentityRequest struct {
	Nickname   *string  `json:"nickname,omitempty"`
	Title      *string  `json:"title,omitempty"`
	Department *string  `json:"department,omitempty"`
	Emails     []string `json:"emails,omitempty" validate:"dive,email"`
	Phones     []string `json:"phones,omitempty"`
	NameAlias  *string  `json:"name_alias,omitempty"`
}
