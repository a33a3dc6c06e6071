package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the custody state of a movement.
type Status string

// Movement statuses. RETURNED is terminal.
const (
	StatusPending  Status = "PENDENTE"
	StatusReturned Status = "DEVOLVIDO"
)

// MaterialType is the class of equipment a movement covers.
type MaterialType string

// Material types, spelled as the spreadsheet stores them.
const (
	MaterialHeightRescue MaterialType = "Salv. Terrestre/Altura"
	MaterialUrbanFire    MaterialType = "Incêndio Urbano"
	MaterialForestFire   MaterialType = "Florestal"
	MaterialMedical      MaterialType = "APH"
	MaterialWaterRescue  MaterialType = "Salv. Aquático/Mergulho"
	MaterialTools        MaterialType = "Ferramentas diversas"
	MaterialOther        MaterialType = "Outros"
)

// MaterialTypes lists every material type in display order.
var MaterialTypes = []MaterialType{
	MaterialHeightRescue,
	MaterialUrbanFire,
	MaterialForestFire,
	MaterialMedical,
	MaterialWaterRescue,
	MaterialTools,
	MaterialOther,
}

// ValidMaterialType reports whether t is a known material type.
func ValidMaterialType(t MaterialType) bool {
	return slices.Contains(MaterialTypes, t)
}

const (
	// DefaultOrigin is assumed when a movement carries no origin.
	DefaultOrigin = "SAO"
	// NoObservations is recorded when a return is made without observations.
	NoObservations = "Sem observações."
)

// ErrInvalidMovement is returned by Validate.
var ErrInvalidMovement = errors.New("invalid movement")

// Movement is one custody transfer of a piece of equipment, from checkout to
// return. JSON names follow the remote spreadsheet columns.
type Movement struct {
	ID string `json:"id"`

	// Borrower, captured at checkout.
	BM      string `json:"bm"`
	Name    string `json:"name"`
	WarName string `json:"warName"`
	Rank    string `json:"rank"`

	CheckedOutAt    time.Time    `json:"dateCheckout"`
	EstimatedReturn Date         `json:"estimatedReturnDate"`
	Material        string       `json:"material"`
	Origin          string       `json:"origin,omitempty"`
	Type            MaterialType `json:"type"`
	Status          Status       `json:"status"`
	Reason          string       `json:"reason,omitempty"`
	Image           string       `json:"image,omitempty"`

	ReturnedAt      *time.Time `json:"dateReturn,omitempty"`
	Observations    string     `json:"observations,omitempty"`
	ReceiverBM      string     `json:"receiverBm,omitempty"`
	ReceiverName    string     `json:"receiverName,omitempty"`
	ReceiverWarName string     `json:"receiverWarName,omitempty"`
	ReceiverRank    string     `json:"receiverRank,omitempty"`

	DutyOfficerBM      string `json:"dutyOfficerBm,omitempty"`
	DutyOfficerName    string `json:"dutyOfficerName,omitempty"`
	DutyOfficerWarName string `json:"dutyOfficerWarName,omitempty"`
	DutyOfficerRank    string `json:"dutyOfficerRank,omitempty"`
}

// EffectiveOrigin returns the origin, or DefaultOrigin when it is blank.
func (m Movement) EffectiveOrigin() string {
	if o := strings.TrimSpace(m.Origin); o != "" {
		return o
	}
	return DefaultOrigin
}

// Borrower returns the identity the item was checked out to.
func (m Movement) Borrower() Person {
	return Person{BM: m.BM, Name: m.Name, WarName: m.WarName, Rank: m.Rank}
}

// Receiver returns the identity that received the item back.
func (m Movement) Receiver() Person {
	return Person{BM: m.ReceiverBM, Name: m.ReceiverName, WarName: m.ReceiverWarName, Rank: m.ReceiverRank}
}

// DutyOfficer returns the operator that processed the checkout.
func (m Movement) DutyOfficer() Person {
	return Person{BM: m.DutyOfficerBM, Name: m.DutyOfficerName, WarName: m.DutyOfficerWarName, Rank: m.DutyOfficerRank}
}

// IsOverdue reports whether the movement is still pending after its estimated
// return day. Only the calendar day of now matters.
func (m Movement) IsOverdue(now time.Time) bool {
	if m.Status != StatusPending || m.EstimatedReturn.IsZero() {
		return false
	}
	return m.EstimatedReturn.Before(DateOf(now))
}

// MarkReturned returns a copy transitioned to RETURNED. A return timestamp
// earlier than the checkout is clamped to the checkout.
func (m Movement) MarkReturned(at time.Time, receiver Person, observations string) Movement {
	if at.Before(m.CheckedOutAt) {
		at = m.CheckedOutAt
	}
	if strings.TrimSpace(observations) == "" {
		observations = NoObservations
	}
	m.Status = StatusReturned
	m.ReturnedAt = &at
	m.Observations = observations
	m.ReceiverBM = receiver.BM
	m.ReceiverName = receiver.Name
	m.ReceiverWarName = receiver.WarName
	m.ReceiverRank = receiver.Rank
	return m
}

// Validate checks the invariants every stored movement must hold.
func (m Movement) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMovement)
	}
	switch m.Status {
	case StatusPending:
		if m.ReturnedAt != nil || m.ReceiverBM != "" {
			return fmt.Errorf("%w: pending movement %s carries return fields", ErrInvalidMovement, m.ID)
		}
	case StatusReturned:
		if m.ReturnedAt == nil || m.ReceiverBM == "" {
			return fmt.Errorf("%w: returned movement %s lacks return time or receiver", ErrInvalidMovement, m.ID)
		}
		if m.ReturnedAt.Before(m.CheckedOutAt) {
			return fmt.Errorf("%w: movement %s returned before checkout", ErrInvalidMovement, m.ID)
		}
	default:
		return fmt.Errorf("%w: movement %s has unknown status %q", ErrInvalidMovement, m.ID, m.Status)
	}
	return nil
}

// UnmarshalJSON accepts the loose timestamp formats the spreadsheet returns and
// treats empty strings as absent.
func (m *Movement) UnmarshalJSON(data []byte) error {
	type plain Movement
	aux := struct {
		*plain
		CheckedOutAt string `json:"dateCheckout"`
		ReturnedAt   string `json:"dateReturn"`
	}{plain: (*plain)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.CheckedOutAt = time.Time{}
	if aux.CheckedOutAt != "" {
		t, err := ParseTimestamp(aux.CheckedOutAt)
		if err != nil {
			return fmt.Errorf("movement %s: dateCheckout: %w", m.ID, err)
		}
		m.CheckedOutAt = t
	}

	m.ReturnedAt = nil
	if aux.ReturnedAt != "" {
		t, err := ParseTimestamp(aux.ReturnedAt)
		if err != nil {
			return fmt.Errorf("movement %s: dateReturn: %w", m.ID, err)
		}
		m.ReturnedAt = &t
	}
	return nil
}
