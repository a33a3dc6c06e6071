package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/cautela/internal/model"
)

// CheckoutRequest stages one or more items for a single borrower. The duty
// officer is required like the borrower; both are notified.
type CheckoutRequest struct {
	Borrower    model.Person   `json:"borrower"`
	DutyOfficer model.Person   `json:"duty_officer"`
	Items       []CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

// CheckoutItem is one staged item. Every item keeps its own details.
type CheckoutItem struct {
	Material        string             `json:"material" validate:"required"`
	Type            model.MaterialType `json:"type" validate:"required,material_type"`
	Origin          string             `json:"origin"`
	Reason          string             `json:"reason"`
	EstimatedReturn model.Date         `json:"estimated_return_date"`
	Image           string             `json:"image,omitempty"`
}

// ReturnRequest returns a batch of pending movements, possibly from several
// borrowers, to one receiver.
type ReturnRequest struct {
	IDs          []string     `json:"ids" validate:"required,min=1,dive,required"`
	Receiver     model.Person `json:"receiver"`
	Observations string       `json:"observations"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validatePerson, model.Person{})
	_ = v.RegisterValidation("material_type", func(fl validator.FieldLevel) bool {
		return model.ValidMaterialType(model.MaterialType(fl.Field().String()))
	})
	return v
}

// validatePerson requires the identity fields a custody record cannot do
// without.
func validatePerson(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.Person)
	if model.BMDigits(p.BM) == "" {
		sl.ReportError(p.BM, "BM", "BM", "required", "")
	}
	if strings.TrimSpace(p.Name) == "" {
		sl.ReportError(p.Name, "Name", "Name", "required", "")
	}
	if strings.TrimSpace(p.Rank) == "" {
		sl.ReportError(p.Rank, "Rank", "Rank", "required", "")
	}
}

// describe turns validator errors into one readable line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "CheckoutRequest.")
		field = strings.TrimPrefix(field, "ReturnRequest.")
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, field+" needs at least "+fe.Param())
		case "material_type":
			parts = append(parts, fmt.Sprintf("%s %q is not a known material type", field, fe.Value()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func normalizePerson(p model.Person) model.Person {
	captured := model.NewPerson(p.Rank, p.Name, p.BM)
	if w := strings.TrimSpace(p.WarName); w != "" {
		captured.WarName = w
	}
	return captured
}

func (r CheckoutRequest) normalized() CheckoutRequest {
	out := CheckoutRequest{
		Borrower:    normalizePerson(r.Borrower),
		DutyOfficer: normalizePerson(r.DutyOfficer),
		Items:       make([]CheckoutItem, len(r.Items)),
	}
	for i, it := range r.Items {
		it.Material = strings.TrimSpace(it.Material)
		it.Origin = strings.TrimSpace(it.Origin)
		it.Reason = strings.TrimSpace(it.Reason)
		out.Items[i] = it
	}
	if r.Items == nil {
		out.Items = nil
	}
	return out
}

func (r ReturnRequest) normalized() ReturnRequest {
	out := ReturnRequest{
		Receiver:     normalizePerson(r.Receiver),
		Observations: strings.TrimSpace(r.Observations),
	}
	seen := make(map[string]bool, len(r.IDs))
	for _, id := range r.IDs {
		id = strings.TrimSpace(id)
		if seen[id] && id != "" {
			continue
		}
		seen[id] = true
		out.IDs = append(out.IDs, id)
	}
	return out
}
