package store

import (
	"errors"
	"strconv"
	"strings"

	"catalog-be/internal/product"
)

var (
	ErrFormIncomplete = errors.New("form incomplete")
	ErrNoChanges      = errors.New("no changes to save")
)

// MsgFormIncomplete is shown to the user when Validate fails.
const MsgFormIncomplete = "Please fill in all required fields"

type FormField int

const (
	FieldTitle FormField = iota
	FieldImage
	FieldCategory
	FieldPrice
	FieldDescription
)

// Form is the create/edit dialog. Price stays a string until submit.
type Form struct {
	DialogOpen   bool
	EditingID    string
	Title        string
	Image        string
	Category     string
	Price        string
	Availability bool
	Description  string

	loaded *product.Product
}

func NewForm() Form {
	return Form{Availability: true}
}

func (f Form) Editing() bool { return f.EditingID != "" }

type SetDialogOpen struct{ Open bool }

type SetField struct {
	Field FormField
	Value string
}

type SetAvailability struct{ Available bool }

// EditProduct loads a stored product into the form.
type EditProduct struct{ Product product.Product }

// ResetForm clears every field but leaves the dialog open or closed.
type ResetForm struct{}

func (SetDialogOpen) isAction()   {}
func (SetField) isAction()        {}
func (SetAvailability) isAction() {}
func (EditProduct) isAction()     {}
func (ResetForm) isAction()       {}

func reduceForm(s Form, a Action) Form {
	switch a := a.(type) {
	case SetDialogOpen:
		s.DialogOpen = a.Open
	case SetField:
		switch a.Field {
		case FieldTitle:
			s.Title = a.Value
		case FieldImage:
			s.Image = a.Value
		case FieldCategory:
			s.Category = a.Value
		case FieldPrice:
			s.Price = a.Value
		case FieldDescription:
			s.Description = a.Value
		}
	case SetAvailability:
		s.Availability = a.Available
	case EditProduct:
		p := a.Product
		s.loaded = &p
		s.EditingID = p.ID
		s.Title = p.Title
		s.Image = p.Image
		s.Category = p.Category
		s.Price = strconv.FormatFloat(p.Price, 'f', -1, 64)
		s.Availability = p.Availability
		s.Description = p.Description
	case ResetForm:
		open := s.DialogOpen
		s = NewForm()
		s.DialogOpen = open
	}
	return s
}

// Validate reports ErrFormIncomplete when a required field is blank or the
// price is not a non-negative number.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Title) == "" ||
		strings.TrimSpace(f.Image) == "" ||
		strings.TrimSpace(f.Category) == "" ||
		strings.TrimSpace(f.Description) == "" {
		return ErrFormIncomplete
	}
	if _, err := f.price(); err != nil {
		return ErrFormIncomplete
	}
	return nil
}

func (f Form) price() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New("negative price")
	}
	return v, nil
}

// Payload is the create request for the form contents.
func (f Form) Payload() (product.CreateInput, error) {
	if err := f.Validate(); err != nil {
		return product.CreateInput{}, err
	}
	price, _ := f.price()
	available := f.Availability
	return product.CreateInput{
		Title:        strings.TrimSpace(f.Title),
		Image:        strings.TrimSpace(f.Image),
		Category:     strings.TrimSpace(f.Category),
		Price:        &price,
		Availability: &available,
		Description:  strings.TrimSpace(f.Description),
	}, nil
}

// UpdatePayload sends the fields that differ from the product loaded by
// EditProduct, or every field when nothing was loaded. Leaving the title out
// keeps a stored slug, including a generated one, stable.
func (f Form) UpdatePayload() (product.UpdateInput, error) {
	in, err := f.Payload()
	if err != nil {
		return product.UpdateInput{}, err
	}
	if f.loaded == nil {
		return product.UpdateInput{
			Title:        &in.Title,
			Image:        &in.Image,
			Category:     &in.Category,
			Price:        in.Price,
			Availability: in.Availability,
			Description:  &in.Description,
		}, nil
	}

	var out product.UpdateInput
	old := f.loaded
	if in.Title != old.Title {
		out.Title = &in.Title
	}
	if in.Image != old.Image {
		out.Image = &in.Image
	}
	if in.Category != old.Category {
		out.Category = &in.Category
	}
	if *in.Price != old.Price {
		out.Price = in.Price
	}
	if *in.Availability != old.Availability {
		out.Availability = in.Availability
	}
	if in.Description != old.Description {
		out.Description = &in.Description
	}
	if out.IsEmpty() {
		return out, ErrNoChanges
	}
	return out, nil
}
