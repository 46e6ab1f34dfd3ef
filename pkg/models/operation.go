package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Icon is a registered palette icon key.
type Icon string

const (
	IconCog      Icon = "cog"
	IconWrench   Icon = "wrench"
	IconScissors Icon = "scissors"
	IconPackage  Icon = "package"
	IconTruck    Icon = "truck"
	IconCheck    Icon = "check"
	IconSearch   Icon = "search"
	IconPaint    Icon = "paint"
	IconFlame    Icon = "flame"
	IconBox      Icon = "box"
	IconTag      Icon = "tag"
	IconTool     Icon = "tool"

	DefaultIcon = IconCog
)

var icons = []Icon{
	IconCog, IconWrench, IconScissors, IconPackage, IconTruck, IconCheck,
	IconSearch, IconPaint, IconFlame, IconBox, IconTag, IconTool,
}

// Icons returns every registered icon key in palette order.
func Icons() []Icon {
	out := make([]Icon, len(icons))
	copy(out, icons)

	return out
}

// Valid reports whether i is a registered icon key.
func (i Icon) Valid() bool {
	for _, icon := range icons {
		if icon == i {
			return true
		}
	}

	return false
}

// OrDefault returns DefaultIcon when i is empty.
func (i Icon) OrDefault() Icon {
	if i == "" {
		return DefaultIcon
	}

	return i
}

// Operation is an organization-scoped catalog entry that workflow nodes reference.
type Operation struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id" validate:"required"`
	Name           string    `json:"name" validate:"required,min=1"`
	Code           string    `json:"code" validate:"required,min=1"`
	Icon           Icon      `json:"icon" validate:"omitempty,icon"`
	Description    string    `json:"description"`
	IsFinal        bool      `json:"is_final"`
	ExpertiseID    *string   `json:"expertise_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RegisterValidations adds the domain validation tags to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("icon", func(fl validator.FieldLevel) bool {
		return Icon(fl.Field().String()).Valid()
	})
}

// NewValidator returns a validator with the domain tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}

	return v
}
