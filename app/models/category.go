package models

import "strings"

// Category groups posts. Names are unique across the collection ignoring case;
// that rule is enforced by the category service, not the store.
type Category struct {
	Entity
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryDraft struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CategoryPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitnil,max=500"`
}

func (d CategoryDraft) Validate() error {
	return validateStruct(d)
}

// Category builds an unsaved category. Description defaults to "".
func (d CategoryDraft) Category() *Category {
	return &Category{
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
	}
}

func (p CategoryPatch) Validate() error {
	return validateStruct(p)
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

func (c *Category) Validate() error {
	if err := validateStruct(CategoryDraft{Name: c.Name, Description: c.Description}); err != nil {
		return err
	}
	return c.Entity.validate()
}

func (c *Category) Field(name string) (any, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "description":
		return c.Description, true
	}
	return c.Entity.field(name)
}
