package models

import (
	"slices"
	"strings"
)

// Post represents a blog post. CategoryID is a soft reference: the store
// never checks that the category exists.
type Post struct {
	Entity
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Author     string   `json:"author"`
	Tags       []string `json:"tags"`
	Image      string   `json:"image,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
}

// PostDraft is the payload accepted when creating a post.
type PostDraft struct {
	Title      string   `json:"title" validate:"required,min=3,max=200"`
	Content    string   `json:"content" validate:"required,min=10"`
	Author     string   `json:"author" validate:"required,min=2,max=100"`
	Tags       []string `json:"tags" validate:"dive,min=1,max=50"`
	Image      string   `json:"image,omitempty" validate:"omitempty,url"`
	CategoryID string   `json:"categoryId,omitempty"`
}

// PostPatch carries a partial update. Nil fields are left untouched.
type PostPatch struct {
	Title      *string   `json:"title,omitempty" validate:"omitnil,min=3,max=200"`
	Content    *string   `json:"content,omitempty" validate:"omitnil,min=10"`
	Author     *string   `json:"author,omitempty" validate:"omitnil,min=2,max=100"`
	Tags       *[]string `json:"tags,omitempty"`
	Image      *string   `json:"image,omitempty" validate:"omitempty,url"`
	CategoryID *string   `json:"categoryId,omitempty"`
}

type tagList struct {
	Tags []string `json:"tags" validate:"dive,min=1,max=50"`
}

// Validate checks the draft against the post field constraints.
func (d PostDraft) Validate() error {
	return validateStruct(d)
}

// Post builds an unsaved post from the draft. Identity and timestamps are
// assigned by the store.
func (d PostDraft) Post() *Post {
	tags := make([]string, 0, len(d.Tags))
	for _, tag := range d.Tags {
		tags = append(tags, strings.TrimSpace(tag))
	}
	return &Post{
		Title:      strings.TrimSpace(d.Title),
		Content:    d.Content,
		Author:     strings.TrimSpace(d.Author),
		Tags:       tags,
		Image:      d.Image,
		CategoryID: d.CategoryID,
	}
}

// Validate checks the fields present in the patch.
func (p PostPatch) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.Tags != nil {
		return validateStruct(tagList{Tags: *p.Tags})
	}
	return nil
}

// Apply merges the non-nil fields into post.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Author != nil {
		post.Author = strings.TrimSpace(*p.Author)
	}
	if p.Tags != nil {
		post.Tags = append(make([]string, 0, len(*p.Tags)), *p.Tags...)
	}
	if p.Image != nil {
		post.Image = *p.Image
	}
	if p.CategoryID != nil {
		post.CategoryID = *p.CategoryID
	}
}

// Validate checks a stored post: payload constraints plus a sane entity header.
func (p *Post) Validate() error {
	if err := p.draft().Validate(); err != nil {
		return err
	}
	return p.Entity.validate()
}

// Field returns the named attribute for filtering and sorting.
func (p *Post) Field(name string) (any, bool) {
	switch name {
	case "title":
		return p.Title, true
	case "content":
		return p.Content, true
	case "author":
		return p.Author, true
	case "tags":
		return p.Tags, true
	case "image":
		return p.Image, true
	case "categoryId":
		return p.CategoryID, true
	}
	return p.Entity.field(name)
}

// HasTag reports whether the post carries tag. Tags compare case-insensitively.
func (p *Post) HasTag(tag string) bool {
	return slices.ContainsFunc(p.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

func (p *Post) draft() PostDraft {
	return PostDraft{
		Title:      p.Title,
		Content:    p.Content,
		Author:     p.Author,
		Tags:       p.Tags,
		Image:      p.Image,
		CategoryID: p.CategoryID,
	}
}
