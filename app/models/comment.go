package models

import (
	"fmt"
	"strings"
)

// Comment represents a comment on a blog post.
type Comment struct {
	Entity
	PostID  string `json:"postId"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// CommentDraft is the payload for a new comment. The parent post id comes
// from the route, not the body.
type CommentDraft struct {
	Author  string `json:"author" validate:"required,min=2,max=100"`
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

type CommentPatch struct {
	Author  *string `json:"author,omitempty" validate:"omitnil,min=2,max=100"`
	Content *string `json:"content,omitempty" validate:"omitnil,min=1,max=2000"`
}

func (d CommentDraft) Validate() error {
	return validateStruct(d)
}

// Comment builds an unsaved comment attached to postID.
func (d CommentDraft) Comment(postID string) *Comment {
	return &Comment{
		PostID:  postID,
		Author:  strings.TrimSpace(d.Author),
		Content: d.Content,
	}
}

func (p CommentPatch) Validate() error {
	return validateStruct(p)
}

func (p CommentPatch) Apply(c *Comment) {
	if p.Author != nil {
		c.Author = strings.TrimSpace(*p.Author)
	}
	if p.Content != nil {
		c.Content = *p.Content
	}
}

// Validate checks the comment fields and requires a parent post id.
func (c *Comment) Validate() error {
	if c.PostID == "" {
		return fmt.Errorf("%w: postId is required", ErrValidation)
	}
	if err := validateStruct(CommentDraft{Author: c.Author, Content: c.Content}); err != nil {
		return err
	}
	return c.Entity.validate()
}

func (c *Comment) Field(name string) (any, bool) {
	switch name {
	case "postId":
		return c.PostID, true
	case "author":
		return c.Author, true
	case "content":
		return c.Content, true
	}
	return c.Entity.field(name)
}
