// Package envelope defines the single output shape shared by every tool.
//
// A success carries items (lists) or item (single resources) plus meta. A
// failure carries only error and, when quota was observable, meta.rate.
package envelope

import (
	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
)

// Meta accompanies every successful result.
type Meta struct {
	NextCursor *string     `json:"next_cursor"`
	HasMore    bool        `json:"has_more"`
	Rate       *rate.Quota `json:"rate,omitempty"`
}

// List is the success envelope of list tools.
type List[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// Item is the success envelope of single-resource tools.
type Item[T any] struct {
	Item T    `json:"item"`
	Meta Meta `json:"meta"`
}

// FailureMeta is the only meta a failure may carry.
type FailureMeta struct {
	Rate *rate.Quota `json:"rate,omitempty"`
}

// Failure is the failure envelope.
type Failure struct {
	Error ghErrors.Record `json:"error"`
	Meta  *FailureMeta    `json:"meta,omitempty"`
}

// NewMeta combines pagination state with quota.
func NewMeta(page pagination.Meta, quota *rate.Quota) Meta {
	if !page.HasMore {
		page.NextCursor = nil
	}
	return Meta{NextCursor: page.NextCursor, HasMore: page.HasMore, Rate: quota}
}

// NewList builds a list envelope. A nil slice is reported as an empty list.
func NewList[T any](items []T, page pagination.Meta, quota *rate.Quota) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Meta: NewMeta(page, quota)}
}

// NewItem builds a single-resource envelope.
func NewItem[T any](item T, quota *rate.Quota) Item[T] {
	return Item[T]{Item: item, Meta: NewMeta(pagination.Done(), quota)}
}

// NewFailure builds a failure envelope.
func NewFailure(rec ghErrors.Record, quota *rate.Quota) Failure {
	f := Failure{Error: rec}
	if quota != nil {
		f.Meta = &FailureMeta{Rate: quota}
	}
	return f
}
