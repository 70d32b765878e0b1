// Package pagination pages the stored record lists (appointments,
// notifications, blood requests). Lists are small and read whole, so paging
// happens in memory after the read.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=. Missing or unparsable values fall
// back to the defaults, and limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext reports whether items remain after the page p selects from a list
// of total items. Offsets past the end never overflow.
func (p Params) HasNext(total int) bool {
	if p.Offset >= total {
		return false
	}
	return p.Limit < total-p.Offset
}

// Response is one page of a record list.
type Response[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Slice returns the page of items selected by p.
func Slice[T any](items []T, p Params) []T {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(items) || p.Limit <= 0 {
		return []T{}
	}
	rest := items[p.Offset:]
	if p.Limit < len(rest) {
		rest = rest[:p.Limit]
	}
	return rest
}

// Page slices items and wraps the page with its position in the list.
func Page[T any](items []T, p Params) *Response[T] {
	return &Response[T]{
		Data:    Slice(items, p),
		Total:   len(items),
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(len(items)),
	}
}
