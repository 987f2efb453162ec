// Package pagination computes fixed-size page windows.
package pagination

import (
	"math"
	"strconv"
	"strings"
)

// Window is a resolved page: which page was asked for and which slice of the
// ordered result set it covers.
type Window struct {
	Page   int `json:"page"`
	Size   int `json:"size"`
	Offset int `json:"-"`
}

// NewWindow builds the window for page. Pages below 1 resolve to page 1 and
// a non-positive size resolves to 1. Pages whose offset would not fit in an
// int are capped at the last representable page.
func NewWindow(page, size int) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if page > math.MaxInt/size {
		page = math.MaxInt / size
	}
	return Window{Page: page, Size: size, Offset: (page - 1) * size}
}

// ParseWindow resolves a raw page parameter. Missing or non-numeric values
// resolve to page 1.
func ParseWindow(raw string, size int) Window {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		page = 1
	}
	return NewWindow(page, size)
}

// Bounds clamps the window to a result set of n items and returns the
// half-open range [start, end). A window past the end yields start == end.
func (w Window) Bounds(n int) (start, end int) {
	start = w.Offset
	if start < 0 || start > n {
		start = n
	}
	end = start + w.Size
	if end > n {
		end = n
	}
	return start, end
}

// TotalPages is the number of windows needed to cover n items.
func (w Window) TotalPages(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + w.Size - 1) / w.Size
}
