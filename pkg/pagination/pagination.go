package pagination

import (
	"fmt"
	"strconv"
	"strings"

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

// FromContext extracts pagination parameters from the echo context.
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

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// LinkHeader builds an RFC 8288 Link header value with next and prev
// relations for basePath. It is empty when there is a single page.
func (p Params) LinkHeader(basePath string, total int) string {
	var links []string
	if p.HasNext(total) {
		links = append(links, fmt.Sprintf(`<%s?limit=%d&offset=%d>; rel="next"`, basePath, p.Limit, p.NextOffset()))
	}
	if p.HasPrevious() {
		links = append(links, fmt.Sprintf(`<%s?limit=%d&offset=%d>; rel="prev"`, basePath, p.Limit, p.PreviousOffset()))
	}
	return strings.Join(links, ", ")
}

// SetLinkHeader writes the Link header for the current request path.
func SetLinkHeader(c echo.Context, p Params, total int) {
	if link := p.LinkHeader(c.Request().URL.Path, total); link != "" {
		c.Response().Header().Set("Link", link)
	}
}
