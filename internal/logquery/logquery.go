// Package logquery models the paging, filtering and sorting state of the delivery logs grid
// and converts it to and from the query parameters of GET /logs.
package logquery

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/gkmit/notify-console/internal/gwerrors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const DefaultPageSize int = 5

var PageSizes []int = []int{5, 50, 75, 100}

// Columns that can be filtered and sorted on
var FilterColumns []string = []string{"service", "destination", "status", "messageId"}
var SortColumns []string = []string{"id", "messageId", "service", "destination", "status", "attempts", "messageDate"}

const (
	pageParam  string = "page"
	limitParam string = "limit"
	sortParam  string = "sort"
)

type SortColumn struct {
	ColID string
	Desc  bool
}

func (s SortColumn) String() string {
	if s.Desc {
		return "-" + s.ColID
	}
	return s.ColID
}

// ParseSort reads a sort expression like "status,-messageDate"
func ParseSort(value string) ([]SortColumn, error) {
	output := []SortColumn{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col := SortColumn{ColID: strings.TrimPrefix(part, "-"), Desc: strings.HasPrefix(part, "-")}
		if !slices.Contains(SortColumns, col.ColID) {
			return nil, fmt.Errorf("%w: cannot sort on column %q", gwerrors.ErrValidation, col.ColID)
		}
		output = append(output, col)
	}
	return output, nil
}

type LogQuery struct {
	Page     int
	PageSize int
	Filters  *orderedmap.OrderedMap[string, string]
	Sort     []SortColumn
}

func New() LogQuery {
	return LogQuery{Page: 1, PageSize: DefaultPageSize, Filters: orderedmap.New[string, string]()}
}

// SortString is the inverse of ParseSort
func (q LogQuery) SortString() string {
	parts := make([]string, 0, len(q.Sort))
	for _, col := range q.Sort {
		parts = append(parts, col.String())
	}
	return strings.Join(parts, ",")
}

// WithFilter sets (or with an empty value removes) a filter. Like the grid, changing a filter goes back to the first page.
func (q LogQuery) WithFilter(column, value string) (LogQuery, error) {
	if !slices.Contains(FilterColumns, column) {
		return q, fmt.Errorf("%w: cannot filter on column %q", gwerrors.ErrValidation, column)
	}
	output := q.clone()
	value = strings.TrimSpace(value)
	if value == "" {
		output.Filters.Delete(column)
	} else {
		output.Filters.Set(column, value)
	}
	output.Page = 1
	return output, nil
}

func (q LogQuery) WithPage(page int) (LogQuery, error) {
	if page < 1 {
		return q, fmt.Errorf("%w: the page must be at least 1, got %d", gwerrors.ErrValidation, page)
	}
	output := q.clone()
	output.Page = page
	return output, nil
}

// WithPageSize changes the page size and goes back to the first page
func (q LogQuery) WithPageSize(pageSize int) (LogQuery, error) {
	if !slices.Contains(PageSizes, pageSize) {
		return q, fmt.Errorf("%w: the page size must be one of %v, got %d", gwerrors.ErrValidation, PageSizes, pageSize)
	}
	output := q.clone()
	output.PageSize = pageSize
	output.Page = 1
	return output, nil
}

func (q LogQuery) WithSort(sort string) (LogQuery, error) {
	cols, err := ParseSort(sort)
	if err != nil {
		return q, err
	}
	output := q.clone()
	output.Sort = cols
	return output, nil
}

func (q LogQuery) clone() LogQuery {
	output := LogQuery{Page: q.Page, PageSize: q.PageSize, Filters: orderedmap.New[string, string]()}
	if q.Filters != nil {
		for pair := q.Filters.Oldest(); pair != nil; pair = pair.Next() {
			output.Filters.Set(pair.Key, pair.Value)
		}
	}
	output.Sort = append(output.Sort, q.Sort...)
	return output
}

// Values returns the query parameters in a stable order: page, limit, filters (in the order
// they were set) and sort. Unset values are left out.
func (q LogQuery) Values() *orderedmap.OrderedMap[string, string] {
	output := orderedmap.New[string, string]()
	if q.Page > 0 {
		output.Set(pageParam, strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		output.Set(limitParam, strconv.Itoa(q.PageSize))
	}
	if q.Filters != nil {
		for pair := q.Filters.Oldest(); pair != nil; pair = pair.Next() {
			output.Set(pair.Key, pair.Value)
		}
	}
	if sort := q.SortString(); sort != "" {
		output.Set(sortParam, sort)
	}
	return output
}

// Encode renders the query string without reordering the parameters
func (q LogQuery) Encode() string {
	parts := []string{}
	for pair := q.Values().Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
	}
	return strings.Join(parts, "&")
}

// Path is the request path for GET /logs with this query
func (q LogQuery) Path() string {
	encoded := q.Encode()
	if encoded == "" {
		return "/logs"
	}
	return "/logs?" + encoded
}

// FromValues parses the query parameters of a GET /logs request. Missing values fall back
// to the first page with the default page size, unknown parameters are ignored.
func FromValues(values url.Values) (LogQuery, error) {
	output := New()
	var err error
	if raw := values.Get(pageParam); raw != "" {
		page, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return LogQuery{}, fmt.Errorf("%w: invalid page %q", gwerrors.ErrValidation, raw)
		}
		output, err = output.WithPage(page)
		if err != nil {
			return LogQuery{}, err
		}
	}
	if raw := values.Get(limitParam); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return LogQuery{}, fmt.Errorf("%w: invalid limit %q", gwerrors.ErrValidation, raw)
		}
		if !slices.Contains(PageSizes, limit) {
			return LogQuery{}, fmt.Errorf("%w: the page size must be one of %v, got %d", gwerrors.ErrValidation, PageSizes, limit)
		}
		output.PageSize = limit
	}
	for _, column := range FilterColumns {
		if value := strings.TrimSpace(values.Get(column)); value != "" {
			output.Filters.Set(column, value)
		}
	}
	if raw := values.Get(sortParam); raw != "" {
		output, err = output.WithSort(raw)
		if err != nil {
			return LogQuery{}, err
		}
	}
	return output, nil
}
