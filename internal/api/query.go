package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageParams carries validated pagination values.
type PageParams struct {
	Page     int
	PageSize int
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePageParams reads page/pageSize query params, clamping to sane bounds.
func ParsePageParams(r *http.Request) PageParams {
	p := PageParams{Page: defaultPage, PageSize: defaultPageSize}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Page = v
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.PageSize = v
		}
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// SortField is a single ordering criterion with a whitelisted column name.
type SortField struct {
	Column string
	Desc   bool
}

// ParseSort decodes the sort query parameter, a JSON-encoded list of
// [field, direction] pairs, e.g. sort=[["email","asc"],["created_at","desc"]].
// Fields are mapped through the allowed set; anything else is rejected.
func ParseSort(r *http.Request, allowed map[string]string) ([]SortField, error) {
	raw := r.URL.Query().Get("sort")
	if raw == "" {
		return nil, nil
	}
	var pairs [][]string
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("sort must be a JSON list of [field, direction] pairs: %w", err)
	}
	fields := make([]SortField, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("sort entry must have exactly [field, direction]")
		}
		column, ok := allowed[pair[0]]
		if !ok {
			return nil, fmt.Errorf("cannot sort by %q", pair[0])
		}
		var desc bool
		switch strings.ToLower(pair[1]) {
		case "asc":
		case "desc":
			desc = true
		default:
			return nil, fmt.Errorf("sort direction must be asc or desc, got %q", pair[1])
		}
		fields = append(fields, SortField{Column: column, Desc: desc})
	}
	return fields, nil
}

// ParseFilter decodes the filter query parameter, a JSON object of
// field -> value, keeping only whitelisted fields and remapping them to
// column names.
func ParseFilter(r *http.Request, allowed map[string]string) (map[string]interface{}, error) {
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		return nil, nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("filter must be a JSON object: %w", err)
	}
	out := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		column, ok := allowed[field]
		if !ok {
			return nil, fmt.Errorf("cannot filter by %q", field)
		}
		out[column] = value
	}
	return out, nil
}

// ParseBoolFlag reads a boolean query flag ("true"/"1" are truthy).
func ParseBoolFlag(r *http.Request, name string) bool {
	raw := r.URL.Query().Get(name)
	return raw == "true" || raw == "1"
}
