package persistence

import (
	sq "github.com/Masterminds/squirrel"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// MaxPage keeps page*limit well inside the bigint OFFSET range.
	MaxPage = 1_000_000
)

// psql builds statements with PostgreSQL $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Pagination selects a 1-based page of results.
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination clamps page and limit, substituting defaultLimit when limit is not positive.
func NewPagination(page, limit, defaultLimit int) Pagination {
	if limit <= 0 {
		limit = defaultLimit
	}
	return Pagination{Page: page, PageSize: limit}.normalized()
}

// PageInfo describes the returned page of a listing.
type PageInfo struct {
	CurrentPage int
	TotalPages  int
	Limit       int
}

// Info reports the page metadata for a listing with total matching rows.
func (p Pagination) Info(total int) PageInfo {
	p = p.normalized()
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return PageInfo{CurrentPage: p.Page, TotalPages: totalPages, Limit: p.PageSize}
}

func (p Pagination) normalized() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Pagination) apply(b sq.SelectBuilder) sq.SelectBuilder {
	p = p.normalized()
	return b.Limit(uint64(p.PageSize)).Offset(uint64((p.Page - 1) * p.PageSize))
}

// containsPattern returns an ILIKE pattern matching s anywhere, with wildcards in s escaped.
func containsPattern(s string) string {
	r := make([]rune, 0, len(s)+2)
	r = append(r, '%')
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(append(r, '%'))
}
