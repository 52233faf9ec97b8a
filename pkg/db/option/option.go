package option

import (
	"strconv"
	"strings"

	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

// QueryOption mutates a query before it is executed.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Operator string

const (
	EQ   Operator = "eq"
	NEQ  Operator = "neq"
	GT   Operator = "gt"
	GTE  Operator = "gte"
	LT   Operator = "lt"
	LTE  Operator = "lte"
	LIKE Operator = "like"
	IN   Operator = "in"
)

// Condition is a single column comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a quoted column comparison to the query.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		column := clause.Column{Name: field}
		switch cond.Operator {
		case EQ:
			return db.Where(clause.Eq{Column: column, Value: cond.Value})
		case NEQ:
			return db.Where(clause.Neq{Column: column, Value: cond.Value})
		case GT:
			return db.Where(clause.Gt{Column: column, Value: cond.Value})
		case GTE:
			return db.Where(clause.Gte{Column: column, Value: cond.Value})
		case LT:
			return db.Where(clause.Lt{Column: column, Value: cond.Value})
		case LTE:
			return db.Where(clause.Lte{Column: column, Value: cond.Value})
		case LIKE:
			return db.Where(clause.Like{Column: column, Value: cond.Value})
		case IN:
			values, ok := cond.Value.([]any)
			if !ok {
				values = []any{cond.Value}
			}
			return db.Where(clause.IN{Column: column, Values: values})
		default:
			return db
		}
	})
}

// QuerySortBy orders by Field when it is listed in Allow.
type QuerySortBy struct {
	Field     string
	Direction string
	Allow     map[string]bool
}

func WithQuerySortBy(field, direction string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{Field: field, Direction: direction, Allow: allow}
}

// WithSortBy applies the sort, falling back to created_at desc.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			field = "created_at"
		}
		desc := !strings.EqualFold(strings.TrimSpace(sort.Direction), "asc")
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: field}, Desc: desc})
	})
}

// ApplyPagination pages by descending snowflake id. It fetches one extra row
// so callers can tell whether another page exists.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := NormalizePageSize(page.PageSize)
		if token := strings.TrimSpace(page.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil && cursor != nil {
				if id, parseErr := strconv.ParseInt(cursor.ID, 10, 64); parseErr == nil {
					db = db.Where(clause.Lt{Column: clause.Column{Name: "id"}, Value: id})
				}
			}
		}
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).Limit(size + 1)
	})
}

func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
