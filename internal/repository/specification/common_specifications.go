package specification

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderable lists the columns conversation queries may sort on.
var orderable = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"sent_at":    true,
}

// OrderBy sorts on one of the orderable timestamp columns. Unknown fields are ignored.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	if !orderable[s.Field] {
		return db
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Field}, Desc: s.Desc})
}

// Pagination limits the result window. A zero Limit leaves it unbounded.
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	if s.Limit > 0 {
		db = db.Limit(s.Limit)
	}
	if s.Offset > 0 {
		db = db.Offset(s.Offset)
	}
	return db
}
