package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

const (
	DefaultRows = 10
	MaxRows     = 1000
)

type MatchMode string

const (
	MatchEquals     MatchMode = "equals"
	MatchNotEquals  MatchMode = "notEquals"
	MatchContains   MatchMode = "contains"
	MatchStartsWith MatchMode = "startsWith"
	MatchEndsWith   MatchMode = "endsWith"
	MatchGte        MatchMode = "gte"
	MatchLte        MatchMode = "lte"
	MatchGt         MatchMode = "gt"
	MatchLt         MatchMode = "lt"
)

var matchModes = map[string]MatchMode{
	"equals":     MatchEquals,
	"notequals":  MatchNotEquals,
	"contains":   MatchContains,
	"startswith": MatchStartsWith,
	"endswith":   MatchEndsWith,
	"gte":        MatchGte,
	"lte":        MatchLte,
	"gt":         MatchGt,
	"lt":         MatchLt,
}

// SortDirective orders by Field. Order 1 is ascending, any other non-zero value
// descending, and 0 disables the directive.
type SortDirective struct {
	Field string `json:"field"`
	Order int    `json:"order"`
}

type FilterItem struct {
	Value     json.RawMessage `json:"value"`
	MatchMode MatchMode       `json:"match_mode"`
}

// NewFilter builds a filter from a Go value, mostly for callers that do not decode JSON.
func NewFilter(mode MatchMode, value any) FilterItem {
	raw, err := json.Marshal(value)
	if err != nil {
		raw = nil
	}
	return FilterItem{Value: raw, MatchMode: mode}
}

// TableState is the generic list request accepted by every searchable collection.
type TableState struct {
	First        int                   `json:"first"`
	Rows         int                   `json:"rows"`
	GlobalSearch string                `json:"global_search"`
	Sorts        []SortDirective       `json:"sorts"`
	Filters      map[string]FilterItem `json:"filters"`
}

func (s TableState) offset() int {
	if s.First < 0 {
		return 0
	}
	return s.First
}

func (s TableState) limit() int {
	switch {
	case s.Rows <= 0:
		return DefaultRows
	case s.Rows > MaxRows:
		return MaxRows
	default:
		return s.Rows
	}
}

type Page[T any] struct {
	Items []T
	Count int64
}

type Field struct {
	Name   string
	Column string
	Type   reflect.Type
}

// FieldSet is the filterable and sortable attribute metadata of one entity,
// derived from its gorm schema in declaration order.
type FieldSet struct {
	Entity string
	fields []Field
	index  map[string]int
}

var (
	schemaCache sync.Map
	fieldSets   sync.Map

	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

func FieldsOf(db *gorm.DB, model any) (*FieldSet, error) {
	key := reflect.Indirect(reflect.ValueOf(model)).Type()
	if cached, ok := fieldSets.Load(key); ok {
		return cached.(*FieldSet), nil
	}
	s, err := schema.Parse(model, &schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("parse schema of %s: %w", key.Name(), err)
	}
	fs := &FieldSet{Entity: s.Table, index: make(map[string]int)}
	for _, f := range s.Fields {
		// Columns hidden from JSON, such as password hashes, are never queryable.
		if f.DBName == "" || jsonName(f.Tag) == "-" {
			continue
		}
		t := f.FieldType
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		pos := len(fs.fields)
		fs.fields = append(fs.fields, Field{Name: f.Name, Column: f.DBName, Type: t})
		for _, alias := range []string{f.Name, f.DBName, jsonName(f.Tag)} {
			alias = strings.ToLower(alias)
			if alias == "" || alias == "-" {
				continue
			}
			if _, taken := fs.index[alias]; !taken {
				fs.index[alias] = pos
			}
		}
	}
	if len(fs.fields) == 0 {
		return nil, fmt.Errorf("entity %s has no columns", key.Name())
	}
	actual, _ := fieldSets.LoadOrStore(key, fs)
	return actual.(*FieldSet), nil
}

func mustFieldsOf(db *gorm.DB, model any) *FieldSet {
	fs, err := FieldsOf(db, model)
	if err != nil {
		panic(err)
	}
	return fs
}

func jsonName(tag reflect.StructTag) string {
	name, _, _ := strings.Cut(tag.Get("json"), ",")
	return name
}

// Lookup resolves a client supplied attribute name case-insensitively against
// the Go field name, the column name or the JSON name.
func (fs *FieldSet) Lookup(name string) (Field, bool) {
	pos, ok := fs.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Field{}, false
	}
	return fs.fields[pos], true
}

func (fs *FieldSet) First() Field {
	return fs.fields[0]
}

// SkippedClause records a filter or sort directive that was ignored.
type SkippedClause struct {
	Field  string
	Reason string
}

// Where turns the filter map into AND-combined predicates. Filters on unknown
// attributes, with unknown modes, null or unparseable values are skipped.
func (fs *FieldSet) Where(filters map[string]FilterItem) ([]clause.Expression, []SkippedClause) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		exprs   []clause.Expression
		skipped []SkippedClause
	)
	for _, name := range names {
		expr, reason := fs.predicate(name, filters[name])
		if reason != "" {
			skipped = append(skipped, SkippedClause{Field: name, Reason: reason})
			continue
		}
		exprs = append(exprs, expr)
	}
	return exprs, skipped
}

func (fs *FieldSet) predicate(name string, item FilterItem) (clause.Expression, string) {
	field, ok := fs.Lookup(name)
	if !ok {
		return nil, "unknown_field"
	}
	mode, ok := matchModes[strings.ToLower(string(item.MatchMode))]
	if !ok {
		return nil, "unknown_mode"
	}
	text, ok := filterText(item.Value)
	if !ok {
		return nil, "null_value"
	}
	col := clause.Column{Table: clause.CurrentTable, Name: field.Column}

	switch mode {
	case MatchContains, MatchStartsWith, MatchEndsWith:
		if field.Type.Kind() != reflect.String {
			return nil, "string_mode_on_non_string"
		}
		return clause.Expr{SQL: "? LIKE ? ESCAPE '!'", Vars: []any{col, likePattern(mode, text)}}, ""
	}

	value, err := convertFilterValue(text, field.Type)
	if err != nil {
		return nil, "unparseable_value"
	}
	switch mode {
	case MatchEquals:
		return clause.Eq{Column: col, Value: value}, ""
	case MatchNotEquals:
		return clause.Neq{Column: col, Value: value}, ""
	case MatchGte:
		return clause.Gte{Column: col, Value: value}, ""
	case MatchLte:
		return clause.Lte{Column: col, Value: value}, ""
	case MatchGt:
		return clause.Gt{Column: col, Value: value}, ""
	default:
		return clause.Lt{Column: col, Value: value}, ""
	}
}

// OrderBy drops disabled directives, ranks the rest by their order value and
// falls back to the first declared attribute ascending.
func (fs *FieldSet) OrderBy(sorts []SortDirective) ([]clause.OrderByColumn, []SkippedClause) {
	active := make([]SortDirective, 0, len(sorts))
	for _, s := range sorts {
		if s.Order != 0 {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Order < active[j].Order })

	var (
		cols    []clause.OrderByColumn
		skipped []SkippedClause
		seen    = make(map[string]bool)
	)
	for _, s := range active {
		field, ok := fs.Lookup(s.Field)
		if !ok {
			skipped = append(skipped, SkippedClause{Field: s.Field, Reason: "unknown_sort_field"})
			continue
		}
		if seen[field.Column] {
			continue
		}
		seen[field.Column] = true
		cols = append(cols, clause.OrderByColumn{
			Column: clause.Column{Table: clause.CurrentTable, Name: field.Column},
			Desc:   s.Order != 1,
		})
	}
	if len(cols) == 0 {
		first := fs.First()
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: first.Column}})
	}
	return cols, skipped
}

// PageQuery customises FindPage for one collection.
type PageQuery struct {
	// Search builds the global search predicate; nil disables global search.
	Search   func(term string) clause.Expression
	Scopes []func(*gorm.DB) *gorm.DB
	// Preload adds associations to the page query; the count query never sees it.
	Preload func(*gorm.DB) *gorm.DB
}

// FindPage applies filters, global search, ordering and pagination from state and
// returns the requested window together with the total number of matching rows.
func FindPage[T any](ctx context.Context, db *gorm.DB, fields *FieldSet, state TableState, q PageQuery) (page Page[T], err error) {
	ctx, span := observability.StartSpan(ctx, "repository.find_page",
		attribute.String("entity", fields.Entity),
		attribute.Int("first", state.offset()),
		attribute.Int("rows", state.limit()),
		attribute.Int("filters", len(state.Filters)),
	)
	defer func() {
		span.SetAttributes(attribute.Int64("count", page.Count))
		observability.EndSpan(span, err)
	}()

	var model T
	base := db.WithContext(ctx).Model(&model)
	for _, scope := range q.Scopes {
		base = scope(base)
	}

	exprs, skipped := fields.Where(state.Filters)
	if term := strings.TrimSpace(state.GlobalSearch); term != "" && q.Search != nil {
		exprs = append(exprs, q.Search(term))
	}
	if len(exprs) > 0 {
		base = base.Clauses(clause.Where{Exprs: exprs})
	}
	order, sortSkipped := fields.OrderBy(state.Sorts)
	for _, s := range append(skipped, sortSkipped...) {
		observability.RecordQueryClauseSkipped(ctx, fields.Entity, s.Reason)
	}
	base = base.Session(&gorm.Session{})

	if err := base.Count(&page.Count).Error; err != nil {
		return Page[T]{}, err
	}
	find := base.Clauses(clause.OrderBy{Columns: order}).Offset(state.offset()).Limit(state.limit())
	if q.Preload != nil {
		find = q.Preload(find)
	}
	if err := find.Find(&page.Items).Error; err != nil {
		return Page[T]{}, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// ContainsAny builds a case-insensitive OR of LIKE predicates over the given SQL
// expressions, for use as a global search.
func ContainsAny(columns ...string) func(term string) clause.Expression {
	return func(term string) clause.Expression {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		exprs := make([]clause.Expression, 0, len(columns))
		for _, col := range columns {
			exprs = append(exprs, clause.Expr{SQL: "LOWER(" + col + ") LIKE ? ESCAPE '!'", Vars: []any{pattern}})
		}
		return clause.Or(exprs...)
	}
}

func filterText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		return string(raw), true
	}
}

var errUnsupportedFilterType = errors.New("unsupported filter type")

func convertFilterValue(text string, t reflect.Type) (any, error) {
	text = strings.TrimSpace(text)
	switch t {
	case timeType:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if v, err := time.Parse(layout, text); err == nil {
				return v.UTC(), nil
			}
		}
		return nil, fmt.Errorf("parse time %q", text)
	case uuidType:
		return uuid.Parse(text)
	}
	switch t.Kind() {
	case reflect.String:
		return text, nil
	case reflect.Bool:
		return strconv.ParseBool(text)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(text, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(text, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(text, t.Bits())
	default:
		return nil, errUnsupportedFilterType
	}
}

func likePattern(mode MatchMode, text string) string {
	escaped := escapeLike(text)
	switch mode {
	case MatchStartsWith:
		return escaped + "%"
	case MatchEndsWith:
		return "%" + escaped
	default:
		return "%" + escaped + "%"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
