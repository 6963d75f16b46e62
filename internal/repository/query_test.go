package repository

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

func seedPeople(t *testing.T) (UserRepository, []*domain.User) {
	t.Helper()
	db := newRepositoryDBForTest(t)
	f := seedFixture(t, db)
	names := [][2]string{
		{"Alice", "Martin"}, {"Bob", "Stone"}, {"Carla", "Stone"}, {"Dan", "Brown"},
		{"Eve", "Adams"}, {"Frank", "Zhou"}, {"Gina", "Lopez"}, {"Hugo", "Petit"},
		{"Ines", "Garcia"}, {"Jules", "Moreau"}, {"Karl", "Weber"}, {"Lena", "Novak"},
	}
	users := make([]*domain.User, 0, len(names))
	for i, n := range names {
		users = append(users, createUserForTest(t, db, f, fmt.Sprintf("user%02d@example.com", i), n[0], n[1]))
	}
	return NewUserRepository(db), users
}

func TestFindPageDefaultsToTenRowsAndCountsAllMatches(t *testing.T) {
	repo, _ := seedPeople(t)
	page, err := repo.Search(context.Background(), TableState{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Items) != DefaultRows {
		t.Fatalf("expected %d rows, got %d", DefaultRows, len(page.Items))
	}
	if page.Count != 12 {
		t.Fatalf("expected count 12, got %d", page.Count)
	}

	page, err = repo.Search(context.Background(), TableState{First: 10, Rows: 5})
	if err != nil {
		t.Fatalf("search second window: %v", err)
	}
	if len(page.Items) != 2 || page.Count != 12 {
		t.Fatalf("expected 2 rows of 12, got %d of %d", len(page.Items), page.Count)
	}
}

func TestFindPageDefaultOrderIsFirstAttributeAscending(t *testing.T) {
	repo, users := seedPeople(t)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.String())
	}
	sort.Strings(ids)

	page, err := repo.Search(context.Background(), TableState{Rows: 20, Sorts: []SortDirective{{Field: "last_name", Order: 0}}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for i, u := range page.Items {
		if u.ID.String() != ids[i] {
			t.Fatalf("row %d: expected id %s, got %s", i, ids[i], u.ID)
		}
	}
}

func TestFindPageSortDirectives(t *testing.T) {
	repo, _ := seedPeople(t)
	page, err := repo.Search(context.Background(), TableState{
		Rows: 3,
		Sorts: []SortDirective{
			{Field: "FirstName", Order: 2},
			{Field: "lastName", Order: 1},
		},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := []string{page.Items[0].FullName(), page.Items[1].FullName(), page.Items[2].FullName()}
	want := []string{"Eve Adams", "Dan Brown", "Ines Garcia"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	page, err = repo.Search(context.Background(), TableState{
		Rows:  2,
		Sorts: []SortDirective{{Field: "last_name", Order: 2}},
	})
	if err != nil {
		t.Fatalf("search desc: %v", err)
	}
	if page.Items[0].LastName != "Zhou" || page.Items[1].LastName != "Weber" {
		t.Fatalf("expected descending last names, got %s, %s", page.Items[0].LastName, page.Items[1].LastName)
	}
}

func TestFindPageFilters(t *testing.T) {
	repo, users := seedPeople(t)
	tests := []struct {
		name    string
		filters map[string]FilterItem
		want    int64
	}{
		{"contains", map[string]FilterItem{"lastName": NewFilter(MatchContains, "ton")}, 2},
		{"starts with", map[string]FilterItem{"first_name": NewFilter(MatchStartsWith, "Ca")}, 1},
		{"ends with", map[string]FilterItem{"LASTNAME": NewFilter(MatchEndsWith, "ez")}, 1},
		{"equals", map[string]FilterItem{"email": NewFilter(MatchEquals, "user03@example.com")}, 1},
		{"not equals", map[string]FilterItem{"last_name": NewFilter("notequals", "Stone")}, 10},
		{"and combined", map[string]FilterItem{
			"last_name":  NewFilter(MatchEquals, "Stone"),
			"first_name": NewFilter(MatchEquals, "Bob"),
		}, 1},
		{"uuid equals", map[string]FilterItem{"id": NewFilter(MatchEquals, users[4].ID.String())}, 1},
		{"time range", map[string]FilterItem{"created_at": NewFilter(MatchLte, time.Now().Add(time.Hour).UTC().Format(time.RFC3339))}, 12},
		{"unknown field skipped", map[string]FilterItem{"nickname": NewFilter(MatchEquals, "x")}, 12},
		{"unknown mode skipped", map[string]FilterItem{"last_name": NewFilter("like", "Stone")}, 12},
		{"null value skipped", map[string]FilterItem{"last_name": {MatchMode: MatchEquals, Value: []byte("null")}}, 12},
		{"string mode on time skipped", map[string]FilterItem{"created_at": NewFilter(MatchContains, "2024")}, 12},
		{"unparseable value skipped", map[string]FilterItem{"created_at": NewFilter(MatchGte, "yesterday")}, 12},
		{"unparseable uuid skipped", map[string]FilterItem{"id": NewFilter(MatchEquals, "not-a-uuid")}, 12},
		{"like wildcards are literal", map[string]FilterItem{"last_name": NewFilter(MatchContains, "%")}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := repo.Search(context.Background(), TableState{Rows: 50, Filters: tc.filters})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if page.Count != tc.want {
				t.Fatalf("expected count %d, got %d", tc.want, page.Count)
			}
			if int64(len(page.Items)) != tc.want {
				t.Fatalf("expected %d items, got %d", tc.want, len(page.Items))
			}
		})
	}
}

func TestFindPageGlobalSearchAndArchivedRows(t *testing.T) {
	repo, users := seedPeople(t)
	ctx := context.Background()

	page, err := repo.Search(ctx, TableState{GlobalSearch: "carla s"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Count != 1 || page.Items[0].FirstName != "Carla" {
		t.Fatalf("expected Carla Stone, got %+v", page.Items)
	}

	if err := repo.Archive(ctx, users[2].ID, time.Now().UTC()); err != nil {
		t.Fatalf("archive: %v", err)
	}
	page, err = repo.Search(ctx, TableState{GlobalSearch: "stone"})
	if err != nil {
		t.Fatalf("search after archive: %v", err)
	}
	if page.Count != 1 || page.Items[0].FirstName != "Bob" {
		t.Fatalf("expected archived user hidden, got %+v", page.Items)
	}
}

func TestFindPageNumericFiltersOnSlots(t *testing.T) {
	db := newRepositoryDBForTest(t)
	f := seedFixture(t, db)
	teacher := createUserForTest(t, db, f, "teacher@example.com", "Tess", "Teacher")
	start := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, price := range []float64{10, 20, 30, 40} {
		createSlotForTest(t, db, f, teacher.ID, start.Add(time.Duration(i)*2*time.Hour), time.Hour, price)
	}
	repo := NewSlotRepository(db)

	page, err := repo.Search(context.Background(), TableState{Filters: map[string]FilterItem{
		"price":     {MatchMode: MatchGte, Value: []byte("20")},
		"date_from": NewFilter(MatchLt, start.Add(5*time.Hour).Format(time.RFC3339)),
	}, Sorts: []SortDirective{{Field: "price", Order: -1}}})
	if err != nil {
		t.Fatalf("search slots: %v", err)
	}
	if page.Count != 2 {
		t.Fatalf("expected 2 slots, got %d", page.Count)
	}
	if page.Items[0].Price != 30 || page.Items[1].Price != 20 {
		t.Fatalf("expected prices 30, 20 got %v, %v", page.Items[0].Price, page.Items[1].Price)
	}
}

func TestFieldSetLookupIsCaseInsensitive(t *testing.T) {
	db := newRepositoryDBForTest(t)
	fs, err := FieldsOf(db, &domain.Slot{})
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	for _, name := range []string{"DateFrom", "datefrom", "date_from", "DATE_FROM"} {
		field, ok := fs.Lookup(name)
		if !ok || field.Column != "date_from" {
			t.Fatalf("lookup %q: got %+v ok=%v", name, field, ok)
		}
	}
	if _, ok := fs.Lookup("Teacher"); ok {
		t.Fatal("relations must not be filterable")
	}
	if fs.First().Column != "id" {
		t.Fatalf("expected id as first attribute, got %s", fs.First().Column)
	}
}

func TestFieldSetHidesJSONOmittedColumns(t *testing.T) {
	repo, _ := seedPeople(t)
	db := newRepositoryDBForTest(t)
	fs, err := FieldsOf(db, &domain.User{})
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	for _, name := range []string{"password_hash", "PasswordHash", "avatar_key"} {
		if _, ok := fs.Lookup(name); ok {
			t.Fatalf("%s must not be queryable", name)
		}
	}

	exprs, skipped := fs.Where(map[string]FilterItem{"password_hash": NewFilter(MatchStartsWith, "ha")})
	if len(exprs) != 0 || len(skipped) != 1 || skipped[0].Reason != "unknown_field" {
		t.Fatalf("expected password filter skipped, got exprs=%d skipped=%v", len(exprs), skipped)
	}
	_, sortSkipped := fs.OrderBy([]SortDirective{{Field: "password_hash", Order: 1}})
	if len(sortSkipped) != 1 || sortSkipped[0].Reason != "unknown_sort_field" {
		t.Fatalf("expected password sort skipped, got %v", sortSkipped)
	}

	page, err := repo.Search(context.Background(), TableState{
		Filters: map[string]FilterItem{"password_hash": NewFilter(MatchEquals, "nope")},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Count != 12 {
		t.Fatalf("expected hidden column filter ignored, got count %d", page.Count)
	}
}
