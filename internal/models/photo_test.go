package models

import (
	"testing"
	"time"
)

func ids(photos []Photo) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewCatalogHasBoardCategories(t *testing.T) {
	c := NewCatalog()
	for _, cat := range BoardCategories {
		if c[cat] == nil {
			t.Errorf("category %q missing", cat)
		}
	}
	if _, ok := c[Archived]; ok {
		t.Error("archived should be omitted from the empty catalog")
	}
}

func TestCategoryValidity(t *testing.T) {
	cases := []struct {
		cat     Category
		valid   bool
		movable bool
	}{
		{Todo, true, true},
		{Doing, true, true},
		{Done, true, true},
		{Archived, true, false},
		{"trash", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		if got := tc.cat.Valid(); got != tc.valid {
			t.Errorf("%q.Valid() = %v, want %v", tc.cat, got, tc.valid)
		}
		if got := tc.cat.Movable(); got != tc.movable {
			t.Errorf("%q.Movable() = %v, want %v", tc.cat, got, tc.movable)
		}
	}
}

func TestPrependKeepsBatchOrder(t *testing.T) {
	c := NewCatalog()
	c.Append(Todo, Photo{ID: "old"})
	c.Prepend(Todo, []Photo{{ID: "a"}, {ID: "b"}})
	if got, want := ids(c[Todo]), []string{"a", "b", "old"}; !equalIDs(got, want) {
		t.Errorf("todo = %v, want %v", got, want)
	}
}

func TestRemoveDoesNotAliasClone(t *testing.T) {
	c := NewCatalog()
	c.Append(Todo, Photo{ID: "a"})
	c.Append(Todo, Photo{ID: "b"})
	c.Append(Todo, Photo{ID: "c"})

	cp := c.Clone()
	cp.Remove(Todo, 0)

	if got, want := ids(c[Todo]), []string{"a", "b", "c"}; !equalIDs(got, want) {
		t.Errorf("original mutated: %v", got)
	}
	if got, want := ids(cp[Todo]), []string{"b", "c"}; !equalIDs(got, want) {
		t.Errorf("clone = %v, want %v", got, want)
	}
}

func TestCloneCopiesTimestamps(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	c := NewCatalog()
	c.Append(Doing, Photo{ID: "a", MovedAt: &now})

	cp := c.Clone()
	later := now.Add(time.Hour)
	*cp[Doing][0].MovedAt = later

	if !c[Doing][0].MovedAt.Equal(now) {
		t.Error("clone shares MovedAt with original")
	}
}

func TestFindUsesScanOrder(t *testing.T) {
	c := NewCatalog()
	c.Append(Done, Photo{ID: "x", Filename: "done"})
	c.Append(Todo, Photo{ID: "x", Filename: "todo"})

	p, cat, i, ok := c.Find("x", BoardCategories...)
	if !ok || cat != Todo || i != 0 || p.Filename != "todo" {
		t.Errorf("Find = %+v %q %d %v", p, cat, i, ok)
	}
	if _, _, _, ok := c.Find("missing", BoardCategories...); ok {
		t.Error("expected miss")
	}
}

func TestPhotoURL(t *testing.T) {
	got := PhotoURL("/static/uploads", Doing, "abc.jpg")
	if got != "/static/uploads/doing/abc.jpg" {
		t.Errorf("url = %q", got)
	}
	if got := PhotoURL("static/uploads/", Todo, "x.png"); got != "/static/uploads/todo/x.png" {
		t.Errorf("url = %q", got)
	}
}
