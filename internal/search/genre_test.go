package search

import (
	"context"
	"errors"
	"testing"

	"filmsearch/searchservice/internal/domain"
)

func genreCatalog() *fakeCatalog {
	catalog := newFakeCatalog()
	catalog.addPage("action", domain.MediaAny, 1, 4, []domain.CatalogItem{
		{ID: "m1"}, {ID: "m2"}, {ID: "m3"}, {ID: "m4"},
	})
	catalog.addPage("fight", domain.MediaAny, 1, 2, []domain.CatalogItem{
		{ID: "m2"}, {ID: "m5"},
	})
	catalog.addDetail(domain.CatalogItem{ID: "m1", Title: "One", Genre: "Action, Drama"})
	catalog.addDetail(domain.CatalogItem{ID: "m2", Title: "Two", Genre: "Comedy"})
	catalog.failDetail("m3", transportErr(502))
	catalog.addDetail(domain.CatalogItem{ID: "m4", Title: "Four", Genre: "Sci-Fi, ACTION"})
	catalog.addDetail(domain.CatalogItem{ID: "m5", Title: "Five", Genre: "Action-Comedy"})
	return catalog
}

func TestDiscoverGenreKeepsMatchingTitles(t *testing.T) {
	catalog := genreCatalog()
	svc := newTestService(catalog)

	result, err := svc.DiscoverGenre(context.Background(), GenreRequest{Genre: "Action"})
	if err != nil {
		t.Fatalf("DiscoverGenre: %v", err)
	}
	var ids []string
	for _, item := range result.Items {
		ids = append(ids, item.ID)
	}
	if len(ids) != 3 || ids[0] != "m1" || ids[1] != "m4" || ids[2] != "m5" {
		t.Fatalf("unexpected matches %v", ids)
	}
	if result.HasMore {
		t.Fatal("expected HasMore=false below the limit")
	}
	if result.Genre.ID != "action" {
		t.Fatalf("unexpected genre %+v", result.Genre)
	}
	// m2 was checked once even though two keywords returned it.
	if got := catalog.detailCalls.Load(); got != 5 {
		t.Fatalf("expected 5 detail calls, got %d", got)
	}
	// action p1, action p2 (not found), fight p1, fight p2, war p1.
	if got := catalog.searches.Load(); got != 5 {
		t.Fatalf("expected 5 searches, got %d", got)
	}
}

func TestDiscoverGenreStopsAtLimit(t *testing.T) {
	catalog := genreCatalog()
	svc := newTestService(catalog)

	result, err := svc.DiscoverGenre(context.Background(), GenreRequest{Genre: "action", Limit: 2})
	if err != nil {
		t.Fatalf("DiscoverGenre: %v", err)
	}
	if len(result.Items) != 2 || !result.HasMore {
		t.Fatalf("expected 2 items with more available, got %d (hasMore=%v)", len(result.Items), result.HasMore)
	}
	if got := catalog.searches.Load(); got != 1 {
		t.Fatalf("expected discovery to stop after the first page, got %d searches", got)
	}
}

func TestDiscoverGenreUnknownGenre(t *testing.T) {
	svc := newTestService(newFakeCatalog())
	if _, err := svc.DiscoverGenre(context.Background(), GenreRequest{Genre: "western"}); !errors.Is(err, domain.ErrUnknownGenre) {
		t.Fatalf("expected ErrUnknownGenre, got %v", err)
	}
}

func TestDiscoverGenreFailsOnlyWhenEverySearchFailed(t *testing.T) {
	catalog := newFakeCatalog()
	for _, keyword := range []string{"horror", "scary", "ghost"} {
		catalog.failPage(keyword, domain.MediaAny, 1, transportErr(503))
	}
	svc := newTestService(catalog)

	_, err := svc.DiscoverGenre(context.Background(), GenreRequest{Genre: "horror"})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestDiscoverGenreNoMatchesIsNotAnError(t *testing.T) {
	svc := newTestService(newFakeCatalog())
	result, err := svc.DiscoverGenre(context.Background(), GenreRequest{Genre: "mystery"})
	if err != nil {
		t.Fatalf("expected empty result, got %v", err)
	}
	if len(result.Items) != 0 || result.HasMore {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestLookupGenre(t *testing.T) {
	tests := map[string]string{
		"sci-fi":  "sci-fi",
		"Sci-Fi":  "sci-fi",
		"SCI FI":  "sci-fi",
		" Crime ": "crime",
	}
	for raw, want := range tests {
		genre, ok := LookupGenre(raw)
		if !ok || genre.ID != want {
			t.Fatalf("LookupGenre(%q) = %q,%v; want %q", raw, genre.ID, ok, want)
		}
	}
	if _, ok := LookupGenre("documentary"); ok {
		t.Fatal("expected documentary to be unknown")
	}
	if len(Genres) != 12 {
		t.Fatalf("expected 12 genres, got %d", len(Genres))
	}
}

func TestMatchesGenre(t *testing.T) {
	tests := []struct {
		list   string
		target string
		want   bool
	}{
		{"Action, Drama", "action", true},
		{"Animation, Adventure", "adventure", true},
		{"Sci-Fi", "sci-fi", true},
		{"Romantic Comedy", "comedy", true},
		{"Drama", "action", false},
		{"", "action", false},
		{"Action", "", false},
		{"N/A", "action", false},
	}
	for _, tt := range tests {
		genres := domain.CatalogItem{Genre: tt.list}.Genres()
		if got := matchesGenre(genres, tt.target); got != tt.want {
			t.Errorf("matchesGenre(%q, %q) = %v, want %v", tt.list, tt.target, got, tt.want)
		}
	}
}
