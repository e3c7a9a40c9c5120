package search

import (
	"context"
	"errors"
	"testing"

	"filmsearch/searchservice/internal/domain"
)

func TestYearListsValidatesYear(t *testing.T) {
	svc := newTestService(newFakeCatalog(), WithClock(fixedClock()))
	for _, year := range []int{1899, 2027} {
		if _, err := svc.YearLists(year); !errors.Is(err, domain.ErrInvalidYear) {
			t.Fatalf("YearLists(%d) error = %v, want ErrInvalidYear", year, err)
		}
	}
	if _, err := svc.YearLists(2026); err != nil {
		t.Fatalf("YearLists(2026): %v", err)
	}
}

func TestYearListsLoadsBothKinds(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("1999", domain.MediaMovie, 1, 30, makeItems("m", 1, 10))
	catalog.addPage("1999", domain.MediaMovie, 2, 30, makeItems("m", 11, 10))
	catalog.addPage("1999", domain.MediaSeries, 1, 4, makeItems("s", 1, 4))
	svc := newTestService(catalog, WithClock(fixedClock()))

	lists, err := svc.YearLists(1999)
	if err != nil {
		t.Fatalf("YearLists: %v", err)
	}
	snapshot, err := lists.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot.Movies.Items) != 10 || snapshot.Movies.Exhausted {
		t.Fatalf("unexpected movies %+v", snapshot.Movies)
	}
	if len(snapshot.Series.Items) != 4 || !snapshot.Series.Exhausted {
		t.Fatalf("unexpected series %+v", snapshot.Series)
	}

	movies, err := lists.LoadMore(context.Background(), domain.MediaMovie)
	if err != nil || len(movies.Items) != 20 {
		t.Fatalf("LoadMore movies: %d items, err=%v", len(movies.Items), err)
	}
	if _, err := lists.LoadMore(context.Background(), domain.MediaSeries); err != nil {
		t.Fatalf("LoadMore on an exhausted list: %v", err)
	}
	if got := catalog.searches.Load(); got != 3 {
		t.Fatalf("expected 3 catalog calls, got %d", got)
	}
	if _, err := lists.LoadMore(context.Background(), domain.MediaEpisode); err == nil {
		t.Fatal("expected an error for episodes")
	}
}

func TestYearListsLoadFailsOnlyWhenBothFail(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("2001", domain.MediaMovie, 1, 1, makeItems("m", 1, 1))
	catalog.failPage("2001", domain.MediaSeries, 1, transportErr(500))
	svc := newTestService(catalog, WithClock(fixedClock()))

	lists, _ := svc.YearLists(2001)
	snapshot, err := lists.Load(context.Background())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(snapshot.Movies.Items) != 1 || len(snapshot.Series.Items) != 0 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	catalog.failPage("2002", domain.MediaMovie, 1, transportErr(500))
	catalog.failPage("2002", domain.MediaSeries, 1, transportErr(500))
	lists, _ = svc.YearLists(2002)
	if _, err := lists.Load(context.Background()); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
