package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// Genre is a browsable genre. The catalog has no genre filter, so titles
// are found by searching Keywords and checking each candidate's genre list.
type Genre struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"-"`
}

var Genres = []Genre{
	{ID: "action", Name: "Action", Keywords: []string{"action", "fight", "war", "battle", "martial arts"}},
	{ID: "adventure", Name: "Adventure", Keywords: []string{"adventure", "journey", "quest", "expedition"}},
	{ID: "comedy", Name: "Comedy", Keywords: []string{"comedy", "funny", "humor", "comedic"}},
	{ID: "drama", Name: "Drama", Keywords: []string{"drama", "emotional", "dramatic"}},
	{ID: "horror", Name: "Horror", Keywords: []string{"horror", "scary", "ghost", "zombie", "haunted"}},
	{ID: "thriller", Name: "Thriller", Keywords: []string{"thriller", "suspense", "chase", "tense"}},
	{ID: "sci-fi", Name: "Sci-Fi", Keywords: []string{"sci-fi", "science fiction", "space", "future", "alien"}},
	{ID: "romance", Name: "Romance", Keywords: []string{"romance", "love", "dating", "romantic"}},
	{ID: "fantasy", Name: "Fantasy", Keywords: []string{"fantasy", "magic", "dragon", "wizard"}},
	{ID: "animation", Name: "Animation", Keywords: []string{"animation", "animated", "cartoon", "anime"}},
	{ID: "crime", Name: "Crime", Keywords: []string{"crime", "gangster", "mafia", "robbery", "criminal"}},
	{ID: "mystery", Name: "Mystery", Keywords: []string{"mystery", "detective", "murder", "investigation", "who done it"}},
}

// LookupGenre finds a genre by id or display name, ignoring case and
// treating spaces as hyphens.
func LookupGenre(raw string) (Genre, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return Genre{}, false
	}
	slug := strings.Join(strings.Fields(value), "-")
	for _, genre := range Genres {
		if genre.ID == slug || strings.ToLower(genre.Name) == value {
			return genre, true
		}
	}
	return Genre{}, false
}

// matchesGenre reports whether any of genres equals or contains target.
func matchesGenre(genres []string, target string) bool {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(target))
	if want == "" {
		return false
	}
	for _, genre := range genres {
		got := fold.String(genre)
		if got == want || strings.Contains(got, want) {
			return true
		}
	}
	return false
}
