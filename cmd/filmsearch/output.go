package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/search"
)

type printer struct {
	out io.Writer
	err io.Writer
}

func newPrinter(out, err io.Writer) *printer {
	return &printer{out: out, err: err}
}

func (p *printer) Header(title string) {
	color.New(color.Bold).Fprintf(p.out, "\n%s\n", title)
	fmt.Fprintf(p.out, "%s\n", strings.Repeat("-", len([]rune(title))))
}

func (p *printer) Info(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Warning(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.err, "warning: "+format+"\n", args...)
}

// Failure prints err for a person at a terminal. Catalog errors are shown by
// kind only.
func (p *printer) Failure(err error) {
	summary, suggestion := describeError(err)
	color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", summary)
	if suggestion != "" {
		color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", suggestion)
	}
}

func describeError(err error) (summary, suggestion string) {
	var catalogErr *domain.CatalogError
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return search.MessageNotConfigured, "Set CATALOG_API_KEY (or OMDB_API_KEY) and try again."
	case errors.Is(err, domain.ErrRateLimited):
		return search.MessageRateLimited, "Wait a moment before retrying."
	case errors.Is(err, domain.ErrUnknownGenre):
		return search.MessageUnknownGenre, "Run 'filmsearch genre --list' to see the genres."
	case errors.As(err, &catalogErr),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrInvalidYear),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, context.DeadlineExceeded):
		return search.UserMessage(err), ""
	default:
		return err.Error(), ""
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

func renderItems(w io.Writer, items []domain.CatalogItem) error {
	table := newTable(w)
	table.Header([]string{"ID", "Title", "Year", "Type"})
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.ID, item.Title, item.Year, string(item.Type)})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func renderTitle(w io.Writer, item domain.CatalogItem) error {
	poster := item.Poster
	if !item.HasPoster() {
		poster = "none"
	}
	table := newTable(w)
	table.Header([]string{"Field", "Value"})
	fields := [][2]string{
		{"ID", item.ID},
		{"Title", item.Title},
		{"Year", item.Year},
		{"Type", string(item.Type)},
		{"Rated", item.Rated},
		{"Released", item.Released},
		{"Runtime", item.Runtime},
		{"Genre", strings.Join(item.Genres(), ", ")},
		{"Director", item.Director},
		{"Actors", item.Actors},
		{"Language", item.Language},
		{"Country", item.Country},
		{"Rating", item.IMDbRating},
		{"Poster", poster},
		{"Plot", item.Plot},
	}
	rows := make([][]string, 0, len(fields))
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		rows = append(rows, []string{field[0], field[1]})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
