// Package media defines the vocabulary shared across the tracker: media
// types, metadata sources, and tracking statuses.
package media

import "fmt"

// Type identifies the kind of a tracked item.
type Type string

const (
	TypeTV      Type = "tv"
	TypeSeason  Type = "season"
	TypeEpisode Type = "episode"
	TypeMovie   Type = "movie"
	TypeAnime   Type = "anime"
	TypeManga   Type = "manga"
	TypeGame    Type = "game"
	TypeBook    Type = "book"
	TypeComic   Type = "comic"
)

// Types lists every media type, hierarchical ones included.
var Types = []Type{
	TypeTV, TypeSeason, TypeEpisode, TypeMovie,
	TypeAnime, TypeManga, TypeGame, TypeBook, TypeComic,
}

// TrackedTypes lists the types a user tracks directly. Episodes are watch
// events, not tracked media, and seasons are managed through their TV show.
var TrackedTypes = []Type{
	TypeTV, TypeSeason, TypeMovie, TypeAnime, TypeManga, TypeGame, TypeBook, TypeComic,
}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

func (t Type) String() string { return string(t) }

// Label returns the human-readable name of the type.
func (t Type) Label() string {
	switch t {
	case TypeTV:
		return "TV Show"
	case TypeSeason:
		return "Season"
	case TypeEpisode:
		return "Episode"
	case TypeMovie:
		return "Movie"
	case TypeAnime:
		return "Anime"
	case TypeManga:
		return "Manga"
	case TypeGame:
		return "Game"
	case TypeBook:
		return "Book"
	case TypeComic:
		return "Comic"
	}
	return string(t)
}

// ProgressStep is the unit a single increase/decrease moves progress by:
// one episode or chapter for most types, thirty minutes of playtime for games.
func (t Type) ProgressStep() int {
	if t == TypeGame {
		return 30
	}
	return 1
}

// Source identifies a metadata provider.
type Source string

const (
	SourceTMDB         Source = "tmdb"
	SourceMAL          Source = "mal"
	SourceMangaUpdates Source = "mangaupdates"
	SourceIGDB         Source = "igdb"
	SourceOpenLibrary  Source = "openlibrary"
	SourceHardcover    Source = "hardcover"
	SourceComicVine    Source = "comicvine"
	SourceManual       Source = "manual"
)

var Sources = []Source{
	SourceTMDB, SourceMAL, SourceMangaUpdates, SourceIGDB,
	SourceOpenLibrary, SourceHardcover, SourceComicVine, SourceManual,
}

func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

func (s Source) String() string { return string(s) }

// Label returns the human-readable name of the source.
func (s Source) Label() string {
	switch s {
	case SourceTMDB:
		return "The Movie Database"
	case SourceMAL:
		return "MyAnimeList"
	case SourceMangaUpdates:
		return "MangaUpdates"
	case SourceIGDB:
		return "Internet Game Database"
	case SourceOpenLibrary:
		return "Open Library"
	case SourceHardcover:
		return "Hardcover"
	case SourceComicVine:
		return "Comic Vine"
	case SourceManual:
		return "Manual"
	}
	return string(s)
}

// DefaultSource returns the provider used for a media type when the caller
// does not name one.
func DefaultSource(t Type) Source {
	switch t {
	case TypeTV, TypeSeason, TypeEpisode, TypeMovie:
		return SourceTMDB
	case TypeAnime, TypeManga:
		return SourceMAL
	case TypeGame:
		return SourceIGDB
	case TypeBook:
		return SourceOpenLibrary
	case TypeComic:
		return SourceComicVine
	}
	return SourceManual
}
