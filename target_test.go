package yt_fetch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert := assert_.New(t)

	target, err := Normalize("https://www.youtube.com/watch?v=dQw4w9WgXcQ", 3)
	assert.NoError(err)
	assert.Equal(TargetURL, target.Kind)
	assert.Equal("https://www.youtube.com/watch?v=dQw4w9WgXcQ", target.String())

	target, err = Normalize("http://example.com/video", 3)
	assert.NoError(err)
	assert.Equal(TargetURL, target.Kind)

	target, err = Normalize("example query", 1)
	assert.NoError(err)
	assert.Equal(TargetSearch, target.Kind)
	assert.Equal("ytsearch1:example query", target.String())

	// Only http(s) counts as a locator
	target, err = Normalize("ftp://example.com/file", 5)
	assert.NoError(err)
	assert.Equal("ytsearch5:ftp://example.com/file", target.String())

	_, err = Normalize("   ", 1)
	assert.ErrorIs(err, ErrEmptyInput)

	_, err = Normalize("query", 0)
	assert.ErrorIs(err, ErrInvalidLimit)
}

func TestNormalize_SearchCarriesLimit(t *testing.T) {
	assert := assert_.New(t)
	for _, limit := range []int{1, 2, 10, 50} {
		target, err := Normalize("some words", limit)
		assert.NoError(err)
		assert.True(strings.HasPrefix(target.Value, SearchTarget("", limit).Value), "limit %d: %s", limit, target)
	}
}

func TestInputs(t *testing.T) {
	assert := assert_.New(t)

	targets, err := Inputs("example query", "", 1)
	assert.NoError(err)
	assert.Equal([]Target{{Kind: TargetSearch, Value: "ytsearch1:example query"}}, targets)

	targets, err = Inputs("https://youtu.be/abc", "lofi beats", 2)
	assert.NoError(err)
	assert.Equal([]string{"https://youtu.be/abc", "ytsearch2:lofi beats"}, TargetStrings(targets))

	// The extra query is a search even when it looks like a URL
	targets, err = Inputs("", "https://youtu.be/abc", 2)
	assert.NoError(err)
	assert.Equal([]string{"ytsearch2:https://youtu.be/abc"}, TargetStrings(targets))

	targets, err = Inputs("", "", 1)
	assert.NoError(err)
	assert.Empty(targets)
}

func TestParseBulk(t *testing.T) {
	assert := assert_.New(t)
	input := strings.Join([]string{
		"https://www.youtube.com/watch?v=one",
		"# a comment",
		"",
		"   ",
		"  second query  ",
		"    # indented comment",
		"https://www.youtube.com/playlist?list=three",
	}, "\n")

	targets, err := ParseBulk(strings.NewReader(input), 4)
	assert.NoError(err)
	assert.Equal([]string{
		"https://www.youtube.com/watch?v=one",
		"ytsearch4:second query",
		"https://www.youtube.com/playlist?list=three",
	}, TargetStrings(targets))
}

func TestParseBulk_OnlyComments(t *testing.T) {
	assert := assert_.New(t)
	targets, err := ParseBulk(strings.NewReader("# one\n\n#two\n"), 1)
	assert.NoError(err)
	assert.Empty(targets)
}

func TestReadBulkFile(t *testing.T) {
	require := require_.New(t)
	assert := assert_.New(t)

	path := filepath.Join(t.TempDir(), "inputs.txt")
	content := "https://example.com/a\n# skip me\n\nquery b\nhttps://example.com/c\n"
	require.NoError(os.WriteFile(path, []byte(content), 0o644))

	targets, err := ReadBulkFile(path, 1)
	require.NoError(err)
	assert.Len(targets, 3)
	assert.Equal([]string{"https://example.com/a", "ytsearch1:query b", "https://example.com/c"}, TargetStrings(targets))
}

func TestReadBulkFile_Missing(t *testing.T) {
	assert := assert_.New(t)
	_, err := ReadBulkFile(filepath.Join(t.TempDir(), "nope.txt"), 1)
	assert.True(errors.Is(err, ErrBulkFileNotFound))
}

func TestProviderRegistry(t *testing.T) {
	assert := assert_.New(t)

	r := &ProviderRegistry{}
	assert.ErrorIs(r.Add(Provider{Name: "broken"}), ErrInvalidProvider)
	assert.NoError(r.CreatePriority("search", MatchSearch, PriorityLowest))
	assert.NoError(r.CreatePriority("url", MatchURL, PriorityDefault))
	assert.ErrorIs(r.CreatePriority("url", MatchURL, PriorityHighest), ErrDuplicateProvider)
	assert.Equal([]string{"url", "search"}, r.List())

	match, err := r.Match("https://example.com/x", 1)
	assert.NoError(err)
	assert.Equal("url", match.ProviderName)

	match, err = r.Match("hello", 1)
	assert.NoError(err)
	assert.Equal("search", match.ProviderName)

	urlOnly := &ProviderRegistry{}
	urlOnly.MustAdd(Provider{Name: "url", Match: MatchURL})
	_, err = urlOnly.Match("hello", 1)
	assert.ErrorIs(err, ErrNoMatch)
	assert.Contains(err.Error(), "[url]")
}
