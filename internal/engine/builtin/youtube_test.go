package builtin

import (
	"context"
	"net/url"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/yt-fetch/internal/engine"
)

func mustParse(t *testing.T, s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestExtractVideoID(t *testing.T) {
	assert := assert_.New(t)
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=10":       "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=abc&list=PLxyz":       "abc",
		"http://music.youtube.com/watch?v=dQw4w9WgXcQ&feature": "dQw4w9WgXcQ",
	}
	for input, want := range cases {
		id, err := extractVideoID(mustParse(t, input))
		if assert.NoError(err, input) {
			assert.Equal(want, id, input)
		}
	}

	for _, input := range []string{
		"https://www.youtube.com/watch",
		"https://vimeo.com/12345",
		"https://youtu.be/",
		"https://www.youtube.com/feed/trending",
	} {
		_, err := extractVideoID(mustParse(t, input))
		assert.Error(err, input)
	}
}

func TestExtractPlaylistID(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("PLabc", extractPlaylistID(mustParse(t, "https://www.youtube.com/playlist?list=PLabc")))
	assert.Equal("", extractPlaylistID(mustParse(t, "https://www.youtube.com/watch?v=x&list=PLabc")))
	assert.Equal("", extractPlaylistID(mustParse(t, "https://example.com/playlist?list=PLabc")))
}

func TestExtract_Unsupported(t *testing.T) {
	assert := assert_.New(t)
	e := New()
	_, err := e.Extract(context.Background(), "ytsearch1:some query")
	assert.ErrorIs(err, engine.ErrUnsupported)
	_, err = e.Extract(context.Background(), "https://vimeo.com/12345")
	assert.ErrorIs(err, engine.ErrUnsupported)
}

func TestVideoURL(t *testing.T) {
	assert_.Equal(t, "https://www.youtube.com/watch?v=abc", VideoURL("abc"))
}
