package yt_fetch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/alanbriolat/yt-fetch/generic"
)

var (
	ErrBulkFileNotFound = errors.New("bulk file not found")
	ErrEmptyInput       = errors.New("empty input")
	ErrInvalidLimit     = errors.New("search limit must be at least 1")
)

// Schemes that mark an input as a direct locator rather than a search query.
var urlSchemes = generic.NewSet("http", "https")

// The engine's search extractor prefix; "ytsearch3:foo" asks for the top 3 results for "foo".
const searchPrefix = "ytsearch"

type TargetKind int

const (
	TargetURL TargetKind = iota
	TargetSearch
)

func (k TargetKind) String() string {
	switch k {
	case TargetURL:
		return "url"
	case TargetSearch:
		return "search"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target is one normalized unit of work handed to the engine.
type Target struct {
	Kind TargetKind
	// Value is the engine-facing string: the URL itself, or a bounded search expression.
	Value string
}

func (t Target) String() string {
	return t.Value
}

// SearchTarget builds the bounded search expression for query.
func SearchTarget(query string, limit int) Target {
	return Target{Kind: TargetSearch, Value: fmt.Sprintf("%s%d:%s", searchPrefix, limit, query)}
}

// IsURL reports whether s starts with one of the recognised network scheme prefixes.
func IsURL(s string) bool {
	scheme, _, found := strings.Cut(s, "://")
	return found && urlSchemes.Contains(scheme)
}

func MatchURL(value string, _ int) (*Target, error) {
	if !IsURL(value) {
		return nil, fmt.Errorf("not a URL: %q", value)
	}
	return &Target{Kind: TargetURL, Value: value}, nil
}

func MatchSearch(value string, limit int) (*Target, error) {
	t := SearchTarget(value, limit)
	return &t, nil
}

// Normalize classifies a single free-text value using the DefaultProviderRegistry.
func Normalize(value string, limit int) (Target, error) {
	match, err := DefaultProviderRegistry.Match(value, limit)
	if err != nil {
		return Target{}, err
	}
	return match.Target, nil
}

// Inputs builds the targets for a single value plus an optional extra search query, in that order. The extra query
// is always treated as a search, even if it looks like a URL.
func Inputs(single string, extraSearch string, limit int) ([]Target, error) {
	var targets []Target
	if strings.TrimSpace(single) != "" {
		t, err := Normalize(single, limit)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if query := strings.TrimSpace(extraSearch); query != "" {
		if limit < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
		}
		targets = append(targets, SearchTarget(query, limit))
	}
	return targets, nil
}

// ParseBulk reads one input per line, skipping blank lines and lines starting with "#", preserving order.
func ParseBulk(r io.Reader, limit int) ([]Target, error) {
	var targets []Target
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := Normalize(line, limit)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		targets = append(targets, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bulk input: %w", err)
	}
	return targets, nil
}

// ReadBulkFile is ParseBulk on the named file. A missing file gives an error wrapping ErrBulkFileNotFound.
func ReadBulkFile(path string, limit int) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBulkFileNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return ParseBulk(f, limit)
}

// TargetStrings returns the engine-facing strings of targets, in order.
func TargetStrings(targets []Target) []string {
	res := make([]string, len(targets))
	for i, t := range targets {
		res[i] = t.String()
	}
	return res
}
