package yt_fetch

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/yt-fetch/generic"
)

var (
	ErrDuplicateProvider = errors.New("duplicate provider name")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrNoMatch           = errors.New("no provider matched the input")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// A MatchFunc classifies a single (already trimmed, non-empty) input value, returning a nil Target and an error
// describing why if the value isn't something it handles. The limit is the search result count to request.
type MatchFunc = func(value string, limit int) (*Target, error)

// A Provider turns input values it recognises into a Target.
type Provider struct {
	Name  string
	Match MatchFunc
	// Priority of the matcher, lower (including negative) means matching earlier.
	Priority int16
}

func (p Provider) WithPriority(priority int16) Provider {
	p.Priority = priority
	return p
}

// A Match is the result of a Provider successfully matching an input value.
type Match struct {
	ProviderName string
	Target       Target
}

// A ProviderRegistry is a collection of Provider instances which are tried in priority order.
type ProviderRegistry struct {
	providers   []*Provider
	providerMap map[string]*Provider
}

// Add registers a Provider with the ProviderRegistry. Provider.Name and Provider.Match must be set, and
// Provider.Name must be unique within the ProviderRegistry.
func (r *ProviderRegistry) Add(p Provider) error {
	if r.providerMap == nil {
		r.providerMap = make(map[string]*Provider)
	}
	if p.Name == "" || p.Match == nil {
		return ErrInvalidProvider
	}
	if _, ok := r.providerMap[p.Name]; ok {
		return ErrDuplicateProvider
	}
	r.providerMap[p.Name] = &p
	r.providers = append(r.providers, r.providerMap[p.Name])
	r.sortByPriority()
	return nil
}

// CreatePriority is a shortcut for Add(Provider{Name: ..., Match: ..., Priority: ...}).
func (r *ProviderRegistry) CreatePriority(name string, f MatchFunc, priority int16) error {
	return r.Add(Provider{
		Name:     name,
		Match:    f,
		Priority: priority,
	})
}

// List returns the names of registered providers in priority order.
func (r *ProviderRegistry) List() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name)
	}
	return names
}

// Match a value against each Provider in priority order. If nothing matches, the returned error wraps ErrNoMatch
// and carries each provider's reason.
func (r *ProviderRegistry) Match(value string, limit int) (*Match, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyInput
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	var result error = ErrNoMatch
	for _, p := range r.providers {
		target, err := p.Match(value, limit)
		if target != nil && err == nil {
			return &Match{ProviderName: p.Name, Target: *target}, nil
		}
		if err != nil {
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", p.Name)))
		}
	}
	return nil, result
}

// MustAdd wraps Add but panics if there is an error.
func (r *ProviderRegistry) MustAdd(p Provider) {
	generic.Unwrap_(r.Add(p))
}

func (r *ProviderRegistry) sortByPriority() {
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority < r.providers[j].Priority
	})
}

// NewDefaultProviderRegistry builds a registry that passes through network URLs and turns everything else into a
// search.
func NewDefaultProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{}
	r.MustAdd(Provider{Name: "url", Match: MatchURL})
	r.MustAdd(Provider{Name: "search", Match: MatchSearch}.WithPriority(PriorityLowest))
	return r
}

var DefaultProviderRegistry = NewDefaultProviderRegistry()
