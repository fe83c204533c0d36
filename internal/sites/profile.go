package sites

import (
	"github.com/pders01/scrp/internal/extract"
	"github.com/pders01/scrp/internal/storage"
)

// Profile describes how to scrape one known site: which listing URLs
// it covers, the selectors that pull article parts out of the page,
// and the channel metadata its feeds carry.
type Profile interface {
	// Name returns the profile name for identification
	Name() string

	// CanHandle returns true if this profile covers the given listing URL
	CanHandle(url string) bool

	// Selectors returns the selector set for the listing page
	Selectors() extract.Selectors

	// Channel returns the feed channel metadata for the site
	Channel() storage.Channel

	// Priority breaks ties when multiple profiles match (higher wins)
	Priority() int
}

// Registry manages all registered profiles
type Registry struct {
	profiles []Profile
}

// NewRegistry creates a registry preloaded with the built-in profiles
func NewRegistry() *Registry {
	r := &Registry{profiles: make([]Profile, 0)}
	r.Register(NewSamakalOpinion())
	return r
}

// Register adds a profile to the registry
func (r *Registry) Register(p Profile) {
	r.profiles = append(r.profiles, p)
}

// Find returns the best profile for a listing URL: the matching
// profile with the highest priority, or nil when nothing matches.
func (r *Registry) Find(url string) Profile {
	var best Profile
	highest := -1

	for _, p := range r.profiles {
		if p.CanHandle(url) && p.Priority() > highest {
			best = p
			highest = p.Priority()
		}
	}

	return best
}

// List returns all registered profiles
func (r *Registry) List() []Profile {
	return append([]Profile(nil), r.profiles...)
}
