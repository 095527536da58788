package stats

import (
	"strings"

	"github.com/ernie/stationstats/internal/domain"
)

// Category is one role-time filter toggle
type Category uint8

const (
	CategoryJobs Category = 1 << iota
	CategoryNonRole
	CategoryTrait
	CategorySpawner
	CategoryGhost
	CategoryAntagonist
)

// allCategories is the control order used on the player page
var allCategories = []Category{
	CategoryJobs, CategoryTrait, CategoryGhost, CategorySpawner, CategoryAntagonist, CategoryNonRole,
}

var categoryNames = map[Category]string{
	CategoryJobs:       "jobs",
	CategoryNonRole:    "other",
	CategoryTrait:      "trait",
	CategorySpawner:    "spawner",
	CategoryGhost:      "ghost",
	CategoryAntagonist: "antagonists",
}

var categoryLabels = map[Category]string{
	CategoryJobs:       "Jobs",
	CategoryNonRole:    "Other",
	CategoryTrait:      "Station Trait",
	CategorySpawner:    "Spawner",
	CategoryGhost:      "Ghost Offer",
	CategoryAntagonist: "Antagonist",
}

// Categories returns every category in display order
func Categories() []Category {
	return append([]Category(nil), allCategories...)
}

// Name returns the control name used in query strings
func (c Category) Name() string {
	return categoryNames[c]
}

// Label returns the human-readable toggle label
func (c Category) Label() string {
	return categoryLabels[c]
}

// ParseCategory maps a control name to its category
func ParseCategory(name string) (Category, bool) {
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Options is the set of enabled categories
type Options uint8

// DefaultOptions shows regular jobs and station trait roles
const DefaultOptions = Options(CategoryJobs | CategoryTrait)

// Has reports whether c is enabled
func (o Options) Has(c Category) bool {
	return o&Options(c) != 0
}

// With returns a copy of o with c switched on or off
func (o Options) With(c Category, on bool) Options {
	if on {
		return o | Options(c)
	}
	return o &^ Options(c)
}

// String encodes the options as a comma-separated list of control names
func (o Options) String() string {
	var names []string
	for _, c := range allCategories {
		if o.Has(c) {
			names = append(names, c.Name())
		}
	}
	return strings.Join(names, ",")
}

// ParseOptions decodes a comma-separated list of control names.
// Unknown names are ignored.
func ParseOptions(s string) Options {
	var o Options
	for _, name := range strings.Split(s, ",") {
		if c, ok := ParseCategory(strings.TrimSpace(name)); ok {
			o |= Options(c)
		}
	}
	return o
}

// Classifier maps jobs to the named categories that contain them
type Classifier struct {
	index map[string]Options
}

// NewClassifier builds a classifier from the role tables
func NewClassifier(sets domain.RoleSets) *Classifier {
	c := &Classifier{index: make(map[string]Options)}
	c.add(CategoryNonRole, sets.NonRoles)
	c.add(CategoryTrait, sets.TraitRoles)
	c.add(CategorySpawner, sets.SpawnerRoles)
	c.add(CategoryGhost, sets.GhostRoles)
	c.add(CategoryAntagonist, sets.AntagonistRoles)
	return c
}

func (c *Classifier) add(cat Category, jobs []string) {
	for _, job := range jobs {
		c.index[job] |= Options(cat)
	}
}

// Categories returns the named categories containing job; zero means a regular job
func (c *Classifier) Categories(job string) Options {
	return c.index[job]
}

// Visible reports whether job passes the filter. A regular job is gated by
// CategoryJobs alone; any other job needs every category it belongs to.
func (c *Classifier) Visible(job string, o Options) bool {
	cats := c.index[job]
	if cats == 0 {
		return o.Has(CategoryJobs)
	}
	return cats&^o == 0
}
