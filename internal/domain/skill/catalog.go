// Package skill holds the static skill catalog: the ordered list of skill names
// and the hiscore table identifier each one maps to.
package skill

import "strings"

// Overall is the aggregate skill every unknown name falls back to.
const Overall = "overall"

// Skill is a single catalog entry.
type Skill struct {
	// Name is the lower-case skill name, e.g. "attack".
	Name string

	// TableID is the hiscore table identifier. It doubles as the line index in
	// the lite stats format and as the id in the JSON stats format.
	TableID int
}

// catalog order matters: it is the line order of the hiscore lite format.
var catalog = []string{
	"overall", "attack", "defence", "strength", "constitution", "ranged", "prayer",
	"magic", "cooking", "woodcutting", "fletching", "fishing", "firemaking",
	"crafting", "smithing", "mining", "herblore", "agility", "thieving",
	"slayer", "farming", "runecrafting", "hunter", "construction", "summoning",
	"dungeoneering", "divination", "invention",
}

var byName = func() map[string]Skill {
	m := make(map[string]Skill, len(catalog))
	for i, name := range catalog {
		m[name] = Skill{Name: name, TableID: i}
	}
	return m
}()

// Resolve looks a skill up by name, ignoring case and surrounding whitespace.
func Resolve(name string) (Skill, bool) {
	s, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// ResolveOrOverall never fails: unknown names resolve to the overall skill.
func ResolveOrOverall(name string) Skill {
	if s, ok := Resolve(name); ok {
		return s
	}
	return byName[Overall]
}

// TableID returns the hiscore table identifier for name, or overall's for unknown names.
func TableID(name string) int {
	return ResolveOrOverall(name).TableID
}

// ByTableID returns the skill at a table identifier.
func ByTableID(id int) (Skill, bool) {
	if id < 0 || id >= len(catalog) {
		return Skill{}, false
	}
	return Skill{Name: catalog[id], TableID: id}, true
}

// All returns every skill in catalog order.
func All() []Skill {
	out := make([]Skill, len(catalog))
	for i, name := range catalog {
		out[i] = Skill{Name: name, TableID: i}
	}
	return out
}

// Names returns every skill name in catalog order.
func Names() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// Count is the number of skills in the catalog.
func Count() int {
	return len(catalog)
}
