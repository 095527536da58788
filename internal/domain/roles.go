package domain

// RoleSets holds the role-time classification tables. Jobs that appear in
// none of them are regular station jobs.
type RoleSets struct {
	NonRoles        []string
	TraitRoles      []string
	SpawnerRoles    []string
	GhostRoles      []string
	AntagonistRoles []string
}

// DefaultRoleSets returns the built-in tables
func DefaultRoleSets() RoleSets {
	return RoleSets{
		NonRoles:        nonRoles,
		TraitRoles:      traitRoles,
		SpawnerRoles:    spawnerRoles,
		GhostRoles:      ghostRoles,
		AntagonistRoles: antagonistRoles,
	}
}

// Override replaces each table for which a non-nil list is given
func (r RoleSets) Override(nonRoles, trait, spawner, ghost, antagonist []string) RoleSets {
	if nonRoles != nil {
		r.NonRoles = nonRoles
	}
	if trait != nil {
		r.TraitRoles = trait
	}
	if spawner != nil {
		r.SpawnerRoles = spawner
	}
	if ghost != nil {
		r.GhostRoles = ghost
	}
	if antagonist != nil {
		r.AntagonistRoles = antagonist
	}
	return r
}

// Experience buckets tracked alongside real jobs
var nonRoles = []string{
	"Living", "Ghost", "Admin", "Crew", "Command", "Engineering", "Medical",
	"Science", "Supply", "Security", "Silicon", "Service", "Special",
}

// Jobs only opened up by station traits
var traitRoles = []string{
	"Bridge Assistant", "Cargorilla", "Veteran Advisor", "Human AI",
	"Pun Pun", "Coroner",
}

// Roles taken from spawners found in the world
var spawnerRoles = []string{
	"Ash Walker", "Lavaland Syndicate", "Space Syndicate", "Hermit",
	"Beach Bum", "Free Golem", "Servant Golem", "Escaped Prisoner",
	"Skeleton", "Zombie", "Ancient Crew", "Derelict Drone", "Space Bar Patron",
	"Lifebringer", "Hotel Staff", "Syndicate Cybersun Captain",
}

// Roles offered to ghosts by polls
var ghostRoles = []string{
	"pAI", "Drone", "Maintenance Drone", "Positronic Brain",
	"Sentient Animal", "Sentient Disease", "Posibrain", "Emergency Response Team",
	"Deathsquad", "Santa", "Revenant", "Fugitive", "Fugitive Hunter",
}

// Antagonist datums
var antagonistRoles = []string{
	"Traitor", "Changeling", "Heretic", "Cultist", "Blood Cultist",
	"Clock Cultist", "Nuclear Operative", "Wizard", "Apprentice",
	"Revolutionary", "Head Revolutionary", "Blob", "Xenomorph",
	"Malf AI", "Space Ninja", "Abductor", "Nightmare", "Obsessed",
	"Morph", "Space Dragon", "Blood Brother", "Spy", "Pirate", "Paradox Clone",
}
