package session

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

var scoutAdjectives = []string{
	"Brave", "Swift", "Wise", "Noble", "Bright", "Wild", "Free", "Bold", "Calm", "True",
	"Quick", "Sharp", "Clear", "Strong", "Fair", "Kind", "Good", "Pure", "Fresh", "New",
	"Golden", "Silver", "Copper", "Iron", "Steel", "Oak", "Pine", "Maple", "Cedar", "Birch",
}

var scoutNouns = []string{
	"Scout", "Explorer", "Trailblazer", "Pathfinder", "Navigator", "Pioneer", "Ranger",
	"Guide", "Leader", "Helper", "Friend", "Companion", "Partner", "Buddy", "Pal",
	"Eagle", "Wolf", "Bear", "Lion", "Tiger", "Fox", "Hawk", "Owl", "Deer", "Beaver",
	"Squirrel", "Raccoon", "Badger", "Moose", "Elk", "Antelope", "Coyote", "Bobcat",
	"Trail", "Path", "Road", "Way", "Route", "Track", "Course", "Journey", "Adventure",
	"Quest", "Mission", "Task", "Duty", "Service", "Honor", "Courage", "Loyalty",
}

// GenerateName produces a scout-themed anonymous display name of the form
// AdjectiveNoun<0-99>. The space is large enough that collisions stay rare
// without any central allocation.
func GenerateName() string {
	adjective := scoutAdjectives[rand.Intn(len(scoutAdjectives))]
	noun := scoutNouns[rand.Intn(len(scoutNouns))]
	return fmt.Sprintf("%s%s%d", adjective, noun, rand.Intn(100))
}

// NewUserID returns a fresh stable user identifier.
func NewUserID() string {
	return "user_" + uuid.NewString()
}

// NewSessionID returns a fresh per-resolution session identifier.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}
