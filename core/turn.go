package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// markerSeparator follows the author name in transcript form: "NAME > text".
const markerSeparator = " >"

// Turn is one authored contribution to a conversation. After it has been
// appended to a session it must be treated as immutable.
//
// Authorship is carried as a first-class field. The textual "NAME > text"
// convention of transcript interchange only exists at the serialization
// boundary (Transcript / ParseTranscript).
type Turn struct {
	ID        string    `json:"id"`
	Author    Identity  `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserTurn creates a user-authored turn.
func NewUserTurn(content string) Turn {
	return Turn{ID: NewID(), Author: User, Content: content, Timestamp: time.Now().UTC()}
}

// NewAgentTurn creates a turn authored by the agent with the given identity.
func NewAgentTurn(author Identity, content string) Turn {
	return Turn{ID: NewID(), Author: author, Content: content, Timestamp: time.Now().UTC()}
}

// NewID generates a new unique identifier for turns, runs and artifacts.
func NewID() string { return uuid.NewString() }

// IsUser reports whether the turn was authored by the user. Any author that
// is not a known agent identity counts as the user.
func (t Turn) IsUser() bool { return !t.Author.IsAgent() }

// Transcript renders the turn in transcript form. Agent turns are prefixed
// with their marker, user turns are returned verbatim.
func (t Turn) Transcript() string {
	if t.IsUser() {
		return t.Content
	}
	return Marker(t.Author) + " " + t.Content
}

// Marker returns the transcript prefix for an agent identity ("NAME >").
func Marker(id Identity) string { return string(id) + markerSeparator }

// ParseTranscript recovers a turn from its transcript form. A line is agent
// authored iff it starts with the marker of a known agent identity; the
// marker and a single following space are stripped from the content. All
// other lines are user turns carrying the full line as content.
func ParseTranscript(line string) Turn {
	if id, body, ok := splitMarker(line); ok {
		return NewAgentTurn(id, body)
	}
	return NewUserTurn(line)
}

// TrimMarker removes a leading "NAME >" marker for id from text. Models
// occasionally echo the transcript convention back in their own output.
func TrimMarker(id Identity, text string) string {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, Marker(id)) {
		return text
	}
	return strings.TrimPrefix(trimmed[len(Marker(id)):], " ")
}

func splitMarker(line string) (Identity, string, bool) {
	for _, id := range agentIdentities {
		if strings.HasPrefix(line, Marker(id)) {
			return id, strings.TrimPrefix(line[len(Marker(id)):], " "), true
		}
	}
	return "", "", false
}
