package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Role tags the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

var (
	ErrEmpty        = errors.New("transcript is empty")
	ErrUnknownRole  = errors.New("unknown message role")
	ErrNoSystem     = errors.New("transcript must start with the system message")
	ErrOutOfOrder   = errors.New("transcript turns out of order")
	ErrUnanswered   = errors.New("transcript does not end with an assistant reply")
	ErrInvalidInput = errors.New("invalid transcript encoding")
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered conversation of a single call: the system
// instruction, the greeting, then one user/assistant pair per turn.
//
// Appends never share backing storage with earlier copies, so a Transcript
// can be passed and stored by value.
type Transcript struct {
	msgs []Message
}

// New starts a conversation with the system instruction and the spoken greeting.
func New(systemPrompt, greeting string) Transcript {
	return Transcript{msgs: []Message{
		{Role: RoleSystem, Content: validUTF8(systemPrompt)},
		{Role: RoleAssistant, Content: validUTF8(greeting)},
	}}
}

func (t *Transcript) AppendUser(content string) {
	t.append(Message{Role: RoleUser, Content: content})
}

func (t *Transcript) AppendAssistant(content string) {
	t.append(Message{Role: RoleAssistant, Content: content})
}

func (t *Transcript) append(m Message) {
	m.Content = validUTF8(m.Content)
	t.msgs = append(slices.Clip(t.msgs), m)
}

// validUTF8 replaces invalid bytes the way encoding/json does, so the
// in-memory content is exactly what String serializes.
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Messages returns a copy of the conversation in order.
func (t Transcript) Messages() []Message {
	return slices.Clone(t.msgs)
}

func (t Transcript) Len() int { return len(t.msgs) }

// Turns counts completed user turns.
func (t Transcript) Turns() int {
	n := 0
	for _, m := range t.msgs {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// System returns the system instruction, or "" for a zero Transcript.
func (t Transcript) System() string {
	if len(t.msgs) == 0 || t.msgs[0].Role != RoleSystem {
		return ""
	}
	return t.msgs[0].Content
}

// Last returns the most recent message.
func (t Transcript) Last() (Message, bool) {
	if len(t.msgs) == 0 {
		return Message{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}

// Validate checks that the system message comes first, that the assistant
// and user alternate after it starting with the assistant, and that the
// last message is an assistant reply.
func (t Transcript) Validate() error {
	if len(t.msgs) == 0 {
		return ErrEmpty
	}
	for i, m := range t.msgs {
		switch m.Role {
		case RoleSystem, RoleAssistant, RoleUser:
		default:
			return fmt.Errorf("%w %q at index %d", ErrUnknownRole, m.Role, i)
		}
	}
	if t.msgs[0].Role != RoleSystem {
		return ErrNoSystem
	}
	for i := 1; i < len(t.msgs); i++ {
		want := RoleAssistant
		if i%2 == 0 {
			want = RoleUser
		}
		if t.msgs[i].Role != want {
			return fmt.Errorf("%w: index %d is %q, want %q", ErrOutOfOrder, i, t.msgs[i].Role, want)
		}
	}
	if len(t.msgs) < 2 || len(t.msgs)%2 != 0 {
		return fmt.Errorf("%w: %d messages", ErrUnanswered, len(t.msgs))
	}
	return nil
}

// Trim keeps the system message, the greeting and the last maxTurns
// user/assistant pairs. maxTurns <= 0 returns t unchanged.
func (t Transcript) Trim(maxTurns int) Transcript {
	if maxTurns <= 0 || len(t.msgs) <= 2+2*maxTurns {
		return t
	}
	out := make([]Message, 0, 2+2*maxTurns)
	out = append(out, t.msgs[:2]...)
	out = append(out, t.msgs[len(t.msgs)-2*maxTurns:]...)
	return Transcript{msgs: out}
}

// String serializes the transcript as a JSON array of role/content objects.
func (t Transcript) String() string {
	msgs := t.msgs
	if msgs == nil {
		msgs = []Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		// Message holds only strings; Marshal cannot fail.
		panic(err)
	}
	return string(b)
}

// Parse is the inverse of String. The result satisfies Validate.
func Parse(raw string) (Transcript, error) {
	if raw == "" {
		return Transcript{}, ErrEmpty
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t := Transcript{msgs: msgs}
	if err := t.Validate(); err != nil {
		return Transcript{}, err
	}
	return t, nil
}
