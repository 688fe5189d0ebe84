package transcript

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

const testPrompt = "You are a helpful phone assistant for Pine Valley Campground."

func TestNewStartsWithSystemAndGreeting(t *testing.T) {
	tr := New(testPrompt, "Welcome!")
	msgs := tr.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0] != (Message{Role: RoleSystem, Content: testPrompt}) {
		t.Fatalf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1] != (Message{Role: RoleAssistant, Content: "Welcome!"}) {
		t.Fatalf("msgs[1] = %+v", msgs[1])
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLengthAfterTurns(t *testing.T) {
	for n := 0; n <= 12; n++ {
		tr := New(testPrompt, "hi")
		for i := 0; i < n; i++ {
			tr.AppendUser(fmt.Sprintf("question %d", i))
			tr.AppendAssistant(fmt.Sprintf("answer %d", i))
		}
		if tr.Len() != 2+2*n {
			t.Fatalf("turns=%d: Len() = %d, want %d", n, tr.Len(), 2+2*n)
		}
		if tr.Turns() != n {
			t.Fatalf("Turns() = %d, want %d", tr.Turns(), n)
		}
		if tr.System() != testPrompt {
			t.Fatalf("System() = %q, want prompt verbatim", tr.System())
		}
		if err := tr.Validate(); err != nil {
			t.Fatalf("turns=%d: Validate() error = %v", n, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tr := New(testPrompt+"\n  - 30 tent sites ($25/night)", "Welcome \"friend\" <3")
	tr.AppendUser("")
	tr.AppendAssistant("Could you repeat that?")
	tr.AppendUser("I need a tent site for 2 nights, café & lake view")
	tr.AppendAssistant("Sure.\nFor which dates?")

	got, err := Parse(tr.String())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(got.Messages(), tr.Messages()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Messages(), tr.Messages())
	}
}

func TestRoundTripInvalidUTF8(t *testing.T) {
	tr := New(testPrompt, "hi")
	tr.AppendUser("site \xfe for two")
	tr.AppendAssistant("ok\xff")

	if last, _ := tr.Last(); last.Content != "ok\uFFFD" {
		t.Fatalf("Last().Content = %q, want replacement char", last.Content)
	}
	got, err := Parse(tr.String())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(got.Messages(), tr.Messages()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Messages(), tr.Messages())
	}
}

func TestValidateRequiresAnsweredTranscript(t *testing.T) {
	tr := New(testPrompt, "hi")
	tr.AppendUser("hello")
	if err := tr.Validate(); !errors.Is(err, ErrUnanswered) {
		t.Fatalf("Validate() error = %v, want %v", err, ErrUnanswered)
	}
	tr.AppendAssistant("hi there")
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestStringFormat(t *testing.T) {
	tr := New("sys", "hello")
	want := `[{"role":"system","content":"sys"},{"role":"assistant","content":"hello"}]`
	if got := tr.String(); got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrEmpty},
		{"empty list", "[]", ErrEmpty},
		{"null", "null", ErrEmpty},
		{"garbage", "{not json", ErrInvalidInput},
		{"object", `{"role":"system"}`, ErrInvalidInput},
		{"unknown role", `[{"role":"system","content":"s"},{"role":"tool","content":"x"}]`, ErrUnknownRole},
		{"missing system", `[{"role":"assistant","content":"hi"}]`, ErrNoSystem},
		{"user before greeting", `[{"role":"system","content":"s"},{"role":"user","content":"x"}]`, ErrOutOfOrder},
		{"system only", `[{"role":"system","content":"s"}]`, ErrUnanswered},
		{"trailing user", `[{"role":"system","content":"s"},{"role":"assistant","content":"a"},{"role":"user","content":"u"}]`, ErrUnanswered},
		{"double user", `[{"role":"system","content":"s"},{"role":"assistant","content":"a"},{"role":"user","content":"u"},{"role":"user","content":"u"}]`, ErrOutOfOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAppendDoesNotAliasCopies(t *testing.T) {
	base := New("sys", "hi")
	base.AppendUser("one")
	base.AppendAssistant("reply one")

	a := base
	b := base
	a.AppendUser("from a")
	b.AppendUser("from b")

	if last, _ := a.Last(); last.Content != "from a" {
		t.Fatalf("a last = %q, want %q", last.Content, "from a")
	}
	if last, _ := b.Last(); last.Content != "from b" {
		t.Fatalf("b last = %q, want %q", last.Content, "from b")
	}
	if base.Len() != 4 {
		t.Fatalf("base Len() = %d, want 4", base.Len())
	}
}

func TestTrimKeepsHeadAndRecentPairs(t *testing.T) {
	tr := New("sys", "hi")
	for i := 0; i < 5; i++ {
		tr.AppendUser(fmt.Sprintf("u%d", i))
		tr.AppendAssistant(fmt.Sprintf("a%d", i))
	}

	trimmed := tr.Trim(2)
	msgs := trimmed.Messages()
	if len(msgs) != 6 {
		t.Fatalf("len = %d, want 6", len(msgs))
	}
	if msgs[0].Content != "sys" || msgs[1].Content != "hi" {
		t.Fatalf("head not preserved: %+v", msgs[:2])
	}
	if msgs[2].Content != "u3" || msgs[5].Content != "a4" {
		t.Fatalf("tail = %+v, want u3..a4", msgs[2:])
	}
	if err := trimmed.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if tr.Len() != 12 {
		t.Fatalf("original modified: Len() = %d", tr.Len())
	}

	if got := tr.Trim(0); got.Len() != tr.Len() {
		t.Fatalf("Trim(0) Len() = %d, want %d", got.Len(), tr.Len())
	}
	if got := tr.Trim(10); got.Len() != tr.Len() {
		t.Fatalf("Trim(10) Len() = %d, want %d", got.Len(), tr.Len())
	}
}
