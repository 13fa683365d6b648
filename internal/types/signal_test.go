package types

import (
	"encoding/json"
	"testing"
)

func TestSignalKindString(t *testing.T) {
	tests := []struct {
		kind SignalKind
		want string
	}{
		{SignalLike, "like"},
		{SignalReply, "reply"},
		{SignalMention, "mention"},
		{SignalFollow, "follow"},
		{SignalRepost, "repost"},
		{SignalQuote, "quote"},
		{SignalKind(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("SignalKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestParseSignalKind(t *testing.T) {
	for _, k := range []SignalKind{
		SignalLike, SignalReply, SignalMention, SignalFollow, SignalRepost, SignalQuote,
	} {
		got, err := ParseSignalKind(k.String())
		if err != nil {
			t.Fatalf("ParseSignalKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseSignalKind(%q) = %v, want %v", k.String(), got, k)
		}
	}

	if _, err := ParseSignalKind("poke"); err == nil {
		t.Error("ParseSignalKind(\"poke\") should fail")
	}
}

func TestIsDirect(t *testing.T) {
	direct := map[SignalKind]bool{
		SignalReply:   true,
		SignalMention: true,
		SignalLike:    false,
		SignalFollow:  false,
		SignalRepost:  false,
		SignalQuote:   false,
	}
	for kind, want := range direct {
		if got := kind.IsDirect(); got != want {
			t.Errorf("%v.IsDirect() = %v, want %v", kind, got, want)
		}
	}
}

func TestSignalKindJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(SignalMention)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"mention"` {
		t.Fatalf("marshal = %s, want %q", data, `"mention"`)
	}

	var k SignalKind
	if err := json.Unmarshal(data, &k); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if k != SignalMention {
		t.Errorf("round trip = %v, want %v", k, SignalMention)
	}

	if err := json.Unmarshal([]byte(`"poke"`), &k); err == nil {
		t.Error("unmarshal of unknown kind should fail")
	}
}
