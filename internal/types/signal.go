// Package types holds the shared signal and notification types that cross
// package boundaries: inbound social signals, their kinds, and outbound
// content kinds. Kinds are closed enums; switches over them at the triage
// and scheduler boundaries must be exhaustive.
package types

import (
	"fmt"
	"time"
)

// SignalKind classifies an inbound social signal.
type SignalKind int

const (
	SignalLike SignalKind = iota
	SignalReply
	SignalMention
	SignalFollow
	SignalRepost
	SignalQuote
)

func (k SignalKind) String() string {
	switch k {
	case SignalLike:
		return "like"
	case SignalReply:
		return "reply"
	case SignalMention:
		return "mention"
	case SignalFollow:
		return "follow"
	case SignalRepost:
		return "repost"
	case SignalQuote:
		return "quote"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseSignalKind converts a wire-format tag to a SignalKind.
func ParseSignalKind(s string) (SignalKind, error) {
	switch s {
	case "like":
		return SignalLike, nil
	case "reply":
		return SignalReply, nil
	case "mention":
		return SignalMention, nil
	case "follow":
		return SignalFollow, nil
	case "repost":
		return SignalRepost, nil
	case "quote":
		return SignalQuote, nil
	default:
		return 0, fmt.Errorf("unknown signal kind %q", s)
	}
}

// IsDirect reports whether the kind opens or continues a conversation
// directed at the agent (as opposed to passive engagement).
func (k SignalKind) IsDirect() bool {
	return k == SignalReply || k == SignalMention
}

// MarshalJSON writes the kind as its wire tag.
func (k SignalKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON reads the kind from its wire tag.
func (k *SignalKind) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("signal kind must be a JSON string, got %s", data)
	}
	parsed, err := ParseSignalKind(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Signal is one inbound event from the signal source.
type Signal struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"author_id"`
	AuthorName   string     `json:"author_name,omitempty"`
	Kind         SignalKind `json:"kind"`
	Text         string     `json:"text,omitempty"`
	IsRead       bool       `json:"is_read"`
	Timestamp    time.Time  `json:"timestamp"`
	ThreadRootID string     `json:"thread_root_id,omitempty"` // empty for non-threaded kinds
	SubjectID    string     `json:"subject_id,omitempty"`     // our post the signal is about, if any
}

// OutboundKind classifies content leaving the system.
type OutboundKind int

const (
	OutboundPost OutboundKind = iota
	OutboundReply
)

func (k OutboundKind) String() string {
	switch k {
	case OutboundPost:
		return "post"
	case OutboundReply:
		return "reply"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}
