package domain

import (
	"fmt"
	"strings"
)

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// KindOfMime returns the media kind prefix of a mime type such as "video/H264".
func KindOfMime(mime string) MediaKind {
	kind, _, _ := strings.Cut(mime, "/")
	return MediaKind(strings.ToLower(kind))
}

// Codec describes one entry of a capability set.
type Codec struct {
	MimeType    string `json:"mime_type" mapstructure:"mime_type"`
	ClockRate   uint32 `json:"clock_rate" mapstructure:"clock_rate"`
	Channels    uint16 `json:"channels,omitempty" mapstructure:"channels"`
	FmtpLine    string `json:"fmtp,omitempty" mapstructure:"fmtp"`
	PayloadType uint8  `json:"payload_type,omitempty" mapstructure:"payload_type"`
}

// ID is the codec identity used for uniqueness: mime type, clock rate and fmtp parameters.
// Payload type is a per-session number and not part of it.
func (c Codec) ID() string {
	id := fmt.Sprintf("%s/%d", strings.ToLower(c.MimeType), c.ClockRate)
	if c.FmtpLine != "" {
		id += ";" + c.FmtpLine
	}
	return id
}

func (c Codec) Kind() MediaKind { return KindOfMime(c.MimeType) }

// SameMime compares mime types the way SDP does, case-insensitively.
func (c Codec) SameMime(mime string) bool {
	return strings.EqualFold(c.MimeType, mime)
}

// CodecPreference is ordered, most preferred first, unique by Codec.ID.
// Empty means no restriction.
type CodecPreference []Codec

func (p CodecPreference) Empty() bool { return len(p) == 0 }

// SubsetOf reports whether every entry of p is present in caps.
func (p CodecPreference) SubsetOf(caps []Codec) bool {
	have := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		have[c.ID()] = struct{}{}
	}
	for _, c := range p {
		if _, ok := have[c.ID()]; !ok {
			return false
		}
	}
	return true
}
