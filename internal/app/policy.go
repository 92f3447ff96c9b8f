package app

import (
	"fmt"

	"github.com/dkeye/Relay/internal/domain"
)

// CodecPolicy pins one codec and a bitrate range. Pure configuration, no state.
type CodecPolicy struct {
	ForcedCodec string `mapstructure:"forced_codec"`
	MinBitrate  uint64 `mapstructure:"min_bitrate"`
	MaxBitrate  uint64 `mapstructure:"max_bitrate"`
}

func (p CodecPolicy) Validate() error {
	if p.ForcedCodec == "" {
		return fmt.Errorf("%w: forced codec is empty", domain.ErrInvalidPolicy)
	}
	if p.Kind() != domain.MediaKindVideo && p.Kind() != domain.MediaKindAudio {
		return fmt.Errorf("%w: forced codec %q has no media kind", domain.ErrInvalidPolicy, p.ForcedCodec)
	}
	if p.MaxBitrate == 0 {
		return fmt.Errorf("%w: max bitrate must be positive", domain.ErrInvalidPolicy)
	}
	return domain.BitrateBounds{Min: p.MinBitrate, Max: p.MaxBitrate}.Validate()
}

// Kind is the media kind the policy cares about, taken from the forced mime type.
func (p CodecPolicy) Kind() domain.MediaKind {
	return domain.KindOfMime(p.ForcedCodec)
}

// PreferenceFor keeps the entries of available whose mime type is the forced codec,
// in capability order and without duplicates. Other kinds are left unrestricted.
func (p CodecPolicy) PreferenceFor(kind domain.MediaKind, available []domain.Codec) domain.CodecPreference {
	if kind != p.Kind() {
		return nil
	}
	seen := make(map[string]struct{}, len(available))
	var prefs domain.CodecPreference
	for _, c := range available {
		if c.Kind() != kind || !c.SameMime(p.ForcedCodec) {
			continue
		}
		if _, dup := seen[c.ID()]; dup {
			continue
		}
		seen[c.ID()] = struct{}{}
		prefs = append(prefs, c)
	}
	return prefs
}

// BitrateBoundsFor returns the configured bounds. When they are equal every downstream
// sender pins its target to that value whatever the estimator says.
func (p CodecPolicy) BitrateBoundsFor(kind domain.MediaKind) domain.BitrateBounds {
	return domain.BitrateBounds{Min: p.MinBitrate, Max: p.MaxBitrate}
}
