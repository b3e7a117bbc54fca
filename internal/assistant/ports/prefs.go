package ports

// Expressiveness controls how much guidance text Ari produces.
type Expressiveness string

const (
	ExpressivenessLow    Expressiveness = "low"
	ExpressivenessMedium Expressiveness = "medium"
	ExpressivenessHigh   Expressiveness = "high"
)

// Vibe is the user's preferred energy level for guidance.
type Vibe string

const (
	VibeNeutral   Vibe = "neutral"
	VibeEnergetic Vibe = "energetic"
	VibeCalm      Vibe = "calm"
)

// Verbosity shapes how long generated answers should be.
type Verbosity string

const (
	VerbosityBrief    Verbosity = "brief"
	VerbosityBalanced Verbosity = "balanced"
	VerbosityDetailed Verbosity = "detailed"
)

// Preferences carries the per-user knobs consumed by the engine and the
// mood engine. Zero value is normalized by Normalize before use.
type Preferences struct {
	AriEnabled     bool           `json:"ari_enabled"`
	Expressiveness Expressiveness `json:"expressiveness"`
	Vibe           Vibe           `json:"vibe"`
	Verbosity      Verbosity      `json:"verbosity"`
}

// DefaultPreferences returns the out-of-box settings.
func DefaultPreferences() Preferences {
	return Preferences{
		AriEnabled:     true,
		Expressiveness: ExpressivenessMedium,
		Vibe:           VibeNeutral,
		Verbosity:      VerbosityBalanced,
	}
}

// Normalize replaces unknown enum values with their documented defaults.
func (p Preferences) Normalize() Preferences {
	switch p.Expressiveness {
	case ExpressivenessLow, ExpressivenessMedium, ExpressivenessHigh:
	default:
		p.Expressiveness = ExpressivenessMedium
	}
	switch p.Vibe {
	case VibeNeutral, VibeEnergetic, VibeCalm:
	default:
		p.Vibe = VibeNeutral
	}
	switch p.Verbosity {
	case VerbosityBrief, VerbosityBalanced, VerbosityDetailed:
	default:
		p.Verbosity = VerbosityBalanced
	}
	return p
}
