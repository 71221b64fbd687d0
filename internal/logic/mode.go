package logic

// Mode is the visible state of the device, derived from DeviceState.
type Mode string

const (
	ModeBooting              Mode = "BOOTING"
	ModeEnabledStandby       Mode = "ENABLED_STANDBY"
	ModeEnabledLinkedMuted   Mode = "ENABLED_LINKED_MUTED"
	ModeEnabledLinkedUnmuted Mode = "ENABLED_LINKED_UNMUTED"
	ModeDisabledStandby      Mode = "DISABLED_STANDBY"
	ModeDisabledLinked       Mode = "DISABLED_LINKED"
)

// Modes lists every mode.
var Modes = []Mode{
	ModeBooting,
	ModeEnabledStandby,
	ModeEnabledLinkedMuted,
	ModeEnabledLinkedUnmuted,
	ModeDisabledStandby,
	ModeDisabledLinked,
}

// transitions lists the modes reachable from each mode by a single state change.
// Staying in the same mode is always allowed.
var transitions = map[Mode][]Mode{
	ModeBooting: {
		ModeEnabledStandby,
		ModeEnabledLinkedMuted,
		ModeEnabledLinkedUnmuted,
	},
	ModeEnabledStandby: {
		ModeEnabledLinkedMuted,
		ModeEnabledLinkedUnmuted,
		ModeDisabledStandby,
	},
	ModeEnabledLinkedMuted: {
		ModeEnabledLinkedUnmuted,
		ModeEnabledStandby,
		ModeDisabledLinked,
	},
	ModeEnabledLinkedUnmuted: {
		ModeEnabledLinkedMuted,
		ModeEnabledStandby,
		ModeDisabledLinked,
	},
	ModeDisabledStandby: {
		ModeDisabledLinked,
		ModeEnabledStandby,
	},
	ModeDisabledLinked: {
		ModeDisabledStandby,
		ModeEnabledStandby,
		ModeEnabledLinkedMuted,
		ModeEnabledLinkedUnmuted,
	},
}

// CanTransition reports whether a single state change may move from one mode to another.
func CanTransition(from, to Mode) bool {
	if from == to {
		return true
	}
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// DeriveMode maps device flags onto a mode.
func DeriveMode(d DeviceState, booting bool) Mode {
	linked := d.LinkActive && d.HostReady
	switch {
	case booting:
		return ModeBooting
	case d.Enabled && linked && d.Muted:
		return ModeEnabledLinkedMuted
	case d.Enabled && linked:
		return ModeEnabledLinkedUnmuted
	case d.Enabled:
		return ModeEnabledStandby
	case linked:
		return ModeDisabledLinked
	default:
		return ModeDisabledStandby
	}
}

// animationFor picks the mute LED animation for a mode.
func animationFor(m Mode) AnimationKind {
	switch m {
	case ModeEnabledStandby:
		return AnimationBreathing
	case ModeDisabledLinked:
		return AnimationSpark
	default:
		return AnimationNone
	}
}
