package models

// PlatformState is the lifecycle state of the gateway client
type PlatformState string

const (
	PlatformStateNotReady     PlatformState = "not_ready"
	PlatformStateConnecting   PlatformState = "connecting"
	PlatformStateIdentifying  PlatformState = "identifying"
	PlatformStateSteadyState  PlatformState = "steady_state"
	PlatformStateReconnecting PlatformState = "reconnecting"
)
