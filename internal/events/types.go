package events

// Event enumerates high-level topics inside the volume engine.
type Event string

const (
	EventEngineStarted  Event = "engine.started"
	EventEngineStopped  Event = "engine.stopped"
	EventCycleCompleted Event = "cycle.completed"
	EventCycleFailed    Event = "cycle.failed"
	EventBalanceAlert   Event = "balance.alert"
	EventSettingUpdated Event = "setting.updated"
)
