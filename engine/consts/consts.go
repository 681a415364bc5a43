package consts

import "time"

// Tunable Options
const (
	// For Tick Scheduler
	// DEFAULT_TICK_INTERVAL is the target duration of one simulation tick
	DEFAULT_TICK_INTERVAL = time.Millisecond * 50
	// DEFAULT_BACKLOG_LIMIT is the max number of overdue ticks run back-to-back before excess ticks are dropped
	DEFAULT_BACKLOG_LIMIT = 1

	// For Spatial Index
	// DEFAULT_CELL_SIZE is the edge length of a cubic cell in world units
	DEFAULT_CELL_SIZE = 16.0
	// DEFAULT_AOI_DISTANCE is the interest distance used when an Interest component has no radius
	DEFAULT_AOI_DISTANCE = 32.0

	// For Instances
	// INSTANCE_INTENT_QUEUE_WARN_SIZE logs a warning when the intent queue of an instance grows to this size
	INSTANCE_INTENT_QUEUE_WARN_SIZE = 10000

	// For Debug Server
	// DEFAULT_STREAM_INTERVAL is the interval to push frames to websocket overlay clients
	DEFAULT_STREAM_INTERVAL = time.Millisecond * 100
	// OVERLAY_WRITE_TIMEOUT is the max duration to send one frame to a websocket overlay client
	OVERLAY_WRITE_TIMEOUT = time.Second * 5
	// DEBUG_COMMAND_MAX_SPAWN is the max number of entities spawned by a single spawn command
	DEBUG_COMMAND_MAX_SPAWN = 100000
	// DEBUG_COMMAND_SPAWN_RANGE is the half extent of the square in which spawn commands place entities
	DEBUG_COMMAND_SPAWN_RANGE = 250

	// For Operation Monitor
	// OPMON_WARN_THRESHOLD is the duration after which a monitored operation logs a warning
	OPMON_WARN_THRESHOLD = time.Millisecond * 100
)

// Debug Options
const (
	// DEBUG_INSTANCES prints instance operation debug logs
	DEBUG_INSTANCES = false
	// DEBUG_ENTITIES prints entity spawn & despawn debug logs
	DEBUG_ENTITIES = false
	// DEBUG_TICKS prints a debug log for every tick
	DEBUG_TICKS = false
	// DEBUG_INTENTS prints intent debug logs
	DEBUG_INTENTS = false
)

//  System level configurations
const (
	// DEBUG_MODE = true turns on debug mode
	DEBUG_MODE = false
)
