package data

// State is a step of the refresh cycle.
type State int

// Refresh cycle states.
const (
	StateIdle State = iota
	StateCacheCheck
	StateCacheHit
	StateCacheMiss
	StateFetching
	StateDecompressing
	StateCacheWrite
	StateParsing
	StateReady
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateCacheCheck:    "cache_check",
	StateCacheHit:      "cache_hit",
	StateCacheMiss:     "cache_miss",
	StateFetching:      "fetching",
	StateDecompressing: "decompressing",
	StateCacheWrite:    "cache_write",
	StateParsing:       "parsing",
	StateReady:         "ready",
	StateFailed:        "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Source tells where the published schedule was read from.
type Source string

// Schedule sources.
const (
	SourceNone    Source = ""
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)
