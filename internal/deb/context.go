package deb

import (
	"fmt"
	"time"
)

// State is a phase of a package build
type State int

const (
	StateInit State = iota
	StateMetadataResolved
	StateDataWritten
	StateControlWritten
	StateSigned
	StateBundled
	StateDone
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateMetadataResolved:
		return "METADATA_RESOLVED"
	case StateDataWritten:
		return "DATA_WRITTEN"
	case StateControlWritten:
		return "CONTROL_WRITTEN"
	case StateSigned:
		return "SIGNED"
	case StateBundled:
		return "BUNDLED"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transitions lists the states reachable from each state
var transitions = map[State][]State{
	StateInit:             {StateMetadataResolved},
	StateMetadataResolved: {StateDataWritten},
	StateDataWritten:      {StateControlWritten},
	StateControlWritten:   {StateSigned, StateBundled},
	StateSigned:           {StateBundled},
	StateBundled:          {StateDone},
}

// BuildContext is the state shared between the phases of one build.
// It is owned by the Packager and handed to the writers it creates.
type BuildContext struct {
	State State

	// Now stamps control members
	Now time.Time

	Metadata *Metadata
	Version  Version
	Name     string
	Arch     string
	Filename string

	// Md5sums collects one record per regular data member, in add order
	Md5sums        []Md5Record
	md5sumsWritten bool

	// Members are the ar members in bundling order
	Members []string
}

// NewBuildContext returns a context in the INIT state
func NewBuildContext(now time.Time) *BuildContext {
	return &BuildContext{State: StateInit, Now: now}
}

// advance moves to next, rejecting transitions out of order
func (c *BuildContext) advance(next State) error {
	for _, s := range transitions[c.State] {
		if s == next {
			c.State = next
			return nil
		}
	}
	return fmt.Errorf("invalid build transition %s -> %s", c.State, next)
}

// expect fails unless the build is in state s
func (c *BuildContext) expect(s State) error {
	if c.State != s {
		return fmt.Errorf("build is in state %s, expected %s", c.State, s)
	}
	return nil
}
