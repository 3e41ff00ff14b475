package testutil

import (
	"fmt"
	"time"
)

// FixedClock returns a preset time, advancing by Step on each call so scan
// start and end differ deterministically.
type FixedClock struct {
	Time time.Time
	Step time.Duration
}

func (c *FixedClock) Now() time.Time {
	now := c.Time
	c.Time = c.Time.Add(c.Step)
	return now
}

// SequenceIDs generates "id-1", "id-2", ... deterministically.
type SequenceIDs struct {
	n int
}

func (g *SequenceIDs) New() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}
