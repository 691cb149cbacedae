package generator

import (
	"context"
	"time"

	"github.com/lawnchairsociety/stationgen/internal/logger"
)

// Reasons a session ended with open mount points left.
const (
	ReasonClosed       = "closed"
	ReasonOutOfOptions = "out of options"
	ReasonOutOfTries   = "out of tries"
	ReasonInterrupted  = "interrupted"
)

// DriverConfig schedules a generation session.
type DriverConfig struct {
	// GrowthSteps is the number of expansion steps.
	GrowthSteps int
	// GrowthTarget is the target for the first half of the expansion
	// steps; the second half uses zero.
	GrowthTarget float64
	// ClosingTarget drives the closing steps.
	ClosingTarget float64
	// ClosingTriesMultiplier sets the closing budget to
	// multiplier*open + 2 steps.
	ClosingTriesMultiplier int
}

// DefaultDriverConfig returns the standard schedule.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		GrowthSteps:            20,
		GrowthTarget:           1,
		ClosingTarget:          -10,
		ClosingTriesMultiplier: 2,
	}
}

// Outcome summarizes a finished session.
type Outcome struct {
	Rooms      int
	OpenMounts int
	Grown      int
	Closed     int
	Reason     string
	Duration   time.Duration

	// NeverClosable counts mount points left open after growth that no
	// permitted part can attach to.
	NeverClosable int
}

// Driver runs a full session: grow, then close with optional space
// respected, then close again ignoring it.
type Driver struct {
	Generator *Generator
	Config    DriverConfig
}

// NewDriver creates a driver for g.
func NewDriver(g *Generator, cfg DriverConfig) *Driver {
	return &Driver{Generator: g, Config: cfg}
}

// Run executes the session. The context is checked between steps; on
// cancellation the outcome so far is returned with the context error.
func (d *Driver) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	g := d.Generator
	c := g.Construction()
	out := Outcome{}

	for i := 0; i < d.Config.GrowthSteps; i++ {
		if err := ctx.Err(); err != nil {
			return d.interrupted(out, start), err
		}
		target := d.Config.GrowthTarget
		if i > d.Config.GrowthSteps/2 {
			target = 0
		}
		if !g.StepGeneration(target, true) {
			break
		}
		out.Grown++
	}

	for _, m := range g.NeverClosable() {
		logger.Warning("Mount point can never be closed", "room", m.Owner().ID(),
			"part", m.Owner().Part().Name, "socket", m.Socket().Key())
		out.NeverClosable++
	}

	outOfOptions := false
	for _, testOptional := range []bool{true, false} {
		remaining := c.OpenMountCount()
		if remaining == 0 {
			break
		}
		tries := remaining*d.Config.ClosingTriesMultiplier + 2
		if testOptional {
			logger.Infof("There are %d remaining mounts. Giving it %d tries to close itself.", remaining, tries)
		} else {
			logger.Infof("Now there are %d remaining mounts. Trying without optional space. Reason: %s",
				remaining, reason(outOfOptions))
		}
		for i := 0; i < tries; i++ {
			if err := ctx.Err(); err != nil {
				return d.interrupted(out, start), err
			}
			if !g.StepGeneration(d.Config.ClosingTarget, testOptional) {
				outOfOptions = true
				break
			}
			out.Closed++
		}
	}

	out = d.finish(out, start)
	if out.OpenMounts == 0 {
		out.Reason = ReasonClosed
		logger.Info("Successfully closed all mount points", "rooms", out.Rooms, "duration", out.Duration)
	} else {
		out.Reason = reason(outOfOptions)
		logger.Info("Generation finished with open mounts", "rooms", out.Rooms,
			"open_mounts", out.OpenMounts, "reason", out.Reason, "duration", out.Duration)
	}
	return out, nil
}

func (d *Driver) finish(out Outcome, start time.Time) Outcome {
	c := d.Generator.Construction()
	out.Rooms = c.RoomCount()
	out.OpenMounts = c.OpenMountCount()
	out.Duration = time.Since(start)
	return out
}

func (d *Driver) interrupted(out Outcome, start time.Time) Outcome {
	out = d.finish(out, start)
	out.Reason = ReasonInterrupted
	return out
}

func reason(outOfOptions bool) string {
	if outOfOptions {
		return ReasonOutOfOptions
	}
	return ReasonOutOfTries
}
