package lims

import (
	"fmt"
	"sort"
)

const (
	Plate96Rows  = 8
	Plate96Cols  = 12
	Plate48Rows  = 4
	Plate48Cols  = 12
	Plate384Rows = 16
	Plate384Cols = 24
)

var (
	ErrWellOutOfRange = fmt.Errorf("well position out of range")
	ErrWellOccupied   = fmt.Errorf("well position already occupied")
)

// Container is a plate: a fixed grid where each cell holds at most one
// artifact.
type Container struct {
	ID   string
	Name string
	Rows int
	Cols int

	wells map[WellPosition]*Artifact
}

func NewContainer(name string, rows, cols int) *Container {
	return &Container{
		Name:  name,
		Rows:  rows,
		Cols:  cols,
		wells: map[WellPosition]*Artifact{},
	}
}

func NewPlate96(name string) *Container {
	return NewContainer(name, Plate96Rows, Plate96Cols)
}

func (c *Container) Set(well WellPosition, artifact *Artifact) error {
	if well.Row < 0 || well.Row >= c.Rows || well.Column < 0 || well.Column >= c.Cols {
		return fmt.Errorf("%w: %s on %s (%dx%d)", ErrWellOutOfRange, well, c.Name, c.Rows, c.Cols)
	}
	if _, taken := c.wells[well]; taken {
		return fmt.Errorf("%w: %s on %s", ErrWellOccupied, well, c.Name)
	}
	artifact.Well = well
	artifact.ContainerName = c.Name
	c.wells[well] = artifact
	return nil
}

func (c *Container) At(well WellPosition) (*Artifact, bool) {
	artifact, ok := c.wells[well]
	return artifact, ok
}

// Occupied returns the artifacts in well iteration order, row first. The
// reporting services depend on this order being stable between invocations.
func (c *Container) Occupied() []*Artifact {
	positions := make([]WellPosition, 0, len(c.wells))
	for well := range c.wells {
		positions = append(positions, well)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Row != positions[j].Row {
			return positions[i].Row < positions[j].Row
		}
		return positions[i].Column < positions[j].Column
	})
	artifacts := make([]*Artifact, len(positions))
	for i := range positions {
		artifacts[i] = c.wells[positions[i]]
	}
	return artifacts
}

func (c *Container) Size() int { return len(c.wells) }
