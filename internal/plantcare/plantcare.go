// Package plantcare is the plant-disease backend exposed to the test engine.
// Its modules mirror the service layout the unit-test tables are written
// against: models, utils and the plots, weather and detection services.
package plantcare

import (
	"gitlab.com/plantguard-2025.net/internal/engine/project"
)

// Root is the project root name test runs use to address this project.
const Root = "plantcare"

// New builds a fresh plantcare project. Each project owns its own plot store.
func New() *project.Project {
	p := project.New(Root)
	registerModels(p)
	registerUtils(p)
	registerPlots(p, newPlotStore())
	registerWeather(p)
	registerDetection(p)
	return p
}

// Register adds a fresh plantcare project to catalog.
func Register(catalog *project.Catalog) error {
	return catalog.Register(New())
}
