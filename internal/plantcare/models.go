package plantcare

import (
	"fmt"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
)

type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type Plot struct {
	PlotID string  `json:"plotId,omitempty"`
	Name   string  `json:"name"`
	Area   float64 `json:"area"`
	Crop   string  `json:"crop,omitempty"`
}

type Disease struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

func registerModels(p *project.Project) {
	p.Module("models").
		AddClass(&project.Class{
			Name:   "User",
			Params: []string{"userId", "username", "email"},
			New: func(args []any) (any, error) {
				if args[0] == nil {
					return &User{}, nil
				}
				return &User{
					UserID:   project.String(args[0]),
					Username: project.String(args[1]),
					Email:    project.String(args[2]),
				}, nil
			},
		}).
		AddClass(&project.Class{
			Name:   "Plot",
			Params: []string{"name", "area", "crop", "plotId"},
			New: func(args []any) (any, error) {
				area := project.Float(args[1])
				if area < 0 {
					return nil, fmt.Errorf("plot area must not be negative, got %v", area)
				}
				return &Plot{
					Name:   project.String(args[0]),
					Area:   area,
					Crop:   project.String(args[2]),
					PlotID: project.String(args[3]),
				}, nil
			},
		}).
		AddClass(&project.Class{
			Name:   "Disease",
			Params: []string{"name", "severity"},
			New: func(args []any) (any, error) {
				return &Disease{
					Name:     project.String(args[0]),
					Severity: project.String(args[1]),
				}, nil
			},
		})
}
