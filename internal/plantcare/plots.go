package plantcare

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
)

const (
	plotsModule   = "services.plots"
	repoSave      = plotsModule + ".PlotRepository.save"
	validatePlot  = plotsModule + ".PlotService.validate_plot_name"
	maxPlotName   = 50
	maxPlotAreaHa = 10000
)

var plotNamePattern = regexp.MustCompile(`^[\p{L}\p{N} _-]+$`)

var supportedCrops = []any{"maize", "potato", "rice", "tomato", "wheat"}

// plotStore is shared by every PlotRepository instance of one project, so
// state written by one case is visible to the next.
type plotStore struct {
	mu    sync.Mutex
	seq   int
	plots []*Plot
}

func newPlotStore() *plotStore {
	return &plotStore{}
}

func (s *plotStore) save(plot *Plot) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	saved := *plot
	saved.PlotID = fmt.Sprintf("plot-%d", s.seq)
	s.plots = append(s.plots, &saved)
	return saved.PlotID
}

func (s *plotStore) all() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.plots))
	for i, p := range s.plots {
		cp := *p
		out[i] = &cp
	}
	return out
}

func registerPlots(p *project.Project, store *plotStore) {
	p.Module(plotsModule).
		AddClass(&project.Class{
			Name: "PlotRepository",
			New:  func([]any) (any, error) { return store, nil },
			Methods: []*project.Method{
				{Func: project.Func{
					Name:   "save",
					Params: []string{"plot"},
					Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
						return project.Go(ctx, func(ctx context.Context) (any, error) {
							plot, ok := in.Arg(0).(*Plot)
							if !ok {
								return nil, fmt.Errorf("save expects a models.Plot, got %T", in.Arg(0))
							}
							return in.Receiver.(*plotStore).save(plot), nil
						})
					},
				}},
				{Func: project.Func{
					Name: "fetch_all",
					Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
						return project.Go(ctx, func(ctx context.Context) (any, error) {
							return in.Receiver.(*plotStore).all(), nil
						})
					},
				}},
			},
		}).
		AddClass(&project.Class{
			Name: "PlotService",
			New:  func([]any) (any, error) { return struct{}{}, nil },
			Methods: []*project.Method{
				{Func: project.Func{
					Name:   "create_plot",
					Params: []string{"name", "area", "crop"},
					Async:  createPlot,
				}},
				{Kind: project.StaticMethod, Func: project.Func{
					Name:   "validate_plot_name",
					Params: []string{"name"},
					Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
						name := strings.TrimSpace(project.String(in.Arg(0)))
						return name != "" && len([]rune(name)) <= maxPlotName && plotNamePattern.MatchString(name), nil
					},
				}},
				{Kind: project.ClassMethod, Func: project.Func{
					Name: "supported_crops",
					Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
						return append([]any(nil), supportedCrops...), nil
					},
				}},
			},
		})
}

// createPlot validates the request and stores the plot through the
// repository, returning the stored plot with its id.
func createPlot(ctx context.Context, in *project.Invocation) project.Awaitable {
	return project.Go(ctx, func(ctx context.Context) (any, error) {
		name := strings.TrimSpace(project.String(in.Arg(0)))
		ok, err := in.Call(ctx, validatePlot, name)
		if err != nil {
			return nil, err
		}
		if valid, _ := ok.(bool); !valid {
			return nil, fmt.Errorf("invalid plot name %q", name)
		}
		area := project.Float(in.Arg(1))
		if area <= 0 || area > maxPlotAreaHa {
			return nil, errors.New("plot area must be within (0, 10000] hectares")
		}

		plot := &Plot{Name: name, Area: area, Crop: project.String(in.Arg(2))}
		id, err := in.Await(ctx, repoSave, plot)
		if err != nil {
			return nil, fmt.Errorf("failed to save plot: %w", err)
		}
		plot.PlotID = project.String(id)
		return plot, nil
	})
}
