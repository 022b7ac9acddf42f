package plantcare

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
)

const (
	weatherModule = "services.weather"
	weatherFetch  = weatherModule + ".WeatherClient.fetch"
)

var errWeatherOffline = errors.New("weather provider is not reachable from the test environment")

func registerWeather(p *project.Project) {
	p.Module(weatherModule).
		AddVar("HUMIDITY_ALERT", 80.0).
		AddClass(&project.Class{
			Name: "WeatherClient",
			New:  func([]any) (any, error) { return struct{}{}, nil },
			Methods: []*project.Method{
				{Func: project.Func{
					Name:   "fetch",
					Params: []string{"location"},
					Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
						return project.Failed(fmt.Errorf("fetch %s: %w", project.String(in.Arg(0)), errWeatherOffline))
					},
				}},
			},
		}).
		AddClass(&project.Class{
			Name: "WeatherService",
			New:  func([]any) (any, error) { return struct{}{}, nil },
			Methods: []*project.Method{
				{Func: project.Func{
					Name:   "fetch_data",
					Params: []string{"location"},
					Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
						return project.Go(ctx, func(ctx context.Context) (any, error) {
							return in.Await(ctx, weatherFetch, in.Arg(0))
						})
					},
				}},
				{Func: project.Func{
					Name:   "disease_risk",
					Params: []string{"location"},
					Async:  diseaseRisk,
				}},
			},
		})
}

// diseaseRisk grades fungal infection pressure from current humidity and
// temperature.
func diseaseRisk(ctx context.Context, in *project.Invocation) project.Awaitable {
	return project.Go(ctx, func(ctx context.Context) (any, error) {
		raw, err := in.Await(ctx, weatherFetch, in.Arg(0))
		if err != nil {
			return nil, err
		}
		data, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected weather payload %T", raw)
		}
		alert, err := in.Value(weatherModule + ".HUMIDITY_ALERT")
		if err != nil {
			return nil, err
		}

		humidity := project.Float(data["humidity"])
		temp := project.Float(data["temperature"])
		switch {
		case humidity >= project.Float(alert) && temp >= 15 && temp <= 30:
			return "high", nil
		case humidity >= 60:
			return "medium", nil
		default:
			return "low", nil
		}
	})
}
