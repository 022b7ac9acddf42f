package plantcare

import (
	"context"
	"errors"
	"math"
	"strings"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
)

func registerUtils(p *project.Project) {
	p.Module("utils").
		AddFunc(&project.Func{Name: "add", Params: []string{"a", "b"}, Sync: add}).
		AddFunc(&project.Func{Name: "calculate_area", Params: []string{"length", "width"}, Sync: calculateArea}).
		AddFunc(&project.Func{Name: "normalize_label", Params: []string{"label"}, Sync: normalizeLabel}).
		AddFunc(&project.Func{Name: "classify_severity", Params: []string{"ratio"}, Sync: classifySeverity}).
		AddFunc(&project.Func{Name: "total_area", Params: []string{"plots"}, Sync: totalArea})
}

// add keeps integers integral and falls back to float arithmetic otherwise.
func add(ctx context.Context, in *project.Invocation) (any, error) {
	a, aInt := in.Arg(0).(int)
	b, bInt := in.Arg(1).(int)
	if aInt && bInt {
		return a + b, nil
	}
	return project.Float(in.Arg(0)) + project.Float(in.Arg(1)), nil
}

func calculateArea(ctx context.Context, in *project.Invocation) (any, error) {
	l, w := project.Float(in.Arg(0)), project.Float(in.Arg(1))
	if l < 0 || w < 0 {
		return nil, errors.New("length and width must not be negative")
	}
	return math.Round(l*w*100) / 100, nil
}

func normalizeLabel(ctx context.Context, in *project.Invocation) (any, error) {
	label := strings.ToLower(strings.TrimSpace(project.String(in.Arg(0))))
	return strings.Join(strings.Fields(label), "_"), nil
}

func classifySeverity(ctx context.Context, in *project.Invocation) (any, error) {
	if in.Arg(0) == nil {
		return nil, errors.New("ratio is required")
	}
	r := project.Float(in.Arg(0))
	switch {
	case r < 0 || r > 1:
		return nil, errors.New("ratio must be within [0, 1]")
	case r < 0.05:
		return "healthy", nil
	case r < 0.25:
		return "mild", nil
	case r < 0.5:
		return "moderate", nil
	default:
		return "severe", nil
	}
}

func totalArea(ctx context.Context, in *project.Invocation) (any, error) {
	plots, _ := in.Arg(0).([]any)
	total := 0.0
	for _, item := range plots {
		plot, ok := item.(*Plot)
		if !ok {
			return nil, errors.New("plots must be a list of models.Plot")
		}
		total += plot.Area
	}
	return total, nil
}
