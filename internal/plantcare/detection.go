package plantcare

import (
	"context"
	"errors"
	"sort"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
)

const detectionModule = "services.detection"

type detector struct {
	threshold float64
}

func registerDetection(p *project.Project) {
	p.Module(detectionModule).
		AddVar("CONFIDENCE_THRESHOLD", 0.6).
		AddClass(&project.Class{
			Name:   "DiseaseDetector",
			Params: []string{"threshold"},
			New: func(args []any) (any, error) {
				if args[0] == nil {
					return &detector{}, nil
				}
				return &detector{threshold: project.Float(args[0])}, nil
			},
			Methods: []*project.Method{
				{Func: project.Func{
					Name:   "detect",
					Params: []string{"scores"},
					Sync:   detect,
				}},
				{Kind: project.StaticMethod, Func: project.Func{
					Name:   "severity_of",
					Params: []string{"disease"},
					Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
						d, ok := in.Arg(0).(*Disease)
						if !ok {
							return nil, errors.New("severity_of expects a models.Disease")
						}
						return d.Severity, nil
					},
				}},
			},
		})
}

// detect returns the highest scoring label, or "healthy" when no score
// reaches the confidence threshold. A detector without its own threshold uses
// the module-wide CONFIDENCE_THRESHOLD.
func detect(ctx context.Context, in *project.Invocation) (any, error) {
	scores, ok := in.Arg(0).(map[string]any)
	if !ok {
		return nil, errors.New("scores must be a mapping of label to confidence")
	}
	threshold := in.Receiver.(*detector).threshold
	if threshold == 0 {
		v, err := in.Value(detectionModule + ".CONFIDENCE_THRESHOLD")
		if err != nil {
			return nil, err
		}
		threshold = project.Float(v)
	}

	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best, bestScore := "healthy", threshold
	for _, label := range labels {
		if s := project.Float(scores[label]); s >= bestScore && (best == "healthy" || s > bestScore) {
			best, bestScore = label, s
		}
	}
	return best, nil
}
