package plantcare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/engine/coerce"
	"gitlab.com/plantguard-2025.net/internal/engine/executor"
	"gitlab.com/plantguard-2025.net/internal/engine/loader"
	"gitlab.com/plantguard-2025.net/internal/engine/mock"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/engine/resolver"
)

func run(t *testing.T, classPath, method string, table domain.Table, mocks map[string]interface{}, opts ...executor.Option) *domain.RunSummary {
	t.Helper()
	catalog := project.NewCatalog()
	require.NoError(t, Register(catalog))

	rc, err := resolver.NewContext(catalog, Root)
	require.NoError(t, err)
	defer rc.Close()

	target, err := rc.Resolve(classPath, method)
	require.NoError(t, err)
	batch, err := loader.Load(table)
	require.NoError(t, err)
	spec, err := mock.ParseSpec(mocks)
	require.NoError(t, err)

	summary, err := executor.New(opts...).Run(context.Background(), rc, target, batch, spec, executor.RunOptions{})
	require.NoError(t, err)
	return summary
}

func requireAllPassed(t *testing.T, s *domain.RunSummary) {
	t.Helper()
	for _, r := range s.Results {
		assert.True(t, r.Passed, "case %s: expected %v, got %v (%s%s)", r.ID, r.Expected, r.Actual, r.Error, r.Diff)
	}
	assert.Equal(t, "100.0%", s.PassRate)
}

func TestUtils(t *testing.T) {
	s := run(t, "utils", "calculate_area", domain.Table{
		{"ID", "期望结果", "length", "width", "测试方法", "测试名称"},
		{"", "float", "float", "float", "", ""},
		{"1", "12.5", "5", "2.5", "calculate_area", "rectangle"},
		{"2", "0", "0", "3", "", ""},
	}, nil)
	requireAllPassed(t, s)

	s = run(t, "utils", "classify_severity", domain.Table{
		{"ID", "期望结果", "ratio"},
		{"", "str", "float"},
		{"1", "healthy", "0.01"},
		{"2", "mild", "0.1"},
		{"3", "moderate", "0.3"},
		{"4", "severe", "0.9"},
	}, nil)
	requireAllPassed(t, s)

	s = run(t, "utils", "classify_severity", domain.Table{
		{"ID", "期望结果", "ratio"},
		{"", "", "float"},
		{"1", "", "1.5"},
	}, nil)
	assert.Equal(t, "invocation_error", s.Results[0].ErrorKind)

	s = run(t, "utils", "normalize_label", domain.Table{
		{"ID", "期望结果", "label"},
		{"", "", ""},
		{"1", "late_blight", "  Late   Blight "},
	}, nil)
	requireAllPassed(t, s)
}

func TestUtils_TotalAreaBuildsPlotsPerElement(t *testing.T) {
	s := run(t, "utils", "total_area", domain.Table{
		{"ID", "期望结果", "plots"},
		{"", "float", "list(models.Plot)"},
		{"1", "3.5", `[{"name":"north","area":1.5},{"name":"south","area":2,"owner":"x"}]`},
		{"2", "0", "[]"},
	}, nil)
	requireAllPassed(t, s)
}

func TestPlotService_CreatePlotSharesRepositoryState(t *testing.T) {
	catalog := project.NewCatalog()
	require.NoError(t, Register(catalog))
	rc, err := resolver.NewContext(catalog, Root)
	require.NoError(t, err)

	create, err := rc.Resolve("services.plots.PlotService", "create_plot")
	require.NoError(t, err)
	assert.True(t, create.IsAsync)
	assert.Equal(t, resolver.InstanceMethod, create.Kind)

	batch, err := loader.Load(domain.Table{
		{"ID", "期望结果", "name", "area", "crop"},
		{"", "models.Plot", "str", "float", "str"},
		{"1", `{"plotId":"plot-1","name":"North Field","area":2.5,"crop":"rice"}`, "North Field", "2.5", "rice"},
		{"2", `{"plotId":"plot-2","name":"East","area":1,"crop":"wheat"}`, "East", "1", "wheat"},
		{"3", "", "bad/name", "1", "rice"},
	})
	require.NoError(t, err)

	summary, err := executor.New().Run(context.Background(), rc, create, batch, nil, executor.RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Passed, summary.Results[0].Diff)
	assert.True(t, summary.Results[1].Passed, summary.Results[1].Diff)
	assert.False(t, summary.Results[2].Passed)
	assert.Contains(t, summary.Results[2].Error, "invalid plot name")

	fetch, err := rc.Resolve("services.plots.PlotRepository", "fetch_all")
	require.NoError(t, err)
	v, err := fetch.Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	plots, err := v.(project.Awaitable).Await(context.Background())
	require.NoError(t, err)
	assert.Len(t, plots, 2)
}

func TestPlotService_MockedRepository(t *testing.T) {
	s := run(t, "services.plots.PlotService", "create_plot", domain.Table{
		{"ID", "期望结果", "name", "area"},
		{"", "", "str", "float"},
		{"1", `{"plotId":"fixed","name":"A","area":1}`, "A", "1"},
	}, map[string]interface{}{
		"services.plots.PlotRepository.save": map[string]interface{}{"mock_value": "fixed"},
	})
	// untyped expected text is never equal to a *Plot
	assert.False(t, s.Results[0].Passed)
	plot, ok := s.Results[0].Actual.(*Plot)
	require.True(t, ok)
	assert.Equal(t, "fixed", plot.PlotID)
}

func TestPlotService_StaticAndClassMethods(t *testing.T) {
	s := run(t, "services.plots.PlotService", "validate_plot_name", domain.Table{
		{"ID", "期望结果", "name"},
		{"", "bool", "str"},
		{"1", "true", "Plot 7"},
		{"2", "false", ""},
		{"3", "false", "x/y"},
	}, nil)
	requireAllPassed(t, s)

	s = run(t, "services.plots.PlotService", "supported_crops", domain.Table{
		{"ID", "期望结果"},
		{"", "list(str)"},
		{"1", `["maize","potato","rice","tomato","wheat"]`},
	}, nil)
	requireAllPassed(t, s)
}

// Mocking the weather client by name makes fetch_data return the mocked
// value, whatever the real client would do.
func TestWeather_HeuristicMockOnFetch(t *testing.T) {
	inst := mock.NewInstaller(mock.Heuristic, nil)
	s := run(t, "services.weather.WeatherService", "fetch_data", domain.Table{
		{"ID", "期望结果", "location"},
		{"", "int", "str"},
		{"1", "42", "Hanoi"},
	}, map[string]interface{}{
		"services.weather.WeatherClient.fetch": map[string]interface{}{"mock_value": 42},
	}, executor.WithInstaller(inst))
	requireAllPassed(t, s)
}

func TestWeather_UnmockedClientFails(t *testing.T) {
	s := run(t, "services.weather.WeatherService", "fetch_data", domain.Table{
		{"ID", "期望结果", "location"},
		{"", "", ""},
		{"1", "42", "Hanoi"},
	}, nil)
	assert.False(t, s.Results[0].Passed)
	assert.Contains(t, s.Results[0].Error, "not reachable")
}

func TestWeather_DiseaseRiskWithPatchedAttribute(t *testing.T) {
	s := run(t, "services.weather.WeatherService", "disease_risk", domain.Table{
		{"ID", "期望结果", "location"},
		{"", "", ""},
		{"1", "high", "Da Lat"},
	}, map[string]interface{}{
		"services.weather.WeatherClient.fetch": map[string]interface{}{
			"mock_value": map[string]interface{}{"humidity": 72.0, "temperature": 22.0},
		},
		"services.weather.HUMIDITY_ALERT": 70.0,
	})
	requireAllPassed(t, s)
}

func TestDetection(t *testing.T) {
	s := run(t, "services.detection.DiseaseDetector", "detect", domain.Table{
		{"ID", "期望结果", "scores"},
		{"", "", "dict(float)"},
		{"1", "late_blight", `{"late_blight":0.91,"leaf_mold":0.4}`},
		{"2", "healthy", `{"late_blight":0.3}`},
		{"3", "leaf_mold", `{"late_blight":0.7,"leaf_mold":0.7}`},
	}, nil)
	assert.True(t, s.Results[0].Passed)
	assert.True(t, s.Results[1].Passed)
	assert.False(t, s.Results[2].Passed, "ties go to the alphabetically first label")

	s = run(t, "services.detection.DiseaseDetector", "severity_of", domain.Table{
		{"ID", "期望结果", "disease"},
		{"", "", "models.Disease"},
		{"1", "high", `{"name":"rust","severity":"high"}`},
	}, nil)
	requireAllPassed(t, s)
}

func TestModels_UserConstructionDropsUnknownKeys(t *testing.T) {
	catalog := project.NewCatalog()
	require.NoError(t, Register(catalog))
	rc, err := resolver.NewContext(catalog, "/srv/projects/plantcare")
	require.NoError(t, err)

	obj, err := coerce.New(rc).Coerce(`{"userId":"u1","username":"bob","role":"admin"}`, "models.User")
	require.NoError(t, err)
	assert.Equal(t, &User{UserID: "u1", Username: "bob"}, obj)
}
