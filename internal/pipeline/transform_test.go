package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/estimator"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
	"github.com/couchcryptid/storefront-estimator/internal/pipeline"
)

func newEstimateTransformer() *pipeline.EstimateTransformer {
	svc := estimator.NewService(
		domain.NewEngine(nil, discardLogger()),
		estimator.Collaborators{},
		observability.NewMetricsForTesting(),
		discardLogger(),
	)
	return pipeline.NewTransformer(svc)
}

func readRequest(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "requests", name))
	require.NoError(t, err)
	return data
}

func TestEstimateTransformer_Fixtures(t *testing.T) {
	cases := []struct {
		file        string
		key         string
		wantID      string
		wantMonthly float64
		wantJunc    string
		wantErrKind string
	}{
		{file: "scenario_a.json", key: "scenario-a", wantID: "scenario-a", wantMonthly: 14580},
		{file: "junctions_bpb.json", key: "ignored", wantID: "bpb-1", wantMonthly: 1215, wantJunc: "B,P,B"},
		{file: "unnormalized.json", key: "unnormalized", wantID: "unnormalized", wantMonthly: 17496},
		{file: "zero_road.json", key: "zero-road", wantErrKind: "validation"},
		{file: "invalid_business.json", key: "invalid", wantErrKind: "validation"},
		{file: "truncated.json", key: "truncated", wantErrKind: "validation"},
	}

	tfm := newEstimateTransformer()

	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			raw := domain.RawEvent{
				Key:   []byte(tc.key),
				Value: readRequest(t, tc.file),
				Topic: "location-estimate-requests",
			}

			est, err := tfm.Transform(context.Background(), raw)
			if tc.wantErrKind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantErrKind, domain.ErrorKind(err))
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tc.wantID, est.RequestID)
			assert.Equal(t, domain.SourceRequest, est.AreaSource)
			assert.InDelta(t, tc.wantMonthly, est.Metrics.MonthlyRevenue, 1)
			assert.Equal(t, tc.wantJunc, est.Metrics.Junctions)
			assert.Equal(t, domain.WeatherSourceDisabled, est.Metrics.WeatherSource)
			assert.InDelta(t, 100, est.Metrics.Area.Sum(), 10)
			assert.False(t, est.ComputedAt.IsZero())
		})
	}
}

func TestEstimateTransformer_InvalidFieldsAreNamed(t *testing.T) {
	_, err := newEstimateTransformer().Transform(context.Background(), domain.RawEvent{
		Value: readRequest(t, "invalid_business.json"),
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	fields := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"business.buildingWidth", "business.productPrice"}, fields)
}
