package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/stretchr/testify/assert"
)

func TestSSAAMultiplier(t *testing.T) {
	assert.Equal(t, float32(1.2), SSAAMultiplier(graph.QualityMedium))
	assert.Equal(t, float32(1.5), SSAAMultiplier(graph.QualityHigh))
	assert.Equal(t, float32(2.0), SSAAMultiplier(graph.QualityVeryHigh))
}

func TestMSAASampleCount(t *testing.T) {
	cases := []struct {
		name    string
		counts  []int
		mode    graph.AntialiasingMode
		quality graph.AntialiasingQuality
		want    int
	}{
		{"not msaa", []int{1, 2, 4, 8}, graph.AntialiasingSSAA, graph.QualityHigh, 1},
		{"exact", []int{1, 2, 4, 8}, graph.AntialiasingMSAA, graph.QualityHigh, 4},
		{"never above the request", []int{1, 2, 8}, graph.AntialiasingMSAA, graph.QualityHigh, 2},
		{"largest below", []int{1, 2}, graph.AntialiasingMSAA, graph.QualityVeryHigh, 2},
		{"unsorted counts", []int{8, 1, 4}, graph.AntialiasingMSAA, graph.QualityVeryHigh, 4},
		{"nothing below", []int{8}, graph.AntialiasingMSAA, graph.QualityMedium, 1},
		{"no counts", []int{}, graph.AntialiasingMSAA, graph.QualityHigh, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := rhitest.NewDevice(rhitest.WithSampleCounts(tc.counts...))
			assert.Equal(t, tc.want, MSAASampleCount(d, tc.mode, tc.quality))
		})
	}
	assert.Equal(t, 1, MSAASampleCount(nil, graph.AntialiasingMSAA, graph.QualityHigh))
}

func TestMSAAUnsupportedWarnsOnce(t *testing.T) {
	common.ResetWarnings()
	defer common.ResetWarnings()

	d := rhitest.NewDevice(rhitest.WithoutFeature(rhi.FeatureMultisampleRenderBuffer))
	assert.Equal(t, 1, MSAASampleCount(d, graph.AntialiasingMSAA, graph.QualityVeryHigh))
	assert.Equal(t, 1, MSAASampleCount(d, graph.AntialiasingMSAA, graph.QualityVeryHigh))
	assert.False(t, common.WarnOnce("renderer.msaa.unsupported", "already warned"))
}

func TestMSAADegradeWarnsOnce(t *testing.T) {
	common.ResetWarnings()
	defer common.ResetWarnings()

	d := rhitest.NewDevice(rhitest.WithSampleCounts(1, 2, 8))
	assert.Equal(t, 2, MSAASampleCount(d, graph.AntialiasingMSAA, graph.QualityHigh))
	assert.False(t, common.WarnOnce("renderer.msaa.degraded", "already warned"))

	common.ResetWarnings()
	assert.Equal(t, 8, MSAASampleCount(rhitest.NewDevice(rhitest.WithSampleCounts(1, 8)), graph.AntialiasingMSAA, graph.QualityVeryHigh))
	assert.True(t, common.WarnOnce("renderer.msaa.degraded", "an exact match does not warn"))
}

func TestBlendFactorsWeighFramesEqually(t *testing.T) {
	for i, f := range BlendFactors {
		assert.InDelta(t, 1, f[0]+f[1], 1e-5, "factors %d", i)
		assert.InDelta(t, 1/float32(i+2), f[0], 1e-5, "frame weight %d", i)
	}
	assert.Equal(t, [2]float32{0.5, 0.5}, TemporalBlendFactors)
}

func TestProgressiveJitter(t *testing.T) {
	size := common.Size{Width: 200, Height: 100}
	assert.Zero(t, ProgressiveJitter(0, graph.QualityHigh, size), "seed frame")
	assert.Zero(t, ProgressiveJitter(4, graph.QualityHigh, size), "converged")
	assert.Zero(t, ProgressiveJitter(1, graph.QualityHigh, common.Size{}), "empty viewport")

	j := ProgressiveJitter(1, graph.QualityHigh, size)
	assert.InDelta(t, progressiveOffsets[0].X()/100, j.X(), 1e-7)
	assert.InDelta(t, progressiveOffsets[0].Y()/50, j.Y(), 1e-7)

	j = ProgressiveJitter(7, graph.QualityVeryHigh, size)
	assert.InDelta(t, progressiveOffsets[6].X()/100, j.X(), 1e-7)
}

func TestTemporalJitterAlternates(t *testing.T) {
	size := common.Size{Width: 100, Height: 50}
	even := TemporalJitter(0, 0.5, size)
	odd := TemporalJitter(1, 0.5, size)
	assert.InDelta(t, 0.01, even.X(), 1e-7)
	assert.InDelta(t, 0.02, even.Y(), 1e-7)
	assert.Equal(t, even.Mul(-1), odd)
	assert.Equal(t, even, TemporalJitter(2, 0.5, size))
	assert.Zero(t, TemporalJitter(0, 0.5, common.Size{}))
}
