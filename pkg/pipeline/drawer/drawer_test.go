package drawer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-upscalin/pkg/pipeline/drawer"
	"github.com/askiada/go-upscalin/pkg/pipeline/measure"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

var (
	decodeStep  = &model.StepInfo{Type: model.RootStepType, Name: "decode", Concurrent: 1}
	upscaleStep = &model.StepInfo{Type: model.OrderedStepType, Name: "upscale", Concurrent: 4, Window: 8}
	encodeStep  = &model.StepInfo{Type: model.SinkStepType, Name: "encode", Concurrent: 1}
)

func prepare(t *testing.T, opts ...model.PipelineOption) {
	t.Helper()

	for _, opt := range opts {
		require.NoError(t, opt.New())
		require.NoError(t, opt.PrepareStep(model.StartStep.Details, decodeStep))
		require.NoError(t, opt.PrepareStep(decodeStep, upscaleStep))
		require.NoError(t, opt.PrepareSink(upscaleStep, encodeStep))
	}
}

func TestDOTDrawerRender(t *testing.T) {
	t.Parallel()

	drw := drawer.NewDOTDrawer("")
	require.NoError(t, drw.AddStep(decodeStep))
	require.NoError(t, drw.AddStep(upscaleStep))
	require.NoError(t, drw.AddLink("decode", "upscale"))

	buf := &bytes.Buffer{}
	require.NoError(t, drw.Render(buf))

	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, `"decode" -> "upscale"`)
	assert.Contains(t, out, `upscale\nworkers 4, window 8`)
}

func TestDOTDrawerErrors(t *testing.T) {
	t.Parallel()

	drw := drawer.NewDOTDrawer("")
	require.NoError(t, drw.AddStep(decodeStep))

	require.Error(t, drw.AddStep(decodeStep))
	require.Error(t, drw.AddLink("decode", "missing"))
	require.Error(t, drw.SetTotalTime("missing", time.Second))
}

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.dot")
	msr := measure.NewDefaultMeasure()
	measureOpt := measure.PipelineMeasure(msr)
	drawerOpt := drawer.PipelineDrawer(drawer.NewDOTDrawer(path), msr)

	prepare(t, measureOpt, drawerOpt)

	for _, opt := range []model.PipelineOption{measureOpt, drawerOpt} {
		require.NoError(t, opt.OnStepOutput(decodeStep, upscaleStep, 40*time.Millisecond, 10*time.Millisecond))
		require.NoError(t, opt.OnSinkOutput(upscaleStep, encodeStep, 2*time.Millisecond, time.Millisecond))
		require.NoError(t, opt.AfterSink(encodeStep, time.Second))
	}

	require.NoError(t, measureOpt.Finish())
	require.NoError(t, drawerOpt.Finish())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(content)
	assert.Contains(t, out, `"upscale" -> "encode"`)
	assert.Contains(t, out, `"encode" -> "end"`)
	assert.Contains(t, out, "end: 1s")
	assert.Contains(t, out, `color="#`)
}
