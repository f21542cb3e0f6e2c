package drawer

import (
	"time"

	"github.com/askiada/go-upscalin/pkg/pipeline/measure"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStep adds a step to the pipeline drawer.
	AddStep(step *model.StepInfo) error
	// AddLink adds a link between parent and child steps.
	AddLink(parentStepName, childStepName string) error
	// SetTotalTime sets the total time for the step.
	SetTotalTime(stepName string, total time.Duration) error
	// AddMeasure annotates the steps and links with the timings of msr.
	AddMeasure(msr measure.Measure) error
	// Draw writes the pipeline graph.
	Draw() error
}
