package model

// StepType tells how a step consumes and produces elements.
type StepType string

const (
	RootStepType    StepType = "root"
	OrderedStepType StepType = "ordered"
	SinkStepType    StepType = "sink"
)

// StepInfo describes a step to the pipeline options.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
	// Window bounds how many elements an ordered step holds between admission and output.
	Window int
}

var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is the output side of a pipeline step.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}
