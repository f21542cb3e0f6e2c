package drawer

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-upscalin/pkg/pipeline/measure"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

const (
	xlabelAttribute = "xlabel"
	maxRGB          = 240
)

// DOTDrawer writes the pipeline graph in Graphviz DOT format.
type DOTDrawer struct {
	graph graph.Graph[string, string]
	path  string
}

// NewDOTDrawer creates a drawer writing to path when Draw is called.
func NewDOTDrawer(path string) *DOTDrawer {
	return &DOTDrawer{
		path:  path,
		graph: graph.New(graph.StringHash, graph.Directed()),
	}
}

func stepLabel(step *model.StepInfo) string {
	switch step.Type {
	case model.OrderedStepType:
		return fmt.Sprintf("%s\\nworkers %d, window %d", step.Name, step.Concurrent, step.Window)
	default:
		return step.Name
	}
}

func stepShape(step *model.StepInfo) string {
	switch step.Type {
	case model.RootStepType, model.SinkStepType:
		return "ellipse"
	case model.OrderedStepType:
		return "box"
	default:
		return "point"
	}
}

// AddStep adds a step to the pipeline graph.
func (d *DOTDrawer) AddStep(step *model.StepInfo) error {
	err := d.graph.AddVertex(step.Name,
		graph.VertexAttribute("label", stepLabel(step)),
		graph.VertexAttribute("shape", stepShape(step)),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to add step %s", step.Name)
	}

	return nil
}

// AddLink adds a link between parent and child steps.
func (d *DOTDrawer) AddLink(parentName, childName string) error {
	err := d.graph.AddEdge(parentName, childName)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

// SetTotalTime sets the total time for the step.
func (d *DOTDrawer) SetTotalTime(stepName string, total time.Duration) error {
	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrapf(err, "unable to get step %s", stepName)
	}

	properties.Attributes[xlabelAttribute] = total.String()

	return nil
}

// AddMeasure labels every step with its average duration and element count, and colours every
// link from blue (fastest transport) to red (slowest).
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	minElapsed, maxElapsed := time.Duration(math.MaxInt64), time.Duration(0)

	for _, mt := range msr.AllMetrics() {
		for _, elapsed := range mt.AVGTransportDuration() {
			minElapsed = min(minElapsed, elapsed)
			maxElapsed = max(maxElapsed, elapsed)
		}
	}

	for name, mt := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(name)
		if err != nil {
			return errors.Wrapf(err, "unable to get step %s", name)
		}

		if avg := mt.AVGDuration(); avg > 0 {
			properties.Attributes[xlabelAttribute] = fmt.Sprintf("%s x %s", avg, humanize.Comma(mt.Count()))
		}

		if total := mt.GetTotalDuration(); total > 0 {
			properties.Attributes[xlabelAttribute] += ", end: " + total.String()
		}

		for inputStep, elapsed := range mt.AVGTransportDuration() {
			colour, err := heat(elapsed, minElapsed, maxElapsed)
			if err != nil {
				return err
			}

			err = d.graph.UpdateEdge(inputStep, name,
				graph.EdgeAttribute("label", elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", colour),
			)
			if err != nil {
				return errors.Wrapf(err, "unable to update edge from %s to %s", inputStep, name)
			}
		}
	}

	return nil
}

func heat(elapsed, minElapsed, maxElapsed time.Duration) (string, error) {
	fraction := 1.0
	if maxElapsed > minElapsed {
		fraction = float64(elapsed-minElapsed) / float64(maxElapsed-minElapsed)
	}

	red := uint8(maxRGB * fraction)

	colour, err := colors.RGB(red, 0, maxRGB-red)
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

// Render writes the DOT description of the graph to wrt.
func (d *DOTDrawer) Render(wrt io.Writer) error {
	err := draw.DOT(d.graph, wrt, draw.GraphAttribute("rankdir", "LR"))
	if err != nil {
		return errors.Wrap(err, "unable to render graph")
	}

	return nil
}

// Draw writes the graph to the drawer path.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.path)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.path)
	}
	defer file.Close()

	err = d.Render(file)
	if err != nil {
		return err
	}

	return errors.Wrapf(file.Close(), "unable to close file %s", d.path)
}

var _ Drawer = (*DOTDrawer)(nil)
