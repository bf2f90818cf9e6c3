package analyses

// Lane positions and anchors for the rendered process map. Step markers sit
// in the left lane with their label to the right; descriptions and
// touchpoints are text-only lanes anchored to the left.
const (
	laneStep        = 0
	laneDescription = 1
	laneTouchpoint  = 2

	anchorMiddleRight = "middle right"
	anchorMiddleLeft  = "middle left"

	layoutBaseHeight   = 400
	layoutRowIncrement = 50
)

// ProcessMapLayout is a declarative, render-ready projection of the process
// steps. It carries no rendering logic; a frontend maps labels straight onto
// a scatter figure.
type ProcessMapLayout struct {
	Title  string          `json:"title"`
	Rows   []ProcessMapRow `json:"rows"`
	Height int             `json:"height"`
}

// ProcessMapRow positions one process step on the vertical axis.
type ProcessMapRow struct {
	Index       int             `json:"index"`
	Step        ProcessMapLabel `json:"step"`
	Description ProcessMapLabel `json:"description"`
	Touchpoint  ProcessMapLabel `json:"touchpoint"`
}

// ProcessMapLabel is a single positioned text element.
type ProcessMapLabel struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
	Marker bool   `json:"marker,omitempty"`
}

// BuildProcessMapLayout projects ordered steps onto layout rows. The i-th
// step occupies vertical index i; an empty step list yields an empty layout.
func BuildProcessMapLayout(steps []ProcessStep) ProcessMapLayout {
	rows := make([]ProcessMapRow, 0, len(steps))
	for i, step := range steps {
		rows = append(rows, ProcessMapRow{
			Index: i,
			Step: ProcessMapLabel{
				X:      laneStep,
				Y:      i,
				Text:   step.Step,
				Anchor: anchorMiddleRight,
				Marker: true,
			},
			Description: ProcessMapLabel{
				X:      laneDescription,
				Y:      i,
				Text:   step.Description,
				Anchor: anchorMiddleLeft,
			},
			Touchpoint: ProcessMapLabel{
				X:      laneTouchpoint,
				Y:      i,
				Text:   step.Touchpoint,
				Anchor: anchorMiddleLeft,
			},
		})
	}
	return ProcessMapLayout{
		Title:  "Behavior Process Map",
		Rows:   rows,
		Height: layoutBaseHeight + layoutRowIncrement*len(steps),
	}
}
