package records

import "fmt"

// ControlKind is the widget a UIControl is drawn with.
type ControlKind int

const (
	ControlSliderInt ControlKind = iota
	ControlSliderFloat
)

// UIControl describes one settings widget bound to a record field.
type UIControl struct {
	Kind  ControlKind
	Label string
	Min   float32
	Max   float32
	Value float32
}

// UISection is the settings panel for the selected record. Drawing it is up to the host.
type UISection struct {
	Title    string
	Kind     Kind
	Index    int
	Controls []UIControl
}

func branchSection(i int, r BranchRecord) UISection {
	return UISection{
		Title: fmt.Sprintf("IvyBranch[%d] Settings", i),
		Kind:  KindBranch,
		Index: i,
		Controls: []UIControl{
			{Kind: ControlSliderInt, Label: "Seed", Min: 0, Max: MaxSeed, Value: float32(r.Seed)},
		},
	}
}

func areaSection(i int, r AreaRecord) UISection {
	return UISection{
		Title: fmt.Sprintf("IvyArea[%d] Settings", i),
		Kind:  KindArea,
		Index: i,
		Controls: []UIControl{
			{Kind: ControlSliderInt, Label: "Seed", Min: 0, Max: MaxSeed, Value: float32(r.Seed)},
			{Kind: ControlSliderFloat, Label: "Density", Min: MinDensity, Max: MaxDensity, Value: r.Density},
		},
	}
}
