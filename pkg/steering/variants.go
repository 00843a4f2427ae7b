package steering

import (
	"sort"

	"github.com/robotalks/linebot/pkg/drive"
)

// Row template names used by the built-in variants.
const (
	RowStandard  = "standard"
	RowLostLeft  = "lost-left"
	RowLostRight = "lost-right"
)

var (
	rows6 = map[string][]Rule{
		RowStandard: {
			On("111111", NameError),
			On("xx11xx", NameCenter),
			On("000001", "Left3"),
			On("00001x", "Left2"),
			On("0001xx", "Left1"),
			On("xx1000", "Right1"),
			On("x10000", "Right2"),
			On("100000", "Right3"),
			On(DefaultMatch, NameError),
		},
		RowLostLeft: {
			On("111111", NameLostLeft),
			On("xx11xx", NameCenter),
			On("xx1000", "Right1"),
			On("x10000", "Right2"),
			On("100000", "Right3"),
			On(DefaultMatch, NameLostLeft),
		},
		RowLostRight: {
			On("111111", NameLostRight),
			On("xx11xx", NameCenter),
			On("0001xx", "Left1"),
			On("00001x", "Left2"),
			On("000001", "Left3"),
			On(DefaultMatch, NameLostRight),
		},
	}

	rows5 = map[string][]Rule{
		RowStandard: {
			On("11111", NameError),
			On("0x1x0", NameCenter),
			On("00001", "Left3"),
			On("00011", "Left2"),
			On("00010", "Left1"),
			On("01000", "Right1"),
			On("11000", "Right2"),
			On("10000", "Right3"),
			On(DefaultMatch, NameError),
		},
		RowLostLeft: {
			On("0x1x0", NameCenter),
			On("01000", "Right1"),
			On("11000", "Right2"),
			On("10000", "Right3"),
			On(DefaultMatch, NameLostLeft),
		},
		RowLostRight: {
			On("0x1x0", NameCenter),
			On("00010", "Left1"),
			On("00011", "Left2"),
			On("00001", "Left3"),
			On(DefaultMatch, NameLostRight),
		},
	}

	rows4 = map[string][]Rule{
		RowStandard: {
			On("0110", NameCenter),
			On("0010", "Left1"),
			On("0111", "Left1"),
			On("0011", "Left2"),
			On("0001", "Left3"),
			On("0100", "Right1"),
			On("1110", "Right1"),
			On("1100", "Right2"),
			On("1000", "Right3"),
			On(DefaultMatch, NameError),
		},
		RowLostLeft: {
			On("0110", NameCenter),
			On("0100", "Right1"),
			On("1110", "Right1"),
			On("1100", "Right2"),
			On("1000", "Right3"),
			On(DefaultMatch, NameLostLeft),
		},
		RowLostRight: {
			On("0110", NameCenter),
			On("0010", "Left1"),
			On("0111", "Left1"),
			On("0011", "Left2"),
			On("0001", "Left3"),
			On(DefaultMatch, NameLostRight),
		},
	}
)

func fwd(left, right uint16) drive.Command {
	return drive.Command{Direction: drive.Forward, Left: left, Right: right}
}

func pivot(dir drive.Direction, duty uint16) drive.Command {
	return drive.Command{Direction: dir, Left: duty, Right: duty}
}

// ladder holds the commands of the graded states, the drift side first.
type ladder struct {
	center, errCmd drive.Command
	left, right    [3]drive.Command
	lostLeft       drive.Command
	lostRight      drive.Command
}

var (
	// first firmware: forward only, stops on error.
	basicLadder = ladder{
		center: fwd(3000, 3000),
		errCmd: drive.Halt,
		left:   [3]drive.Command{fwd(3000, 2000), fwd(3000, 1500), fwd(3000, 0)},
		right:  [3]drive.Command{fwd(2000, 3000), fwd(1500, 3000), fwd(0, 3000)},
	}

	// race firmware: pivots at level 3 and backs up on error.
	raceLadder = ladder{
		center:    fwd(4000, 4000),
		errCmd:    drive.Command{Direction: drive.Backward, Left: 2000, Right: 2000},
		left:      [3]drive.Command{fwd(3000, 2000), fwd(3000, 1500), pivot(drive.Right, 1500)},
		right:     [3]drive.Command{fwd(2000, 3000), fwd(1500, 3000), pivot(drive.Left, 1500)},
		lostLeft:  pivot(drive.Right, 2000),
		lostRight: pivot(drive.Left, 2000),
	}
)

func (l ladder) colored() ladder {
	l.center.Indicator = drive.Yellow
	l.errCmd.Indicator = drive.Blue
	for n := range l.left {
		l.left[n].Indicator = drive.Green
		l.right[n].Indicator = drive.Red
	}
	l.lostLeft.Indicator = drive.Pink
	l.lostRight.Indicator = drive.Pink
	return l
}

func buildSpec(name string, width int, centered string, rows map[string][]Rule, l ladder, lost bool) TableSpec {
	spec := TableSpec{
		Name:     name,
		Width:    width,
		Centered: centered,
		Rows:     make(map[string][]Rule),
	}
	spec.Rows[RowStandard] = rows[RowStandard]
	spec.States = []StateSpec{
		{Name: NameCenter, Command: l.center, Row: RowStandard},
	}
	names := [2]string{"Left", "Right"}
	sides := [2]Side{DriftLeft, DriftRight}
	cmds := [2][3]drive.Command{l.left, l.right}
	lostNames := [2]string{NameLostLeft, NameLostRight}
	allClear := make([]byte, width)
	for n := range allClear {
		allClear[n] = '0'
	}
	for s := range names {
		for level := 1; level <= 3; level++ {
			st := StateSpec{
				Name:    names[s] + string(rune('0'+level)),
				Grade:   Grade{Side: sides[s], Level: level},
				Command: cmds[s][level-1],
				Row:     RowStandard,
			}
			if lost && level == 3 {
				st.Rules = []Rule{On(string(allClear), lostNames[s])}
			}
			spec.States = append(spec.States, st)
		}
	}
	if lost {
		spec.Roles.LostLeft, spec.Roles.LostRight = NameLostLeft, NameLostRight
		spec.Rows[RowLostLeft] = rows[RowLostLeft]
		spec.Rows[RowLostRight] = rows[RowLostRight]
		spec.States = append(spec.States,
			StateSpec{Name: NameLostLeft, Grade: Grade{Side: DriftLeft, Level: LostLevel}, Command: l.lostLeft, Row: RowLostLeft},
			StateSpec{Name: NameLostRight, Grade: Grade{Side: DriftRight, Level: LostLevel}, Command: l.lostRight, Row: RowLostRight},
		)
	}
	spec.States = append(spec.States,
		StateSpec{Name: NameStop, Command: drive.Halt, Rules: []Rule{On(DefaultMatch, NameStop)}},
		StateSpec{Name: NameError, Command: l.errCmd, Row: RowStandard},
	)
	return spec
}

// Variants are the built-in tables.
var Variants = map[string]*Table{
	"basic6": MustCompile(buildSpec("basic6", 6, "001100", rows6, basicLadder, false)),
	"race6":  MustCompile(buildSpec("race6", 6, "001100", rows6, raceLadder, false)),
	"lost6":  MustCompile(buildSpec("lost6", 6, "001100", rows6, raceLadder, true)),
	"lost5":  MustCompile(buildSpec("lost5", 5, "00100", rows5, raceLadder, true)),
	"lost4":  MustCompile(buildSpec("lost4", 4, "0110", rows4, raceLadder, true)),
	"color4": MustCompile(buildSpec("color4", 4, "0110", rows4, raceLadder.colored(), true)),
}

// DefaultVariant is the variant used when none is configured.
const DefaultVariant = "lost6"

// VariantNames returns the sorted names of the built-in variants.
func VariantNames() []string {
	names := make([]string, 0, len(Variants))
	for name := range Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
