// Package models - Class label sets, label files and layout presets.
package models

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// UnknownClass names class ids that fall outside the label list.
const UnknownClass = "unknown"

// LabelSet identifies a built-in label list.
type LabelSet string

const (
	// LabelSetCOCO is the COCO labelmap with "__background__" at index 0.
	LabelSetCOCO LabelSet = "coco"
	// LabelSetYOLO is the 80 COCO classes, zero based.
	LabelSetYOLO LabelSet = "yolo"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a label set to its full list of labels.
type OutputClassSet struct {
	// Set identifier.
	Set LabelSet
	// Classes in index order.
	Classes []OutputClass
}

// Names returns the class names in index order.
func (s OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// COCOClasses is the full 80 COCO classes plus "__background__" at index 0.
var COCOClasses = OutputClassSet{
	Set: LabelSetCOCO,
	Classes: []OutputClass{
		{0, "__background__"},
		{1, "person"},
		{2, "bicycle"},
		{3, "car"},
		{4, "motorcycle"},
		{5, "airplane"},
		{6, "bus"},
		{7, "train"},
		{8, "truck"},
		{9, "boat"},
		{10, "traffic light"},
		{11, "fire hydrant"},
		{12, "stop sign"},
		{13, "parking meter"},
		{14, "bench"},
		{15, "bird"},
		{16, "cat"},
		{17, "dog"},
		{18, "horse"},
		{19, "sheep"},
		{20, "cow"},
		{21, "elephant"},
		{22, "bear"},
		{23, "zebra"},
		{24, "giraffe"},
		{25, "backpack"},
		{26, "umbrella"},
		{27, "handbag"},
		{28, "tie"},
		{29, "suitcase"},
		{30, "frisbee"},
		{31, "skis"},
		{32, "snowboard"},
		{33, "sports ball"},
		{34, "kite"},
		{35, "baseball bat"},
		{36, "baseball glove"},
		{37, "skateboard"},
		{38, "surfboard"},
		{39, "tennis racket"},
		{40, "bottle"},
		{41, "wine glass"},
		{42, "cup"},
		{43, "fork"},
		{44, "knife"},
		{45, "spoon"},
		{46, "bowl"},
		{47, "banana"},
		{48, "apple"},
		{49, "sandwich"},
		{50, "orange"},
		{51, "broccoli"},
		{52, "carrot"},
		{53, "hot dog"},
		{54, "pizza"},
		{55, "donut"},
		{56, "cake"},
		{57, "chair"},
		{58, "couch"},
		{59, "potted plant"},
		{60, "bed"},
		{61, "dining table"},
		{62, "toilet"},
		{63, "tv"},
		{64, "laptop"},
		{65, "mouse"},
		{66, "remote"},
		{67, "keyboard"},
		{68, "cell phone"},
		{69, "microwave"},
		{70, "oven"},
		{71, "toaster"},
		{72, "sink"},
		{73, "refrigerator"},
		{74, "book"},
		{75, "clock"},
		{76, "vase"},
		{77, "scissors"},
		{78, "teddy bear"},
		{79, "hair drier"},
		{80, "toothbrush"},
	},
}

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list.
var YOLOClasses = OutputClassSet{
	Set: LabelSetYOLO,
	Classes: func() []OutputClass {
		classes := make([]OutputClass, len(COCOClasses.Classes)-1) // drop background
		for i := 1; i < len(COCOClasses.Classes); i++ {
			classes[i-1] = OutputClass{i - 1, COCOClasses.Classes[i].Name}
		}
		return classes
	}(),
}

// LookupName returns labels[idx], or UnknownClass when idx is outside the list.
func LookupName(labels []string, idx int) string {
	if idx >= 0 && idx < len(labels) {
		return labels[idx]
	}
	return UnknownClass
}

// LoadLabelFile reads class names from a text file, one per line.
//
// Surrounding whitespace is trimmed and blank lines are skipped, so line N of the file is not
// necessarily class N when the file has gaps.
//
// Arguments:
//   - path: Path to the label file.
//
// Returns:
//   - []string: The class names in file order.
//   - error: An error if the file cannot be read or holds no labels.
func LoadLabelFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening label file %s", path)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		labels = append(labels, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading label file %s", path)
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("label file %s has no labels", path)
	}

	return labels, nil
}

// ResolveLabels returns class names for a label source: the name of a built-in set ("coco",
// "yolo"), a path to a label file, or "" for no labels.
func ResolveLabels(source string) ([]string, error) {
	switch LabelSet(source) {
	case "":
		return nil, nil
	case LabelSetCOCO:
		return COCOClasses.Names(), nil
	case LabelSetYOLO:
		return YOLOClasses.Names(), nil
	default:
		return LoadLabelFile(source)
	}
}
