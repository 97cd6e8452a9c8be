package report

import "fmt"

// Markers are the letters that introduce the milestone and sprint numbers in
// a sprint label, e.g. "M2" and "S3" in "Team M2 S3".
type Markers struct {
	Milestone string
	Sprint    string
}

// DefaultMarkers returns the M/S markers used by the tracker's sprint names.
func DefaultMarkers() Markers {
	return Markers{Milestone: "M", Sprint: "S"}
}

// Derive is DeriveSprintTitle with these markers.
func (m Markers) Derive(label string) string {
	return DeriveSprintTitle(label, m.Milestone, m.Sprint)
}

// DeriveSprintTitle turns a raw sprint label into "Milestone <n> Sprint <m>
// in review" when both markers appear followed by a digit. Any other label
// is returned unchanged.
func DeriveSprintTitle(label, milestone, sprint string) string {
	if milestone == "" {
		milestone = "M"
	}
	if sprint == "" {
		sprint = "S"
	}
	n, ok := digitAfter(label, milestone)
	if !ok {
		return label
	}
	s, ok := digitAfter(label, sprint)
	if !ok {
		return label
	}
	return fmt.Sprintf("Milestone %c Sprint %c in review", n, s)
}

// digitAfter finds the first occurrence of marker directly followed by an
// ASCII digit and returns that digit.
func digitAfter(label, marker string) (byte, bool) {
	for i := 0; i+len(marker) < len(label); i++ {
		if label[i:i+len(marker)] != marker {
			continue
		}
		if c := label[i+len(marker)]; c >= '0' && c <= '9' {
			return c, true
		}
	}
	return 0, false
}
