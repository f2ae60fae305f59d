package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// SnapshotSVG draws every particle as a circle of the given radius inside a
// width x height box. Non-finite positions are skipped.
func SnapshotSVG(w io.Writer, positions []dynamo.Vec, radius, width, height float64, fill string) error {
	if fill == "" {
		fill = "#00ffff"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, fill)

	for _, p := range positions {
		if !dynamo.Finite(p) {
			continue
		}
		fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f"/>
`, p.X, p.Y, radius)
	}

	sb.WriteString("</g>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
