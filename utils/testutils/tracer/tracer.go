// Package tracer provides a function to dump a laid out frame tree,
// which may be used in debug mode.
package tracer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/typeflow/typeflow/frame"
)

type Tracer struct {
	out io.Writer
}

func NewTracerNoOp() Tracer { return Tracer{out: io.Discard} }

// NewTracerFile panics if an error occurs.
func NewTracerFile(outFile string) Tracer {
	f, err := os.Create(outFile)
	if err != nil {
		panic(err)
	}
	return Tracer{out: f}
}

func NewTracer(out io.Writer) Tracer { return Tracer{out: out} }

// Dump writes an indented view of the frame and its nested groups.
func (t Tracer) Dump(f frame.Frame) {
	t.dump(&f, 0)
}

func (t Tracer) dump(f *frame.Frame, indent int) {
	pad := strings.Repeat("  ", indent)
	fmt.Fprintf(t.out, "%sframe %gx%g\n", pad, f.Width().Pt(), f.Height().Pt())
	for _, it := range f.Items() {
		switch c := it.Content.(type) {
		case frame.Group:
			fmt.Fprintf(t.out, "%s  group at (%g, %g)\n", pad, it.Pos.X.Pt(), it.Pos.Y.Pt())
			t.dump(c.Frame, indent+2)
		case frame.Text:
			fmt.Fprintf(t.out, "%s  text at (%g, %g) %q width %g\n",
				pad, it.Pos.X.Pt(), it.Pos.Y.Pt(), c.Content, c.Width.Pt())
		case frame.Tag:
			fmt.Fprintf(t.out, "%s  tag at (%g, %g) %q\n", pad, it.Pos.X.Pt(), it.Pos.Y.Pt(), c.Name)
		}
	}
}
