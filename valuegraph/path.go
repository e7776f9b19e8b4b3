package valuegraph

import (
	"fmt"
	"strings"
)

// SegmentKind tells how a Segment descends from its parent value.
type SegmentKind int

const (
	SegmentArg SegmentKind = iota
	SegmentKwarg
	SegmentKey
	SegmentIndex
	SegmentField
	SegmentLen
	SegmentKeys
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Index int
	Name  string
	Key   any
}

func Arg(i int) Segment         { return Segment{Kind: SegmentArg, Index: i} }
func Kwarg(name string) Segment { return Segment{Kind: SegmentKwarg, Name: name} }
func Key(k any) Segment         { return Segment{Kind: SegmentKey, Key: k} }
func Index(i int) Segment       { return Segment{Kind: SegmentIndex, Index: i} }
func Field(name string) Segment { return Segment{Kind: SegmentField, Name: name} }

var (
	// Len marks a length comparison of an ordered sequence.
	Len = Segment{Kind: SegmentLen}
	// Keys marks a key-set comparison of a mapping.
	Keys = Segment{Kind: SegmentKeys}
)

func (s Segment) String() string {
	switch s.Kind {
	case SegmentArg:
		return fmt.Sprintf("arg[%d]", s.Index)
	case SegmentKwarg:
		return fmt.Sprintf("kwarg[%q]", s.Name)
	case SegmentKey:
		return "[" + truncate(fmt.Sprintf("%#v", s.Key)) + "]"
	case SegmentIndex:
		return fmt.Sprintf("[%d]", s.Index)
	case SegmentField:
		return "." + s.Name
	case SegmentLen:
		return "<len>"
	case SegmentKeys:
		return "<keys>"
	default:
		panic(fmt.Sprintf("exhaustive match fallback, segment kind: %d", s.Kind))
	}
}

// Path locates a value inside the argument graph of a call.
type Path []Segment

// Append returns a new Path; the receiver is never modified.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}
