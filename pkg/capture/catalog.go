package capture

// Comparator selects the comparison applied by catalog selection.
type Comparator int

const (
	GreaterThan Comparator = iota
	EqualTo
	LessThan
)

func (c Comparator) String() string {
	switch c {
	case GreaterThan:
		return "greater_than"
	case EqualTo:
		return "equal_to"
	case LessThan:
		return "less_than"
	default:
		return "unknown"
	}
}

// StreamCatalog holds the stream descriptors produced by one discovery
// pass and supports non-mutating filtered selection. Chained selects
// compose as set intersection; the source catalog is never modified.
type StreamCatalog struct {
	descriptors []StreamDescriptor
}

// NewStreamCatalog returns an empty catalog.
func NewStreamCatalog() *StreamCatalog {
	return &StreamCatalog{}
}

// Add inserts a descriptor. Adding a descriptor equal to one already
// present (per StreamDescriptor.Equal) is a no-op, so a catalog never
// contains duplicates.
func (c *StreamCatalog) Add(d StreamDescriptor) {
	for _, existing := range c.descriptors {
		if existing.Equal(d) {
			return
		}
	}
	c.descriptors = append(c.descriptors, d)
}

// SelectResolution returns a new catalog holding the descriptors whose
// resolution satisfies the comparison against (width, height). For
// GreaterThan and LessThan BOTH dimensions must satisfy the comparison;
// a descriptor exceeding the threshold on only one axis is excluded.
// EqualTo requires both dimensions to match exactly.
func (c *StreamCatalog) SelectResolution(cmp Comparator, width, height uint32) *StreamCatalog {
	out := NewStreamCatalog()
	for _, d := range c.descriptors {
		r := d.Resolution
		var keep bool
		switch cmp {
		case GreaterThan:
			keep = r.Width > width && r.Height > height
		case LessThan:
			keep = r.Width < width && r.Height < height
		case EqualTo:
			keep = r.Width == width && r.Height == height
		}
		if keep {
			out.Add(d)
		}
	}
	return out
}

// SelectFramerate returns a new catalog holding the descriptors whose
// framerate satisfies the comparison. EqualTo is exact floating
// equality with no tolerance; callers selecting a rate obtained from
// anywhere other than this catalog's own descriptors should expect
// misses and prefer range comparisons. Negotiation-time matching
// against sensor-reported rates uses CameraResolution.Matches instead.
func (c *StreamCatalog) SelectFramerate(cmp Comparator, framerate float64) *StreamCatalog {
	out := NewStreamCatalog()
	for _, d := range c.descriptors {
		fps := d.Resolution.Framerate
		var keep bool
		switch cmp {
		case GreaterThan:
			keep = fps > framerate
		case LessThan:
			keep = fps < framerate
		case EqualTo:
			keep = fps == framerate
		}
		if keep {
			out.Add(d)
		}
	}
	return out
}

// Len returns the number of descriptors in the catalog.
func (c *StreamCatalog) Len() int {
	return len(c.descriptors)
}

// Descriptors returns a copy of the catalog's descriptor set.
func (c *StreamCatalog) Descriptors() []StreamDescriptor {
	out := make([]StreamDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// First returns the first descriptor in the catalog, if any.
func (c *StreamCatalog) First() (StreamDescriptor, bool) {
	if len(c.descriptors) == 0 {
		return StreamDescriptor{}, false
	}
	return c.descriptors[0], true
}
