package tracer

// RawSpan is the in-memory span record before timestamp resolution. End
// stays the zero Instant while the span is open; IsEvent implies
// Begin == End at the point of emission.
type RawSpan struct {
	ID         SpanID
	ParentID   SpanID
	Begin      Instant
	End        Instant
	Name       string
	Properties []Property
	IsEvent    bool
}

func newRawSpan(id, parentID SpanID, name string, begin Instant, isEvent bool) RawSpan {
	return RawSpan{
		ID:       id,
		ParentID: parentID,
		Begin:    begin,
		Name:     name,
		IsEvent:  isEvent,
	}
}

func (s *RawSpan) close(end Instant) {
	s.End = end
}

func (s *RawSpan) addProperty(p Property) {
	s.Properties = append(s.Properties, p)
}

// reset clears a RawSpan for pool reuse without retaining references into
// prior contents.
func (s *RawSpan) reset() {
	*s = RawSpan{}
}
