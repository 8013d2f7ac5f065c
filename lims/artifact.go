package lims

// Sample is the submitted sample an artifact descends from. UDF changes on the
// sample accumulate in memory until the owning step is committed.
type Sample struct {
	ID   string
	Name string
	URI  string

	udfs    map[string]string
	pending map[string]string
}

func NewSample(id, name string) *Sample {
	return &Sample{
		ID:      id,
		Name:    name,
		udfs:    map[string]string{},
		pending: map[string]string{},
	}
}

func (s *Sample) UDF(name string) string {
	if value, ok := s.pending[name]; ok {
		return value
	}
	return s.udfs[name]
}

func (s *Sample) SetUDF(name, value string) {
	if s.pending == nil {
		s.pending = map[string]string{}
	}
	s.pending[name] = value
}

func (s *Sample) Dirty() bool { return len(s.pending) > 0 }

// Flush moves pending changes into the committed view. Called by the client
// after a successful remote commit, never by the services.
func (s *Sample) Flush() {
	if s.udfs == nil {
		s.udfs = map[string]string{}
	}
	for name, value := range s.pending {
		s.udfs[name] = value
	}
	s.pending = map[string]string{}
}

// Artifact is one analyte on a plate: a well position, a name, UDFs and
// identity. Writes accumulate until the step commit flushes them, so a failed
// commit leaves the remote state unchanged.
type Artifact struct {
	ID            string
	URI           string
	Name          string
	Well          WellPosition
	ContainerName string
	IsControl     bool
	ControlType   string
	Sample        *Sample

	udfs    map[string]string
	pending map[string]string
}

func NewArtifact(id, name string, well WellPosition) *Artifact {
	return &Artifact{
		ID:      id,
		Name:    name,
		Well:    well,
		udfs:    map[string]string{},
		pending: map[string]string{},
	}
}

func (a *Artifact) UDF(name string) string {
	if value, ok := a.pending[name]; ok {
		return value
	}
	return a.udfs[name]
}

func (a *Artifact) SetUDF(name, value string) {
	if a.pending == nil {
		a.pending = map[string]string{}
	}
	a.pending[name] = value
}

func (a *Artifact) Dirty() bool {
	if len(a.pending) > 0 {
		return true
	}
	return a.Sample != nil && a.Sample.Dirty()
}

func (a *Artifact) Flush() {
	if a.udfs == nil {
		a.udfs = map[string]string{}
	}
	for name, value := range a.pending {
		a.udfs[name] = value
	}
	a.pending = map[string]string{}
	if a.Sample != nil {
		a.Sample.Flush()
	}
}
