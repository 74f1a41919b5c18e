package sim

// A Validatable component can check its own configuration before a run
// starts. Fatal configuration problems (e.g., a missing arbitration policy or
// an unroutable destination) are reported here rather than wasting simulated
// time on a run that cannot complete.
type Validatable interface {
	Validate() error
}

// A Simulation provides the services required to define a simulation run.
type Simulation struct {
	engine Engine

	components    []Component
	compNameIndex map[string]int
	ports         []Port
	portNameIndex map[string]int
}

// NewSimulation creates a new simulation backed by the given engine.
func NewSimulation(engine Engine) *Simulation {
	return &Simulation{
		engine:        engine,
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}
}

// Engine returns the event engine that drives the simulation.
func (s *Simulation) Engine() Engine {
	return s.engine
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}
}

func (s *Simulation) registerPort(p Port) {
	portName := p.Name()
	if _, found := s.portNameIndex[portName]; found {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []Component {
	return s.components
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) Component {
	idx, found := s.compNameIndex[name]
	if !found {
		panic("component " + name + " not registered")
	}

	return s.components[idx]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) Port {
	idx, found := s.portNameIndex[name]
	if !found {
		panic("port " + name + " not registered")
	}

	return s.ports[idx]
}

// Validate checks the configuration of all registered components. It must be
// called before the first event is processed; a non-nil error means the run
// must not start.
func (s *Simulation) Validate() error {
	for _, c := range s.components {
		v, ok := c.(Validatable)
		if !ok {
			continue
		}

		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}
