package runtime

import (
	"context"
	"sync"
	"time"
)

// MockDriver is a mock implementation of Driver for testing
type MockDriver struct {
	mu sync.Mutex

	NameValue      string
	KindValue      BackendKind
	BinaryValue    string
	TransportValue Transport
	HostPaths      bool
	Instances      bool

	// ProbeResults are returned by successive Probe calls; the last one
	// repeats. Empty means success.
	ProbeResults []error

	// InstanceList is returned by ListInstances
	InstanceList []Instance

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// Policy is returned by VerifyPolicy
	Policy Backoff

	Install []string

	// CallLog records all method calls for verification
	CallLog []MockCall

	probes int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockDriver creates a container-kind mock driver that is ready at once
func NewMockDriver() *MockDriver {
	return &MockDriver{
		NameValue:      "mock",
		KindValue:      KindContainer,
		BinaryValue:    "mockctl",
		TransportValue: TransportBind,
		HostPaths:      true,
		Errors:         make(map[string]error),
		Policy:         Backoff{MaxAttempts: 3, Interval: 2 * time.Second},
		CallLog:        make([]MockCall, 0),
	}
}

func (m *MockDriver) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// Calls returns how many times method was called
func (m *MockDriver) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.CallLog {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockDriver) err(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Errors[op]
}

func (m *MockDriver) Name() string { return m.NameValue }
func (m *MockDriver) Kind() BackendKind { return m.KindValue }
func (m *MockDriver) Binary() string { return m.BinaryValue }
func (m *MockDriver) Transport() Transport { return m.TransportValue }
func (m *MockDriver) ResolvesHostPaths() bool { return m.HostPaths }
func (m *MockDriver) HostPathAlias(hostPath string) string { return hostPath }
func (m *MockDriver) SupportsInstances() bool { return m.Instances }
func (m *MockDriver) VerifyPolicy() Backoff { return m.Policy }
func (m *MockDriver) InstallCommand() []string { return m.Install }

func (m *MockDriver) Probe(ctx context.Context) error {
	m.record("Probe")
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ProbeResults) == 0 {
		return nil
	}
	i := m.probes
	if i >= len(m.ProbeResults) {
		i = len(m.ProbeResults) - 1
	}
	m.probes++
	return m.ProbeResults[i]
}

func (m *MockDriver) ListInstances(ctx context.Context) ([]Instance, error) {
	m.record("ListInstances")
	if err := m.err("list"); err != nil {
		return nil, err
	}
	return m.InstanceList, nil
}

func (m *MockDriver) InitInstance(ctx context.Context) error {
	m.record("InitInstance")
	return m.err("init")
}

func (m *MockDriver) StartInstance(ctx context.Context) error {
	m.record("StartInstance")
	return m.err("start")
}

func (m *MockDriver) InitCommand() []string {
	if !m.Instances {
		return nil
	}
	return []string{m.BinaryValue, "machine", "init"}
}

func (m *MockDriver) StartCommand() []string {
	return []string{m.BinaryValue, "machine", "start"}
}

// RunCommand renders "<binary> run <command...>" so a MockExecutor can match
// on the binary name.
func (m *MockDriver) RunCommand(spec RunSpec) Invocation {
	m.record("RunCommand", spec)
	return Invocation{Name: m.BinaryValue, Args: append([]string{"run"}, spec.Command...), Dir: spec.Workdir}
}

func (m *MockDriver) BuildCommand(spec BuildSpec) (Invocation, error) {
	m.record("BuildCommand", spec)
	if err := m.err("build"); err != nil {
		return Invocation{}, err
	}
	return Invocation{Name: m.BinaryValue, Args: []string{"build", "-t", spec.Tag, spec.Context}}, nil
}
