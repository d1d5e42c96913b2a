package errors

// ParseError indicates a source file could not be statically parsed. The
// caller is free to skip the file and continue; it is reported as a
// session-level warning rather than failing any test.
type ParseError struct {
	*E
	Path   string
	Offset int
	Reason string
}

// NewParseError builds a ParseError for path at the given byte offset.
func NewParseError(path string, offset int, reason string) *ParseError {
	return &ParseError{
		E:      Errorf("%s:%d: %s", path, offset, reason),
		Path:   path,
		Offset: offset,
		Reason: reason,
	}
}

// UnknownFixture indicates a test or fixture requested a fixture name that
// does not resolve to any visible FixtureDefinition.
type UnknownFixture struct {
	*E
	Name string
}

// NewUnknownFixture builds an UnknownFixture error for the given name.
func NewUnknownFixture(name string) *UnknownFixture {
	return &UnknownFixture{E: Errorf("unknown fixture: %s", name), Name: name}
}

// CycleInFixtureGraph indicates the fixture dependency graph could not be
// topologically sorted.
type CycleInFixtureGraph struct {
	*E
	Cycle []string
}

// NewCycleInFixtureGraph builds a CycleInFixtureGraph error for the given
// cycle, listed in traversal order.
func NewCycleInFixtureGraph(cycle []string) *CycleInFixtureGraph {
	return &CycleInFixtureGraph{E: Errorf("cycle in fixture graph: %v", cycle), Cycle: cycle}
}

// DuplicateFixture indicates two fixtures with the same name were declared
// directly in the same module. Unlike conftest shadowing across
// directories (resolved by proximity, spec.md §4.C), a collision within one
// module is a parse-time error (spec.md §4.C: "a collision within the same
// module is an error").
type DuplicateFixture struct {
	*E
	Name   string
	Module string
}

// NewDuplicateFixture builds a DuplicateFixture error for name, redeclared
// in module.
func NewDuplicateFixture(module, name string) *DuplicateFixture {
	return &DuplicateFixture{E: Errorf("%s: duplicate fixture %q", module, name), Name: name, Module: module}
}

// FixtureSetupFailure indicates a fixture's SetUp raised; every dependent
// test becomes Error with this attached.
type FixtureSetupFailure struct {
	*E
	Fixture string
}

// NewFixtureSetupFailure wraps the cause raised by a fixture's setup.
func NewFixtureSetupFailure(fixture string, cause error) *FixtureSetupFailure {
	return &FixtureSetupFailure{E: Wrapf(cause, "fixture %s setup failed", fixture), Fixture: fixture}
}

// TestFailure indicates an assertion failed or the test body raised.
type TestFailure struct {
	*E
}

// NewTestFailure wraps the cause of a test body failure.
func NewTestFailure(cause error) *TestFailure {
	return &TestFailure{E: Wrap(cause, "test failed")}
}

// Timeout indicates a test or fixture stage exceeded its deadline.
type Timeout struct {
	*E
	Stage string
}

// NewTimeout builds a Timeout error for the named stage ("setup", "test",
// "teardown", ...).
func NewTimeout(stage string) *Timeout {
	return &Timeout{E: Errorf("%s timed out", stage), Stage: stage}
}

// WorkerCrash indicates a subprocess-tier worker terminated abnormally.
type WorkerCrash struct {
	*E
	WorkerID string
}

// NewWorkerCrash wraps the cause of a worker subprocess dying.
func NewWorkerCrash(workerID string, cause error) *WorkerCrash {
	return &WorkerCrash{E: Wrapf(cause, "worker %s crashed", workerID), WorkerID: workerID}
}

// TeardownError indicates a fixture's TearDown raised.
type TeardownError struct {
	*E
	Fixture string
}

// NewTeardownError wraps the cause of a fixture teardown failure.
func NewTeardownError(fixture string, cause error) *TeardownError {
	return &TeardownError{E: Wrapf(cause, "fixture %s teardown failed", fixture), Fixture: fixture}
}

// InternalError indicates a bug in the scheduler itself. It is always
// tagged with a stable short code so it can be grepped for across runs.
type InternalError struct {
	*E
	Tag string
}

// NewInternalError builds an InternalError tagged with a stable code.
func NewInternalError(tag string, cause error) *InternalError {
	return &InternalError{E: Wrapf(cause, "internal error [%s]", tag), Tag: tag}
}
