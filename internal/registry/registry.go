package registry

// AgentRegistry defines the interface for agent registry operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type AgentRegistry interface {
	UpsertAgent(a AgentRow, body string) error
	DeleteAgent(id string) error
	DeleteBySourcePath(path string) (string, error)
	GetAgent(id string) (*AgentRow, error)
	ListAgents(limit, offset int, role string) ([]AgentRow, int, error)
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	InsertRun(r RunRow) error
	ListRuns(agentID string, limit int) ([]RunRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Close() error
}

// Verify *DB satisfies AgentRegistry at compile time.
var _ AgentRegistry = (*DB)(nil)
