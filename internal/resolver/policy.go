package resolver

import "strings"

// Policy decides how entities and relationships combine columnar and graph tables
type Policy int

const (
	// PolicyColumnarOnly ignores the graph
	PolicyColumnarOnly Policy = iota
	// PolicyGraphMembership keeps columnar rows whose keys exist in the graph
	PolicyGraphMembership
	// PolicyGraphOnly serves the graph table directly, falling back to columnar
	PolicyGraphOnly
)

func (p Policy) String() string {
	switch p {
	case PolicyGraphMembership:
		return "graph-membership"
	case PolicyGraphOnly:
		return "graph-only"
	default:
		return "columnar-only"
	}
}

// ParsePolicy maps a query backend name (columnar, neo4j, neo4j-only) to a policy
func ParsePolicy(backend string) Policy {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "neo4j", "graph":
		return PolicyGraphMembership
	case "neo4j-only", "graph-only":
		return PolicyGraphOnly
	default:
		return PolicyColumnarOnly
	}
}
