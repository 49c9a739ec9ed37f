package graph

import (
	"fmt"
	"regexp"
	"strings"
)

// Graph shape written by the materializer
const (
	EntityLabel      = "__Entity__"
	RelationshipType = "RELATED"

	// rowsParam is the UNWIND parameter carrying one batch
	rowsParam = "rows"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier validates that a string can be used unquoted as a Cypher label or type.
// Only alphanumeric characters and underscores are allowed.
func isValidIdentifier(s string) bool {
	return s != "" && identifierPattern.MatchString(s)
}

// quoteIdentifier backtick-quotes a property name; embedded backticks are doubled
func quoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// CypherBuilder builds parameterized UNWIND templates for batch writes.
// Values only travel as parameters; property names are quoted, labels are validated.
type CypherBuilder struct {
	label   string
	relType string
}

// NewCypherBuilder creates a builder for the given node label and relationship type
func NewCypherBuilder(label, relType string) (*CypherBuilder, error) {
	if !isValidIdentifier(label) {
		return nil, fmt.Errorf("invalid node label: %q (must be alphanumeric + underscore)", label)
	}
	if !isValidIdentifier(relType) {
		return nil, fmt.Errorf("invalid relationship type: %q (must be alphanumeric + underscore)", relType)
	}
	return &CypherBuilder{label: label, relType: relType}, nil
}

// defaultBuilder renders queries for the fixed entity label and relationship type
var defaultBuilder = mustCypherBuilder(EntityLabel, RelationshipType)

func mustCypherBuilder(label, relType string) *CypherBuilder {
	b, err := NewCypherBuilder(label, relType)
	if err != nil {
		panic(err)
	}
	return b
}

// setClause renders SET v.`c` = coalesce(row.`c`, v.`c`) for each property.
// A null in the row keeps the stored value.
func setClause(variable string, properties []string) string {
	if len(properties) == 0 {
		return ""
	}
	parts := make([]string, len(properties))
	for i, p := range properties {
		q := quoteIdentifier(p)
		parts[i] = fmt.Sprintf("%s.%s = coalesce(row.%s, %s.%s)", variable, q, q, variable, q)
	}
	return "\nSET " + strings.Join(parts, ",\n    ")
}

// EntityMerge returns the batch template merging nodes by title
func (b *CypherBuilder) EntityMerge(properties []string) string {
	return fmt.Sprintf(
		"UNWIND $%s AS row\nMERGE (n:%s {title: row.title})%s",
		rowsParam, b.label, setClause("n", properties),
	)
}

// RelationshipMerge returns the batch template merging endpoints and one edge per (source, target)
func (b *CypherBuilder) RelationshipMerge(properties []string) string {
	return fmt.Sprintf(
		"UNWIND $%s AS row\nMERGE (s:%s {title: row.source})\nMERGE (t:%s {title: row.target})\nMERGE (s)-[r:%s]->(t)%s",
		rowsParam, b.label, b.label, b.relType, setClause("r", properties),
	)
}

// TitleConstraint returns the uniqueness constraint on the merge key
func (b *CypherBuilder) TitleConstraint() string {
	name := strings.ToLower(strings.Trim(b.label, "_")) + "_title_unique"
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.title IS UNIQUE",
		name, b.label,
	)
}

// EntitiesQuery reads every node property map
func (b *CypherBuilder) EntitiesQuery() string {
	return fmt.Sprintf("MATCH (n:%s) RETURN properties(n) AS props", b.label)
}

// RelationshipsQuery reads every edge with its endpoint titles
func (b *CypherBuilder) RelationshipsQuery() string {
	return fmt.Sprintf(
		"MATCH (s:%s)-[r:%s]->(t:%s) RETURN s.title AS source, t.title AS target, type(r) AS type, properties(r) AS props",
		b.label, b.relType, b.label,
	)
}

// CountQuery counts nodes and edges
func (b *CypherBuilder) CountQuery() string {
	return fmt.Sprintf(
		"MATCH (n:%s) WITH count(n) AS nodes OPTIONAL MATCH (:%s)-[r:%s]->(:%s) RETURN nodes, count(r) AS edges",
		b.label, b.label, b.relType, b.label,
	)
}
