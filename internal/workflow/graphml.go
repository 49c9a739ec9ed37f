package workflow

import (
	"bytes"
	"encoding/xml"
	"strconv"

	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/table"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

type graphMLDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphMLKey `xml:"key"`
	Graph   graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphMLGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphMLNode `xml:"node"`
	Edges       []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID string `xml:"id,attr"`
}

type graphMLEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphMLData `xml:"data"`
}

type graphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// BuildGraphML renders relationships as an undirected GraphML document.
// Nodes are the distinct endpoints in first-seen order; edges carry weight.
func BuildGraphML(relationships *table.Table) ([]byte, error) {
	if relationships == nil || !relationships.HasColumns(table.ColumnSource, table.ColumnTarget) {
		return nil, gberrors.SchemaError("relationships", table.ColumnSource, table.ColumnTarget)
	}

	doc := graphMLDoc{
		Xmlns: graphMLNamespace,
		Keys: []graphMLKey{
			{ID: "d0", For: "edge", AttrName: table.ColumnWeight, AttrType: "double"},
		},
		Graph: graphMLGraph{EdgeDefault: "undirected"},
	}

	seen := make(map[string]bool)
	addNode := func(id string) {
		if !seen[id] {
			seen[id] = true
			doc.Graph.Nodes = append(doc.Graph.Nodes, graphMLNode{ID: id})
		}
	}

	for _, row := range relationships.Rows {
		source, okS := row.Get(table.ColumnSource).AsString()
		target, okT := row.Get(table.ColumnTarget).AsString()
		if !okS || !okT || source == "" || target == "" {
			continue
		}
		addNode(source)
		addNode(target)

		edge := graphMLEdge{Source: source, Target: target}
		if w, ok := row.Get(table.ColumnWeight).AsFloat(); ok {
			edge.Data = append(edge.Data, graphMLData{Key: "d0", Value: strconv.FormatFloat(w, 'g', -1, 64)})
		}
		doc.Graph.Edges = append(doc.Graph.Edges, edge)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
