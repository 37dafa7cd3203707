package model

type Binding struct {
	ID string `json:"id"`
}

// Result binds every query node and edge to concrete entities and records.
type Result struct {
	NodeBindings        map[string][]Binding `json:"node_bindings"`
	EdgeBindings        map[string][]Binding `json:"edge_bindings"`
	Score               float64              `json:"score"`
	ScoredByRelatedness bool                 `json:"scored_by_relatedness"`
}

// RecordGroup is the surviving records of one query edge plus the ids of the
// query edges that share a node with it.
type RecordGroup struct {
	ConnectedTo []string `json:"connected_to"`
	Records     []Record `json:"records"`
}

type RecordsByQEdgeID map[string]RecordGroup

// ConsolidatedSolutionRecord merges every record bound to one query edge
// within a result. Identifier slices are sorted and deduplicated; TextMined
// holds one flag per distinct record hash, in first-seen order.
type ConsolidatedSolutionRecord struct {
	QEdgeID       string   `json:"qEdgeID"`
	InputQNodeID  string   `json:"inputQNodeID"`
	OutputQNodeID string   `json:"outputQNodeID"`
	InputCuries   []string `json:"inputPrimaryCuries"`
	OutputCuries  []string `json:"outputPrimaryCuries"`
	InputUMLS     []string `json:"inputUMLS,omitempty"`
	OutputUMLS    []string `json:"outputUMLS,omitempty"`
	RecordHashes  []string `json:"recordHashes"`
	TextMined     []bool   `json:"isTextMined"`
}

// TextMinedCount returns how many of the distinct records are text mined.
func (c ConsolidatedSolutionRecord) TextMinedCount() int {
	n := 0
	for _, tm := range c.TextMined {
		if tm {
			n++
		}
	}
	return n
}
