package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const umlsPrefix = "UMLS:"

// RecordNode is one endpoint of a fetched edge instance.
type RecordNode struct {
	Curie       string   `json:"curie"`
	Original    string   `json:"original,omitempty"`
	QNodeID     string   `json:"qNodeID,omitempty"`
	Equivalents []string `json:"equivalentCuries,omitempty"`
	UMLS        []string `json:"UMLS,omitempty"`
}

// IDs returns the primary, original and equivalent identifiers, deduplicated.
func (n RecordNode) IDs() []string {
	seen := make(map[string]struct{}, len(n.Equivalents)+2)
	out := make([]string, 0, len(n.Equivalents)+2)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(n.Curie)
	add(n.Original)
	for _, e := range n.Equivalents {
		add(e)
	}
	return out
}

// UMLSIDs returns explicit UMLS ids, or those derived from UMLS-prefixed equivalents.
func (n RecordNode) UMLSIDs() []string {
	if len(n.UMLS) > 0 {
		return n.UMLS
	}
	var out []string
	for _, id := range n.IDs() {
		if strings.HasPrefix(id, umlsPrefix) {
			out = append(out, strings.TrimPrefix(id, umlsPrefix))
		}
	}
	return out
}

// Record is one edge instance returned by a knowledge provider.
type Record struct {
	Subject         RecordNode     `json:"subject"`
	Object          RecordNode     `json:"object"`
	Predicate       string         `json:"predicate,omitempty"`
	APIName         string         `json:"api,omitempty"`
	APIInforesCurie string         `json:"apiInforesCurie,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty"`
	Hash            string         `json:"recordHash,omitempty"`
}

// QueryDirection returns the record oriented subject -> object as the query
// edge declares it, based on the qNodeIDs the record was annotated with.
func (r Record) QueryDirection(e *QEdge) Record {
	if r.Subject.QNodeID == e.Object.ID && r.Object.QNodeID == e.Subject.ID {
		r.Subject, r.Object = r.Object, r.Subject
	}
	return r
}

// ComputeHash hashes the content that identifies an edge instance.
func (r Record) ComputeHash() string {
	attrs := []string{
		r.Subject.Curie,
		r.Predicate,
		r.Object.Curie,
		r.APIName,
		r.APIInforesCurie,
	}
	sum := sha256.Sum256([]byte(strings.Join(attrs, "|")))
	return hex.EncodeToString(sum[:16])
}

func (r *Record) EnsureHash() {
	if r.Hash == "" {
		r.Hash = r.ComputeHash()
	}
}

// SelfReferential reports whether both endpoints resolve to the same entity.
func (r Record) SelfReferential() bool {
	subject := make(map[string]struct{})
	for _, id := range r.Subject.IDs() {
		subject[id] = struct{}{}
	}
	for _, id := range r.Object.IDs() {
		if _, ok := subject[id]; ok {
			return true
		}
	}
	return false
}

// AnnotateForEdge takes records in execution direction (subject is the
// edge's input side), fills missing qNodeIDs and hashes, and returns them in
// query direction.
func AnnotateForEdge(records []Record, e *QEdge) []Record {
	in, out := e.InputNode(), e.OutputNode()
	annotated := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Subject.QNodeID == "" {
			r.Subject.QNodeID = in.ID
		}
		if r.Object.QNodeID == "" {
			r.Object.QNodeID = out.ID
		}
		r.EnsureHash()
		annotated = append(annotated, r.QueryDirection(e))
	}
	return annotated
}

// ExecutionDirection orients records so the edge's input side is the subject
// and clears the query-local qNodeIDs. It is the inverse of AnnotateForEdge.
func ExecutionDirection(records []Record, e *QEdge) []Record {
	in := e.InputNode()
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Object.QNodeID == in.ID && r.Subject.QNodeID != in.ID {
			r.Subject, r.Object = r.Object, r.Subject
		}
		r.Subject.QNodeID = ""
		r.Object.QNodeID = ""
		out = append(out, r)
	}
	return out
}
