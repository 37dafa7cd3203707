package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// QEdge is a query graph edge with its execution state. The scheduler is the
// only writer of Reverse, Executed and Records.
type QEdge struct {
	ID          string
	Subject     *QNode
	Object      *QNode
	Predicates  []string
	Constraints []AttributeConstraint

	// Reverse is true when entities flow object -> subject for execution.
	Reverse  bool
	Executed bool
	Records  []Record
}

func (e *QEdge) InputNode() *QNode {
	if e.Reverse {
		return e.Object
	}
	return e.Subject
}

func (e *QEdge) OutputNode() *QNode {
	if e.Reverse {
		return e.Subject
	}
	return e.Object
}

// InputCuries returns the sorted identifiers the next remote query starts from.
func (e *QEdge) InputCuries() []string {
	return e.InputNode().CurieList()
}

// ChooseLowerEntityValue makes the side with fewer candidates the input and
// withholds the other side's candidates for the duration of the call.
func (e *QEdge) ChooseLowerEntityValue() {
	sub, obj := e.Subject.EntityCount, e.Object.EntityCount
	if sub == 0 || obj == 0 {
		return
	}
	if obj >= sub {
		e.Reverse = false
		e.Object.HoldCurie()
		return
	}
	e.Reverse = true
	e.Subject.HoldCurie()
}

// StoreRecords replaces the edge's records and recomputes candidate
// identifiers on both nodes from the records that remain.
func (e *QEdge) StoreRecords(records []Record) {
	e.Records = records

	subjectCuries := make(map[string][]string)
	objectCuries := make(map[string][]string)
	for _, r := range records {
		r = r.QueryDirection(e)
		subjectCuries[r.Subject.Curie] = r.Subject.IDs()
		objectCuries[r.Object.Curie] = r.Object.IDs()
	}
	e.Subject.UpdateCuries(subjectCuries)
	e.Object.UpdateCuries(objectCuries)
}

// HashKey identifies an execution of this edge for caching: categories,
// predicates, input identifiers and direction. Query-local ids are excluded
// so that equivalent edges in different queries share cached records.
func (e *QEdge) HashKey() string {
	in, out := e.InputNode(), e.OutputNode()
	parts := []string{
		strings.Join(sorted(in.Categories), ","),
		strings.Join(sorted(e.Predicates), ","),
		strings.Join(sorted(out.Categories), ","),
		strings.Join(e.InputCuries(), ","),
	}
	if e.Reverse {
		parts = append(parts, "reverse")
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
