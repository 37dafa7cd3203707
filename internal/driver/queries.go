package driver

// Knowledge graph layout:
//
//	(:Entity {id, name, categories, equivalent_ids, umls})
//	  -[:ASSOCIATION {predicate, api, infores, attributes}]->
//	(:Entity)
//
// Fetch queries return one row per association in execution direction:
// the input_* columns describe the side the query started from.

var IndexQueries = []string{
	"CREATE INDEX ON :Entity(id);",
	"CREATE INDEX ON :Entity;",
	"CREATE EDGE INDEX ON :ASSOCIATION(predicate);",
}

const (
	SaveEntityQuery = `
		MERGE (n:Entity {id: $id})
		SET n.name = $name,
			n.categories = $categories,
			n.equivalent_ids = $equivalent_ids,
			n.umls = $umls
		RETURN n.id AS id
	`

	SaveAssociationQuery = `
		MATCH (s:Entity {id: $subject_id})
		MATCH (o:Entity {id: $object_id})
		MERGE (s)-[r:ASSOCIATION {predicate: $predicate, infores: $infores}]->(o)
		SET r.api = $api,
			r.attributes = $attributes
		RETURN id(r) AS rid
	`

	// FetchForwardQuery follows associations subject -> object from the input ids.
	FetchForwardQuery = `
		MATCH (in:Entity)-[r:ASSOCIATION]->(out:Entity)
		WHERE (in.id IN $input_ids OR any(eq IN coalesce(in.equivalent_ids, []) WHERE eq IN $input_ids))
		  AND (size($predicates) = 0 OR r.predicate IN $predicates)
		  AND (size($output_categories) = 0 OR any(c IN coalesce(out.categories, []) WHERE c IN $output_categories))
		RETURN in.id AS input_id, in.equivalent_ids AS input_equivalents, in.umls AS input_umls,
			r.predicate AS predicate, r.api AS api, r.infores AS infores, r.attributes AS attributes,
			out.id AS output_id, out.equivalent_ids AS output_equivalents, out.umls AS output_umls
		LIMIT $limit
	`

	// FetchReverseQuery follows associations object -> subject from the input ids.
	FetchReverseQuery = `
		MATCH (out:Entity)-[r:ASSOCIATION]->(in:Entity)
		WHERE (in.id IN $input_ids OR any(eq IN coalesce(in.equivalent_ids, []) WHERE eq IN $input_ids))
		  AND (size($predicates) = 0 OR r.predicate IN $predicates)
		  AND (size($output_categories) = 0 OR any(c IN coalesce(out.categories, []) WHERE c IN $output_categories))
		RETURN in.id AS input_id, in.equivalent_ids AS input_equivalents, in.umls AS input_umls,
			r.predicate AS predicate, r.api AS api, r.infores AS infores, r.attributes AS attributes,
			out.id AS output_id, out.equivalent_ids AS output_equivalents, out.umls AS output_umls
		LIMIT $limit
	`

	// FetchByCategoryQuery starts from every entity of the input categories.
	// It serves edges whose input side has no pinned identifiers.
	FetchByCategoryQuery = `
		MATCH (in:Entity)-[r:ASSOCIATION]->(out:Entity)
		WHERE any(c IN coalesce(in.categories, []) WHERE c IN $input_categories)
		  AND (size($predicates) = 0 OR r.predicate IN $predicates)
		  AND (size($output_categories) = 0 OR any(c IN coalesce(out.categories, []) WHERE c IN $output_categories))
		RETURN in.id AS input_id, in.equivalent_ids AS input_equivalents, in.umls AS input_umls,
			r.predicate AS predicate, r.api AS api, r.infores AS infores, r.attributes AS attributes,
			out.id AS output_id, out.equivalent_ids AS output_equivalents, out.umls AS output_umls
		LIMIT $limit
	`
)
