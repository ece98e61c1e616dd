// Package repositories maps parsed patent documents onto a Neo4j graph of
// patents, claims, citations and classifications.
package repositories

import (
	"context"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	driver "github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Constraints keep node keys unique; they are created by EnsureSchema.
var Constraints = []string{
	"CREATE CONSTRAINT patent_id IF NOT EXISTS FOR (p:Patent) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT claim_key IF NOT EXISTS FOR (c:Claim) REQUIRE c.key IS UNIQUE",
	"CREATE CONSTRAINT classification_key IF NOT EXISTS FOR (k:Classification) REQUIRE k.key IS UNIQUE",
}

const mergePatentQuery = `
MERGE (p:Patent {id: $id})
SET p.title = $title, p.lifecycle = $lifecycle, p.format = $format, p.published = $published, p.parsed = true
WITH p
OPTIONAL MATCH (p)-[:HAS_CLAIM]->(old:Claim)
DETACH DELETE old
`

const mergeClaimsQuery = `
MATCH (p:Patent {id: $id})
UNWIND $claims AS row
MERGE (c:Claim {key: row.key})
SET c.number = row.number, c.independent = row.independent, c.text = row.text
MERGE (p)-[:HAS_CLAIM]->(c)
`

const mergeDependsQuery = `
UNWIND $links AS row
MATCH (child:Claim {key: row.child}), (parent:Claim {key: row.parent})
MERGE (child)-[:DEPENDS_ON]->(parent)
`

const mergeCitationsQuery = `
MATCH (p:Patent {id: $id})
UNWIND $citations AS row
MERGE (cited:Patent {id: row.cited})
MERGE (p)-[r:CITES]->(cited)
SET r.sequence = row.sequence, r.cited_by = row.cited_by
`

const mergeClassificationsQuery = `
MATCH (p:Patent {id: $id})
UNWIND $classifications AS row
MERGE (k:Classification {key: row.key})
SET k.scheme = row.scheme, k.code = row.code
MERGE (p)-[:CLASSIFIED_AS]->(k)
`

// maxClaimText bounds the claim text stored on a Claim node.
const maxClaimText = 512

// GraphRepository writes matched documents to Neo4j and answers the graph
// queries the API exposes.  It is a corpus.Sink named "neo4j".
type GraphRepository struct {
	driver driver.DriverInterface
	log    logging.Logger
}

func NewGraphRepository(d driver.DriverInterface, log logging.Logger) *GraphRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &GraphRepository{driver: d, log: log}
}

func (r *GraphRepository) Name() string { return "neo4j" }

// EnsureSchema creates the uniqueness constraints.
func (r *GraphRepository) EnsureSchema(ctx context.Context) error {
	for _, c := range Constraints {
		stmt := c
		if _, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *GraphRepository) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	return r.SaveDocument(ctx, doc.Patent, doc.Format.String())
}

// ClaimKey identifies claim n of the document id across the graph.
func ClaimKey(id string, n int) string {
	return id + "#" + strconv.Itoa(n)
}

// SaveDocument replaces the claims of p and merges its citations and
// classifications, all in one transaction.
func (r *GraphRepository) SaveDocument(ctx context.Context, p patent.Patent, format string) error {
	if p == nil {
		return errors.New(errors.ErrCodeValidation, "document is nil")
	}
	base := p.Base()
	id := base.ID.String()
	params := documentParams(p, format)

	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		steps := []struct {
			query string
			skip  bool
		}{
			{mergePatentQuery, false},
			{mergeClaimsQuery, len(base.Claims) == 0},
			{mergeDependsQuery, len(params["links"].([]any)) == 0},
			{mergeCitationsQuery, len(params["citations"].([]any)) == 0},
			{mergeClassificationsQuery, base.Classifications.Len() == 0},
		}
		for _, s := range steps {
			if s.skip {
				continue
			}
			res, err := tx.Run(ctx, s.query, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		r.log.Error("Failed to write document graph", logging.DocID(id), logging.Err(err))
		return err
	}
	return nil
}

func documentParams(p patent.Patent, format string) map[string]any {
	base := p.Base()
	id := base.ID.String()

	claims := make([]any, 0, len(base.Claims))
	links := make([]any, 0)
	for _, c := range base.Claims {
		text := c.Text
		if len(text) > maxClaimText {
			text = text[:maxClaimText]
		}
		claims = append(claims, map[string]any{
			"key":         ClaimKey(id, c.Number),
			"number":      int64(c.Number),
			"independent": c.IsIndependent(),
			"text":        text,
		})
		if !c.IsIndependent() {
			links = append(links, map[string]any{
				"child":  ClaimKey(id, c.Number),
				"parent": ClaimKey(id, c.Parent),
			})
		}
	}

	citations := make([]any, 0)
	for _, c := range base.Citations {
		if c.Kind != patent.CitationPatent || c.DocumentID == nil || c.DocumentID.IsZero() {
			continue
		}
		citations = append(citations, map[string]any{
			"cited":    c.DocumentID.String(),
			"sequence": int64(c.Sequence),
			"cited_by": string(c.CitedBy),
		})
	}

	classifications := make([]any, 0, base.Classifications.Len())
	for _, c := range base.Classifications.All() {
		classifications = append(classifications, map[string]any{
			"key":    classification.Key(c),
			"scheme": string(c.Scheme()),
			"code":   c.String(),
		})
	}

	var published any
	if base.DatePublished != nil {
		published = neo4j.DateOf(base.DatePublished.Time())
	}

	return map[string]any{
		"id":              id,
		"title":           base.Title,
		"lifecycle":       p.Lifecycle().String(),
		"format":          format,
		"published":       published,
		"claims":          claims,
		"links":           links,
		"citations":       citations,
		"classifications": classifications,
	}
}

// CitedBy returns the ids of documents that cite id.
func (r *GraphRepository) CitedBy(ctx context.Context, id string) ([]string, error) {
	const q = `MATCH (src:Patent)-[:CITES]->(:Patent {id: $id}) RETURN src.id AS id ORDER BY id`
	return r.readStrings(ctx, q, map[string]any{"id": id})
}

// Cites returns the ids of documents cited by id, in citation order.
func (r *GraphRepository) Cites(ctx context.Context, id string) ([]string, error) {
	const q = `MATCH (:Patent {id: $id})-[r:CITES]->(dst:Patent) RETURN dst.id AS id ORDER BY r.sequence`
	return r.readStrings(ctx, q, map[string]any{"id": id})
}

// ClaimChain returns the claim numbers from claim n of id up to its
// independent root, n first.
func (r *GraphRepository) ClaimChain(ctx context.Context, id string, n int) ([]int, error) {
	const q = `
MATCH path = (c:Claim {key: $key})-[:DEPENDS_ON*0..]->(root:Claim {independent: true})
RETURN [x IN nodes(path) | x.number] AS chain
ORDER BY length(path) DESC LIMIT 1`
	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, q, map[string]any{"key": ClaimKey(id, n)})
		if err != nil {
			return nil, err
		}
		chains, err := driver.CollectRecords(ctx, result, func(rec *neo4j.Record) ([]int, error) {
			raw, _, err := neo4j.GetRecordValue[[]any](rec, "chain")
			if err != nil {
				return nil, err
			}
			out := make([]int, 0, len(raw))
			for _, v := range raw {
				if n, ok := v.(int64); ok {
					out = append(out, int(n))
				}
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		if len(chains) == 0 {
			return nil, nil
		}
		return chains[0], nil
	})
	if err != nil {
		return nil, err
	}
	chain, _ := res.([]int)
	if len(chain) == 0 {
		return nil, errors.NotFound("claim not found").WithDetailf("key=%s", ClaimKey(id, n))
	}
	return chain, nil
}

func (r *GraphRepository) readStrings(ctx context.Context, q string, params map[string]any) ([]string, error) {
	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, q, params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (string, error) {
			v, _, err := neo4j.GetRecordValue[string](rec, "id")
			return v, err
		})
	})
	if err != nil {
		return nil, err
	}
	ids, _ := res.([]string)
	return ids, nil
}

//Personal.AI order the ending
