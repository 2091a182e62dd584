// Package graphvana provides the main API for embedded Graphvana usage.
//
// A DB holds the current graph snapshot and executes queries against it
// end to end: parse, plan, execute, then atomically swap in the resulting
// graph. Because graphs are immutable values with structural sharing, a
// failed query never leaves the database in a partially updated state, and
// callers can hold onto old snapshots for as long as they like.
//
// Example Usage:
//
//	db := graphvana.New(config.LoadDefaults())
//	res, err := db.Execute(`CREATE (:Person{name: "ada"})`)
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err = db.Execute(`MATCH (p:Person) RETURN p`)
package graphvana

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/graphvana/graphvana/pkg/config"
	"github.com/graphvana/graphvana/pkg/document"
	"github.com/graphvana/graphvana/pkg/gql/parser"
	"github.com/graphvana/graphvana/pkg/gql/planner"
	"github.com/graphvana/graphvana/pkg/graph"
)

// DB wraps a current graph snapshot and a configuration.
type DB struct {
	mu     sync.RWMutex
	graph  *graph.Graph
	config *config.Config
	log    *logrus.Logger
}

// ExecuteResult is the outcome of one query execution.
type ExecuteResult struct {
	// Result is the RETURN table, nil for queries without RETURN.
	Result *planner.Result
	// Diff describes what changed between the previous and new snapshot.
	Diff *Diff
}

// New creates a DB over an empty graph.
func New(cfg *config.Config) *DB {
	if cfg == nil {
		cfg = config.LoadDefaults()
	}
	return &DB{
		graph:  graph.New(),
		config: cfg,
		log:    newLogger(cfg.Logging),
	}
}

// Open creates a DB from a document file.
func Open(path string, cfg *config.Config) (*DB, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	db := New(cfg)
	g, err := doc.BuildGraph()
	if err != nil {
		return nil, err
	}
	db.graph = g
	return db, nil
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// Graph returns the current graph snapshot.
func (db *DB) Graph() *graph.Graph {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.graph
}

// SetGraph replaces the current graph snapshot.
func (db *DB) SetGraph(g *graph.Graph) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.graph = g
}

// Execute parses, plans, and runs a query against the current snapshot,
// swapping in the new graph on success. On error the snapshot is unchanged.
func (db *DB) Execute(query string) (*ExecuteResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	log := db.log.WithField("query", query)
	log.Debug("executing query")

	q, err := parser.ParseQuery(query)
	if err != nil {
		log.WithError(err).Debug("parse failed")
		return nil, err
	}
	plan, err := planner.PlanQuery(q)
	if err != nil {
		log.WithError(err).Debug("planning failed")
		return nil, err
	}
	newGraph, result, err := plan.Execute(db.graph, planner.WithLimits(db.limits()))
	if err != nil {
		log.WithError(err).Debug("execution failed")
		return nil, err
	}

	diff := ComputeDiff(db.graph, newGraph)
	db.graph = newGraph

	log.WithFields(logrus.Fields{
		"nodes_added":   len(diff.AddedNodes),
		"nodes_removed": len(diff.RemovedNodes),
		"edges_added":   len(diff.AddedEdges),
		"edges_removed": len(diff.RemovedEdges),
	}).Debug("query complete")

	return &ExecuteResult{Result: result, Diff: diff}, nil
}

// ApplyTransformation runs a named stored query from a document.
func (db *DB) ApplyTransformation(doc *document.Document, name string) (*ExecuteResult, error) {
	t, ok := doc.Transformation(name)
	if !ok {
		return nil, fmt.Errorf("graphvana: unknown transformation %q", name)
	}
	return db.Execute(t.Query)
}

// Explain returns the query's plan description without executing it.
func (db *DB) Explain(query string) (string, error) {
	return planner.DescribeQuery(query)
}

// Snapshot wraps the current graph in a document.
func (db *DB) Snapshot() (*document.Document, error) {
	return document.New(db.Graph())
}

func (db *DB) limits() planner.Limits {
	return planner.Limits{
		MaxRows:           db.config.Engine.MaxRows,
		MaxTraversalSteps: db.config.Engine.MaxTraversalSteps,
	}
}
