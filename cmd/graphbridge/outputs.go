package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/graphbridge/internal/config"
	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/resolver"
	"github.com/rohankatakam/graphbridge/internal/storage"
)

// openedIndexes holds the stores opened for one command
type openedIndexes struct {
	single resolver.IndexDescriptor
	multi  []resolver.IndexDescriptor
	stores []storage.TableStore
}

// all returns the multi-index list, or the single index when none are configured
func (o *openedIndexes) all() []resolver.IndexDescriptor {
	if len(o.multi) > 0 {
		return o.multi
	}
	return []resolver.IndexDescriptor{o.single}
}

func (o *openedIndexes) Close() {
	for _, s := range o.stores {
		if err := s.Close(); err != nil {
			logger.WithError(err).Warn("failed to close store")
		}
	}
}

// openIndexes opens every named output, or the single output store when none are
// configured. The two are never both open: they may share a bolt file.
func openIndexes(c *config.Config) (*openedIndexes, error) {
	opened := &openedIndexes{}

	if len(c.Outputs) == 0 {
		store, err := openOutput(c)
		if err != nil {
			return nil, err
		}
		opened.stores = append(opened.stores, store)
		opened.single = resolver.IndexDescriptor{Name: "output", Store: store}
		return opened, nil
	}

	for _, name := range c.IndexNames() {
		s, err := storage.Open(c.Outputs[name].StorageOptions(), logger)
		if err != nil {
			opened.Close()
			return nil, fmt.Errorf("open output %q: %w", name, err)
		}
		opened.stores = append(opened.stores, s)
		opened.multi = append(opened.multi, resolver.IndexDescriptor{Name: name, Store: s})
	}
	return opened, nil
}

// openOutput opens the single output store
func openOutput(c *config.Config) (storage.TableStore, error) {
	store, err := storage.Open(c.Output.StorageOptions(), logger)
	if err != nil {
		return nil, fmt.Errorf("open output store: %w", err)
	}
	return store, nil
}

// openGraph returns a driver when the connection settings are complete; nil otherwise
func openGraph(c *config.Config) (*graph.Neo4jDriver, error) {
	info, ok := c.GraphConnection()
	if !ok {
		return nil, nil
	}
	return graph.NewNeo4jDriver(info)
}

// routingConfig builds the resolver routing for the configured indexes and query backend.
// Output is left empty in multi-index mode. The returned driver, if any, must be closed by the caller.
func routingConfig(ctx context.Context, c *config.Config, indexes *openedIndexes) (resolver.RoutingConfig, *graph.Neo4jDriver) {
	routing := resolver.RoutingConfig{
		Output:      indexes.single,
		Outputs:     indexes.multi,
		Policy:      resolver.ParsePolicy(c.GraphQueryBackend()),
		MaxParallel: c.Resolver.MaxParallel,
	}
	if routing.Policy == resolver.PolicyColumnarOnly {
		return routing, nil
	}

	driver, err := openGraph(c)
	if err != nil {
		logger.WithError(err).Warn("graph unavailable, resolving from columnar output only")
		routing.Policy = resolver.PolicyColumnarOnly
		return routing, nil
	}
	if driver == nil {
		logger.Warn("graph query backend selected but NEO4J uri, username or password is missing; using columnar output only")
		routing.Policy = resolver.PolicyColumnarOnly
		return routing, nil
	}

	routing.Graph = graph.NewReader(driver, c.Graph.Database)
	return routing, driver
}
