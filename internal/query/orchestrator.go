package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/goldyfruit/kube-inventory/internal/cache"
	"github.com/goldyfruit/kube-inventory/internal/inventory"
)

// NodeSource fetches node records from the control plane.
type NodeSource interface {
	ListNodes(ctx context.Context, selector labels.Selector) ([]v1.Node, error)
	GetNode(ctx context.Context, name string) (*v1.Node, error)
}

type Options struct {
	Source   NodeSource
	Store    *cache.Store
	Policy   inventory.Policy
	MaxAge   time.Duration
	Selector labels.Selector
	Log      logr.Logger
}

// Orchestrator answers list and host queries, rebuilding the cache
// when it is stale or a refresh is forced.
type Orchestrator struct {
	source   NodeSource
	store    *cache.Store
	policy   inventory.Policy
	maxAge   time.Duration
	selector labels.Selector
	log      logr.Logger
}

// HostResult is the outcome of a host lookup. Found is false when the
// host is not in the inventory even after a rebuild.
type HostResult struct {
	Identifier string
	NodeName   string
	Vars       inventory.HostVars
	Found      bool
}

// snapshot is the inventory built during the current operation.
type snapshot struct {
	inventory inventory.Inventory
	index     inventory.Index
}

func New(opts Options) *Orchestrator {
	selector := opts.Selector
	if selector == nil {
		selector = labels.Everything()
	}
	return &Orchestrator{
		source:   opts.Source,
		store:    opts.Store,
		policy:   opts.Policy,
		maxAge:   opts.MaxAge,
		selector: selector,
		log:      opts.Log,
	}
}

// List returns the serialized inventory. A fresh cache is served as stored.
func (o *Orchestrator) List(ctx context.Context, refresh bool) ([]byte, error) {
	snap, err := o.prepare(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		data, err := cache.Encode(snap.inventory)
		if err != nil {
			return nil, fmt.Errorf("failed to encode inventory: %w", err)
		}
		return data, nil
	}
	o.log.V(1).Info("serving inventory from cache", "path", o.store.InventoryPath)
	return o.store.LoadInventoryText()
}

// Inventory returns the decoded inventory and index under the same cache
// policy as List.
func (o *Orchestrator) Inventory(ctx context.Context, refresh bool) (inventory.Inventory, inventory.Index, error) {
	snap, err := o.prepare(ctx, refresh)
	if err != nil {
		return inventory.Inventory{}, nil, err
	}
	if snap != nil {
		return snap.inventory, snap.index, nil
	}
	text, err := o.store.LoadInventoryText()
	if err != nil {
		return inventory.Inventory{}, nil, err
	}
	var inv inventory.Inventory
	if err := json.Unmarshal(text, &inv); err != nil {
		return inventory.Inventory{}, nil, &cache.IOError{Op: "decode", Path: o.store.InventoryPath, Err: err}
	}
	index, err := o.store.LoadIndex()
	if err != nil {
		return inventory.Inventory{}, nil, err
	}
	return inv, index, nil
}

// Host resolves id through the index and returns freshly fetched
// variables for the underlying node. A missing id forces one more
// rebuild, even when the cache was just rebuilt, and is looked up again.
func (o *Orchestrator) Host(ctx context.Context, id string, refresh bool) (HostResult, error) {
	snap, err := o.prepare(ctx, refresh)
	if err != nil {
		return HostResult{}, err
	}

	var index inventory.Index
	if snap != nil {
		index = snap.index
	} else {
		index, err = o.store.LoadIndex()
		if err != nil {
			return HostResult{}, err
		}
	}

	name, ok := index[id]
	if !ok {
		o.log.V(1).Info("host not in index, rebuilding", "host", id)
		snap, err = o.rebuild(ctx)
		if err != nil {
			return HostResult{}, err
		}
		name, ok = snap.index[id]
	}
	if !ok {
		o.log.V(1).Info("host not found", "host", id)
		return HostResult{Identifier: id}, nil
	}

	node, err := o.source.GetNode(ctx, name)
	if err != nil {
		return HostResult{}, err
	}
	return HostResult{
		Identifier: id,
		NodeName:   name,
		Vars:       inventory.Normalize(node, o.policy),
		Found:      true,
	}, nil
}

// prepare rebuilds when forced or stale and returns the new snapshot, or
// nil when the cache can be used as is.
func (o *Orchestrator) prepare(ctx context.Context, refresh bool) (*snapshot, error) {
	if refresh {
		o.log.V(1).Info("cache refresh forced")
		return o.rebuild(ctx)
	}
	fresh, err := o.store.IsFresh(o.maxAge)
	if err != nil {
		return nil, err
	}
	if !fresh {
		o.log.V(1).Info("cache stale or missing", "path", o.store.InventoryPath, "maxAge", o.maxAge.String())
		return o.rebuild(ctx)
	}
	return nil, nil
}

func (o *Orchestrator) rebuild(ctx context.Context) (*snapshot, error) {
	start := time.Now()
	nodes, err := o.source.ListNodes(ctx, o.selector)
	if err != nil {
		return nil, err
	}
	inv, index := inventory.Build(o.log, nodes, o.policy)
	if err := o.store.Save(inv, index); err != nil {
		return nil, err
	}
	o.log.V(1).Info("inventory rebuilt", "nodes", len(nodes), "groups", len(inv.Groups), "duration", time.Since(start).String())
	return &snapshot{inventory: inv, index: index}, nil
}
