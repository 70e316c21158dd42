package inventory

import (
	"sort"

	"github.com/go-logr/logr"
	v1 "k8s.io/api/core/v1"
)

// Build folds the node list into an inventory and an identifier index.
//
// Groups are named after label values, not keys, so two labels sharing a
// value land in the same group. When two nodes resolve to the same
// identifier the later node wins in both the index and hostvars.
func Build(log logr.Logger, nodes []v1.Node, policy Policy) (Inventory, Index) {
	inv := New()
	index := Index{}
	seen := map[string]map[string]struct{}{}
	push := func(group, id string) {
		members, ok := seen[group]
		if !ok {
			members = map[string]struct{}{}
			seen[group] = members
		}
		if _, dup := members[id]; dup {
			return
		}
		members[id] = struct{}{}
		inv.Groups[group] = append(inv.Groups[group], id)
	}
	labelKeys := collectLabelKeys(nodes)

	for i := range nodes {
		node := &nodes[i]
		id := Identifier(node, policy)
		if id == "" {
			log.V(1).Info("node has no address for the selected policy", "node", node.Name)
		}
		if previous, ok := index[id]; ok {
			log.V(1).Info("host identifier collision, later node wins", "identifier", id, "previous", previous, "node", node.Name)
		}
		index[id] = node.Name

		push(GroupAll, id)
		for _, key := range labelKeys {
			// "_meta" is reserved for hostvars.
			if value, ok := node.Labels[key]; ok && value != GroupMeta {
				push(value, id)
			}
		}
		inv.HostVars[id] = Normalize(node, policy)
	}
	return inv, index
}

func collectLabelKeys(nodes []v1.Node) []string {
	set := map[string]struct{}{}
	for _, node := range nodes {
		for key := range node.Labels {
			set[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
