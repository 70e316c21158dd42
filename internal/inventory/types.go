package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	// GroupAll holds every host identifier.
	GroupAll = "all"
	// GroupMeta is the reserved key carrying hostvars in the serialized inventory.
	GroupMeta = "_meta"
)

// Policy selects how a node is keyed in the inventory.
// UsePublicIP wins when both IP flags are set.
type Policy struct {
	UsePublicIP  bool
	UsePrivateIP bool
	// FallbackToName keys a node by its name when the preferred address
	// is missing. When false the identifier is left empty.
	FallbackToName bool
}

// Address is one entry of a node's address list.
type Address struct {
	Type    string `json:"type" yaml:"type"`
	Address string `json:"address" yaml:"address"`
}

// Taint mirrors a node taint.
type Taint struct {
	Key       string `json:"key" yaml:"key"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	Effect    string `json:"effect" yaml:"effect"`
	TimeAdded string `json:"timeAdded,omitempty" yaml:"timeAdded,omitempty"`
}

// HostVars is the variable bundle Ansible receives for one host.
type HostVars struct {
	Annotations    map[string]string `json:"annotations" yaml:"annotations"`
	Labels         map[string]string `json:"labels" yaml:"labels"`
	Addresses      []Address         `json:"addresses" yaml:"addresses"`
	Allocatable    map[string]string `json:"allocatable" yaml:"allocatable"`
	Capacity       map[string]string `json:"capacity" yaml:"capacity"`
	Taints         []Taint           `json:"taints,omitempty" yaml:"taints,omitempty"`
	PodCIDR        string            `json:"podCIDR,omitempty" yaml:"podCIDR,omitempty"`
	ProviderID     string            `json:"providerID,omitempty" yaml:"providerID,omitempty"`
	ExternalID     string            `json:"externalID,omitempty" yaml:"externalID,omitempty"`
	PublicIP       string            `json:"public_ip" yaml:"public_ip"`
	PrivateIP      string            `json:"private_ip" yaml:"private_ip"`
	AnsibleSSHHost string            `json:"ansible_ssh_host" yaml:"ansible_ssh_host"`
	AnsibleHost    string            `json:"ansible_host" yaml:"ansible_host"`
}

// Index maps a host identifier back to the node name.
type Index map[string]string

// Inventory is a grouped view of the cluster nodes.
type Inventory struct {
	Groups   map[string][]string
	HostVars map[string]HostVars
}

// New returns an empty inventory.
func New() Inventory {
	return Inventory{
		Groups:   map[string][]string{},
		HostVars: map[string]HostVars{},
	}
}

// GroupNames returns the group names in sorted order.
func (inv Inventory) GroupNames() []string {
	names := make([]string, 0, len(inv.Groups))
	for name := range inv.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type metaSection struct {
	HostVars map[string]HostVars `json:"hostvars"`
}

// MarshalJSON renders the Ansible dynamic inventory layout:
// groups as top-level keys next to "_meta".
func (inv Inventory) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(inv.Groups)+1)
	for name, members := range inv.Groups {
		if members == nil {
			members = []string{}
		}
		out[name] = members
	}
	hostvars := inv.HostVars
	if hostvars == nil {
		hostvars = map[string]HostVars{}
	}
	out[GroupMeta] = metaSection{HostVars: hostvars}
	return json.Marshal(out)
}

func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := New()
	for name, value := range raw {
		if name == GroupMeta {
			var meta metaSection
			if err := json.Unmarshal(value, &meta); err != nil {
				return fmt.Errorf("invalid %s section: %w", GroupMeta, err)
			}
			if meta.HostVars != nil {
				decoded.HostVars = meta.HostVars
			}
			continue
		}
		var members []string
		if err := json.Unmarshal(value, &members); err != nil {
			return fmt.Errorf("invalid group %q: %w", name, err)
		}
		decoded.Groups[name] = members
	}
	*inv = decoded
	return nil
}
