package inventory

import (
	"time"

	v1 "k8s.io/api/core/v1"
)

// SelectAddress returns the first address of the given type.
func SelectAddress(addresses []v1.NodeAddress, addrType v1.NodeAddressType) (string, bool) {
	for _, addr := range addresses {
		if addr.Type == addrType {
			return addr.Address, true
		}
	}
	return "", false
}

func PublicIP(node *v1.Node) string {
	ip, _ := SelectAddress(node.Status.Addresses, v1.NodeExternalIP)
	return ip
}

func PrivateIP(node *v1.Node) string {
	ip, _ := SelectAddress(node.Status.Addresses, v1.NodeInternalIP)
	return ip
}

// Identifier returns the inventory key for a node under the given policy.
func Identifier(node *v1.Node, policy Policy) string {
	var id string
	switch {
	case policy.UsePublicIP:
		id = PublicIP(node)
	case policy.UsePrivateIP:
		id = PrivateIP(node)
	default:
		return node.Name
	}
	if id == "" && policy.FallbackToName {
		return node.Name
	}
	return id
}

// Normalize extracts the host variables of a single node.
func Normalize(node *v1.Node, policy Policy) HostVars {
	vars := HostVars{
		Annotations: copyStrings(node.Annotations),
		Labels:      copyStrings(node.Labels),
		Addresses:   make([]Address, 0, len(node.Status.Addresses)),
		Allocatable: resourceStrings(node.Status.Allocatable),
		Capacity:    resourceStrings(node.Status.Capacity),
		PodCIDR:     node.Spec.PodCIDR,
		ProviderID:  node.Spec.ProviderID,
		ExternalID:  node.Spec.DoNotUseExternalID,
		PublicIP:    PublicIP(node),
		PrivateIP:   PrivateIP(node),
	}
	for _, addr := range node.Status.Addresses {
		vars.Addresses = append(vars.Addresses, Address{Type: string(addr.Type), Address: addr.Address})
	}
	for _, taint := range node.Spec.Taints {
		t := Taint{Key: taint.Key, Value: taint.Value, Effect: string(taint.Effect)}
		if taint.TimeAdded != nil {
			t.TimeAdded = taint.TimeAdded.UTC().Format(time.RFC3339)
		}
		vars.Taints = append(vars.Taints, t)
	}

	sshHost := ""
	switch {
	case policy.UsePublicIP:
		sshHost = vars.PublicIP
	case policy.UsePrivateIP:
		sshHost = vars.PrivateIP
	}
	if sshHost == "" {
		sshHost = vars.PrivateIP
	}
	vars.AnsibleSSHHost = sshHost
	vars.AnsibleHost = sshHost
	return vars
}

func copyStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func resourceStrings(in v1.ResourceList) map[string]string {
	out := make(map[string]string, len(in))
	for name, quantity := range in {
		out[string(name)] = quantity.String()
	}
	return out
}
