package output

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/goldyfruit/kube-inventory/internal/inventory"
)

type GroupSummary struct {
	Name    string   `json:"name" yaml:"name"`
	Count   int      `json:"count" yaml:"count"`
	Members []string `json:"members" yaml:"members"`
}

type HostSummary struct {
	Host        string `json:"host" yaml:"host"`
	Node        string `json:"node" yaml:"node"`
	AnsibleHost string `json:"ansible_host" yaml:"ansible_host"`
	Groups      int    `json:"groups" yaml:"groups"`
}

func SummarizeGroups(inv inventory.Inventory) []GroupSummary {
	names := inv.GroupNames()
	list := make([]GroupSummary, 0, len(names))
	for _, name := range names {
		members := inv.Groups[name]
		list = append(list, GroupSummary{Name: name, Count: len(members), Members: members})
	}
	return list
}

// SummarizeHosts lists every host with its node name and group count.
func SummarizeHosts(inv inventory.Inventory, index inventory.Index) []HostSummary {
	counts := map[string]int{}
	for name, members := range inv.Groups {
		if name == inventory.GroupAll {
			continue
		}
		for _, member := range members {
			counts[member]++
		}
	}
	list := make([]HostSummary, 0, len(inv.HostVars))
	for host, vars := range inv.HostVars {
		list = append(list, HostSummary{
			Host:        host,
			Node:        index[host],
			AnsibleHost: vars.AnsibleHost,
			Groups:      counts[host],
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Host < list[j].Host })
	return list
}

func RenderGroups(w io.Writer, inv inventory.Inventory, mode Mode) error {
	list := SummarizeGroups(inv)
	if mode != ModeTable {
		return Emit(w, list, mode)
	}
	InitStyles()
	rows := [][]string{{"Group", "Hosts", "Members"}}
	for _, group := range list {
		rows = append(rows, []string{displayName(group.Name), strconv.Itoa(group.Count), strings.Join(group.Members, ",")})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(rows).Render()
}

func RenderHosts(w io.Writer, inv inventory.Inventory, index inventory.Index, mode Mode) error {
	list := SummarizeHosts(inv, index)
	if mode != ModeTable {
		return Emit(w, list, mode)
	}
	InitStyles()
	rows := [][]string{{"Host", "Node", "Ansible Host", "Groups"}}
	for _, host := range list {
		rows = append(rows, []string{displayName(host.Host), host.Node, valueOrDash(host.AnsibleHost), strconv.Itoa(host.Groups)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(rows).Render()
}

// displayName makes empty group or host names visible in tables.
func displayName(name string) string {
	if name == "" {
		return `""`
	}
	return name
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
