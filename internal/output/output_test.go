package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goldyfruit/kube-inventory/internal/inventory"
)

func sampleInventory() (inventory.Inventory, inventory.Index) {
	inv := inventory.New()
	inv.Groups["all"] = []string{"node-a", "node-b"}
	inv.Groups["worker"] = []string{"node-a"}
	inv.Groups["master"] = []string{"node-b"}
	inv.HostVars["node-a"] = inventory.HostVars{AnsibleHost: "10.0.0.1"}
	inv.HostVars["node-b"] = inventory.HostVars{}
	return inv, inventory.Index{"node-a": "node-a", "node-b": "node-b"}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("", ModeJSON)
	if err != nil || mode != ModeJSON {
		t.Fatalf("expected default json, got %s (%v)", mode, err)
	}
	mode, err = ParseMode("yaml", ModeJSON)
	if err != nil || mode != ModeYAML {
		t.Fatalf("expected yaml, got %s (%v)", mode, err)
	}
	if _, err := ParseMode("xml", ModeJSON); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestEmitTextPassThrough(t *testing.T) {
	var buf bytes.Buffer
	data := []byte(`{"_meta": {"hostvars": {}}, "all": ["node-a"]}`)
	if err := EmitText(&buf, data, ModeJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != string(data)+"\n" {
		t.Fatalf("expected pass-through, got %q", buf.String())
	}
}

func TestEmitTextYAML(t *testing.T) {
	var buf bytes.Buffer
	data := []byte(`{"_meta": {"hostvars": {}}, "all": ["node-a"]}`)
	if err := EmitText(&buf, data, ModeYAML); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "_meta:\n  hostvars: {}\nall:\n- node-a\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("yaml mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitEmptyHost(t *testing.T) {
	var buf bytes.Buffer
	if err := Emit(&buf, map[string]any{}, ModeJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "{}" {
		t.Fatalf("expected empty object, got %q", buf.String())
	}
}

func TestEmitHostVarsYAML(t *testing.T) {
	var buf bytes.Buffer
	vars := inventory.HostVars{PrivateIP: "10.0.0.1", AnsibleHost: "10.0.0.1"}
	if err := Emit(&buf, vars, ModeYAML); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ansible_host: 10.0.0.1") {
		t.Fatalf("expected ansible_host in yaml, got %s", out)
	}
	if strings.Contains(out, "podCIDR") {
		t.Fatalf("expected podCIDR to be omitted, got %s", out)
	}
}

func TestSummarizeGroups(t *testing.T) {
	inv, _ := sampleInventory()
	got := SummarizeGroups(inv)
	want := []GroupSummary{
		{Name: "all", Count: 2, Members: []string{"node-a", "node-b"}},
		{Name: "master", Count: 1, Members: []string{"node-b"}},
		{Name: "worker", Count: 1, Members: []string{"node-a"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeHosts(t *testing.T) {
	inv, index := sampleInventory()
	got := SummarizeHosts(inv, index)
	want := []HostSummary{
		{Host: "node-a", Node: "node-a", AnsibleHost: "10.0.0.1", Groups: 1},
		{Host: "node-b", Node: "node-b", Groups: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hosts mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderGroupsTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	inv, _ := sampleInventory()
	var buf bytes.Buffer
	if err := RenderGroups(&buf, inv, ModeTable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Group", "worker", "node-a,node-b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}
