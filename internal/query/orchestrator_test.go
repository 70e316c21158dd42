package query

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/goldyfruit/kube-inventory/internal/cache"
	"github.com/goldyfruit/kube-inventory/internal/inventory"
)

type fakeSource struct {
	nodes     []v1.Node
	listErr   error
	getErr    error
	listCalls int
	getCalls  []string
	selectors []string
	// afterList runs after each listing with the call number.
	afterList func(call int)
}

func (f *fakeSource) ListNodes(_ context.Context, selector labels.Selector) ([]v1.Node, error) {
	f.listCalls++
	f.selectors = append(f.selectors, selector.String())
	if f.listErr != nil {
		return nil, f.listErr
	}
	nodes := f.nodes
	if f.afterList != nil {
		f.afterList(f.listCalls)
	}
	return nodes, nil
}

func (f *fakeSource) GetNode(_ context.Context, name string) (*v1.Node, error) {
	f.getCalls = append(f.getCalls, name)
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.nodes {
		if f.nodes[i].Name == name {
			node := f.nodes[i].DeepCopy()
			return node, nil
		}
	}
	return nil, errors.New("node not found: " + name)
}

func node(name string, labels map[string]string, internalIP string) v1.Node {
	return v1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Status: v1.NodeStatus{
			Addresses: []v1.NodeAddress{{Type: v1.NodeInternalIP, Address: internalIP}},
		},
	}
}

func newTestOrchestrator(t *testing.T, source *fakeSource) (*Orchestrator, *cache.Store) {
	t.Helper()
	store := cache.NewStore(t.TempDir(), "")
	orch := New(Options{
		Source: source,
		Store:  store,
		MaxAge: time.Hour,
		Log:    logr.Discard(),
	})
	return orch, store
}

func TestListRebuildsThenServesCache(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{
		node("node-a", map[string]string{"role": "worker"}, "10.0.0.1"),
		node("node-b", map[string]string{"role": "master"}, "10.0.0.2"),
	}}
	orch, store := newTestOrchestrator(t, source)
	ctx := context.Background()

	first, err := orch.List(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected 1 list call, got %d", source.listCalls)
	}
	if _, err := os.Stat(store.IndexPath); err != nil {
		t.Fatalf("expected index artifact: %v", err)
	}

	second, err := orch.List(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected cached list, got %d list calls", source.listCalls)
	}
	if string(first) != string(second) {
		t.Fatalf("cached text differs from built text:\n%s\n%s", first, second)
	}
}

func TestListForcedRefresh(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", nil, "10.0.0.1")}}
	orch, _ := newTestOrchestrator(t, source)
	ctx := context.Background()

	if _, err := orch.List(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := orch.List(ctx, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 2 {
		t.Fatalf("expected refresh to rebuild, got %d list calls", source.listCalls)
	}
}

func TestListSourceFailureLeavesCache(t *testing.T) {
	source := &fakeSource{listErr: errors.New("kubectl is broken")}
	orch, store := newTestOrchestrator(t, source)

	_, err := orch.List(context.Background(), false)
	if err == nil || err.Error() != "kubectl is broken" {
		t.Fatalf("expected source error, got %v", err)
	}
	if _, err := os.Stat(store.InventoryPath); !os.IsNotExist(err) {
		t.Fatalf("expected no inventory artifact, got %v", err)
	}
}

func TestHostFetchesLiveNode(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", map[string]string{"role": "worker"}, "10.0.0.1")}}
	orch, _ := newTestOrchestrator(t, source)
	ctx := context.Background()

	if _, err := orch.List(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source.nodes[0].Labels["role"] = "master"

	result, err := orch.Host(ctx, "node-a", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found {
		t.Fatalf("expected host to be found")
	}
	if diff := cmp.Diff([]string{"node-a"}, source.getCalls); diff != "" {
		t.Fatalf("get calls mismatch (-want +got):\n%s", diff)
	}
	if result.Vars.Labels["role"] != "master" {
		t.Fatalf("expected live labels, got %v", result.Vars.Labels)
	}
	if result.Vars.AnsibleHost != "10.0.0.1" {
		t.Fatalf("expected ansible_host 10.0.0.1, got %s", result.Vars.AnsibleHost)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected index served from cache, got %d list calls", source.listCalls)
	}
}

func TestHostUnresolvableIsSoftMiss(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", nil, "10.0.0.1")}}
	orch, store := newTestOrchestrator(t, source)
	inv := inventory.New()
	inv.Groups["all"] = []string{"h1"}
	inv.HostVars["h1"] = inventory.HostVars{}
	if err := store.Save(inv, inventory.Index{"h1": "node-a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := orch.Host(context.Background(), "h2", false)
	if err != nil {
		t.Fatalf("expected soft miss, got error %v", err)
	}
	if result.Found {
		t.Fatalf("expected host h2 to be missing")
	}
	if source.listCalls != 1 {
		t.Fatalf("expected exactly one rebuild, got %d", source.listCalls)
	}
	if len(source.getCalls) != 0 {
		t.Fatalf("expected no node fetch, got %v", source.getCalls)
	}
}

func TestHostFoundAfterRebuild(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", nil, "10.0.0.1")}}
	orch, _ := newTestOrchestrator(t, source)
	ctx := context.Background()

	if _, err := orch.List(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source.nodes = append(source.nodes, node("node-b", nil, "10.0.0.2"))

	result, err := orch.Host(ctx, "node-b", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.NodeName != "node-b" {
		t.Fatalf("expected node-b after rebuild, got %+v", result)
	}
	if source.listCalls != 2 {
		t.Fatalf("expected one rebuild on miss, got %d list calls", source.listCalls)
	}
}

func TestHostMissAfterStaleRebuildRetriesOnce(t *testing.T) {
	source := &fakeSource{}
	orch, _ := newTestOrchestrator(t, source)

	result, err := orch.Host(context.Background(), "ghost", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatalf("expected ghost to be missing")
	}
	if source.listCalls != 2 {
		t.Fatalf("expected stale rebuild plus one retry, got %d list calls", source.listCalls)
	}
}

func TestHostJoinsBetweenRebuilds(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", nil, "10.0.0.1")}}
	source.afterList = func(call int) {
		if call == 1 {
			source.nodes = append(source.nodes, node("node-b", nil, "10.0.0.2"))
		}
	}
	orch, store := newTestOrchestrator(t, source)

	result, err := orch.Host(context.Background(), "node-b", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.NodeName != "node-b" {
		t.Fatalf("expected node-b from the retry, got %+v", result)
	}
	if source.listCalls != 2 {
		t.Fatalf("expected two list calls, got %d", source.listCalls)
	}
	index, err := store.LoadIndex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index["node-b"] != "node-b" {
		t.Fatalf("expected retry to be persisted, got %v", index)
	}
}

func TestHostMissAfterForcedRefresh(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", nil, "10.0.0.1")}}
	orch, _ := newTestOrchestrator(t, source)

	result, err := orch.Host(context.Background(), "ghost", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatalf("expected ghost to be missing")
	}
	if source.listCalls != 2 {
		t.Fatalf("expected refresh plus one retry, got %d list calls", source.listCalls)
	}
	if len(source.getCalls) != 0 {
		t.Fatalf("expected no node fetch, got %v", source.getCalls)
	}
}

func TestHostFetchFailure(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{node("node-a", nil, "10.0.0.1")}, getErr: errors.New("api down")}
	orch, _ := newTestOrchestrator(t, source)

	if _, err := orch.Host(context.Background(), "node-a", false); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestHostPolicyIdentifiers(t *testing.T) {
	n := node("node-a", nil, "10.0.0.1")
	n.Status.Addresses = append(n.Status.Addresses, v1.NodeAddress{Type: v1.NodeExternalIP, Address: "1.2.3.4"})
	source := &fakeSource{nodes: []v1.Node{n}}
	store := cache.NewStore(t.TempDir(), "")
	orch := New(Options{
		Source: source,
		Store:  store,
		Policy: inventory.Policy{UsePublicIP: true},
		MaxAge: time.Hour,
		Log:    logr.Discard(),
	})

	result, err := orch.Host(context.Background(), "1.2.3.4", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.NodeName != "node-a" {
		t.Fatalf("expected public IP to resolve to node-a, got %+v", result)
	}
	if result.Vars.AnsibleSSHHost != "1.2.3.4" {
		t.Fatalf("expected ssh host 1.2.3.4, got %s", result.Vars.AnsibleSSHHost)
	}
}

func TestInventoryFromCache(t *testing.T) {
	source := &fakeSource{nodes: []v1.Node{
		node("node-a", map[string]string{"role": "worker"}, "10.0.0.1"),
		node("node-b", map[string]string{"role": "master"}, "10.0.0.2"),
	}}
	orch, _ := newTestOrchestrator(t, source)
	ctx := context.Background()

	built, builtIndex, err := orch.Inventory(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cached, cachedIndex, err := orch.Inventory(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected second call from cache, got %d list calls", source.listCalls)
	}
	if diff := cmp.Diff(built.Groups, cached.Groups); diff != "" {
		t.Fatalf("groups mismatch (-built +cached):\n%s", diff)
	}
	if diff := cmp.Diff(builtIndex, cachedIndex); diff != "" {
		t.Fatalf("index mismatch (-built +cached):\n%s", diff)
	}
	want := map[string][]string{
		"all":    {"node-a", "node-b"},
		"worker": {"node-a"},
		"master": {"node-b"},
	}
	if diff := cmp.Diff(want, cached.Groups); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectorPassedToSource(t *testing.T) {
	source := &fakeSource{}
	selector, err := labels.Parse("role=worker")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orch := New(Options{
		Source:   source,
		Store:    cache.NewStore(t.TempDir(), selector.String()),
		MaxAge:   time.Hour,
		Selector: selector,
		Log:      logr.Discard(),
	})
	if _, err := orch.List(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"role=worker"}, source.selectors); diff != "" {
		t.Fatalf("selector mismatch (-want +got):\n%s", diff)
	}
}
