package sweep

import (
	"fmt"
	"io"
	"sort"

	"k8s.io/api/core/v1"
)

// StepStatus is the outcome of one removal step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult carries the status of one step plus the failure or skip reason.
type StepResult struct {
	Status StepStatus
	Reason string
}

func succeeded() StepResult {
	return StepResult{Status: StepOK}
}

func failed(err error) StepResult {
	return StepResult{Status: StepFailed, Reason: err.Error()}
}

func skipped(reason string) StepResult {
	return StepResult{Status: StepSkipped, Reason: reason}
}

// NodeOutcome records what happened to one node during a sweep. Summaries and
// tests read these instead of scraping log output.
type NodeOutcome struct {
	Node   string
	IP     string // empty when the name didn't resolve
	Drain  StepResult
	Delete StepResult
	Stop   StepResult
}

// Clean reports whether every step either succeeded or was deliberately skipped.
func (o NodeOutcome) Clean() bool {
	for _, step := range []StepResult{o.Drain, o.Delete, o.Stop} {
		if step.Status == StepFailed {
			return false
		}
	}
	return true
}

// PlanItem is one node scheduled for removal, together with its resolved
// management address if the name fit the addressing convention.
type PlanItem struct {
	Node *v1.Node
	IP   string
}

// RemovalPlan lists the nodes present in the cluster but absent from the
// declared membership, in name order. Built once per run, never persisted.
type RemovalPlan struct {
	Items []PlanItem
}

// Diff returns actual minus expected, sorted by name. It is the whole of the
// reconciliation arithmetic: a node present in expected is never touched.
func Diff(actual, expected map[string]bool) []string {
	extra := []string{}
	for name := range actual {
		if !expected[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

// BuildPlan computes the removal plan for the given live nodes against the
// declared membership set.
func BuildPlan(liveNodes []v1.Node, expected map[string]bool, resolver Resolver) *RemovalPlan {
	byName := make(map[string]*v1.Node, len(liveNodes))
	actual := make(map[string]bool, len(liveNodes))
	for i := range liveNodes {
		byName[liveNodes[i].Name] = &liveNodes[i]
		actual[liveNodes[i].Name] = true
	}

	plan := &RemovalPlan{}
	for _, name := range Diff(actual, expected) {
		ip, ok := resolver.Resolve(name)
		if !ok {
			ip = ""
		}
		plan.Items = append(plan.Items, PlanItem{Node: byName[name], IP: ip})
	}
	return plan
}

// Empty reports whether there is nothing to remove.
func (p *RemovalPlan) Empty() bool {
	return len(p.Items) == 0
}

// Names returns the names of the nodes scheduled for removal, in plan order.
func (p *RemovalPlan) Names() []string {
	names := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		names = append(names, item.Node.Name)
	}
	return names
}

// Describe prints the human-readable per-node plan shown before the
// confirmation prompt.
func (p *RemovalPlan) Describe(w io.Writer) {
	for _, item := range p.Items {
		addr := item.IP
		if addr == "" {
			addr = "IP unknown"
		}
		fmt.Fprintf(w, "  %s (%s):\n", item.Node.Name, addr)
		fmt.Fprintln(w, "    1. Drain workloads from node")
		fmt.Fprintln(w, "    2. Delete node from cluster")
		if item.IP == "" {
			fmt.Fprintln(w, "    3. Stop k3s agent (skipped: address unknown)")
			fmt.Fprintln(w, "    4. Remove agent token (skipped: address unknown)")
		} else {
			fmt.Fprintf(w, "    3. Stop k3s agent on %s\n", item.IP)
			fmt.Fprintf(w, "    4. Remove agent token on %s\n", item.IP)
		}
	}
}
