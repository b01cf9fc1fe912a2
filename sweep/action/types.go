package action

import (
	"k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
)

// NodeAction is one lifecycle operation applied to a node on its way out of
// the cluster.
type NodeAction interface {
	// Apply the operation to the given node
	ApplyToNode(client kubernetes.Interface, node *v1.Node) error
	// Name of this action, ideally a verb - like "drain node"
	Name() string
}
