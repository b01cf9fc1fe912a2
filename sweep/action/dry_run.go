package action

import (
	log "github.com/sirupsen/logrus"
	"k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
)

// NewDryRunAction stands in for a real action during dry runs: it logs what
// would happen to the node and leaves the cluster alone.
func NewDryRunAction(name string, logger log.FieldLogger) NodeAction {
	return &dryRun{name: name, logger: logger}
}

type dryRun struct {
	name   string
	logger log.FieldLogger
}

func (a *dryRun) ApplyToNode(client kubernetes.Interface, node *v1.Node) error {
	a.logger.WithField("node", node.Name).Infof("dry run: would %s", a.name)
	return nil
}

func (a *dryRun) Name() string {
	return a.name
}

var _ NodeAction = &dryRun{}
