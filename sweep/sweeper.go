// Package sweep reconciles the declared cluster membership against the live
// node list and removes the leftovers: drain, delete, then stop the k3s agent
// on the host over SSH. Everything past the confirmation prompt is
// best-effort; a failed step is logged and the sweep moves on.
package sweep

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	k8smeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/mlgruby/homelab/remote"
	"github.com/mlgruby/homelab/sweep/action"
)

// AgentStopCommands is the sequence run on a removed host to detach it from
// the cluster for good. All three run even if an earlier one fails.
var AgentStopCommands = []string{
	"sudo systemctl stop k3s-agent",
	"sudo systemctl disable k3s-agent",
	"sudo rm -f /etc/rancher/k3s/agent-token",
}

// Sweeper ties the collaborators of one run together. All of them are
// constructed once at startup; in dry-run mode the actions and the runner are
// swapped for logging no-ops and everything else stays identical.
type Sweeper struct {
	// a kubernetes client object
	Client kubernetes.Interface
	// the declared cluster membership
	Config *ClusterConfig
	// maps node names to management addresses
	Resolver Resolver
	// moves workloads off a node
	Drain action.NodeAction
	// removes the node object from the cluster
	Delete action.NodeAction
	// executes the agent stop sequence on the host
	Runner remote.Runner
	// an instance of logrus.FieldLogger to write log messages to
	Logger log.FieldLogger
}

// Plan lists the live nodes and computes the removal plan against the
// declared membership. An API error or an empty node list is returned as an
// error: no usable cluster state is never the same thing as "remove
// everything".
func (s *Sweeper) Plan() (*RemovalPlan, error) {
	nodeList, err := s.Client.CoreV1().Nodes().List(k8smeta.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("unable to list cluster nodes: %s", err)
	}
	if len(nodeList.Items) == 0 {
		return nil, errors.New("cluster returned no nodes; refusing to reconcile against an empty node list")
	}

	return BuildPlan(nodeList.Items, s.Config.ExpectedNodes(), s.Resolver), nil
}

// Execute runs the removal steps for every node in the plan, strictly in
// order, one node at a time. Individual failures are logged as warnings and
// recorded in the outcome; they never stop the sweep.
func (s *Sweeper) Execute(plan *RemovalPlan) []NodeOutcome {
	outcomes := make([]NodeOutcome, 0, len(plan.Items))

	for _, item := range plan.Items {
		logger := s.Logger.WithField("node", item.Node.Name)
		outcome := NodeOutcome{Node: item.Node.Name, IP: item.IP}

		logger.Info(s.Drain.Name())
		if err := s.Drain.ApplyToNode(s.Client, item.Node); err != nil {
			logger.WithField("err", err).Warn("failed to drain node, continuing")
			outcome.Drain = failed(err)
		} else {
			outcome.Drain = succeeded()
		}

		logger.Info(s.Delete.Name())
		if err := s.Delete.ApplyToNode(s.Client, item.Node); err != nil {
			logger.WithField("err", err).Warn("failed to delete node, continuing")
			outcome.Delete = failed(err)
		} else {
			outcome.Delete = succeeded()
		}

		if item.IP == "" {
			// The node object is gone but the agent may still be running on
			// a host we can no longer address. Known gap, see README.
			logger.Warn("no management address for node, skipping agent stop")
			outcome.Stop = skipped("no management address")
		} else {
			outcome.Stop = s.stopAgent(logger, item.IP)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// stopAgent runs the full stop sequence on the host; later commands still run
// when an earlier one fails.
func (s *Sweeper) stopAgent(logger log.FieldLogger, ip string) StepResult {
	var failures []string
	for _, command := range AgentStopCommands {
		logger.WithFields(log.Fields{
			"host":    ip,
			"command": command,
		}).Info("stopping agent")

		if err := s.Runner.Run(ip, command); err != nil {
			logger.WithFields(log.Fields{
				"host":    ip,
				"command": command,
				"err":     err,
			}).Warn("remote command failed, continuing")
			failures = append(failures, fmt.Sprintf("%s: %s", command, err))
		}
	}
	if len(failures) > 0 {
		return failed(errors.New(strings.Join(failures, "; ")))
	}
	return succeeded()
}
