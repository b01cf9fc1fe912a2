package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	restclient "k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/mlgruby/homelab/remote"
	"github.com/mlgruby/homelab/sweep"
	"github.com/mlgruby/homelab/sweep/action"
)

var (
	version = "undefined"
)

var (
	configPath string
	master     string
	kubeconfig string
	dryRun     bool
	debug      bool
	logFormat  string
	logFields  string
)

func init() {
	kingpin.Flag("config", "Path to the declared cluster membership file").Default("cluster.json").StringVar(&configPath)
	kingpin.Flag("master", "The address of the Kubernetes cluster to target").StringVar(&master)
	kingpin.Flag("kubeconfig", "Path to a kubeconfig file").StringVar(&kubeconfig)
	kingpin.Flag("dry-run", "Show what would be done without making changes").BoolVar(&dryRun)
	kingpin.Flag("debug", "Enable debug logging.").BoolVar(&debug)
	kingpin.Flag("log-format", "'plain' or 'json'").Default("plain").StringVar(&logFormat)
	kingpin.Flag("log-fields", "key=value, comma separated list of fields to include in every log message").Default("").StringVar(&logFields)
}

func main() {
	kingpin.Version(version)
	kingpin.Parse()

	logger := sweep.SetupLogging(debug, logFormat, logFields)

	logger.WithFields(log.Fields{
		"version":    version,
		"config":     configPath,
		"master":     master,
		"kubeconfig": kubeconfig,
		"dryRun":     dryRun,
	}).Info("starting up")

	clusterConfig, err := sweep.LoadConfig(configPath)
	if err != nil {
		logger.WithFields(log.Fields{
			"config": configPath,
			"err":    err,
		}).Fatal("failed to load cluster membership file")
	}

	logger.WithField("expected", declaredNames(clusterConfig)).Info("loaded declared membership")

	config, err := newConfig(logger)
	if err != nil {
		logger.WithField("err", err).Fatal("failed to determine k8s client config")
	}

	client, err := newClient(config, logger)
	if err != nil {
		logger.WithField("err", err).Fatal("failed to connect to cluster")
	}

	sweeper := &sweep.Sweeper{
		Client:   client,
		Config:   clusterConfig,
		Resolver: clusterConfig.Resolver(),
		Logger:   logger,
	}

	if dryRun {
		sweeper.Drain = action.NewDryRunAction("drain node", logger)
		sweeper.Delete = action.NewDryRunAction("delete node", logger)
		sweeper.Runner = &remote.DryRunner{Logger: logger}
	} else {
		sweeper.Drain = action.NewDrainNodeAction()
		sweeper.Delete = action.NewDeleteNodeAction()
		runner, err := remote.NewSSHRunner(
			clusterConfig.SSH.User,
			clusterConfig.SSH.IdentityFile,
			time.Duration(clusterConfig.SSH.ConnectTimeout)*time.Second,
		)
		if err != nil {
			logger.WithField("err", err).Fatal("failed to set up SSH")
		}
		sweeper.Runner = runner
	}

	plan, err := sweeper.Plan()
	if err != nil {
		logger.WithField("err", err).Fatal("failed to determine cluster state")
	}

	if plan.Empty() {
		logger.Info("all cluster nodes match configuration, nothing to clean up")
		return
	}

	logger.WithField("nodes", plan.Names()).Info("nodes to remove")

	fmt.Println("\nCleanup plan:")
	plan.Describe(os.Stdout)

	if dryRun {
		fmt.Println("\nDRY RUN MODE - no changes will be made")
	} else {
		fmt.Printf("\nThis will permanently remove %d node(s) from the cluster.\n", len(plan.Items))
		if !sweep.Confirm(os.Stdin, os.Stdout, "Proceed with cleanup?") {
			logger.Info("cleanup cancelled by user")
			return
		}
	}

	outcomes := sweeper.Execute(plan)

	clean := 0
	for _, outcome := range outcomes {
		logger.WithFields(log.Fields{
			"node":   outcome.Node,
			"drain":  outcome.Drain.Status,
			"delete": outcome.Delete.Status,
			"stop":   outcome.Stop.Status,
		}).Info("node processed")
		if outcome.Clean() {
			clean++
		}
	}

	if dryRun {
		logger.WithField("nodes", len(outcomes)).Info("dry run: would clean up nodes")
	} else {
		logger.WithFields(log.Fields{
			"nodes": len(outcomes),
			"clean": clean,
		}).Info("successfully cleaned up nodes")
	}
}

func newConfig(logger log.FieldLogger) (*restclient.Config, error) {
	if kubeconfig == "" {
		if _, err := os.Stat(clientcmd.RecommendedHomeFile); err == nil {
			kubeconfig = clientcmd.RecommendedHomeFile
		}
	}

	logger.WithFields(log.Fields{
		"kubeconfig": kubeconfig,
		"master":     master,
	}).Debug("using cluster config")

	config, err := clientcmd.BuildConfigFromFlags(master, kubeconfig)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func newClient(config *restclient.Config, logger log.FieldLogger) (*kubernetes.Clientset, error) {
	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	serverVersion, err := client.Discovery().ServerVersion()
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"master":        config.Host,
		"serverVersion": serverVersion,
	}).Info("connected to cluster")

	return client, nil
}

func declaredNames(config *sweep.ClusterConfig) []string {
	names := make([]string, 0, len(config.Nodes))
	for _, node := range config.Nodes {
		names = append(names, node.Name)
	}
	return names
}
