package action

import (
	"fmt"
	"time"

	"k8s.io/api/core/v1"
	k8spolicy "k8s.io/api/policy/v1beta1"
	"k8s.io/apimachinery/pkg/api/errors"
	k8smeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

const EvictionKind = "Eviction"

// How long to wait for evicted pods to actually go away.
const (
	evictionPollInterval = 5 * time.Second
	evictionTimeout      = 10 * time.Minute
)

// NewDrainNodeAction moves workloads off a node ahead of its removal:
// cordon, evict everything except DaemonSet and mirror pods, then wait for
// the evicted pods to disappear. The node is never uncordoned - it is about
// to be deleted, not maintained.
func NewDrainNodeAction() NodeAction {
	return &drainNode{}
}

type drainNode struct{}

func (a *drainNode) ApplyToNode(client kubernetes.Interface, node *v1.Node) error {
	node = node.DeepCopy()

	node, err := cordonNode(client, node)
	if err != nil {
		return err
	}

	return evictAllPodsOnNode(client, node)
}

func (a *drainNode) Name() string {
	return "drain node"
}

func cordonNode(client kubernetes.Interface, node *v1.Node) (*v1.Node, error) {
	node.Spec.Unschedulable = true
	return client.CoreV1().Nodes().Update(node)
}

// Evict all evictable pods on the given node, respecting PDBs etc.
// Blocks until all pods are gone, error or timeout.
func evictAllPodsOnNode(client kubernetes.Interface, node *v1.Node) error {
	podList, err := client.CoreV1().Pods(k8smeta.NamespaceAll).List(k8smeta.ListOptions{
		FieldSelector: fields.SelectorFromSet(fields.Set{"spec.nodeName": node.Name}).String()})
	if err != nil {
		return fmt.Errorf("unable to list pods: %s", err)
	}

	evicted := []v1.Pod{}
	for _, pod := range podList.Items {
		// DaemonSet pods would be recreated right away and mirror pods are
		// owned by the kubelet itself; both go down with the node.
		if isDaemonSetPod(&pod) || isMirrorPod(&pod) {
			continue
		}
		if err = evictPod(client, &pod); err != nil {
			return fmt.Errorf("unable to evict pod %s: %s", pod.Name, err)
		}
		evicted = append(evicted, pod)
	}

	return waitForDelete(client, evicted, evictionPollInterval, evictionTimeout)
}

func isDaemonSetPod(pod *v1.Pod) bool {
	for _, ref := range pod.OwnerReferences {
		if ref.Kind == "DaemonSet" {
			return true
		}
	}
	return false
}

func isMirrorPod(pod *v1.Pod) bool {
	_, found := pod.Annotations[v1.MirrorPodAnnotationKey]
	return found
}

func evictPod(client kubernetes.Interface, pod *v1.Pod) error {
	eviction := &k8spolicy.Eviction{
		TypeMeta: k8smeta.TypeMeta{
			APIVersion: "policy/v1beta1",
			Kind:       EvictionKind,
		},
		ObjectMeta: k8smeta.ObjectMeta{
			Name:      pod.Name,
			Namespace: pod.Namespace,
		},
		DeleteOptions: nil,
	}
	return client.PolicyV1beta1().Evictions(eviction.Namespace).Evict(eviction)
}

func waitForDelete(client kubernetes.Interface, pods []v1.Pod, interval, timeout time.Duration) error {
	return wait.PollImmediate(interval, timeout, func() (bool, error) {
		pendingPods := []v1.Pod{}
		for i, pod := range pods {
			p, err := client.CoreV1().Pods(pod.Namespace).Get(pod.Name, k8smeta.GetOptions{})
			if errors.IsNotFound(err) || (p != nil && p.ObjectMeta.UID != pod.ObjectMeta.UID) {
				continue
			} else if err != nil {
				return false, err
			} else {
				pendingPods = append(pendingPods, pods[i])
			}
		}
		pods = pendingPods
		if len(pendingPods) > 0 {
			return false, nil
		}
		return true, nil
	})
}
