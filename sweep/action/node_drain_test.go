package action_test

import (
	"testing"

	"k8s.io/api/core/v1"
	k8spolicy "k8s.io/api/policy/v1beta1"
	k8smeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/mlgruby/homelab/sweep/action"
)

func TestDrainNode(t *testing.T) {
	node := &v1.Node{
		ObjectMeta: k8smeta.ObjectMeta{
			Name: "nuc3",
		},
	}
	targetPod := podOnNode("p1", node.Name)
	client := fake.NewSimpleClientset(node, targetPod)
	client.Fake.PrependReactor("create", "pods", evictionReaction(client.Fake.ReactionChain[0].React))
	act := action.NewDrainNodeAction()

	err := act.ApplyToNode(client, node)
	if err != nil {
		t.Fatalf("ApplyToNode failed with: %s", err)
	}

	actions := client.Fake.Actions()
	actionNo := 0

	// First the node is cordoned
	cordoned := actions[actionNo].(k8stesting.UpdateAction).GetObject().(*v1.Node)
	if !cordoned.Spec.Unschedulable {
		t.Errorf("Expected node to be unschedulable.")
	}
	actionNo++

	// After that, the action lists the pods on the node
	listAction, ok := actions[actionNo].(k8stesting.ListAction)
	if !ok {
		t.Fatalf("Expected the action to list pods, found %v", actions[actionNo])
	}
	podFilter := listAction.GetListRestrictions().Fields.String()
	if podFilter != "spec.nodeName=nuc3" {
		t.Errorf("Wrong field filter for listing pods: %s", podFilter)
	}
	actionNo++

	// After that, an eviction request is created
	createEviction := actions[actionNo].(k8stesting.CreateAction)
	eviction := createEviction.GetObject().(*k8spolicy.Eviction)
	if eviction.Name != targetPod.Name {
		t.Errorf("Expected target of eviction to be %s, found %v", targetPod.Name, eviction.Name)
	}
	actionNo++

	// After that, it polls to check that the pod is gone
	pollAction := actions[actionNo].(k8stesting.GetAction)
	if pollAction.GetName() != targetPod.Name {
		t.Errorf("Expected target of poll to be %s, found %v", targetPod.Name, pollAction)
	}
	actionNo++

	// The node is on its way out of the cluster, so it must stay cordoned
	if len(actions) != actionNo {
		t.Errorf("Expected no further actions (in particular no uncordon), found %v", actions[actionNo:])
	}
}

func TestDrainNodeLeavesDaemonSetAndMirrorPodsAlone(t *testing.T) {
	node := &v1.Node{
		ObjectMeta: k8smeta.ObjectMeta{
			Name: "nuc3",
		},
	}
	daemonPod := podOnNode("d1", node.Name)
	daemonPod.OwnerReferences = []k8smeta.OwnerReference{{Kind: "DaemonSet", Name: "logging-agent"}}
	mirrorPod := podOnNode("m1", node.Name)
	mirrorPod.Annotations = map[string]string{v1.MirrorPodAnnotationKey: "mirror"}

	client := fake.NewSimpleClientset(node, daemonPod, mirrorPod)
	client.Fake.PrependReactor("create", "pods", evictionReaction(client.Fake.ReactionChain[0].React))
	act := action.NewDrainNodeAction()

	err := act.ApplyToNode(client, node)
	if err != nil {
		t.Fatalf("ApplyToNode failed with: %s", err)
	}

	for _, apiAction := range client.Fake.Actions() {
		if apiAction.GetVerb() == "create" {
			t.Errorf("Expected no evictions for daemon-managed or mirror pods, found %v", apiAction)
		}
	}
}

func evictionReaction(defaultReaction k8stesting.ReactionFunc) k8stesting.ReactionFunc {
	return func(apiAction k8stesting.Action) (handled bool, ret runtime.Object, err error) {
		if !apiAction.Matches("create", "pods") || apiAction.GetSubresource() != "eviction" {
			return false, nil, nil
		}

		// The fake object tracker does not act on evictions, so handle them
		// like the delete they amount to.
		eviction := apiAction.(k8stesting.CreateAction).GetObject().(*k8spolicy.Eviction)
		return defaultReaction(k8stesting.NewDeleteAction(
			schema.GroupVersionResource{Group: "", Version: "v1", Resource: "pods"},
			eviction.Namespace, eviction.Name))
	}
}

func podOnNode(podName, nodeName string) *v1.Pod {
	return &v1.Pod{
		ObjectMeta: k8smeta.ObjectMeta{
			Namespace: "default",
			Name:      podName,
			UID:       types.UID(podName),
		},
		Spec: v1.PodSpec{
			NodeName: nodeName,
		},
		Status: v1.PodStatus{
			Phase: v1.PodRunning,
		},
	}
}
