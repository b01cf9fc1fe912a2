package sweep

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver maps a node name to the management address of its host. The second
// return value is false when the name does not fit the addressing convention;
// such nodes are still drained and deleted but their agent is left running.
type Resolver interface {
	Resolve(nodeName string) (string, bool)
}

// PrefixResolver encodes the sequential-IP convention used in this homelab:
// a node named <prefix><N> lives at <base><offset+N>, e.g. nuc3 at
// 192.168.1.143. It is one operator's naming scheme, not a discovery
// mechanism; swap in another Resolver for other setups.
type PrefixResolver struct {
	Prefix string
	Base   string
	Offset int
}

func (r PrefixResolver) Resolve(nodeName string) (string, bool) {
	if !strings.HasPrefix(nodeName, r.Prefix) {
		return "", false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(nodeName, r.Prefix))
	if err != nil || n < 0 {
		return "", false
	}
	return fmt.Sprintf("%s%d", r.Base, r.Offset+n), true
}

var _ Resolver = PrefixResolver{}
