package sweep

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Defaults match the homelab this tool grew up in. All of them can be
// overridden in the membership file.
const (
	DefaultSSHUser        = "satya"
	DefaultIdentityFile   = "~/.ssh/nuc_homelab_id_ed25519"
	DefaultConnectTimeout = 10

	DefaultAddressPrefix = "nuc"
	DefaultAddressBase   = "192.168.1."
	DefaultAddressOffset = 140
)

// NodeRecord is one declared cluster member.
type NodeRecord struct {
	Name string `json:"name" yaml:"name"`
}

// SSHConfig describes how to reach the management account on cluster hosts.
type SSHConfig struct {
	User string `json:"user" yaml:"user"`
	// Path to the private key used for all hosts; a leading ~ is expanded.
	IdentityFile string `json:"identity_file" yaml:"identity_file"`
	// Connect timeout in seconds.
	ConnectTimeout int `json:"connect_timeout" yaml:"connect_timeout"`
}

// AddressingConfig parameterizes the name-to-address convention, see PrefixResolver.
type AddressingConfig struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Base   string `json:"base" yaml:"base"`
	Offset int    `json:"offset" yaml:"offset"`
}

// ClusterConfig is the declared cluster membership, the source of truth for
// which nodes are supposed to exist. Immutable after load.
type ClusterConfig struct {
	Nodes      []NodeRecord     `json:"nodes" yaml:"nodes"`
	SSH        SSHConfig        `json:"ssh" yaml:"ssh"`
	Addressing AddressingConfig `json:"addressing" yaml:"addressing"`
}

// LoadConfig reads and parses the membership file. The file is decoded as
// YAML when it has a .yaml/.yml extension and as JSON otherwise. Any read or
// parse failure is returned as-is; the caller treats it as fatal.
func LoadConfig(path string) (*ClusterConfig, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &ClusterConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, config)
	default:
		err = json.Unmarshal(raw, config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %s", path, err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *ClusterConfig) applyDefaults() {
	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.IdentityFile == "" {
		c.SSH.IdentityFile = DefaultIdentityFile
	}
	c.SSH.IdentityFile = expandHome(c.SSH.IdentityFile)
	if c.SSH.ConnectTimeout <= 0 {
		c.SSH.ConnectTimeout = DefaultConnectTimeout
	}

	if c.Addressing.Prefix == "" {
		c.Addressing.Prefix = DefaultAddressPrefix
	}
	if c.Addressing.Base == "" {
		c.Addressing.Base = DefaultAddressBase
	}
	if c.Addressing.Offset == 0 {
		c.Addressing.Offset = DefaultAddressOffset
	}
}

// ExpectedNodes returns the set of declared node names.
func (c *ClusterConfig) ExpectedNodes() map[string]bool {
	expected := make(map[string]bool, len(c.Nodes))
	for _, node := range c.Nodes {
		expected[node.Name] = true
	}
	return expected
}

// Resolver returns the address resolver described by the addressing section.
func (c *ClusterConfig) Resolver() Resolver {
	return PrefixResolver{
		Prefix: c.Addressing.Prefix,
		Base:   c.Addressing.Base,
		Offset: c.Addressing.Offset,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
