// Package model defines the authoring entity catalogue: networks, services,
// policies and their terms, dynamic policies, targets, tests, deployers,
// deployments and revisions.
package model

import (
	"net/netip"
	"time"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/lexirank"
)

// Action is a terminal or continuation disposition for a policy term.
type Action string

const (
	ActionAccept          Action = "accept"
	ActionDeny            Action = "deny"
	ActionNext            Action = "next"
	ActionReject          Action = "reject"
	ActionRejectTCPRst    Action = "reject-with-tcp-rst"
)

// DefaultAction is the richer action set allowed on a dynamic policy's or a
// compiled policy's default (catch-all) term.
type DefaultAction string

const (
	DefaultActionAccept    DefaultAction = "accept"
	DefaultActionAcceptLog DefaultAction = "accept-log"
	DefaultActionDeny      DefaultAction = "deny"
	DefaultActionDenyLog   DefaultAction = "deny-log"
)

// Option is a protocol-state matching refinement on a term.
type Option string

const (
	OptionEstablished     Option = "established"
	OptionIsFragment      Option = "is-fragment"
	OptionTCPEstablished  Option = "tcp-established"
	OptionTCPInitial      Option = "tcp-initial"
)

// InetMode selects which address family(ies) a target renders for.
type InetMode string

const (
	InetModeV4    InetMode = "inet"
	InetModeV6    InetMode = "inet6"
	InetModeMixed InetMode = "mixed"
)

// GeneratorKind names a device-specific renderer.
type GeneratorKind string

const (
	GeneratorCisco     GeneratorKind = "cisco"
	GeneratorCiscoNXOS GeneratorKind = "cisco_nxos"
	GeneratorCiscoXR   GeneratorKind = "cisco_xr"
	GeneratorASA       GeneratorKind = "asa"
	GeneratorJuniper   GeneratorKind = "juniper"
	GeneratorNftables  GeneratorKind = "nftables"
)

// Protocol is a ServiceEntry's transport protocol.
type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolICMP Protocol = "icmp"
)

// DeployMode selects which adaptor a Deployer uses.
type DeployMode string

const (
	DeployModeGit        DeployMode = "git"
	DeployModeNetmiko    DeployMode = "netmiko"
	DeployModeProxmoxNft DeployMode = "proxmox_nft"
)

// DeploymentStatus is the lifecycle state of one Deployment.
type DeploymentStatus string

const (
	DeploymentPending   DeploymentStatus = "pending"
	DeploymentRunning   DeploymentStatus = "running"
	DeploymentCompleted DeploymentStatus = "completed"
	DeploymentFailed    DeploymentStatus = "failed"
)

// Network is a named, ordered collection of NetworkAddress children.
type Network struct {
	ID        string
	Name      string
	Addresses []NetworkAddress
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NetworkAddress is exactly one of a literal CIDR or a nested network
// reference (invariant 1, XOR-polymorphism).
type NetworkAddress struct {
	ID               string
	NetworkID        string
	Address          *netip.Prefix
	NestedNetworkID  *string
	Comment          string
}

// Validate enforces the XOR invariant and the no-self-reference rule.
func (a NetworkAddress) Validate() error {
	hasAddr := a.Address != nil
	hasNested := a.NestedNetworkID != nil
	if hasAddr == hasNested {
		return apperr.Invalid("address", "exactly one of address or nested_network_id must be set")
	}
	if hasNested && *a.NestedNetworkID == a.NetworkID {
		return apperr.Invalid("nested_network_id", "a network may not reference itself")
	}
	return nil
}

// Service is a named, ordered collection of ServiceEntry children.
type Service struct {
	ID        string
	Name      string
	Entries   []ServiceEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PortRange is a single port or an inclusive a-b range.
type PortRange struct {
	Low  int
	High int
}

func (p PortRange) Validate() error {
	if p.Low < 0 || p.Low > 65535 || p.High < 0 || p.High > 65535 {
		return apperr.Invalid("port", "port must be in [0, 65535]")
	}
	if p.Low > p.High {
		return apperr.Invalid("port", "range low must be <= high")
	}
	return nil
}

// ServiceEntry is exactly one of (protocol, optional port) or a nested
// service reference.
type ServiceEntry struct {
	ID               string
	ServiceID        string
	Protocol         *Protocol
	Port             *PortRange
	NestedServiceID  *string
}

func (e ServiceEntry) Validate() error {
	hasProto := e.Protocol != nil
	hasNested := e.NestedServiceID != nil
	if hasProto == hasNested {
		return apperr.Invalid("protocol", "exactly one of protocol or nested_service_id must be set")
	}
	if hasProto {
		switch *e.Protocol {
		case ProtocolICMP:
			if e.Port != nil {
				return apperr.Invalid("port", "icmp entries may not carry a port")
			}
		case ProtocolTCP, ProtocolUDP:
			if e.Port == nil {
				return apperr.Invalid("port", "tcp/udp entries require a port")
			}
			if err := e.Port.Validate(); err != nil {
				return err
			}
		default:
			return apperr.Invalid("protocol", "unknown protocol")
		}
	}
	return nil
}

// Policy is a named, ordered list of terms.
type Policy struct {
	ID         string
	Name       string
	Comment    string
	Edited     bool
	Header     string
	Terms      []PolicyTerm
	TargetIDs  []string
	TestIDs    []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AssignTermPositions fills in a lexirank Position for any term the client
// submitted without one, in slice order, leaving terms that already carry a
// position untouched so reordering a subset of terms never renumbers the
// rest (see internal/lexirank).
func (p *Policy) AssignTermPositions() {
	last := ""
	for i := range p.Terms {
		if p.Terms[i].Position != "" {
			last = p.Terms[i].Position
			continue
		}
		next := ""
		for j := i + 1; j < len(p.Terms); j++ {
			if p.Terms[j].Position != "" {
				next = p.Terms[j].Position
				break
			}
		}
		switch {
		case last == "" && next == "":
			p.Terms[i].Position = lexirank.First()
		case next == "":
			p.Terms[i].Position = lexirank.Append(last)
		case last == "":
			p.Terms[i].Position = lexirank.Between("", next)
		default:
			p.Terms[i].Position = lexirank.Between(last, next)
		}
		last = p.Terms[i].Position
	}
}

// PolicyTerm is exactly one of a tactical rule or a nested-policy splice
// point (invariant 1). Position is a lexirank string (see internal/lexirank)
// so terms can be reordered without renumbering siblings.
type PolicyTerm struct {
	ID                  string
	PolicyID            string
	Name                string
	Position            string
	Enabled             bool
	Action              Action
	Option              *Option
	Logging             bool
	NegateSrc           bool
	NegateDst           bool
	SourceNetworks      []string
	DestinationNetworks []string
	SourceServices      []string
	DestinationServices []string
	NestedPolicyID      *string
}

// IsNested reports whether this term splices in another policy's terms.
func (t PolicyTerm) IsNested() bool { return t.NestedPolicyID != nil }

// Validate enforces invariant 1 (XOR), the no-self-nesting rule, and
// invariant 4 (negation coherence), coercing the one documented exception
// rather than rejecting it (see SPEC_FULL.md open question 1).
func (t *PolicyTerm) Validate() error {
	nested := t.NestedPolicyID != nil
	if nested {
		if *t.NestedPolicyID == t.PolicyID {
			return apperr.Invalid("nested_policy_id", "a term may not nest its own owning policy")
		}
		return nil
	}
	if t.Action == "" {
		return apperr.Invalid("action", "action is required on a tactical term")
	}
	if t.NegateSrc && len(t.SourceNetworks) == 0 {
		return apperr.Invalid("source_networks", "negate_src requires a non-empty source_networks")
	}
	if t.NegateDst && len(t.DestinationNetworks) == 0 {
		// Documented source quirk: silently coerced rather than rejected.
		t.NegateDst = false
	}
	return nil
}

// DynamicPolicy computes its term set on the fly from CIDR/policy filters
// rather than carrying authored terms.
type DynamicPolicy struct {
	ID                    string
	Name                  string
	FilterAction          *Action
	DefaultAction         *DefaultAction
	SourceFilterIDs       []string
	DestinationFilterIDs  []string
	PolicyFilterIDs       []string
	TargetIDs             []string
	TestIDs               []string
	Edited                bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TargetSubstitution is one ordered literal string replacement applied
// after rendering.
type TargetSubstitution struct {
	From string
	To   string
}

// Target names one device/rendering destination.
type Target struct {
	ID             string
	Name           string
	Generator      GeneratorKind
	InetMode       InetMode
	Substitutions  []TargetSubstitution
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TestCase is a single classification probe; empty fields mean "any".
type TestCase struct {
	ID             string
	TestID         string
	ExpectedAction Action
	SourceCIDR     string
	DestCIDR       string
	SourcePort     string
	DestPort       string
	Protocol       string
}

// Test groups TestCases and attaches to policies/dynamic policies.
type Test struct {
	ID    string
	Name  string
	Cases []TestCase
}

// GitConfig is the mode-specific config block for a git Deployer.
type GitConfig struct {
	Repo         string
	Branch       string
	FolderPath   string
	KeyEnvVar    string
}

// SSHConfig is shared by netmiko and proxmox_nft Deployers.
type SSHConfig struct {
	Host          string
	User          string
	Port          int
	PasswordEnvVar string
	EnableEnvVar   string
	KeyEnvVar      string
}

// Deployer binds a Target to a delivery mode and its mode-specific config.
type Deployer struct {
	ID         string
	Name       string
	Mode       DeployMode
	TargetID   string
	Git        *GitConfig
	SSH        *SSHConfig
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Deployment is one attempt to push one RevisionConfig through one Deployer.
type Deployment struct {
	ID         string
	DeployerID string
	RevisionID string
	Status     DeploymentStatus
	Output     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RevisionConfig is the rendered artefact for one Target within a Revision.
type RevisionConfig struct {
	ID         string
	RevisionID string
	TargetID   string
	Config     string
	FilterName string
	Filename   string
}

// Revision is an immutable snapshot of a compiled policy or dynamic policy.
type Revision struct {
	ID              string
	Comment         string
	PolicyID        *string
	DynamicPolicyID *string
	JSONData        []byte
	ExpandedTerms   []byte
	Configs         []RevisionConfig
	CreatedAt       time.Time
}

func (r Revision) Validate() error {
	hasPolicy := r.PolicyID != nil
	hasDynamic := r.DynamicPolicyID != nil
	if hasPolicy == hasDynamic {
		return apperr.Invalid("policy_id", "exactly one of policy_id or dynamic_policy_id must be set")
	}
	return nil
}
