// Package compile implements the ACL compiler of spec §4.5: it builds a
// target-parameterised policy description and a naming table, invokes the
// target renderer, and post-processes device-specific header lines.
package compile

import (
	"fmt"
	"strings"

	"github.com/DataDog/netacld/internal/expand"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/negate"
)

// NetworkDef is one entry of the naming table for a Network: either a list
// of literal CIDRs, or a list of member network tokens (for a network whose
// addresses are all nested references).
type NetworkDef struct {
	Name    string
	CIDRs   []string
	Members []string
}

// ServiceDef is one entry of the naming table for a Service.
type ServiceDef struct {
	Name    string
	Entries []expand.ProtoPort
}

// NamingTable is the global NAME -> definition table emitted for every
// Network and Service reachable from the expanded term list.
type NamingTable struct {
	Networks map[string]NetworkDef
	Services map[string]ServiceDef
}

func newNamingTable() *NamingTable {
	return &NamingTable{Networks: map[string]NetworkDef{}, Services: map[string]ServiceDef{}}
}

// TermRecord is one emitted rule, after protocol-union splitting.
type TermRecord struct {
	Name                string
	Action              model.Action
	Option              *model.Option
	Logging             bool
	SourceAddresses     []string
	DestinationAddresses []string
	SourcePorts         []string
	DestinationPorts    []string
	Protocol            string // empty when the term carries no service
}

// PolicyDescription is the target-parameterised compiled representation fed
// to the renderer.
type PolicyDescription struct {
	FilterName string
	Header     map[model.GeneratorKind]string
	Terms      []TermRecord
	Naming     *NamingTable
}

// Renderer is the black-box per-target text generator named in spec §1; its
// concrete grammars are out of scope for this service.
type Renderer interface {
	Render(desc PolicyDescription, target model.Target) (string, error)
}

// Lookups bundles the store accessors the compiler needs to walk nested
// networks/services while building the naming table.
type Lookups struct {
	Network expand.NetworkLookup
	Service expand.ServiceLookup
}

// Result is the output of Compile: the rendered text, the filter name, and
// the filename, per spec §4.5.
type Result struct {
	ConfigText string
	FilterName string
	Filename   string
}

var extensionByGenerator = map[model.GeneratorKind]string{
	model.GeneratorCisco:     "acl",
	model.GeneratorCiscoNXOS: "nxacl",
	model.GeneratorCiscoXR:   "xacl",
	model.GeneratorASA:       "asa",
	model.GeneratorJuniper:   "jcl",
	model.GeneratorNftables:  "nft",
}

// FilterName returns the policy name with spaces replaced by dashes (spec
// §4.5 step 1 / GLOSSARY).
func FilterName(policyName string) string {
	return strings.ReplaceAll(policyName, " ", "-")
}

// Header builds the {generator_kind: header_string} map of spec §4.5 step 2.
func Header(filterName string, target model.Target) map[model.GeneratorKind]string {
	var header string
	switch {
	case target.Generator == model.GeneratorCisco && target.InetMode == model.InetModeV4:
		header = "extended"
	case target.Generator == model.GeneratorNftables:
		header = fmt.Sprintf("%s input", target.InetMode)
	default:
		header = fmt.Sprintf("%s %s", filterName, target.InetMode)
	}
	return map[model.GeneratorKind]string{target.Generator: header}
}

// Compile builds the PolicyDescription, invokes renderer, and post-processes
// the result per spec §4.5.
func Compile(
	policyName string,
	terms []model.PolicyTerm,
	target model.Target,
	defaultAction *model.DefaultAction,
	networkByID func(string) (model.Network, bool),
	serviceByID func(string) (model.Service, bool),
	renderer Renderer,
) (Result, error) {
	filterName := FilterName(policyName)
	header := Header(filterName, target)

	naming := newNamingTable()
	records, err := buildTermRecords(terms, filterName, naming, networkByID, serviceByID)
	if err != nil {
		return Result{}, err
	}

	if defaultAction != nil {
		records = append(records, defaultTermRecord(filterName, *defaultAction))
	}

	desc := PolicyDescription{FilterName: filterName, Header: header, Terms: records, Naming: naming}
	text, err := renderer.Render(desc, target)
	if err != nil {
		return Result{}, err
	}

	text = postProcess(text, filterName, target)

	ext := extensionByGenerator[target.Generator]
	filename := fmt.Sprintf("%s.%s", filterName, ext)

	return Result{ConfigText: text, FilterName: filterName, Filename: filename}, nil
}

func defaultTermRecord(filterName string, action model.DefaultAction) TermRecord {
	var name string
	var act model.Action
	switch action {
	case model.DefaultActionAccept, model.DefaultActionAcceptLog:
		name = filterName + "-Default-Accept"
		act = model.ActionAccept
	case model.DefaultActionDeny, model.DefaultActionDenyLog:
		name = filterName + "-Default-Deny"
		act = model.ActionDeny
	}
	return TermRecord{
		Name:    name,
		Action:  act,
		Logging: strings.HasSuffix(string(action), "-log"),
	}
}

func buildTermRecords(
	terms []model.PolicyTerm,
	filterName string,
	naming *NamingTable,
	networkByID func(string) (model.Network, bool),
	serviceByID func(string) (model.Service, bool),
) ([]TermRecord, error) {
	var out []TermRecord
	for _, term := range terms {
		if !term.Enabled {
			continue
		}

		srcAddrs, err := addressTokens(term, term.SourceNetworks, term.NegateSrc, "src", naming, networkByID)
		if err != nil {
			return nil, err
		}
		dstAddrs, err := addressTokens(term, term.DestinationNetworks, term.NegateDst, "dst", naming, networkByID)
		if err != nil {
			return nil, err
		}

		srcPorts, srcProtos, err := serviceTokens(term.SourceServices, naming, serviceByID)
		if err != nil {
			return nil, err
		}
		dstPorts, dstProtos, err := serviceTokens(term.DestinationServices, naming, serviceByID)
		if err != nil {
			return nil, err
		}

		base := TermRecord{
			Name:                 term.Name,
			Action:               term.Action,
			Option:               term.Option,
			Logging:              term.Logging,
			SourceAddresses:      srcAddrs,
			DestinationAddresses: dstAddrs,
			SourcePorts:          srcPorts,
			DestinationPorts:     dstPorts,
		}

		protocols := unionProtocols(srcProtos, dstProtos)
		if len(protocols) == 0 {
			out = append(out, base)
			continue
		}
		for _, proto := range protocols {
			rec := base
			rec.Name = term.Name + "-" + string(proto)
			rec.Protocol = string(proto)
			if proto == model.ProtocolICMP {
				rec.SourcePorts = nil
				rec.DestinationPorts = nil
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func unionProtocols(a, b []model.Protocol) []model.Protocol {
	seen := map[model.Protocol]bool{}
	var out []model.Protocol
	for _, p := range append(append([]model.Protocol{}, a...), b...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func addressTokens(
	term model.PolicyTerm,
	networkIDs []string,
	negate_ bool,
	side string,
	naming *NamingTable,
	networkByID func(string) (model.Network, bool),
) ([]string, error) {
	if len(networkIDs) == 0 {
		return nil, nil
	}
	if negate_ {
		token := term.Name + side
		if err := addNegatedDef(term, networkIDs, side, token, naming, networkByID); err != nil {
			return nil, err
		}
		return []string{token}, nil
	}

	var tokens []string
	for _, id := range networkIDs {
		net, ok := networkByID(id)
		if !ok {
			continue
		}
		if err := addNetworkDef(net, naming, networkByID); err != nil {
			return nil, err
		}
		tokens = append(tokens, HashedName("network", net.ID))
	}
	return tokens, nil
}

func addNetworkDef(net model.Network, naming *NamingTable, networkByID func(string) (model.Network, bool)) error {
	name := HashedName("network", net.ID)
	if _, ok := naming.Networks[name]; ok {
		return nil
	}
	def := NetworkDef{Name: name}
	for _, addr := range net.Addresses {
		if addr.Address != nil {
			def.CIDRs = append(def.CIDRs, addr.Address.String())
			continue
		}
		nested, ok := networkByID(*addr.NestedNetworkID)
		if !ok {
			continue
		}
		if err := addNetworkDef(nested, naming, networkByID); err != nil {
			return err
		}
		def.Members = append(def.Members, HashedName("network", nested.ID))
	}
	naming.Networks[name] = def
	return nil
}

func addNegatedDef(
	term model.PolicyTerm,
	networkIDs []string,
	side string,
	token string,
	naming *NamingTable,
	networkByID func(string) (model.Network, bool),
) error {
	lookup := func(id string) (model.Network, bool) { return networkByID(id) }

	var excluded []string
	for _, id := range networkIDs {
		net, ok := lookup(id)
		if !ok {
			continue
		}
		cidrs, err := expand.NetworkCIDRs(net, lookup)
		if err != nil {
			return err
		}
		for _, c := range cidrs {
			excluded = append(excluded, c.String())
		}
	}
	_ = side
	prefixes := negate.ParseAll(excluded)
	complement := negate.Resolve(prefixes)
	def := NetworkDef{Name: token}
	for _, c := range complement {
		def.CIDRs = append(def.CIDRs, c.String())
	}
	naming.Networks[token] = def
	return nil
}

func serviceTokens(
	serviceIDs []string,
	naming *NamingTable,
	serviceByID func(string) (model.Service, bool),
) ([]string, []model.Protocol, error) {
	if len(serviceIDs) == 0 {
		return nil, nil, nil
	}
	var tokens []string
	var protos []model.Protocol
	for _, id := range serviceIDs {
		svc, ok := serviceByID(id)
		if !ok {
			continue
		}
		if err := addServiceDef(svc, naming, serviceByID); err != nil {
			return nil, nil, err
		}
		tokens = append(tokens, svc.Name)
		leaves, err := expand.ServiceLeaves(svc, serviceByID)
		if err != nil {
			return nil, nil, err
		}
		for _, leaf := range leaves {
			protos = append(protos, leaf.Protocol)
		}
	}
	return tokens, protos, nil
}

func addServiceDef(svc model.Service, naming *NamingTable, serviceByID func(string) (model.Service, bool)) error {
	if _, ok := naming.Services[svc.Name]; ok {
		return nil
	}
	leaves, err := expand.ServiceLeaves(svc, serviceByID)
	if err != nil {
		return err
	}
	naming.Services[svc.Name] = ServiceDef{Name: svc.Name, Entries: leaves}
	return nil
}

// postProcess rewrites device-specific header lines (spec §4.5 step 7) and
// applies the target's ordered literal substitutions.
func postProcess(text string, filterName string, target model.Target) string {
	if target.Generator == model.GeneratorNftables {
		text = strings.ReplaceAll(text, "table inet filtering_policies", fmt.Sprintf("table bridge %s", filterName))
		text = strings.ReplaceAll(text,
			"type filter hook input priority 0; policy drop;",
			"type filter hook postrouting priority 0;")
	}
	for _, sub := range target.Substitutions {
		text = strings.ReplaceAll(text, sub.From, sub.To)
	}
	return text
}
