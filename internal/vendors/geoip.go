package vendors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

const geoipProvider = "geoip"

type cityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

type asnLookup interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
}

// Hosting and VPN exit networks by ASN.
var (
	defaultVPNASNs = map[uint]string{
		9009:  "M247 Europe",
		20473: "Choopa, LLC (Vultr)",
		60068: "Datacamp Limited (CDN77)",
		13335: "Cloudflare",
	}

	defaultDataCenterASNs = map[uint]string{
		16509:  "Amazon.com (AWS)",
		14618:  "Amazon.com (AWS)",
		15169:  "Google Cloud",
		396982: "Google Cloud",
		8075:   "Microsoft Azure",
		14061:  "DigitalOcean",
		24940:  "Hetzner Online GmbH",
		16276:  "OVH SAS",
		12876:  "Online S.A.S. (Scaleway)",
		63949:  "Linode",
		36352:  "ColoCrossing",
	}
)

// GeoIPReputation scores IPs from local MaxMind City/ASN databases.
type GeoIPReputation struct {
	city        cityLookup
	asn         asnLookup
	closers     []func() error
	vpnASNs     map[uint]string
	dcASNs      map[uint]string
	torPrefixes map[string]bool
	torNetworks []*net.IPNet
}

// OpenGeoIPReputation opens the City and ASN databases.
func OpenGeoIPReputation(cityDBPath, asnDBPath string) (*GeoIPReputation, error) {
	cityReader, err := geoip2.Open(cityDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open city database: %w", err)
	}

	asnReader, err := geoip2.Open(asnDBPath)
	if err != nil {
		cityReader.Close()
		return nil, fmt.Errorf("failed to open asn database: %w", err)
	}

	g := newGeoIPReputation(cityReader, asnReader)
	g.closers = []func() error{cityReader.Close, asnReader.Close}
	return g, nil
}

func newGeoIPReputation(city cityLookup, asn asnLookup) *GeoIPReputation {
	return &GeoIPReputation{
		city:        city,
		asn:         asn,
		vpnASNs:     defaultVPNASNs,
		dcASNs:      defaultDataCenterASNs,
		torPrefixes: make(map[string]bool),
	}
}

// AddTorExit marks the /24 (or /64) containing ip as a Tor exit network.
func (g *GeoIPReputation) AddTorExit(ip string) {
	if prefix := maskIPToPrefix(ip); prefix != "" {
		g.torPrefixes[prefix] = true
	}
}

// Close releases the database readers.
func (g *GeoIPReputation) Close() error {
	var firstErr error
	for _, c := range g.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *GeoIPReputation) Name() string { return geoipProvider }

func (g *GeoIPReputation) CheckIPReputation(ctx context.Context, ip string) (*IPReputationResult, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return nil, nil
	}

	record, err := g.city.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("city lookup: %w", err)
	}
	if record.Country.IsoCode == "" {
		return nil, nil
	}

	result := &IPReputationResult{
		RiskScore: 10,
		Country:   record.Country.IsoCode,
		City:      record.City.Names["en"],
		Flags:     []string{},
		Metadata:  map[string]interface{}{},
		Provider:  geoipProvider,
	}

	if g.asn != nil {
		if asn, err := g.asn.ASN(parsed); err == nil && asn.AutonomousSystemNumber != 0 {
			number := asn.AutonomousSystemNumber
			result.ISP = asn.AutonomousSystemOrganization
			result.Metadata["asn"] = number

			if _, ok := g.vpnASNs[number]; ok {
				result.IsVPN = true
				result.RiskScore += 40
				result.Flags = append(result.Flags, "vpn_network")
			} else if _, ok := g.dcASNs[number]; ok {
				result.IsProxy = true
				result.RiskScore += 30
				result.Flags = append(result.Flags, "datacenter_network")
			}
		}
	}

	if record.Traits.IsAnonymousProxy && !result.IsProxy {
		result.IsProxy = true
		result.RiskScore += 30
		result.Flags = append(result.Flags, "anonymous_proxy")
	}

	if g.isTorExit(parsed) {
		result.IsTor = true
		result.RiskScore += 60
		result.Flags = append(result.Flags, "tor_exit_node")
	}

	if result.RiskScore > 100 {
		result.RiskScore = 100
	}
	result.ThreatLevel = ThreatLevelForScore(result.RiskScore)
	return result, nil
}

func (g *GeoIPReputation) isTorExit(ip net.IP) bool {
	if g.torPrefixes[maskIPToPrefix(ip.String())] {
		return true
	}
	for _, n := range g.torNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// maskIPToPrefix masks to /24 for IPv4 and /64 for IPv6 so raw addresses
// are never stored in the Tor list.
func maskIPToPrefix(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String() + "/24"
	}
	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}

// LoadTorExits reads one IP or CIDR per line; blank lines, # comments and
// unparsable entries are skipped. It returns the number of entries added.
func (g *GeoIPReputation) LoadTorExits(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	added := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		field := strings.Fields(line)[0]
		if strings.Contains(field, "/") {
			_, network, err := net.ParseCIDR(field)
			if err != nil {
				continue
			}
			g.torNetworks = append(g.torNetworks, network)
			added++
			continue
		}
		if prefix := maskIPToPrefix(field); prefix != "" {
			g.torPrefixes[prefix] = true
			added++
		}
	}
	return added, scanner.Err()
}
