package probe

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// NetworkResult contains the network exposure payload.
type NetworkResult struct {
	ResolvedIP   string     `json:"resolved_ip,omitempty"`
	PrivateIP    bool       `json:"private_ip,omitempty"`
	ResolveError string     `json:"resolve_error,omitempty"`
	OpenPorts    []PortInfo `json:"open_ports"`
	ScannedPorts int        `json:"scanned_ports"`
}

// PortInfo describes one open TCP port.
type PortInfo struct {
	Port     int      `json:"port"`
	Service  string   `json:"service"`
	Severity Severity `json:"severity"`
}

// serviceInfo maps a port to its service name and exposure severity.
type serviceInfo struct {
	name     string
	severity Severity
}

// riskyPortServices is the fixed scan set. Risk is derived from the service
// the port conventionally carries; no banner verification is performed.
var riskyPortServices = map[int]serviceInfo{
	21:   {"FTP (File Transfer Protocol)", SeverityHigh},
	22:   {"SSH (Secure Shell)", SeverityLow},
	23:   {"Telnet", SeverityCritical},
	25:   {"SMTP (Email)", SeverityMedium},
	53:   {"DNS", SeverityMedium},
	80:   {"HTTP (Web)", SeverityMedium},
	110:  {"POP3 (Email)", SeverityMedium},
	143:  {"IMAP (Email)", SeverityMedium},
	443:  {"HTTPS (Secure Web)", SeverityLow},
	993:  {"IMAPS (Secure Email)", SeverityLow},
	995:  {"POP3S (Secure Email)", SeverityLow},
	3389: {"RDP (Remote Desktop)", SeverityCritical},
	5900: {"VNC", SeverityHigh},
	8080: {"HTTP Alternate (Web)", SeverityMedium},
	8443: {"HTTPS Alternate (Secure Web)", SeverityLow},
}

// portRemediations carries remediation text for high-risk services.
var portRemediations = map[int]string{
	21:   "Use SFTP or FTPS instead of standard FTP",
	23:   "Replace Telnet with SSH for secure remote access",
	3389: "Use a VPN and restrict RDP access to specific IPs",
	5900: "Secure VNC with strong passwords or replace it with a more secure remote access solution",
}

// DefaultPorts returns the fixed risky-port scan set in ascending order.
func DefaultPorts() []int {
	ports := make([]int, 0, len(riskyPortServices))
	for port := range riskyPortServices {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// ServiceName returns the conventional service name for a port.
func ServiceName(port int) string {
	if info, ok := riskyPortServices[port]; ok {
		return info.name
	}
	return "Unknown Service"
}

// PortSeverity returns the exposure severity for a port.
func PortSeverity(port int) Severity {
	if info, ok := riskyPortServices[port]; ok {
		return info.severity
	}
	return SeverityMedium
}

// NetworkProbe checks TCP reachability of the risky-port set.
type NetworkProbe struct {
	Timeout     time.Duration // DNS resolution timeout
	PortTimeout time.Duration // per-port connect timeout
	Ports       []int         // ports to scan; defaults to DefaultPorts
	MaxWorkers  int           // concurrent dials
	RateLimit   int           // dials per second; 0 disables limiting

	// DialContext overrides the dialer, used by tests.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)

	// Resolver overrides DNS resolution, used by tests.
	Resolver hostLookuper
}

func (n *NetworkProbe) resolver() hostLookuper {
	if n.Resolver != nil {
		return n.Resolver
	}
	return &net.Resolver{PreferGo: true}
}

// Probe resolves the host and scans the configured port set. A resolution
// failure yields a High finding instead of aborting.
func (n *NetworkProbe) Probe(ctx context.Context, host string) Result {
	result := Result{
		Category:  CategoryNetwork,
		CheckedAt: time.Now().UTC(),
		Severity:  SeverityLow,
	}

	netRes := &NetworkResult{OpenPorts: []PortInfo{}}
	result.Network = netRes

	lookupCtx, cancel := context.WithTimeout(ctx, n.resolveTimeout())
	defer cancel()

	addrs, err := n.resolver().LookupHost(lookupCtx, host)
	if err != nil || len(addrs) == 0 {
		if err != nil {
			netRes.ResolveError = err.Error()
		} else {
			netRes.ResolveError = "no addresses found"
		}
		result.Severity = SeverityHigh
		result.Findings = append(result.Findings, Finding{
			Category:    CategoryNetwork,
			Severity:    SeverityHigh,
			Title:       "Target does not resolve",
			Description: fmt.Sprintf("Could not resolve target domain %s", host),
			Remediation: "Verify the domain's DNS configuration and nameserver availability",
		})
		return result
	}

	netRes.ResolvedIP = addrs[0]
	if ip := net.ParseIP(addrs[0]); ip != nil && ip.IsPrivate() {
		netRes.PrivateIP = true
		result.Findings = append(result.Findings, Finding{
			Category:    CategoryNetwork,
			Severity:    SeverityHigh,
			Title:       "Target resolves to a private IP",
			Description: fmt.Sprintf("%s resolves to private address %s, which may expose an internal network", host, addrs[0]),
			Remediation: "Remove internal addresses from public DNS zones",
		})
	}

	ports := n.Ports
	if len(ports) == 0 {
		ports = DefaultPorts()
	}
	netRes.ScannedPorts = len(ports)
	netRes.OpenPorts = n.scanPorts(ctx, host, ports)

	result.Severity = MaxSeverity(result.Severity, AggregatePortSeverity(netRes.OpenPorts))
	result.Findings = append(result.Findings, PortFindings(netRes.OpenPorts)...)
	for _, f := range result.Findings {
		result.Severity = MaxSeverity(result.Severity, f.Severity)
	}
	return result
}

// AggregatePortSeverity derives the network category severity from the open
// port list. Only High and Critical services escalate; standard web and mail
// ports keep the aggregate at Low.
func AggregatePortSeverity(open []PortInfo) Severity {
	agg := SeverityLow
	for _, p := range open {
		if p.Severity == SeverityHigh || p.Severity == SeverityCritical {
			agg = MaxSeverity(agg, p.Severity)
		}
	}
	return agg
}

// PortFindings builds one finding per open High or Critical port.
func PortFindings(open []PortInfo) []Finding {
	findings := make([]Finding, 0)
	for _, p := range open {
		if p.Severity != SeverityHigh && p.Severity != SeverityCritical {
			continue
		}
		findings = append(findings, Finding{
			Category:    CategoryNetwork,
			Severity:    p.Severity,
			Title:       fmt.Sprintf("Port %d (%s) is open", p.Port, p.Service),
			Description: fmt.Sprintf("Port %d exposes %s directly to the internet", p.Port, p.Service),
			Remediation: portRemediations[p.Port],
		})
	}
	return findings
}

func (n *NetworkProbe) scanPorts(ctx context.Context, host string, ports []int) []PortInfo {
	maxWorkers := n.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	var limiter *rate.Limiter
	if n.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(n.RateLimit), n.RateLimit)
	}

	portChan := make(chan int, len(ports))
	resultChan := make(chan PortInfo, len(ports))
	var wg sync.WaitGroup

	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range portChan {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				if n.checkPort(ctx, host, port) {
					resultChan <- PortInfo{
						Port:     port,
						Service:  ServiceName(port),
						Severity: PortSeverity(port),
					}
				}
			}
		}()
	}

	for _, port := range ports {
		portChan <- port
	}
	close(portChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	open := []PortInfo{}
	for info := range resultChan {
		open = append(open, info)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Port < open[j].Port })
	return open
}

func (n *NetworkProbe) checkPort(ctx context.Context, host string, port int) bool {
	timeout := n.PortTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dial := n.DialContext
	if dial == nil {
		dialer := &net.Dialer{Timeout: timeout}
		dial = dialer.DialContext
	}

	conn, err := dial(dialCtx, "tcp", address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (n *NetworkProbe) resolveTimeout() time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return 5 * time.Second
}

// Name returns the probe name.
func (n *NetworkProbe) Name() string {
	return "probe network"
}
