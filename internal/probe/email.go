package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"
)

// dkimSelectors are the selectors tried when probing for DKIM keys. They
// cover the defaults of the most common mail providers.
var dkimSelectors = []string{"default", "google", "mail", "dkim", "k1", "s1"}

// txtMXLookuper is the DNS surface the email probe needs. *net.Resolver
// satisfies it; tests substitute a stub.
type txtMXLookuper interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// RecordCheck is the outcome of a single email-authentication record check.
type RecordCheck struct {
	Found    bool     `json:"found"`
	Record   string   `json:"record,omitempty"`
	Selector string   `json:"selector,omitempty"`
	Policy   string   `json:"policy,omitempty"`
	Status   string   `json:"status"`
	Severity Severity `json:"severity"`
	Error    string   `json:"error,omitempty"`
}

// MXRecord is one mail exchanger, ordered by priority.
type MXRecord struct {
	Priority   uint16 `json:"priority"`
	MailServer string `json:"mail_server"`
}

// MXCheck is the outcome of the MX record check.
type MXCheck struct {
	Records  []MXRecord `json:"records"`
	Status   string     `json:"status"`
	Severity Severity   `json:"severity"`
	Error    string     `json:"error,omitempty"`
}

// EmailResult aggregates the email probe sub-checks.
type EmailResult struct {
	SPF   *RecordCheck `json:"spf"`
	DKIM  *RecordCheck `json:"dkim"`
	DMARC *RecordCheck `json:"dmarc"`
	MX    *MXCheck     `json:"mx"`
}

// EmailProbe checks a domain's email authentication posture: SPF, DKIM,
// DMARC, and MX configuration.
type EmailProbe struct {
	Timeout time.Duration

	// Lookuper overrides DNS resolution, used by tests.
	Lookuper txtMXLookuper
}

func (e *EmailProbe) Name() string { return "probe email" }

func (e *EmailProbe) lookuper() txtMXLookuper {
	if e.Lookuper != nil {
		return e.Lookuper
	}
	return &net.Resolver{PreferGo: true}
}

func (e *EmailProbe) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return 10 * time.Second
}

// Probe runs the four email sub-checks. Each sub-check fails independently
// with a Medium severity on lookup errors.
func (e *EmailProbe) Probe(ctx context.Context, domain string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	result := Result{
		Category:  CategoryEmail,
		CheckedAt: time.Now().UTC(),
		Severity:  SeverityInfo,
	}

	resolver := e.lookuper()
	email := &EmailResult{
		SPF:   checkSPF(ctx, resolver, domain),
		DKIM:  checkDKIM(ctx, resolver, domain),
		DMARC: checkDMARC(ctx, resolver, domain),
		MX:    checkMX(ctx, resolver, domain),
	}
	result.Email = email
	result.Findings = emailFindings(domain, email)
	for _, f := range result.Findings {
		result.Severity = MaxSeverity(result.Severity, f.Severity)
	}
	return result
}

func checkSPF(ctx context.Context, resolver txtMXLookuper, domain string) *RecordCheck {
	records, err := resolver.LookupTXT(ctx, domain)
	if err != nil && !recordAbsent(err) {
		return &RecordCheck{
			Status:   "unable to check SPF record",
			Severity: SeverityMedium,
			Error:    err.Error(),
		}
	}
	for _, record := range records {
		if strings.HasPrefix(record, "v=spf1") {
			return &RecordCheck{
				Found:    true,
				Record:   record,
				Status:   "SPF record found",
				Severity: SeverityLow,
			}
		}
	}
	return &RecordCheck{
		Status:   "no SPF record found, domain vulnerable to email spoofing",
		Severity: SeverityHigh,
	}
}

func checkDKIM(ctx context.Context, resolver txtMXLookuper, domain string) *RecordCheck {
	for _, selector := range dkimSelectors {
		name := selector + "._domainkey." + domain
		records, err := resolver.LookupTXT(ctx, name)
		if err != nil {
			continue
		}
		for _, record := range records {
			if strings.Contains(record, "v=DKIM1") {
				return &RecordCheck{
					Found:    true,
					Selector: selector,
					Status:   fmt.Sprintf("DKIM record found with selector %q", selector),
					Severity: SeverityLow,
				}
			}
		}
	}
	return &RecordCheck{
		Status:   "no DKIM record found for common selectors, email authentication incomplete",
		Severity: SeverityMedium,
	}
}

func checkDMARC(ctx context.Context, resolver txtMXLookuper, domain string) *RecordCheck {
	records, err := resolver.LookupTXT(ctx, "_dmarc."+domain)
	if err == nil {
		for _, record := range records {
			if !strings.Contains(record, "v=DMARC1") {
				continue
			}
			check := &RecordCheck{
				Found:  true,
				Record: record,
				Policy: dmarcPolicy(record),
			}
			// The policy tag decides enforcement strength. p=none only
			// monitors, so it ranks alongside a missing record.
			switch check.Policy {
			case "reject":
				check.Status = "DMARC policy enforcing (p=reject)"
				check.Severity = SeverityLow
			case "quarantine":
				check.Status = "DMARC policy partially enforcing (p=quarantine)"
				check.Severity = SeverityMedium
			default:
				check.Status = "DMARC policy not enforcing (p=none)"
				check.Severity = SeverityHigh
			}
			return check
		}
	}
	return &RecordCheck{
		Status:   "no DMARC policy found",
		Severity: SeverityHigh,
	}
}

// dmarcPolicy extracts the p= tag from a DMARC record.
func dmarcPolicy(record string) string {
	for _, tag := range strings.Split(record, ";") {
		tag = strings.TrimSpace(tag)
		if strings.HasPrefix(tag, "p=") {
			return strings.TrimPrefix(tag, "p=")
		}
	}
	return ""
}

// recordAbsent reports whether err is an authoritative "no such record"
// DNS answer rather than a lookup failure. Absence of a record is a
// posture result, not an error.
func recordAbsent(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

func checkMX(ctx context.Context, resolver txtMXLookuper, domain string) *MXCheck {
	mxs, err := resolver.LookupMX(ctx, domain)
	if err != nil && !recordAbsent(err) {
		return &MXCheck{
			Status:   "unable to resolve MX records",
			Severity: SeverityMedium,
			Error:    err.Error(),
		}
	}
	if len(mxs) == 0 {
		return &MXCheck{
			Records:  []MXRecord{},
			Status:   "no MX records found",
			Severity: SeverityMedium,
		}
	}

	records := make([]MXRecord, 0, len(mxs))
	for _, mx := range mxs {
		records = append(records, MXRecord{Priority: mx.Pref, MailServer: mx.Host})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Priority < records[j].Priority })
	return &MXCheck{
		Records:  records,
		Status:   fmt.Sprintf("%d MX records found", len(records)),
		Severity: SeverityLow,
	}
}

func emailFindings(domain string, email *EmailResult) []Finding {
	var findings []Finding

	if email.SPF != nil && !email.SPF.Found && email.SPF.Error == "" {
		findings = append(findings, Finding{
			Category:    CategoryEmail,
			Severity:    SeverityHigh,
			Title:       "Missing SPF record",
			Description: fmt.Sprintf("No SPF record found for %s. The domain is vulnerable to email spoofing.", domain),
			Remediation: "Publish an SPF TXT record listing authorized mail servers, ending with \"-all\".",
		})
	}
	if email.DKIM != nil && !email.DKIM.Found && email.DKIM.Error == "" {
		findings = append(findings, Finding{
			Category:    CategoryEmail,
			Severity:    SeverityMedium,
			Title:       "No DKIM record found",
			Description: "No DKIM key was found for common selectors. Signed mail cannot be verified.",
			Remediation: "Configure DKIM signing with your mail provider and publish the selector key.",
		})
	}
	if dmarc := email.DMARC; dmarc != nil {
		switch {
		case !dmarc.Found:
			findings = append(findings, Finding{
				Category:    CategoryEmail,
				Severity:    SeverityHigh,
				Title:       "Missing DMARC policy",
				Description: fmt.Sprintf("No DMARC record found at _dmarc.%s.", domain),
				Remediation: "Publish a DMARC record, starting with \"v=DMARC1; p=quarantine\" and moving to p=reject.",
			})
		case dmarc.Severity == SeverityHigh:
			findings = append(findings, Finding{
				Category:    CategoryEmail,
				Severity:    SeverityHigh,
				Title:       "DMARC policy is not enforcing",
				Description: "The DMARC record uses p=none, which only monitors and does not block spoofed mail.",
				Remediation: "Tighten the DMARC policy to p=quarantine or p=reject once reports look clean.",
			})
		case dmarc.Severity == SeverityMedium:
			findings = append(findings, Finding{
				Category:    CategoryEmail,
				Severity:    SeverityMedium,
				Title:       "DMARC policy only quarantines",
				Description: "The DMARC record uses p=quarantine. Spoofed mail is flagged but still delivered.",
				Remediation: "Move the DMARC policy to p=reject once quarantine reports look clean.",
			})
		}
	}
	if email.MX != nil && email.MX.Error == "" && len(email.MX.Records) == 0 {
		findings = append(findings, Finding{
			Category:    CategoryEmail,
			Severity:    SeverityMedium,
			Title:       "No MX records",
			Description: fmt.Sprintf("%s has no MX records and cannot receive mail.", domain),
			Remediation: "Publish MX records if the domain should receive email.",
		})
	}

	return findings
}
