// Package mailer generates email content: subjects, HTML bodies, and the
// plain-text fallback the clipboard path uses. It never sends anything; the
// browser's mail client does, via the mailto URL builder below.
package mailer

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"fieldops.app/internal/purchase"
	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/ticket"
)

// MaxMailtoLen caps the generated mailto URL. Mail clients silently truncate
// or reject longer URLs, so exceeding the cap is an error, not a hazard.
const MaxMailtoLen = 2000

// Email is a rendered message. HTML and Text carry the same facts; only the
// markup differs.
type Email struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// TicketCounts is the summary block shared verbatim between the HTML and
// text renderings of a ticket digest.
type TicketCounts struct {
	TotalOpen int
	Blocked   int
	Resolved  int
}

// CountTickets tallies a ticket list for the digest. Open means anything not
// yet resolved or closed.
func CountTickets(tickets []ticket.Ticket) TicketCounts {
	var c TicketCounts
	for _, t := range tickets {
		switch t.Status {
		case ticket.StatusResolved, ticket.StatusClosed:
			c.Resolved++
		default:
			c.TotalOpen++
			if t.Status == ticket.StatusBlocked {
				c.Blocked++
			}
		}
	}
	return c
}

// TicketSummary renders the open-ticket digest for one project.
func TicketSummary(projectName string, tickets []ticket.Ticket) Email {
	counts := CountTickets(tickets)
	subject := fmt.Sprintf("Service Ticket Summary - %s", projectName)
	summary := fmt.Sprintf("%d open, %d blocked, %d resolved", counts.TotalOpen, counts.Blocked, counts.Resolved)

	var text strings.Builder
	fmt.Fprintf(&text, "Service tickets for %s\n", projectName)
	fmt.Fprintf(&text, "%s\n\n", summary)
	for _, t := range tickets {
		if t.Status == ticket.StatusResolved || t.Status == ticket.StatusClosed {
			continue
		}
		fmt.Fprintf(&text, "- [%s] %s", strings.ToUpper(t.Status), t.Title)
		if t.ServicePONumber != "" {
			fmt.Fprintf(&text, " (PO %s)", t.ServicePONumber)
		}
		text.WriteString("\n")
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>Service tickets for %s</h2>\n", html.EscapeString(projectName))
	fmt.Fprintf(&body, "<p>%s</p>\n<ul>\n", html.EscapeString(summary))
	for _, t := range tickets {
		if t.Status == ticket.StatusResolved || t.Status == ticket.StatusClosed {
			continue
		}
		fmt.Fprintf(&body, "<li><strong>%s</strong> %s", strings.ToUpper(t.Status), html.EscapeString(t.Title))
		if t.ServicePONumber != "" {
			fmt.Fprintf(&body, " <em>(PO %s)</em>", html.EscapeString(t.ServicePONumber))
		}
		body.WriteString("</li>\n")
	}
	body.WriteString("</ul>\n")

	return Email{Subject: subject, HTML: body.String(), Text: text.String()}
}

// PurchaseOrderEmail renders the supplier-facing order message.
func PurchaseOrderEmail(o purchase.Order, items []purchase.LineItem, projectName string) Email {
	subject := purchase.EmailSubject(o.Number, projectName)

	var totalCents int64
	for _, it := range items {
		totalCents += int64(it.Quantity) * it.UnitCents
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Purchase Order %s\n", o.Number)
	if o.Supplier != "" {
		fmt.Fprintf(&text, "Supplier: %s\n", o.Supplier)
	}
	fmt.Fprintf(&text, "Project: %s\n\n", projectName)
	for _, it := range items {
		fmt.Fprintf(&text, "%3d x %-30s %s\n", it.Quantity, itemLabel(it), dollars(int64(it.Quantity)*it.UnitCents))
	}
	fmt.Fprintf(&text, "\nTotal: %s\n", dollars(totalCents))

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>Purchase Order %s</h2>\n", html.EscapeString(o.Number))
	fmt.Fprintf(&body, "<p>Project: %s</p>\n", html.EscapeString(projectName))
	body.WriteString("<table>\n<tr><th>Qty</th><th>Item</th><th>Amount</th></tr>\n")
	for _, it := range items {
		fmt.Fprintf(&body, "<tr><td>%d</td><td>%s</td><td>%s</td></tr>\n",
			it.Quantity, html.EscapeString(itemLabel(it)), dollars(int64(it.Quantity)*it.UnitCents))
	}
	fmt.Fprintf(&body, "<tr><td></td><td><strong>Total</strong></td><td><strong>%s</strong></td></tr>\n</table>\n", dollars(totalCents))

	return Email{Subject: subject, HTML: body.String(), Text: text.String()}
}

// ReportData is the input for the project report message, assembled by the
// report package.
type ReportData struct {
	ProjectName     string
	Address         string
	PercentComplete int
	Phases          []PhaseLine
	OpenTickets     int
	BlockedTickets  int
	OpenOrders      int
	GeneratedAt     time.Time
}

// PhaseLine is one milestone row on the report.
type PhaseLine struct {
	Name     string
	Percent  int
	Complete bool
}

// ProjectReportEmail renders the full project report.
func ProjectReportEmail(d ReportData) Email {
	subject := fmt.Sprintf("Project Report - %s", d.ProjectName)
	summary := fmt.Sprintf("%d%% complete, %d open tickets (%d blocked), %d open purchase orders",
		d.PercentComplete, d.OpenTickets, d.BlockedTickets, d.OpenOrders)

	var text strings.Builder
	fmt.Fprintf(&text, "Project Report: %s\n", d.ProjectName)
	if d.Address != "" {
		fmt.Fprintf(&text, "%s\n", d.Address)
	}
	fmt.Fprintf(&text, "Generated %s\n\n%s\n\nPhases:\n", d.GeneratedAt.Format("Jan 2, 2006"), summary)
	for _, p := range d.Phases {
		mark := " "
		if p.Complete {
			mark = "x"
		}
		fmt.Fprintf(&text, "[%s] %-20s %3d%%\n", mark, p.Name, p.Percent)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>Project Report: %s</h1>\n", html.EscapeString(d.ProjectName))
	if d.Address != "" {
		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(d.Address))
	}
	fmt.Fprintf(&body, "<p>Generated %s</p>\n", d.GeneratedAt.Format("Jan 2, 2006"))
	fmt.Fprintf(&body, "<p>%s</p>\n<ul>\n", html.EscapeString(summary))
	for _, p := range d.Phases {
		status := "in progress"
		if p.Complete {
			status = "complete"
		}
		fmt.Fprintf(&body, "<li>%s: %d%% (%s)</li>\n", html.EscapeString(p.Name), p.Percent, status)
	}
	body.WriteString("</ul>\n")

	return Email{Subject: subject, HTML: body.String(), Text: text.String()}
}

// MailtoURL builds a mailto link for the given message. URLs past the cap
// fail; callers fall back to the clipboard flow.
func MailtoURL(to, subject, body string) (string, error) {
	u := fmt.Sprintf("mailto:%s?subject=%s&body=%s", to, escape(subject), escape(body))
	if len(u) > MaxMailtoLen {
		return "", svcerr.Newf(svcerr.Invalid, "formatted email is %d characters, over the %d mailto limit", len(u), MaxMailtoLen)
	}
	return u, nil
}

// escape percent-encodes a mailto component. QueryEscape's plus-for-space
// convention is not understood by mail clients.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func itemLabel(it purchase.LineItem) string {
	if it.SKU != "" {
		return fmt.Sprintf("%s (%s)", it.Name, it.SKU)
	}
	return it.Name
}

func dollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
