// Package export renders an application as a printable document.
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"orphanadmin/internal/application"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/obs"
)

const exportAction = "export application"

// ErrExportInProgress is returned while another export of the same
// application is running.
var ErrExportInProgress = errors.New("export already in progress")

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// ParseFormat accepts pdf and html in any case. Empty means pdf.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", application.ErrValidation, raw)
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Getter loads the application to render.
type Getter interface {
	GetApplication(ctx context.Context, id string) (application.Application, error)
}

type Exporter struct {
	apps     Getter
	notifier notify.Notifier
	guard    *Guard
	now      func() time.Time
}

// NewExporter returns an exporter that reports failed exports to n.
func NewExporter(apps Getter, n notify.Notifier) *Exporter {
	if n == nil {
		n = notify.Discard
	}
	return &Exporter{apps: apps, notifier: n, guard: NewGuard(), now: time.Now}
}

// Export renders application id in format. Only one export per application
// runs at a time.
func (e *Exporter) Export(ctx context.Context, id string, format Format) (Document, error) {
	release, ok := e.guard.Acquire(id)
	if !ok {
		obs.ObserveExport(string(format), "busy")
		err := fmt.Errorf("%w: %s", ErrExportInProgress, id)
		e.notifier.Notify(ctx, notify.Failure(exportAction, id, err))
		return Document{}, err
	}
	defer release()

	doc, err := e.export(ctx, id, format)
	if err != nil {
		obs.ObserveExport(string(format), "error")
		e.notifier.Notify(ctx, notify.Failure(exportAction, id, err))
		return Document{}, err
	}
	obs.ObserveExport(string(format), "ok")
	return doc, nil
}

func (e *Exporter) export(ctx context.Context, id string, format Format) (Document, error) {
	a, err := e.apps.GetApplication(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	generated := e.now().UTC()
	base := "application-" + a.ID
	switch format {
	case FormatPDF:
		body, err := renderPDF(a, generated)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	case FormatHTML:
		body, err := renderHTML(a, generated)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: base + ".html", ContentType: "text/html; charset=utf-8", Body: body}, nil
	}
	return Document{}, fmt.Errorf("%w: unsupported export format %q", application.ErrValidation, format)
}

// Guard admits one holder per key.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire returns a release func and true, or false when key is held.
func (g *Guard) Acquire(key string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}

type field struct {
	Label string
	Value string
}

type section struct {
	Title  string
	Fields []field
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func sections(a application.Application) []section {
	p, addr, g, ed := a.PrimaryInformation, a.Address, a.Guardian, a.Education
	out := []section{
		{"Application", []field{
			{"ID", a.ID},
			{"Status", string(a.Status)},
			{"Created by", orDash(a.CreatedBy)},
			{"Last reviewed by", orDash(a.LastReviewedBy)},
			{"Created", a.CreatedAt.UTC().Format("2006-01-02 15:04")},
			{"Last modified", a.LastModifiedAt.UTC().Format("2006-01-02 15:04")},
		}},
		{"Primary information", []field{
			{"Full name", orDash(p.FullName)},
			{"Father's name", orDash(p.FatherName)},
			{"Mother's name", orDash(p.MotherName)},
			{"Date of birth", orDash(p.DateOfBirth)},
			{"Gender", orDash(p.Gender)},
			{"BC registration", orDash(p.BCRegistration)},
			{"Physical condition", orDash(p.PhysicalCondition)},
		}},
		{"Address", []field{
			{"District", orDash(addr.District)},
			{"Sub-district", orDash(addr.SubDistrict)},
			{"Village", orDash(addr.Village)},
			{"Residence status", orDash(addr.ResidenceStatus)},
		}},
		{"Guardian", []field{
			{"Name", orDash(g.Name)},
			{"Relation", orDash(g.Relation)},
			{"Phone", orDash(g.Phone)},
			{"Occupation", orDash(g.Occupation)},
		}},
		{"Education", []field{
			{"Institution", orDash(ed.Institution)},
			{"Class", orDash(ed.Class)},
			{"Last result", orDash(ed.LastResult)},
		}},
	}
	if a.Status == application.StatusRejected {
		out[0].Fields = append(out[0].Fields, field{"Rejection reason", orDash(a.RejectionMessage)})
	}
	family := section{Title: "Family members"}
	for i, m := range a.FamilyMembers {
		family.Fields = append(family.Fields, field{
			Label: strconv.Itoa(i + 1),
			Value: fmt.Sprintf("%s (%s, %d) %s", m.Name, orDash(m.Relation), m.Age, m.Occupation),
		})
	}
	if len(family.Fields) == 0 {
		family.Fields = []field{{"-", "none recorded"}}
	}
	return append(out, family)
}
