package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gingfrederik/docx"
	"github.com/labstack/echo/v4"

	"github.com/sellscope/accountplan/internal/agent/core"
	"github.com/sellscope/accountplan/session"
)

var sectionTitles = map[string]string{
	core.SectionCompanyOverview:     "Company Overview",
	core.SectionKeyFindings:         "Key Findings",
	core.SectionPainPoints:          "Pain Points",
	core.SectionOpportunities:       "Opportunities",
	core.SectionCompetitors:         "Competitors",
	core.SectionRecommendedStrategy: "Recommended Strategy",
}

func (h *ResearchHandler) export(c echo.Context) error {
	_, snap, ok := h.currentSnapshot(c)
	if !ok {
		return nil
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("account_plan_%d.docx", time.Now().UnixNano()))
	if err := renderPlanDocx(snap, path); err != nil {
		return c.JSON(http.StatusInternalServerError, HTTPError{Error: "export_failed", Detail: err.Error()})
	}
	defer os.Remove(path)

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="account_plan.docx"`)
	return c.File(path)
}

// renderPlanDocx writes the plan as a single-column document. The docx
// library only saves to a path, so rendering goes through a temp file.
func renderPlanDocx(snap session.Snapshot, path string) error {
	f := docx.NewFile()

	p := f.AddParagraph()
	title := p.AddText("Account Plan")
	title.Size(20)

	p = f.AddParagraph()
	p.AddText(fmt.Sprintf("Company: %s", snap.Company))
	p = f.AddParagraph()
	p.AddText(fmt.Sprintf("Version %d — %s", snap.Version, snap.UpdatedAt.Format("2006-01-02 15:04")))

	f.AddParagraph() // Spacer

	for _, key := range core.SectionKeys() {
		content, _ := snap.Plan.Section(key)
		p = f.AddParagraph()
		heading := p.AddText(sectionTitles[key])
		heading.Size(14)

		p = f.AddParagraph()
		p.AddText(content)
		f.AddParagraph()
	}

	p = f.AddParagraph()
	conf := p.AddText(fmt.Sprintf("Confidence: %s", snap.Plan.Confidence))
	conf.Size(12)

	if len(snap.Plan.Sources) > 0 {
		f.AddParagraph()
		p = f.AddParagraph()
		src := p.AddText("Sources")
		src.Size(14)
		for _, url := range snap.Plan.Sources {
			p = f.AddParagraph()
			p.AddText(url)
		}
	}

	return f.Save(path)
}
