package export

import (
	"fmt"
	"strings"

	"github.com/aretw0/vignette/pkg/domain"
)

// Report is everything Markdown needs about one run.
type Report struct {
	Run       domain.Run
	Scene     *domain.SceneCard
	Technique *domain.Technique
	Variants  []domain.Variant
}

// Markdown renders a run summary with a variant table and the best prompt.
func Markdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", r.Run.ID)
	if r.Scene != nil {
		fmt.Fprintf(&b, "- **Scene:** %s\n", r.Scene.Name)
	} else {
		fmt.Fprintf(&b, "- **Scene:** %s\n", r.Run.SceneID)
	}
	if r.Technique != nil {
		fmt.Fprintf(&b, "- **Technique:** %s\n", r.Technique.Name)
	} else {
		fmt.Fprintf(&b, "- **Technique:** %s\n", r.Run.TechniqueID)
	}
	fmt.Fprintf(&b, "- **Created:** %s\n", r.Run.CreatedAt.UTC().Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(&b, "- **Variants:** %d\n", r.Run.VariantCount)
	fmt.Fprintf(&b, "- **Pass threshold:** %d\n", r.Run.PassThreshold)
	if r.Run.RootSeed != nil {
		fmt.Fprintf(&b, "- **Root seed:** %d\n", *r.Run.RootSeed)
	}

	counts := make(map[domain.Status]int)
	for _, v := range r.Variants {
		counts[v.Status]++
	}
	parts := make([]string, 0, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
	}
	fmt.Fprintf(&b, "- **Status:** %s\n\n", strings.Join(parts, " · "))

	b.WriteString("| # | Variant | Seed | Camera | Emotion | Motion | Score | Status |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, v := range r.Variants {
		score := "–"
		if v.QCScore != nil {
			score = fmt.Sprintf("%d", *v.QCScore)
		}
		status := string(v.Status)
		if v.Status == domain.StatusBest {
			status = "**best**"
		}
		fmt.Fprintf(&b, "| %d | `%s` | %d | %s | %s | %s | %s | %s |\n",
			v.Index, v.ID, v.Seed, cell(v.Controls.Camera), cell(v.Controls.Emotion), cell(v.Controls.Motion), score, status)
	}

	for _, v := range r.Variants {
		if r.Run.IsBest(v.ID) {
			fmt.Fprintf(&b, "\n## Best prompt (`%s`)\n\n```text\n%s\n```\n", v.ID, v.PromptText)
		}
	}
	return b.String()
}

// cell escapes pipes so values never split a table column.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
