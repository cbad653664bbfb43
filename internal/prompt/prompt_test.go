package prompt

import (
	"strings"
	"testing"
	"time"
)

func TestResearchInput(t *testing.T) {
	t.Parallel()

	got := ResearchInput("Pune, India", "kitchen", "**Common Name**: Red Flour Beetle")
	want := "Insect identified in: Pune, India\nContext: kitchen\n\n**Common Name**: Red Flour Beetle"
	if got != want {
		t.Errorf("ResearchInput() = %q, want %q", got, want)
	}
}

func TestSynthesisInput(t *testing.T) {
	t.Parallel()

	got := SynthesisInput("ID", "Lagos", "Not Specified", "- https://a.example")
	want := "\nInsect Identification:\nID\n\nLocation: Lagos\nContext: Not Specified\n\n" +
		"Research Results:\n- https://a.example\n\nGenerate a comprehensive pest control report based on these.\n"
	if got != want {
		t.Errorf("SynthesisInput() = %q, want %q", got, want)
	}
}

func TestSynthesisInput_Verbatim(t *testing.T) {
	t.Parallel()

	identification := "  **Common Name**: Aphid\n\n\n"
	got := SynthesisInput(identification, "x", "y", "z")
	if !strings.Contains(got, "Insect Identification:\n"+identification+"\n\nLocation: x") {
		t.Errorf("identification was not inserted verbatim: %q", got)
	}
}

func TestTemplateRender(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("identifier has no date and carries the output schema", func(t *testing.T) {
		t.Parallel()

		got := Identifier().Render(now)
		for _, want := range []string{"expert entomologist", "## Instructions", "## Output Format", "**Common Name**: <Insect Name>"} {
			if !strings.Contains(got, want) {
				t.Errorf("identifier prompt missing %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "The current time is") {
			t.Errorf("identifier prompt should not carry the date:\n%s", got)
		}
	})

	t.Run("researcher names the tool and the date", func(t *testing.T) {
		t.Parallel()

		got := Researcher().Render(now)
		for _, want := range []string{"search_google", "exactly once", "The current time is 2026-03-14 09:26:53 UTC."} {
			if !strings.Contains(got, want) {
				t.Errorf("researcher prompt missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("advisor lists every heading", func(t *testing.T) {
		t.Parallel()

		got := Advisor().Render(now)
		for _, h := range reportHeadings {
			if !strings.Contains(got, h) {
				t.Errorf("advisor prompt missing %q", h)
			}
		}
		if !strings.Contains(got, "raw URLs") {
			t.Errorf("advisor prompt should forbid raw URLs:\n%s", got)
		}
	})

	t.Run("blank instructions are dropped", func(t *testing.T) {
		t.Parallel()

		got := Template{Description: "d", Instructions: []string{"one", "  ", "two"}}.Render(now)
		if strings.Count(got, "- ") != 2 {
			t.Errorf("expected two bullets:\n%s", got)
		}
	})
}
