package prompt

import (
	"io"
	"strings"
	"time"

	"github.com/nao1215/markdown"
)

// IdentifyUserMessage is sent with the photo to the identifier model.
const IdentifyUserMessage = "Identify this insect and assess its traits."

// Report headings required by the advisor instructions.
const (
	HeadingIdentification = "## 🐞 Insect Identification"
	HeadingGuide          = "## 🧪 Safe Pest Control Guide"
	HeadingRemedies       = "### 🌱 Natural Remedies"
	HeadingSafety         = "### 🏡 Indoor/Outdoor Safety Tips"
	HeadingAvoid          = "### 🚫 What to Avoid"
	HeadingResources      = "### 🔗 Trusted Resources"
)

// Template is a stage's system instruction.
type Template struct {
	// Role is a short statement of what the model is for.
	Role string

	// Description sets the persona and task.
	Description string

	// Instructions are rendered as a bullet list in order.
	Instructions []string

	// OutputFormat, when set, is rendered as a fenced markdown skeleton.
	OutputFormat string

	// AddDateTime appends the current time as a final instruction.
	AddDateTime bool
}

// Render builds the system instruction text. now is only used when
// AddDateTime is set.
func (t Template) Render(now time.Time) string {
	md := markdown.NewMarkdown(io.Discard)

	if t.Role != "" {
		md.PlainText(t.Role)
		md.PlainText("")
	}
	md.PlainText(strings.TrimSpace(t.Description))
	md.PlainText("")

	instructions := make([]string, 0, len(t.Instructions)+1)
	for _, in := range t.Instructions {
		if strings.TrimSpace(in) != "" {
			instructions = append(instructions, in)
		}
	}
	if t.AddDateTime {
		instructions = append(instructions, "The current time is "+now.Format("2006-01-02 15:04:05 MST")+".")
	}
	if len(instructions) > 0 {
		md.H2("Instructions")
		md.PlainText("")
		md.BulletList(instructions...)
		md.PlainText("")
	}

	if t.OutputFormat != "" {
		md.H2("Output Format")
		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlight("markdown"), strings.TrimSpace(t.OutputFormat))
		md.PlainText("")
	}

	return strings.TrimSpace(md.String())
}

// IdentificationFormat is the markdown schema the identifier must follow.
const IdentificationFormat = `**Common Name**: <Insect Name>
**Scientific Name**: *<Botanical Name>*
**Confidence**: <e.g., 88%>
**Visual Traits**:
- ...
- ...
**Potential Risk**: <Short sentence>`

// Identifier is the instruction for the identification stage.
func Identifier() Template {
	return Template{
		Role: "Identifies insects from images and describes key traits and risks.",
		Description: "You are an expert entomologist. When given an image of an insect, " +
			"your job is to identify the insect species, describe its appearance, and estimate a confidence level.",
		Instructions: []string{
			"Analyze the uploaded image and identify the insect species or best match.",
			"Provide the common name and scientific name.",
			"Estimate a confidence level (percentage).",
			"List key visual features (e.g., size, color, number of legs, wings, antennae).",
			"Mention any known risk the insect poses (e.g., crop damage, harmless, bites).",
			"Output in the markdown format below, without wrapping it in a code fence.",
			"If unsure, list the top 2–3 likely species and clearly note uncertainty.",
		},
		OutputFormat: IdentificationFormat,
	}
}

// Researcher is the instruction for the research stage.
func Researcher() Template {
	return Template{
		Role: "Finds safe pest control strategies based on insect identification and context.",
		Description: "You are a pest control researcher. Given the insect name, location, and context, " +
			"your job is to find safe and natural pest control measures using web search.",
		Instructions: []string{
			"Read the insect name, region, and context provided.",
			"Generate ONE focused Google search query, e.g., 'natural pest control for red flour beetle indoor India'.",
			"Use `search_google` with that query. Call it exactly once.",
			"Return a clean, curated list of 10 helpful URLs offering pest control solutions.",
			"Avoid listing product ads or irrelevant pages. Prioritize natural or safe methods.",
			"Do NOT summarize results. Just output URLs clearly in markdown list format.",
		},
		AddDateTime: true,
	}
}

// ReportFormat is the skeleton the advisor must follow.
var ReportFormat = strings.Join([]string{
	HeadingIdentification,
	"- **Common Name**",
	"- **Scientific Name** (italicized)",
	"- **Confidence** (e.g., 87%)",
	"- **Visual Traits** (use bullet points)",
	"- **Potential Risk** (one-line explanation)",
	"",
	HeadingGuide,
	HeadingRemedies,
	HeadingSafety,
	HeadingAvoid,
	HeadingResources,
}, "\n")

// Advisor is the instruction for the synthesis stage.
func Advisor() Template {
	return Template{
		Role: "Generates a full insect identification and pest control report.",
		Description: "You are a pest control advisor. Given a structured insect identification summary, " +
			"a list of curated pest control resources, and the user's region and context, " +
			"your task is to create a helpful Markdown report with two main sections: " +
			HeadingIdentification + " and " + HeadingGuide + ".",
		Instructions: []string{
			"Begin with the " + HeadingIdentification + " section.",
			"Include the common name, scientific name (italicized), confidence (e.g., 87%), visual traits as bullet points, and potential risk as a one-line explanation.",
			"Then, add " + HeadingGuide + " with the four ### subheadings shown below, in that order.",
			"Summarize care strategies using information from the provided URLs only.",
			"Use proper Markdown to embed links directly into the report. Do **not** paste raw URLs.",
			"Example: Instead of 'https://example.com', write: [How to handle aphids](https://example.com)",
			"Only include hyperlinks that relate to specific strategies or facts discussed in the guide.",
			"Under 'Trusted Resources', format the links as a clean bulleted list with descriptive link text.",
			"Do not add extra commentary or meta instructions. Output only the formatted Markdown report, without a surrounding code fence.",
		},
		OutputFormat: ReportFormat,
		AddDateTime:  true,
	}
}

// ResearchInput is the research stage's user message.
func ResearchInput(location, context, identification string) string {
	return "Insect identified in: " + location + "\nContext: " + context + "\n\n" + identification
}

// SynthesisInput is the synthesis stage's user message.
func SynthesisInput(identification, location, context, resources string) string {
	var b strings.Builder
	b.WriteString("\nInsect Identification:\n")
	b.WriteString(identification)
	b.WriteString("\n\nLocation: ")
	b.WriteString(location)
	b.WriteString("\nContext: ")
	b.WriteString(context)
	b.WriteString("\n\nResearch Results:\n")
	b.WriteString(resources)
	b.WriteString("\n\nGenerate a comprehensive pest control report based on these.\n")
	return b.String()
}
