package prompts

import (
	"fmt"
	"strings"

	"github.com/playbookforge/playbook-engine/engine/state"
)

const messagingSystem = "You are a senior messaging strategist. You write sharp, specific B2B " +
	"marketing copy grounded in positioning and emotional insight. Avoid generic claims; every " +
	"line should only be sayable by this company. " + jsonOnlyInstruction

// RevisionContext renders accumulated critique directives into an
// instruction block. Generation prompts append it on reflection passes so
// regenerated copy actually addresses the critique instead of repeating the
// first draft.
func RevisionContext(rs *state.RunState) string {
	if rs.ReflectionCycle == 0 || len(rs.CritiquePoints) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\nThis is revision pass %d. A reviewer critiqued the previous draft. "+
		"You MUST address every point below:\n%s", rs.ReflectionCycle, formatList(rs.CritiquePoints))

	if len(rs.RefinementFocus) > 0 {
		fmt.Fprintf(&b, "\n\nHighest priority fixes:\n%s", formatList(rs.RefinementFocus))
	}
	if rs.MetaReview != nil && len(rs.MetaReview.FocusAreas) > 0 {
		fmt.Fprintf(&b, "\n\nFocus areas for this pass:\n%s", formatList(rs.MetaReview.FocusAreas))
	}
	return b.String()
}

func messagingContext(rs *state.RunState) string {
	var b strings.Builder
	if rs.BusinessProfile != nil {
		fmt.Fprintf(&b, "Business profile:\n%s\n\n", formatJSON(rs.BusinessProfile))
	}
	if rs.Positioning != nil {
		fmt.Fprintf(&b, "Positioning:\n%s\n\n", formatJSON(rs.Positioning))
	}
	if rs.EmotionalMap != nil && rs.EmotionalMap.TransformationNarrative != "" {
		fmt.Fprintf(&b, "Transformation narrative: %s\n\n", rs.EmotionalMap.TransformationNarrative)
	}
	if rs.TrustElements != nil && len(rs.TrustElements.ConfidenceMessages) > 0 {
		fmt.Fprintf(&b, "Trust messages to echo:\n%s\n\n", formatList(rs.TrustElements.ConfidenceMessages))
	}
	return b.String()
}

// ValueProposition builds the value proposition step prompt pair.
func ValueProposition(rs *state.RunState) (string, string) {
	user := fmt.Sprintf(`%sWrite the core value proposition: one or two sentences stating who it is for, what it does, and the outcome it delivers.

Return JSON: {"value_proposition": "..."}%s`, messagingContext(rs), RevisionContext(rs))
	return messagingSystem, user
}

// ElevatorPitch builds the elevator pitch step prompt pair.
func ElevatorPitch(rs *state.RunState, valueProposition string) (string, string) {
	user := fmt.Sprintf(`%sValue proposition: %s

Expand it into a 30-second elevator pitch: problem, solution, differentiation, outcome. Three to five sentences.

Return JSON: {"elevator_pitch": "..."}%s`, messagingContext(rs), valueProposition, RevisionContext(rs))
	return messagingSystem, user
}

// Taglines builds the tagline options step prompt pair.
func Taglines(rs *state.RunState, valueProposition string) (string, string) {
	user := fmt.Sprintf(`%sValue proposition: %s

Write exactly 5 tagline options, each under 8 words, each taking a different angle (outcome, emotion, differentiation, speed, trust).

Return JSON: {"tagline_options": ["...", "...", "...", "...", "..."]}%s`,
		messagingContext(rs), valueProposition, RevisionContext(rs))
	return messagingSystem, user
}

// Differentiators builds the differentiators step prompt pair.
func Differentiators(rs *state.RunState) (string, string) {
	user := fmt.Sprintf(`%sWrite exactly 3 key differentiators. Each must name something competitors cannot credibly claim, stated as a customer benefit.

Return JSON: {"differentiators": ["...", "...", "..."]}%s`, messagingContext(rs), RevisionContext(rs))
	return messagingSystem, user
}

// =============================================================================
// CONTENT CREATION
// =============================================================================

const contentSystem = "You are a conversion copywriter. You turn a messaging framework into " +
	"channel-ready assets that sound human and specific, never like template filler. " + jsonOnlyInstruction

func contentContext(rs *state.RunState) string {
	var b strings.Builder
	if rs.Messaging != nil {
		fmt.Fprintf(&b, "Messaging framework:\n%s\n\n", formatJSON(rs.Messaging))
	}
	if rs.BusinessProfile != nil {
		fmt.Fprintf(&b, "Audience: %s. Tone: %s.\n\n", rs.BusinessProfile.TargetAudience, rs.BusinessProfile.TonePreference)
	}
	return b.String()
}

// WebsiteHeadlines builds the headline step prompt pair.
func WebsiteHeadlines(rs *state.RunState) (string, string) {
	user := fmt.Sprintf(`%sWrite exactly 3 website hero headlines with supporting subheadlines. Lead with outcome, not features.

Return JSON: {"website_headlines": ["Headline | Subheadline", "...", "..."]}%s`,
		contentContext(rs), RevisionContext(rs))
	return contentSystem, user
}

// LinkedInPosts builds the social post step prompt pair. Posts are returned
// as one text blob separated by "---" and split by the decoder.
func LinkedInPosts(rs *state.RunState) (string, string) {
	user := fmt.Sprintf(`%sWrite exactly 2 LinkedIn posts (120-180 words each): one pain-point story post, one insight post. Separate the two posts with a line containing only "---".

Return JSON: {"linkedin_posts": "post one text\n---\npost two text"}%s`,
		contentContext(rs), RevisionContext(rs))
	return contentSystem, user
}

// EmailTemplates builds the email step prompt pair. Each template is a
// "Subject:" line followed by a "Body:" opening, parsed by the decoder.
func EmailTemplates(rs *state.RunState) (string, string) {
	user := fmt.Sprintf(`%sWrite exactly 2 cold outreach email templates. Format each as:
Subject: <subject line>
Body: <first two sentences of the email>

Return JSON: {"email_templates": ["Subject: ...\nBody: ...", "Subject: ...\nBody: ..."]}%s`,
		contentContext(rs), RevisionContext(rs))
	return contentSystem, user
}

// SalesOneLiners builds the one-liner step prompt pair.
func SalesOneLiners(rs *state.RunState) (string, string) {
	user := fmt.Sprintf(`%sWrite exactly 5 sales one-liners a rep can say verbatim: conversation openers and objection responses.

Return JSON: {"sales_one_liners": ["...", "...", "...", "...", "..."]}%s`,
		contentContext(rs), RevisionContext(rs))
	return contentSystem, user
}
