package agents

import (
	"context"
	"fmt"

	"github.com/playbookforge/playbook-engine/engine/prompts"
	"github.com/playbookforge/playbook-engine/engine/state"
	"github.com/playbookforge/playbook-engine/engine/textparse"
	"github.com/playbookforge/playbook-engine/engine/typeutil"
)

// =============================================================================
// MESSAGING GENERATOR
// =============================================================================

// handleMessagingGenerator builds the messaging framework step by step: one
// focused call per component, each with its own fallback. A single bad
// response costs one field, not the whole framework. On reflection passes
// the prompts carry the accumulated critique directives.
func handleMessagingGenerator(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("messaging generation requires a business profile")
	}

	rs.GeneratorPasses++
	framework := &state.MessagingFramework{}
	fallbackSteps := 0

	// Step 1: value proposition.
	system, user := prompts.ValueProposition(rs)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		framework.ValueProposition = extractStringField(text, "value_proposition")
	}
	if framework.ValueProposition == "" {
		framework.ValueProposition = fallbackValueProposition(profile)
		fallbackSteps++
	}

	// Step 2: elevator pitch, chained off the value proposition.
	system, user = prompts.ElevatorPitch(rs, framework.ValueProposition)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		framework.ElevatorPitch = extractStringField(text, "elevator_pitch")
	}
	if framework.ElevatorPitch == "" {
		framework.ElevatorPitch = fallbackElevatorPitch(profile)
		fallbackSteps++
	}

	// Step 3: taglines.
	system, user = prompts.Taglines(rs, framework.ValueProposition)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		framework.TaglineOptions = extractStringSlice(text, "tagline_options", 5)
	}
	if len(framework.TaglineOptions) == 0 {
		framework.TaglineOptions = fallbackTaglines(profile)
		fallbackSteps++
	}

	// Step 4: differentiators.
	system, user = prompts.Differentiators(rs)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		framework.Differentiators = extractStringSlice(text, "differentiators", 3)
	}
	if len(framework.Differentiators) == 0 {
		framework.Differentiators = fallbackDifferentiators(profile)
		fallbackSteps++
	}

	// Static components.
	framework.ToneGuidelines = defaultToneGuidelines()
	framework.KeyMessages = defaultKeyMessages(profile)

	rs.Messaging = framework
	return map[string]any{
		"value_proposition": framework.ValueProposition,
		"tagline_count":     len(framework.TaglineOptions),
		"fallback_steps":    fallbackSteps,
		"generator_pass":    rs.GeneratorPasses,
	}, nil
}

// =============================================================================
// CONTENT CREATOR
// =============================================================================

// handleContentCreator produces channel assets one content type at a time,
// mirroring the messaging generator's per-step fallback pattern.
func handleContentCreator(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("content creation requires a business profile")
	}

	assets := &state.ContentAssets{}
	fb := fallbackContentAssets(profile, rs.Messaging)
	fallbackSteps := 0

	// Website headlines.
	system, user := prompts.WebsiteHeadlines(rs)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		assets.WebsiteHeadlines = extractStringSlice(text, "website_headlines", 3)
	}
	if len(assets.WebsiteHeadlines) == 0 {
		assets.WebsiteHeadlines = fb.WebsiteHeadlines
		fallbackSteps++
	}

	// LinkedIn posts arrive as one blob separated by "---".
	system, user = prompts.LinkedInPosts(rs)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		assets.LinkedInPosts = extractPosts(text)
	}
	if len(assets.LinkedInPosts) == 0 {
		assets.LinkedInPosts = fb.LinkedInPosts
		fallbackSteps++
	}

	// Email templates as Subject:/Body: blobs.
	system, user = prompts.EmailTemplates(rs)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		for _, raw := range extractStringSlice(text, "email_templates", 2) {
			assets.EmailTemplates = append(assets.EmailTemplates, parseEmailTemplate(raw))
		}
	}
	if len(assets.EmailTemplates) == 0 {
		assets.EmailTemplates = fb.EmailTemplates
		fallbackSteps++
	}

	// Sales one-liners.
	system, user = prompts.SalesOneLiners(rs)
	if text, ok, err := stageText(ctx, ex, system, user); err != nil {
		return nil, err
	} else if ok {
		assets.SalesOneLiners = extractStringSlice(text, "sales_one_liners", 5)
	}
	if len(assets.SalesOneLiners) == 0 {
		assets.SalesOneLiners = fb.SalesOneLiners
		fallbackSteps++
	}

	rs.Content = assets
	return map[string]any{
		"headline_count": len(assets.WebsiteHeadlines),
		"post_count":     len(assets.LinkedInPosts),
		"fallback_steps": fallbackSteps,
	}, nil
}

// =============================================================================
// RESPONSE FIELD EXTRACTION
// =============================================================================

func extractStringField(text, field string) string {
	payload, err := textparse.ParseStructuredResponse(text)
	if err != nil {
		return ""
	}
	return typeutil.SafeStringDefault(payload[field], "")
}

func extractStringSlice(text, field string, limit int) []string {
	payload, err := textparse.ParseStructuredResponse(text)
	if err != nil {
		return nil
	}
	items, _ := typeutil.SafeStringSlice(payload[field])
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// extractPosts handles both wire shapes the post prompt can produce: a
// single "---" separated string or a JSON list.
func extractPosts(text string) []string {
	payload, err := textparse.ParseStructuredResponse(text)
	if err != nil {
		return nil
	}
	raw := payload["linkedin_posts"]
	if blob, ok := typeutil.SafeString(raw); ok && blob != "" {
		posts := splitPosts(blob)
		if len(posts) > 2 {
			posts = posts[:2]
		}
		return posts
	}
	posts, _ := typeutil.SafeStringSlice(raw)
	if len(posts) > 2 {
		posts = posts[:2]
	}
	return posts
}
