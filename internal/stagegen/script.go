package stagegen

import (
	"context"
	"fmt"
	"strings"

	"shortforge/internal/config"
	"shortforge/internal/language"
	"shortforge/internal/logging"
	"shortforge/internal/pipeline"
	"shortforge/internal/services"
	"shortforge/internal/services/llm"
	"shortforge/internal/textutil"
)

// copiedScriptOverlap is the token overlap above which a script is flagged as
// mirroring its reference too closely.
const copiedScriptOverlap = 0.85

// ScriptSystemPrompt builds the system prompt for narration scripts.
func ScriptSystemPrompt(profile config.Profile) string {
	if prompt := strings.TrimSpace(profile.SystemPrompt); prompt != "" {
		return prompt
	}
	tone := profile.Tone
	if tone == "" {
		tone = "engaging"
	}
	return fmt.Sprintf("You write narration for vertical short-form videos under 60 seconds. "+
		"Write in %s with a %s tone. Return only the narration text with no headings, "+
		"stage directions, or emoji.", language.DisplayName(profile.Language), tone)
}

func generateScript(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	ref, ok := p.Reference()
	if !ok || !ref.HasContent() {
		return nil, missing(pipeline.StageScript, "reference transcript")
	}
	if g.deps.Text == nil {
		return nil, unconfigured(pipeline.StageScript, "text")
	}
	profile := g.profile(p.ChannelID)
	user := fmt.Sprintf("Rewrite the following transcript into an original narration script of about 120 words. "+
		"Keep the facts, change the wording.\n\nTitle: %s\n\nTranscript:\n%s", ref.Title, ref.Transcript)

	text, err := g.deps.Text.Generate(ctx, ScriptSystemPrompt(profile), user, "")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageScript), "generate script", "text provider failed", err)
	}
	text = llm.StripCodeFence(text)
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageScript), "generate script", "text provider returned an empty script", nil)
	}

	if overlap := textutil.Overlap(text, ref.Transcript); overlap >= copiedScriptOverlap {
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "script closely mirrors its reference", "script_overlap",
			logging.Any("overlap", overlap),
			logging.String(logging.FieldImpact, "published script may read as a copy of the source"),
			logging.String(logging.FieldErrorHint, "review the script or regenerate it"),
		)
	}
	payload := pipeline.NewScriptPayload(text, pipeline.ModeAuto)
	payload.Model = g.config().Text.Model
	return payload, nil
}
