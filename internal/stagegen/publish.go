package stagegen

import (
	"context"

	"shortforge/internal/pipeline"
	"shortforge/internal/providers"
	"shortforge/internal/services"
)

func (g *Generators) publishMetadata(p *pipeline.Project) providers.PublishMetadata {
	meta := providers.PublishMetadata{Title: p.Title, ChannelID: p.ChannelID}
	if script, ok := p.Script(); ok {
		meta.Description = firstSentence(script.Text)
	}
	return meta
}

func publishVideo(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	video, ok := payloadOf[*pipeline.VideoPayload](p, pipeline.StageVideo)
	if !ok || !video.HasContent() {
		return nil, missing(pipeline.StagePublishVideo, "video")
	}
	if g.deps.Publisher == nil {
		return nil, unconfigured(pipeline.StagePublishVideo, "publish")
	}
	record, err := g.deps.Publisher.Publish(ctx, video.Path, g.publishMetadata(p))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StagePublishVideo), "publish video", "publisher failed", err)
	}
	return &pipeline.PublishVideoPayload{
		Mode:        pipeline.ModeAuto,
		Platform:    record.Platform,
		URL:         record.URL,
		ExternalID:  record.ExternalID,
		PublishedAt: record.PublishedAt,
	}, nil
}

func publishThumbnail(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	thumb, ok := payloadOf[*pipeline.ThumbnailPayload](p, pipeline.StageThumbnail)
	if !ok || !thumb.HasContent() {
		return nil, missing(pipeline.StagePublishThumbnail, "thumbnail")
	}
	if g.deps.Publisher == nil {
		return nil, unconfigured(pipeline.StagePublishThumbnail, "publish")
	}
	record, err := g.deps.Publisher.Publish(ctx, thumb.Path, g.publishMetadata(p))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StagePublishThumbnail), "publish thumbnail", "publisher failed", err)
	}
	return &pipeline.PublishThumbnailPayload{Mode: pipeline.ModeAuto, Confirmed: true, URL: record.URL}, nil
}
