package config

import (
	"fmt"
	"os"
	"strings"

	"shortforge/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeText()
	c.normalizeImage()
	c.normalizeVoice()
	c.normalizeTranscript()
	c.normalizeRender()
	c.normalizeRetry()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeProfiles()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("SHORTFORGE_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	if c.Jobs.Segments <= 0 {
		c.Jobs.Segments = defaultJobSegments
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AssetsDir) == "" {
		c.Paths.AssetsDir = defaultAssetsDir
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.PublishDir, err = expandPath(c.Paths.PublishDir); err != nil {
		return fmt.Errorf("paths.publish_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeText() {
	c.Text.Provider = strings.ToLower(strings.TrimSpace(c.Text.Provider))
	if c.Text.Provider == "" {
		c.Text.Provider = defaultTextProvider
	}
	c.Text.BaseURL = strings.TrimSpace(c.Text.BaseURL)
	c.Text.Model = strings.TrimSpace(c.Text.Model)
	c.Text.APIKeys = strings.TrimSpace(c.Text.APIKeys)
	switch c.Text.Provider {
	case ProviderOpenRouter:
		if c.Text.BaseURL == "" {
			c.Text.BaseURL = defaultOpenRouterBaseURL
		}
		if c.Text.Model == "" {
			c.Text.Model = defaultOpenRouterModel
		}
		if c.Text.APIKeys == "" {
			c.Text.APIKeys = lookupEnv("OPENROUTER_API_KEY")
		}
	default:
		if c.Text.BaseURL == "" {
			c.Text.BaseURL = defaultOpenAIBaseURL
		}
		if c.Text.Model == "" {
			c.Text.Model = defaultTextModel
		}
		if c.Text.APIKeys == "" {
			c.Text.APIKeys = lookupEnv("OPENAI_API_KEYS", "OPENAI_API_KEY")
		}
	}
	c.Text.Referer = strings.TrimSpace(c.Text.Referer)
	if c.Text.Referer == "" {
		c.Text.Referer = defaultTextReferer
	}
	c.Text.Title = strings.TrimSpace(c.Text.Title)
	if c.Text.Title == "" {
		c.Text.Title = defaultTextTitle
	}
	if c.Text.TimeoutSeconds <= 0 {
		c.Text.TimeoutSeconds = defaultTextTimeoutSeconds
	}
}

func (c *Config) normalizeImage() {
	c.Image.APIKeys = strings.TrimSpace(c.Image.APIKeys)
	if c.Image.APIKeys == "" {
		c.Image.APIKeys = lookupEnv("OPENAI_API_KEYS", "OPENAI_API_KEY")
	}
	c.Image.BaseURL = strings.TrimSpace(c.Image.BaseURL)
	if c.Image.BaseURL == "" {
		c.Image.BaseURL = defaultOpenAIBaseURL
	}
	c.Image.Model = strings.TrimSpace(c.Image.Model)
	if c.Image.Model == "" {
		c.Image.Model = defaultImageModel
	}
	if c.Image.Count <= 0 {
		c.Image.Count = defaultImageCount
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.APIKeys = strings.TrimSpace(c.Voice.APIKeys)
	if c.Voice.APIKeys == "" {
		c.Voice.APIKeys = lookupEnv("OPENAI_API_KEYS", "OPENAI_API_KEY")
	}
	c.Voice.BaseURL = strings.TrimSpace(c.Voice.BaseURL)
	if c.Voice.BaseURL == "" {
		c.Voice.BaseURL = defaultOpenAIBaseURL
	}
	c.Voice.Model = strings.TrimSpace(c.Voice.Model)
	if c.Voice.Model == "" {
		c.Voice.Model = defaultVoiceModel
	}
	c.Voice.VoiceID = strings.TrimSpace(c.Voice.VoiceID)
	if c.Voice.VoiceID == "" {
		c.Voice.VoiceID = defaultVoiceID
	}
}

func (c *Config) normalizeTranscript() {
	c.Transcript.Binary = strings.TrimSpace(c.Transcript.Binary)
	if c.Transcript.Binary == "" {
		c.Transcript.Binary = defaultTranscriptBinary
	}
	c.Transcript.Language = language.Normalize(c.Transcript.Language)
	if c.Transcript.Language == "" {
		c.Transcript.Language = defaultTranscriptLanguage
	}
	if c.Transcript.TimeoutSeconds <= 0 {
		c.Transcript.TimeoutSeconds = defaultTranscriptTimeout
	}
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.AudioBitrate = strings.TrimSpace(c.Render.AudioBitrate)
	if c.Render.AudioBitrate == "" {
		c.Render.AudioBitrate = defaultAudioBitrate
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultRenderFPS
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.BaseDelayMilli < 0 {
		c.Retry.BaseDelayMilli = 0
	}
	if c.Retry.MaxDelayMilli > 0 && c.Retry.MaxDelayMilli < c.Retry.BaseDelayMilli {
		c.Retry.MaxDelayMilli = c.Retry.BaseDelayMilli
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeProfiles() {
	if len(c.Profiles) == 0 {
		c.Profiles = []Profile{defaultProfile()}
	}
	profiles := make([]Profile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = p.ID
		}
		p.Language = language.Normalize(p.Language)
		if p.Language == "" {
			p.Language = defaultProfileLanguage
		}
		p.Tone = strings.TrimSpace(p.Tone)
		if p.Tone == "" {
			p.Tone = defaultProfileTone
		}
		p.VoiceID = strings.TrimSpace(p.VoiceID)
		if p.VoiceID == "" {
			p.VoiceID = c.Voice.VoiceID
		}
		p.ImageStyle = strings.TrimSpace(p.ImageStyle)
		p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
		profiles = append(profiles, p)
	}
	c.Profiles = profiles
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
