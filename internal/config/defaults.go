package config

const (
	defaultConfigPath           = "~/.config/shortforge/config.toml"
	defaultDataDir              = "~/.local/share/shortforge"
	defaultAssetsDir            = "~/.local/share/shortforge/assets"
	defaultLogDir               = "~/.local/share/shortforge/logs"
	defaultPublishDir           = "~/shortforge/published"
	defaultTextProvider         = ProviderOpenAI
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultTextModel            = "gpt-4o-mini"
	defaultOpenRouterModel      = "google/gemini-3-flash-preview"
	defaultTextReferer          = "https://github.com/shortforge/shortforge"
	defaultTextTitle            = "shortforge"
	defaultTextTimeoutSeconds   = 60
	defaultImageModel           = "dall-e-3"
	defaultImageWidth           = 1024
	defaultImageHeight          = 1792
	defaultImageCount           = 5
	defaultVoiceModel           = "tts-1"
	defaultVoiceID              = "alloy"
	defaultTranscriptBinary     = "yt-dlp"
	defaultTranscriptLanguage   = "en"
	defaultTranscriptTimeout    = 60
	defaultFFmpegBinary         = "ffmpeg"
	defaultRenderWidth          = 1080
	defaultRenderHeight         = 1920
	defaultRenderFPS            = 30
	defaultAudioBitrate         = "64k"
	defaultRetryAttempts        = 3
	defaultRetryBaseDelayMilli  = 1000
	defaultRetryMaxDelayMilli   = 10000
	defaultJobSegments          = 5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:7621"
	defaultProfileID            = "default"
	defaultProfileLanguage      = "en"
	defaultProfileTone          = "curious and upbeat"
)

// Text provider identifiers.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			AssetsDir:  defaultAssetsDir,
			LogDir:     defaultLogDir,
			PublishDir: defaultPublishDir,
		},
		Text: Text{
			Provider:       defaultTextProvider,
			Referer:        defaultTextReferer,
			Title:          defaultTextTitle,
			TimeoutSeconds: defaultTextTimeoutSeconds,
		},
		Image: Image{
			BaseURL: defaultOpenAIBaseURL,
			Model:   defaultImageModel,
			Width:   defaultImageWidth,
			Height:  defaultImageHeight,
			Count:   defaultImageCount,
		},
		Voice: Voice{
			BaseURL: defaultOpenAIBaseURL,
			Model:   defaultVoiceModel,
			VoiceID: defaultVoiceID,
		},
		Transcript: Transcript{
			Binary:         defaultTranscriptBinary,
			Language:       defaultTranscriptLanguage,
			TimeoutSeconds: defaultTranscriptTimeout,
		},
		Render: Render{
			FFmpegBinary: defaultFFmpegBinary,
			Width:        defaultRenderWidth,
			Height:       defaultRenderHeight,
			FPS:          defaultRenderFPS,
			AudioBitrate: defaultAudioBitrate,
		},
		Retry: Retry{
			Attempts:       defaultRetryAttempts,
			BaseDelayMilli: defaultRetryBaseDelayMilli,
			MaxDelayMilli:  defaultRetryMaxDelayMilli,
		},
		Jobs: Jobs{
			Segments: defaultJobSegments,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Review:         true,
			Completion:     true,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Bind: defaultAPIBind,
		},
	}
}

func defaultProfile() Profile {
	return Profile{
		ID:       defaultProfileID,
		Name:     "Default",
		Language: defaultProfileLanguage,
		Tone:     defaultProfileTone,
		VoiceID:  defaultVoiceID,
	}
}
