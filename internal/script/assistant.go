package script

import "github.com/nbtcare/voicescreen/internal/voice"

// Assistant builds the platform configuration for a screening call,
// personalized with the child's name.
func Assistant(childName string) voice.AssistantConfig {
	return voice.AssistantConfig{
		Name:         AssistantName,
		FirstMessage: FirstMessage,
		Transcriber: voice.TranscriberConfig{
			Model:    "gemini-2.0-flash",
			Language: "Multilingual",
			Provider: "google",
		},
		Voice: voice.VoiceConfig{
			Model:                    "speech-02-turbo",
			Pitch:                    0,
			Speed:                    1.2,
			Region:                   "worldwide",
			Volume:                   1,
			VoiceID:                  "vapi_yoshita_pvc_voice_v1",
			Provider:                 "minimax",
			LanguageBoost:            "Hindi",
			TextNormalizationEnabled: true,
		},
		Model: voice.ModelConfig{
			Model: "gpt-4o-mini",
			Messages: []voice.ModelMessage{
				{Role: "system", Content: SystemPrompt(childName)},
			},
			Provider:    "openai",
			Temperature: 0.5,
		},
	}
}
