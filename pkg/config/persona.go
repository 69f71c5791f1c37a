package config

import "github.com/AltairaLabs/PromptKiosk/runtime/providers/gemini"

// DefaultGreeting is the first AI line of every conversation.
const DefaultGreeting = "Hello! How can I help you today?"

// DefaultSystemInstruction is the receptionist persona.
const DefaultSystemInstruction = "You are a friendly and professional AI receptionist named Eva. " +
	"Greet the guest warmly and ask how you can help them. " +
	"Listen for the user's language and respond in the same language for the entire conversation. " +
	"Adapt your language and tone to match the user's speaking style. " +
	"If the user is formal, be formal. If the user is casual and uses slang, be casual and use similar slang. " +
	"Mirror their energy and vocabulary while remaining helpful and professional. " +
	"Keep your responses concise."

// Persona is who the kiosk speaks as.
type Persona struct {
	Name              string `yaml:"name" mapstructure:"name"`
	Voice             string `yaml:"voice" mapstructure:"voice"`
	Greeting          string `yaml:"greeting" mapstructure:"greeting"`
	SystemInstruction string `yaml:"system_instruction" mapstructure:"system_instruction"`
}

// DefaultPersona returns Eva.
func DefaultPersona() Persona {
	return Persona{
		Name:              "Eva",
		Voice:             gemini.DefaultVoice,
		Greeting:          DefaultGreeting,
		SystemInstruction: DefaultSystemInstruction,
	}
}

// LiveConfig converts the persona and model settings into a session config.
func (c *Config) LiveConfig() gemini.LiveConfig {
	return gemini.LiveConfig{
		Model:             c.Gemini.Model,
		Voice:             c.Persona.Voice,
		SystemInstruction: c.Persona.SystemInstruction,
	}
}
