package tartunlp

import (
	"context"

	"tartunlp-mcp/internal/tools"
)

// Tool names exposed by the server.
const (
	ToolTranslateText         = "translate_text"
	ToolDetectLanguage        = "detect_language"
	ToolGetSupportedLanguages = "get_supported_languages"
)

// TranslateArgs are the arguments of translate_text.
type TranslateArgs struct {
	Text       string `mapstructure:"text"`
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	Model      string `mapstructure:"model"`
}

// DetectArgs are the arguments of detect_language.
type DetectArgs struct {
	Text string `mapstructure:"text"`
}

// Tools returns the catalogue in the order it is advertised to clients.
func Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        ToolTranslateText,
			Description: "Translate text between supported language pairs using TartuNLP",
			InputSchema: tools.Schema{Fields: []tools.Field{
				{Name: "text", Type: tools.TypeString, Description: "Text to translate", Required: true},
				{Name: "source_lang", Type: tools.TypeString, Description: "Source language code (e.g., 'et', 'en', 'ru')", Required: true},
				{Name: "target_lang", Type: tools.TypeString, Description: "Target language code (e.g., 'et', 'en', 'ru')", Required: true},
				{Name: "model", Type: tools.TypeString, Description: "Optional model/domain specification"},
			}},
		},
		{
			Name:        ToolDetectLanguage,
			Description: "Detect the language of the input text using TartuNLP",
			InputSchema: tools.Schema{Fields: []tools.Field{
				{Name: "text", Type: tools.TypeString, Description: "Text to analyze for language detection", Required: true},
			}},
		},
		{
			Name:        ToolGetSupportedLanguages,
			Description: "Get list of supported language pairs and available languages",
			InputSchema: tools.Schema{},
		},
	}
}

// Handlers binds every catalogue tool to the client.
func Handlers(c *Client) map[string]tools.Handler {
	return map[string]tools.Handler{
		ToolTranslateText: tools.Bind(func(ctx context.Context, a TranslateArgs) (any, error) {
			return c.Translate(ctx, Request{
				Text:       a.Text,
				SourceLang: a.SourceLang,
				TargetLang: a.TargetLang,
				Model:      a.Model,
			})
		}),
		ToolDetectLanguage: tools.Bind(func(ctx context.Context, a DetectArgs) (any, error) {
			return c.DetectLanguage(ctx, a.Text)
		}),
		ToolGetSupportedLanguages: tools.HandlerFunc(func(ctx context.Context, _ map[string]any) (any, error) {
			return c.SupportedLanguages(ctx), nil
		}),
	}
}

// NewDispatcher builds the registry and dispatcher for the TartuNLP tools.
func NewDispatcher(c *Client, opts ...tools.Option) (*tools.Dispatcher, error) {
	reg, err := tools.NewRegistry(Tools()...)
	if err != nil {
		return nil, err
	}
	return tools.NewDispatcher(reg, Handlers(c), opts...)
}
