package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// Sentinel prefixes the completion service uses as an out-of-band command
// channel. Parsed once here; the router only sees typed commands.
const (
	sentinelShowProduct = "MOSTRAR_MODELO:"
	sentinelShowCatalog = "MOSTRAR_CATALOGO:"
	sentinelAskGender   = "PEDIR_CATALOGO"
	sentinelAskType     = "PREGUNTAR_TIPO:"
)

// CommandKind tags the parsed advisor reply
type CommandKind int

const (
	CommandText CommandKind = iota
	CommandShowProduct
	CommandShowCatalog
	CommandAskGender
	CommandAskWatchType
)

// AdvisorCommand is the parsed form of one completion reply
type AdvisorCommand struct {
	Kind     CommandKind
	Code     string // CommandShowProduct
	Category string // CommandShowCatalog
	Gender   string // CommandAskWatchType
	Text     string // CommandText
	Raw      string // verbatim reply, kept in the conversation history
}

// ParseAdvisorReply turns the raw completion text into a typed command
func ParseAdvisorReply(text string) AdvisorCommand {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, sentinelShowProduct):
		code := strings.TrimSpace(strings.TrimPrefix(text, sentinelShowProduct))
		return AdvisorCommand{Kind: CommandShowProduct, Code: code, Raw: text}
	case strings.HasPrefix(text, sentinelShowCatalog):
		category := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(text, sentinelShowCatalog)))
		return AdvisorCommand{Kind: CommandShowCatalog, Category: category, Raw: text}
	case text == sentinelAskGender:
		return AdvisorCommand{Kind: CommandAskGender, Raw: text}
	case strings.HasPrefix(text, sentinelAskType):
		gender := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(text, sentinelAskType)))
		return AdvisorCommand{Kind: CommandAskWatchType, Gender: gender, Raw: text}
	}
	return AdvisorCommand{Kind: CommandText, Text: text, Raw: text}
}

// CompletionClient is the slice of the OpenAI client the advisor needs,
// stubbed in tests
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AdvisorService wraps the chat-completion call with the store context
type AdvisorService struct {
	client       CompletionClient
	model        string
	systemPrompt string
	timeout      time.Duration
}

// NewAdvisorService creates the advisor from the environment. The system
// prompt should already carry the catalog context.
func NewAdvisorService(systemPrompt string) (*AdvisorService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY in environment variables")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4o
	}

	return &AdvisorService{
		client:       openai.NewClient(apiKey),
		model:        model,
		systemPrompt: systemPrompt,
		timeout:      30 * time.Second,
	}, nil
}

// NewAdvisorServiceWithClient wires a custom completion client (tests)
func NewAdvisorServiceWithClient(client CompletionClient, systemPrompt string) *AdvisorService {
	return &AdvisorService{
		client:       client,
		model:        openai.GPT4o,
		systemPrompt: systemPrompt,
		timeout:      30 * time.Second,
	}
}

// Complete sends the conversation history to the completion service and
// parses the reply. The caller appends the user turn to the history before
// calling, so a failed call leaves a retryable conversation behind.
func (a *AdvisorService) Complete(history []models.ChatMessage) (AdvisorCommand, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.systemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return AdvisorCommand{}, fmt.Errorf("advisor completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return AdvisorCommand{}, fmt.Errorf("advisor returned no choices")
	}

	return ParseAdvisorReply(resp.Choices[0].Message.Content), nil
}
