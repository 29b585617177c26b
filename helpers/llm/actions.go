package llm

import (
	"rtvikit/protocol"

	"github.com/sashabaranov/go-openai"
)

const (
	ActionAppendToMessages = "append_to_messages"
	ActionGetContext       = "get_context"
	ActionSetContext       = "set_context"
	ActionRun              = "run"
)

// UserMessage and SystemMessage build context entries.
func UserMessage(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
}

func SystemMessage(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: text}
}

func messagesArgs(messages []openai.ChatCompletionMessage, runImmediately bool) []protocol.ActionArgument {
	if messages == nil {
		messages = []openai.ChatCompletionMessage{}
	}
	args := []protocol.ActionArgument{{Name: "messages", Value: messages}}
	if runImmediately {
		args = append(args, protocol.ActionArgument{Name: "run_immediately", Value: true})
	}
	return args
}

// AppendToMessages adds messages to the bot's LLM context.
func AppendToMessages(messages []openai.ChatCompletionMessage, runImmediately bool) (*protocol.Message, error) {
	return protocol.Action(Service, ActionAppendToMessages, messagesArgs(messages, runImmediately))
}

// SetContext replaces the bot's LLM context.
func SetContext(messages []openai.ChatCompletionMessage, runImmediately bool) (*protocol.Message, error) {
	return protocol.Action(Service, ActionSetContext, messagesArgs(messages, runImmediately))
}

// GetContext asks the bot for its LLM context; the answer arrives as the
// action-response.
func GetContext() (*protocol.Message, error) {
	return protocol.Action(Service, ActionGetContext, nil)
}

// Run triggers an LLM turn; with interrupt set the bot stops speaking first.
func Run(interrupt bool) (*protocol.Message, error) {
	return protocol.Action(Service, ActionRun, []protocol.ActionArgument{{Name: "interrupt", Value: interrupt}})
}
