package services

import (
	"fmt"

	"hotline/models"
)

// SectionSeparator is the token the generator is instructed to place between
// answer sections, and the token the splitter looks for.
const SectionSeparator = "###"

// RefusalMessage is the canned reply for technical questions the documents
// cannot answer.
const RefusalMessage = "Je suis désolé, je n'ai pas assez d'informations pour répondre à cette question technique."

// systemTemplate carries the hotline persona and formatting rules. The %s
// placeholder receives the retrieved document context.
const systemTemplate = "You are a helpful hotline assistant named Oskour. " +
	"You should respond to user queries in French. " +
	"For technical questions, use the provided documents to answer. " +
	"For casual conversations or greetings like 'bonjour', 'ça va ?', etc., respond in a friendly and conversational manner. " +
	"Only if the user is asking a technical question and the answer is not in the documents, respond: " +
	"'" + RefusalMessage + "' " +
	"Never end your answer with a generic closing such as 'N'hésitez pas à me poser d'autres questions.'; another component handles follow-ups. " +
	"If the user asks about something said earlier, check the conversation history to answer. " +
	"Structure your answer in 2 to 5 sections separated by the token '" + SectionSeparator + "' on its own line, " +
	"and bold at most 2-3 key terms per section using **double asterisks**." +
	"\n\nDocuments:\n%s"

// PromptAssembler turns retrieved context, windowed history and the live
// question into the ordered message sequence for the generation backend.
type PromptAssembler struct{}

// NewPromptAssembler creates a prompt assembler.
func NewPromptAssembler() *PromptAssembler {
	return &PromptAssembler{}
}

// Build returns the message sequence: exactly one system message first, the
// history pairs verbatim, then the question as the trailing user message.
// Alternation correctness of historyPairs is the window's responsibility.
func (p *PromptAssembler) Build(context string, historyPairs []models.ChatMessage, question string) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(historyPairs)+2)
	messages = append(messages, models.ChatMessage{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf(systemTemplate, context),
	})
	messages = append(messages, historyPairs...)
	messages = append(messages, models.ChatMessage{
		Role:    models.RoleUser,
		Content: question,
	})
	return messages
}
