package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"hotline/models"

	"github.com/bwmarrin/discordgo"
)

// discordMessageLimit is the hard per-message character limit imposed by the
// platform.
const discordMessageLimit = 2000

// DiscordService exposes the hotline over a Discord bot. Each answer is
// delivered as its split parts in order, with a typing indicator and delay
// before each part so the exchange reads like a human operator.
type DiscordService struct {
	session       *discordgo.Session
	chatbot       *Chatbot
	knowledgeBase string
	commandPrefix string
	enabled       bool
	startTime     time.Time
}

// NewDiscordService creates the Discord gateway. Without DISCORD_BOT_TOKEN in
// the environment the gateway stays disabled and the rest of the service runs
// normally.
func NewDiscordService(chatbot *Chatbot, knowledgeBase string) *DiscordService {
	token := os.Getenv("DISCORD_BOT_TOKEN")
	commandPrefix := os.Getenv("DISCORD_COMMAND_PREFIX")
	if commandPrefix == "" {
		commandPrefix = "!oskour "
	}

	service := &DiscordService{
		chatbot:       chatbot,
		knowledgeBase: knowledgeBase,
		commandPrefix: commandPrefix,
		enabled:       false,
		startTime:     time.Now(),
	}

	if token == "" {
		log.Printf("Discord gateway disabled: DISCORD_BOT_TOKEN environment variable not set")
		return service
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Printf("Error creating Discord session: %v", err)
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		log.Printf("Discord bot online as %s, connected to %d servers", event.User.Username, len(event.Guilds))
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	log.Printf("Discord gateway initialized with prefix: %s", commandPrefix)
	return service
}

// Start opens the websocket connection to Discord.
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("Discord gateway not enabled (missing bot token)")
	}
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord connection: %w", err)
	}
	log.Printf("Discord bot started, use '%s<question>' in Discord", d.commandPrefix)
	return nil
}

// Stop closes the Discord connection.
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// messageCreate handles one incoming Discord message.
func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, d.commandPrefix) {
		return
	}

	question := strings.TrimSpace(m.Content[len(d.commandPrefix):])
	if question == "" {
		d.sendPart(s, m.ChannelID, fmt.Sprintf("Posez votre question après `%s`", strings.TrimSpace(d.commandPrefix)))
		return
	}

	s.ChannelTyping(m.ChannelID)

	// One conversation per user per channel
	sessionID := fmt.Sprintf("discord_%s_%s", m.Author.ID, m.ChannelID)

	resp, err := d.chatbot.ProcessQuestion(context.Background(), models.ChatRequest{
		Question:      question,
		KnowledgeBase: d.knowledgeBase,
		SessionID:     sessionID,
		Source:        "user",
	})
	if err != nil {
		log.Printf("Discord chat failed for session %s: %v", sessionID, err)
		d.sendPart(s, m.ChannelID, "Désolé, une erreur est survenue. Réessayez dans un instant.")
		return
	}

	d.deliverParts(s, m.ChannelID, resp.MessageParts, resp.TypingDelays)

	log.Printf("Discord chat: user %s (%s) in channel %s: %s",
		m.Author.Username, m.Author.ID, m.ChannelID, question)
}

// deliverParts sends the answer parts in order. Before each part the typing
// indicator is shown for that part's delay, simulating composition time.
func (d *DiscordService) deliverParts(s *discordgo.Session, channelID string, parts []string, delays []int) {
	for i, part := range parts {
		if part == "" {
			continue
		}
		s.ChannelTyping(channelID)
		if i < len(delays) {
			time.Sleep(time.Duration(delays[i]) * time.Millisecond)
		}
		d.sendPart(s, channelID, part)
	}
}

// sendPart sends one part, hard-splitting in the rare case a part exceeds the
// platform limit.
func (d *DiscordService) sendPart(s *discordgo.Session, channelID, part string) {
	for _, chunk := range hardSplit(part, discordMessageLimit-100) {
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			log.Printf("Error sending Discord message: %v", err)
		}
	}
}

// hardSplit cuts text into chunks of at most maxLength, preferring word
// boundaries.
func hardSplit(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	for len(text) > maxLength {
		splitIndex := maxLength
		if spaceIndex := strings.LastIndex(text[:maxLength], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}
		chunks = append(chunks, text[:splitIndex])
		text = strings.TrimPrefix(text[splitIndex:], " ")
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// IsEnabled returns whether the Discord gateway is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// GetStatus returns the current status of the Discord gateway
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":        d.enabled,
		"command_prefix": d.commandPrefix,
		"uptime":         time.Since(d.startTime).String(),
	}

	if d.enabled && d.session != nil && d.session.State.User != nil {
		status["status"] = "connected"
		status["user"] = map[string]interface{}{
			"id":       d.session.State.User.ID,
			"username": d.session.State.User.Username,
		}
		status["guilds"] = len(d.session.State.Guilds)
	} else if d.enabled {
		status["status"] = "initialized_not_started"
	} else {
		status["status"] = "disabled"
		status["note"] = "Set DISCORD_BOT_TOKEN environment variable to enable"
	}

	return status
}
