package bot

import "github.com/bwmarrin/discordgo"

// Responder abstracts responding to a Discord interaction.
// Handlers respond through this interface so they can be tested
// without a live Discord connection.
type Responder interface {
	Respond(response *discordgo.InteractionResponse) error

	// Followup sends a follow-up message after a deferred response.
	// Handlers that do slow work acknowledge first, then follow up.
	Followup(content string) error
}

// DiscordResponder implements Responder using a live Discord session.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// NewDiscordResponder creates a new DiscordResponder.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends a response to the interaction via the Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(r.interaction, response)
}

// Followup sends a follow-up message to the interaction via the Discord API.
func (r *DiscordResponder) Followup(content string) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	return err
}

// MockResponder is a test double for Responder.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	Followups    []string
	Err          error
}

// Respond records the response for testing.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.LastResponse = response
	return m.Err
}

// Followup records the follow-up content for testing.
func (m *MockResponder) Followup(content string) error {
	m.Followups = append(m.Followups, content)
	return m.Err
}
